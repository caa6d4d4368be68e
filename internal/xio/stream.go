// This file is part of vfm - https://github.com/db47h/vfm
//
// Copyright 2016 Denis Bernard <db047h@gmail.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package xio

import (
	"bufio"
	"encoding/binary"
	"io"
)

// MaxLine is the longest signature line accepted by Line.
const MaxLine = 256

// Reader reads the big-endian, zero-terminated encoding used by object and
// archive files. The first error is sticky: once a read fails, all subsequent
// reads return zero values and Err returns the failure.
type Reader struct {
	r   *bufio.Reader
	n   int64
	err error
}

// NewReader returns a Reader reading from r.
func NewReader(r io.Reader) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{r: br}
}

// Err returns the first error encountered. A short read is reported as
// io.ErrUnexpectedEOF.
func (r *Reader) Err() error { return r.err }

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 { return r.n }

func (r *Reader) fail(err error) {
	if r.err != nil {
		return
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	r.err = err
}

// Int8 reads a signed byte.
func (r *Reader) Int8() int8 {
	if r.err != nil {
		return 0
	}
	b, err := r.r.ReadByte()
	if err != nil {
		r.fail(err)
		return 0
	}
	r.n++
	return int8(b)
}

// Int32 reads a big-endian 32 bits integer.
func (r *Reader) Int32() int32 {
	var b [4]byte
	r.Bytes(b[:])
	if r.err != nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(b[:]))
}

// Bytes fills p.
func (r *Reader) Bytes(p []byte) {
	if r.err != nil {
		return
	}
	n, err := io.ReadFull(r.r, p)
	r.n += int64(n)
	if err != nil {
		r.fail(err)
	}
}

// String reads a zero terminated string. The terminating zero is consumed but
// not returned.
func (r *Reader) String() string {
	if r.err != nil {
		return ""
	}
	s, err := r.r.ReadString(0)
	r.n += int64(len(s))
	if err != nil {
		r.fail(err)
		return ""
	}
	return s[:len(s)-1]
}

// Line reads a newline terminated line of at most MaxLine bytes, newline
// included.
func (r *Reader) Line() string {
	if r.err != nil {
		return ""
	}
	var b []byte
	for len(b) < MaxLine {
		c, err := r.r.ReadByte()
		if err != nil {
			r.fail(err)
			return string(b)
		}
		r.n++
		b = append(b, c)
		if c == '\n' {
			break
		}
	}
	return string(b)
}

// Writer is the writing counterpart of Reader.
type Writer struct {
	ew *ErrWriter
	n  int64
}

// NewWriter returns a new Writer writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{ew: NewErrWriter(w)}
}

// Err returns the first write error.
func (w *Writer) Err() error { return w.ew.Err }

// Offset returns the number of bytes written so far.
func (w *Writer) Offset() int64 { return w.n }

// Int32 writes a big-endian 32 bits integer.
func (w *Writer) Int32(v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	w.Bytes(b[:])
}

// Bytes writes p as is.
func (w *Writer) Bytes(p []byte) {
	n, _ := w.ew.Write(p)
	w.n += int64(n)
}

// String writes s followed by a terminating zero.
func (w *Writer) String(s string) {
	w.Bytes(append([]byte(s), 0))
}

// Line writes s as is. s is expected to end with a newline.
func (w *Writer) Line(s string) {
	w.Bytes([]byte(s))
}
