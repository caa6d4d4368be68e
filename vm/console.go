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

package vm

import (
	"bufio"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

type flusher interface {
	Flush() error
}

// byteReaderWrapper wraps a basic reader into a io.ByteReader and io.Closer.
type byteReaderWrapper struct {
	*bufio.Reader
	c io.Closer
}

func (r *byteReaderWrapper) Close() error {
	if r.c != nil {
		return r.c.Close()
	}
	return nil
}

func newByteReader(r io.Reader) io.ByteReader {
	switch rr := r.(type) {
	case nil:
		return nil
	case io.ByteReader:
		return rr
	default:
		c, _ := r.(io.Closer)
		return &byteReaderWrapper{bufio.NewReader(r), c}
	}
}

type multiByteReader struct {
	readers []io.ByteReader
}

func (mr *multiByteReader) ReadByte() (c byte, err error) {
	for len(mr.readers) > 0 {
		c, err = mr.readers[0].ReadByte()
		if err != io.EOF {
			return
		}
		// discard the reader and optionally close it
		if cl, ok := mr.readers[0].(io.Closer); ok {
			cl.Close()
		}
		mr.readers = mr.readers[1:]
	}
	return 0, io.EOF
}

// PushInput sets r as the current input of the environment. When this reader
// reaches EOF, the previously pushed reader will be used.
func (e *Env) PushInput(r io.Reader) {
	switch in := e.input.(type) {
	case nil:
		e.input = newByteReader(r)
	case *multiByteReader:
		in.readers = append([]io.ByteReader{newByteReader(r)}, in.readers...)
	default:
		e.input = &multiByteReader{[]io.ByteReader{newByteReader(r), e.input}}
	}
}

// getc returns the next input byte or -1 at end of input.
func (e *Env) getc() Cell {
	e.flush()
	if e.input == nil {
		return -1
	}
	c, err := e.input.ReadByte()
	if err != nil {
		if err != io.EOF {
			panic(errors.Wrap(err, "input"))
		}
		return -1
	}
	return Cell(c)
}

// gets reads a line of at most n-1 bytes into memory at addr, newline
// included, and terminates it with a zero. It returns addr, or 0 if no byte
// could be read.
func (e *Env) gets(addr, n Cell) Cell {
	if n <= 0 {
		return 0
	}
	buf := e.bytes(addr)[:n]
	i := 0
	for i < len(buf)-1 {
		c := e.getc()
		if c < 0 {
			break
		}
		buf[i] = byte(c)
		i++
		if c == '\n' {
			break
		}
	}
	buf[i] = 0
	if i == 0 {
		return 0
	}
	return addr
}

func (e *Env) write(p []byte) {
	if e.output == nil {
		return
	}
	if _, err := e.output.Write(p); err != nil {
		panic(errors.Wrap(err, "output"))
	}
}

func (e *Env) putc(c Cell) {
	e.write([]byte{byte(c)})
}

func (e *Env) puti(v Cell, base int) {
	var b []byte
	if base == 16 {
		b = append(b, '0', 'x')
		b = strconv.AppendUint(b, uint64(uint32(v)), 16)
	} else {
		b = strconv.AppendInt(b, int64(v), 10)
	}
	e.write(append(b, ' '))
}

func (e *Env) flush() {
	if f, ok := e.output.(flusher); ok {
		if err := f.Flush(); err != nil {
			panic(errors.Wrap(err, "output"))
		}
	}
}

// appendStack appends the stack depth and contents, bottom first, as in
// "[3] 1 2 3".
func (e *Env) appendStack(b []byte) []byte {
	b = append(b, '[')
	b = strconv.AppendInt(b, int64(e.Depth()), 10)
	b = append(b, ']')
	for _, v := range e.Data() {
		b = append(b, ' ')
		b = strconv.AppendInt(b, int64(v), 10)
	}
	return b
}
