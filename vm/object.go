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
	"io"

	"github.com/db47h/vfm/internal/xio"
	"github.com/pkg/errors"
)

// ObjectMagic is the signature line opening an object file.
const ObjectMagic = "vfm object 1.0\n"

// ReadObject reads a module from r. If symbols is false, the symbol table is
// skipped and the returned module has a nil Symbols slice. Used modules are
// not resolved.
func ReadObject(r io.Reader, symbols bool) (*Module, error) {
	rd := xio.NewReader(r)
	if rd.Line() != ObjectMagic {
		if err := rd.Err(); err != nil && err != io.ErrUnexpectedEOF {
			return nil, errors.Wrap(err, "read object")
		}
		return nil, ErrFormat
	}
	m := &Module{
		Name:    rd.String(),
		Ident:   rd.String(),
		Version: rd.String(),
	}
	m.Timestamp = rd.Int32()
	n := rd.Int32()
	if rd.Err() == nil && (n < 0 || n > MaxUses) {
		return nil, errors.Wrapf(ErrAlloc, "%s: %d used modules", m.Name, n)
	}
	if n > 0 {
		m.Uses = make([]Use, n)
		for i := range m.Uses {
			m.Uses[i].Name = rd.String()
			m.Uses[i].Timestamp = rd.Int32()
		}
	}
	m.Entry = int(rd.Int32())
	n = rd.Int32()
	if rd.Err() == nil && (n < 0 || n > MaxCodeSize) {
		return nil, errors.Wrapf(ErrAlloc, "%s: code size %d", m.Name, n)
	}
	if n > 0 {
		m.Code = make([]byte, n)
		rd.Bytes(m.Code)
	}
	if rd.Err() == nil && (m.Entry < 0 || m.Entry > len(m.Code)) {
		return nil, errors.Wrapf(ErrMalformed, "%s: entry point %d", m.Name, m.Entry)
	}
	n = rd.Int32()
	if rd.Err() == nil && (n < 0 || n > MaxSymbols) {
		return nil, errors.Wrapf(ErrAlloc, "%s: %d symbols", m.Name, n)
	}
	if symbols {
		m.Symbols = make([]Symbol, n)
	}
	for i := 0; i < int(n); i++ {
		name := rd.String()
		off := rd.Int32()
		mode := rd.Int32()
		if symbols {
			m.Symbols[i] = Symbol{Name: name, Offset: int(off), Mode: mode}
		}
	}
	if err := rd.Err(); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, errors.Wrapf(ErrMalformed, "%s: truncated at byte %d", m.Name, rd.Offset())
		}
		return nil, errors.Wrap(err, "read object")
	}
	return m, nil
}

// WriteObject writes m to w in object format.
func WriteObject(w io.Writer, m *Module) error {
	wr := xio.NewWriter(w)
	wr.Line(ObjectMagic)
	wr.String(m.Name)
	wr.String(m.Ident)
	wr.String(m.Version)
	wr.Int32(m.Timestamp)
	wr.Int32(int32(len(m.Uses)))
	for _, u := range m.Uses {
		wr.String(u.Name)
		wr.Int32(u.Timestamp)
	}
	wr.Int32(int32(m.Entry))
	wr.Int32(int32(len(m.Code)))
	wr.Bytes(m.Code)
	wr.Int32(int32(len(m.Symbols)))
	for _, s := range m.Symbols {
		wr.String(s.Name)
		wr.Int32(int32(s.Offset))
		wr.Int32(s.Mode)
	}
	return wr.Err()
}
