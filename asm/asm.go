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

package asm

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/scanner"

	"github.com/db47h/vfm/internal/xio"
	"github.com/db47h/vfm/vm"
)

// ErrAsm wraps assembly errors. Each entry holds the source position and
// message of an error.
type ErrAsm []struct {
	Pos scanner.Position
	Msg string
}

func (e ErrAsm) Error() string {
	var b strings.Builder
	for i, err := range e {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(err.Pos.String())
		b.WriteString(": ")
		b.WriteString(err.Msg)
	}
	return b.String()
}

// Assemble compiles assembly read from the supplied io.Reader and returns the
// resulting module and error if any. The module is named after the name
// parameter unless the source contains a .module directive.
//
// Then name parameter is also used in error messages to name the source of
// the error. If the io.Reader is a file, name should be the file name.
//
// The returned error, if not nil, can safely be cast to an ErrAsm value that
// will contain up to 10 entries.
func Assemble(name string, r io.Reader) (*vm.Module, error) {
	p := newParser(name)
	if err := p.Parse(name, r); err != nil {
		return nil, err
	}
	return p.m, nil
}

func mnemonic(op vm.Opcode) string {
	return strings.ToLower(op.String())
}

// Disassemble writes a disassembly of the instruction at position pc in code
// to the specified io.Writer and returns the position of the next
// instruction and any write error. If m is not nil, call targets are named
// after the symbols of m and of the modules it uses.
func Disassemble(m *vm.Module, code []byte, pc int, w io.Writer) (next int, err error) {
	ew := xio.NewErrWriter(w)
	in, err := vm.Decode(code, pc)
	if err != nil {
		ew.WriteString("???")
		return len(code), ew.Err
	}
	switch {
	case in.Call:
		ew.WriteString("call ")
		ew.WriteString(target(m, in.Target))
	case in.Op >= vm.OpCount:
		ew.WriteString(mnemonic(in.Op))
	default:
		ew.WriteString(mnemonic(in.Op))
		switch in.Op.Operand() {
		case vm.Rel8, vm.Rel16:
			ew.WriteString(" ")
			if in.Op == vm.OpNest || in.Op == vm.OpBrax || in.Op == vm.OpBrzx || in.Op == vm.OpPlit {
				ew.WriteString(target(m, in.Target))
			} else {
				ew.WriteString(strconv.Itoa(in.Target))
			}
		case vm.Imm8, vm.Imm32:
			ew.WriteString(" ")
			ew.WriteString(strconv.Itoa(in.Arg))
		case vm.Str8:
			s := in.Str
			if n := len(s); n > 0 && s[n-1] == 0 {
				s = s[:n-1]
			}
			ew.WriteString(" ")
			ew.WriteString(strconv.Quote(string(s)))
		case vm.Table8:
			ew.WriteString(" ")
			ew.WriteString(strconv.Itoa(len(in.Table)))
			for _, t := range in.Table {
				ew.WriteString(" ")
				ew.WriteString(target(m, t))
			}
		case vm.ModCall:
			if m != nil && in.Arg < len(m.Uses) && m.Uses[in.Arg].Module != nil {
				u := m.Uses[in.Arg].Module
				if s := u.SymbolAt(in.Arg2); s != nil {
					fmt.Fprintf(ew, " %s::%s", u.Name, s.Name)
					break
				}
			}
			fmt.Fprintf(ew, " %d %d", in.Arg, in.Arg2)
		case vm.ModSym:
			fmt.Fprintf(ew, " %d %d", in.Arg, in.Arg2)
		}
	}
	return pc + in.Size, ew.Err
}

func target(m *vm.Module, t int) string {
	if m != nil {
		if s := m.SymbolAt(t); s != nil {
			return s.Name
		}
	}
	return strconv.Itoa(t)
}

// DisassembleAll writes a disassembly of the code of m to the specified
// io.Writer. Symbol entry points are shown as label definitions and the
// symbol index bytes preceding them are skipped. It will return any write
// error.
func DisassembleAll(m *vm.Module, w io.Writer) error {
	ew := xio.NewErrWriter(w)
	entries := make(map[int]*vm.Symbol, len(m.Symbols))
	for i := range m.Symbols {
		entries[m.Symbols[i].Offset] = &m.Symbols[i]
	}
	for pc := 0; pc < len(m.Code); {
		if s := entries[pc+1]; s != nil && int(m.Code[pc]) < len(m.Symbols) && &m.Symbols[m.Code[pc]] == s {
			fmt.Fprintf(ew, ":%s\n", s.Name)
			pc++
			if s.Mode == vm.ModeVariable || s.Mode == vm.ModeConstant {
				pc = data(ew, m, pc, s)
				continue
			}
		}
		fmt.Fprintf(ew, "% 6d\t", pc)
		pc, _ = Disassemble(m, m.Code, pc, ew)
		ew.Write([]byte{'\n'})
		if ew.Err != nil {
			return ew.Err
		}
	}
	return ew.Err
}

// data prints the header instruction of a variable or constant followed by
// the variable's value.
func data(ew *xio.ErrWriter, m *vm.Module, pc int, s *vm.Symbol) int {
	fmt.Fprintf(ew, "% 6d\t", pc)
	if s.Mode == vm.ModeConstant {
		next, _ := Disassemble(m, m.Code, pc, ew)
		ew.Write([]byte{'\n'})
		return next
	}
	ew.WriteString(mnemonic(vm.OpUnslit))
	ew.Write([]byte{'\n'})
	pc++
	if pc+4 > len(m.Code) {
		return pc
	}
	fmt.Fprintf(ew, "% 6d\t.dat %d\n", pc, int32(binary.BigEndian.Uint32(m.Code[pc:])))
	return pc + 4
}
