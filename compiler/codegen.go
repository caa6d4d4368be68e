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

package compiler

import "github.com/db47h/vfm/vm"

func (u *unit) emit(b ...byte) {
	u.m.Code = append(u.m.Code, b...)
}

// cell emits a big-endian cell.
func (u *unit) cell(v vm.Cell) {
	u.emit(byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func (u *unit) count(op vm.Opcode) {
	if u.counters != nil {
		u.counters.Ops[op]++
	}
}

// op emits a primitive operation. Only calls may appear in a select block.
func (u *unit) op(op vm.Opcode) error {
	if u.inSelect() {
		return u.errorf("primitive operation in select block is not allowed")
	}
	u.emit(byte(op))
	u.count(op)
	return nil
}

// call emits the 16 bits offset from the current position to s. Used alone,
// the offset is an implicit call since s always precedes the call site, so
// that the high bit of the first byte is set.
func (u *unit) call(s *vm.Symbol) error {
	off := s.Offset - len(u.m.Code) - 2
	if off < -32768 {
		return u.errorf("%s: call out of range", s.Name)
	}
	u.emit(byte(off>>8), byte(off))
	s.RefCount++
	u.count(vm.OpNest)
	return nil
}

// moduleCall emits a call to symbol s of the i-th used module.
func (u *unit) moduleCall(i int, s *vm.Symbol) error {
	if u.inSelect() {
		return u.errorf("module call in select block is not allowed")
	}
	if err := u.op(vm.OpMest); err != nil {
		return err
	}
	u.emit(byte(i), byte(s.Offset>>8), byte(s.Offset))
	s.RefCount++
	return u.op(vm.OpUnmest)
}

// symbol declares a new symbol at the current position. The symbol index is
// emitted just before its entry point.
func (u *unit) symbol(name string, mode int32) error {
	n := len(u.m.Symbols)
	if n >= vm.MaxSymbols {
		return u.errorf("module symbol limit exceeded")
	}
	u.emit(byte(n))
	u.m.Symbols = append(u.m.Symbols, vm.Symbol{Name: name, Offset: len(u.m.Code), Mode: mode})
	return nil
}

// latest returns the most recently declared symbol.
func (u *unit) latest() (*vm.Symbol, error) {
	n := len(u.m.Symbols)
	if n == 0 {
		return nil, u.errorf("no current definition")
	}
	return &u.m.Symbols[n-1], nil
}
