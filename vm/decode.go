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
	"encoding/binary"

	"github.com/pkg/errors"
)

// Instruction is a decoded instruction.
type Instruction struct {
	Pos    int    // offset of the first byte
	Size   int    // encoded size in bytes
	Op     Opcode // OpNest for implicit calls
	Call   bool   // true for an implicit call
	Arg    int    // immediate value, branch offset, module index or table size
	Arg2   int    // code offset or symbol index of module calls
	Target int    // branch or call target, -1 if none
	Str    []byte // string literal bytes, terminating zero included
	Table  []int  // select table targets
}

func int16At(code []byte, p int) int {
	return int(int16(binary.BigEndian.Uint16(code[p:])))
}

// Decode decodes the instruction at offset pos of code.
func Decode(code []byte, pos int) (in Instruction, err error) {
	in = Instruction{Pos: pos, Target: -1}
	short := func(n int) bool {
		if pos+n > len(code) {
			err = errors.Wrapf(ErrMalformed, "truncated instruction at %d", pos)
			return true
		}
		return false
	}
	if pos < 0 || short(1) {
		return in, errors.Wrapf(ErrMalformed, "truncated instruction at %d", pos)
	}
	b := int8(code[pos])
	if b < 0 {
		if short(2) {
			return in, err
		}
		in.Op, in.Call, in.Size = OpNest, true, 2
		in.Arg = int16At(code, pos)
		in.Target = pos + 2 + in.Arg
		return in, nil
	}
	in.Op, in.Size = Opcode(b), 1
	p := pos + 1
	if in.Op.Operand() == Page {
		if short(2) {
			return in, err
		}
		in.Op = Opcode(int(b)<<8 | int(code[p]))
		in.Size, p = 2, p+1
	}
	switch in.Op.Operand() {
	case Rel8:
		if short(in.Size + 1) {
			return in, err
		}
		in.Arg = int(int8(code[p]))
		in.Size++
		in.Target = pos + in.Size + in.Arg
	case Rel16:
		if short(in.Size + 2) {
			return in, err
		}
		in.Arg = int16At(code, p)
		in.Size += 2
		in.Target = pos + in.Size + in.Arg
	case Imm8:
		if short(in.Size + 1) {
			return in, err
		}
		in.Arg = int(int8(code[p]))
		in.Size++
	case Imm32:
		if short(in.Size + 4) {
			return in, err
		}
		in.Arg = int(int32(binary.BigEndian.Uint32(code[p:])))
		in.Size += 4
	case Str8:
		if short(in.Size + 1) {
			return in, err
		}
		n := int(code[p])
		if short(in.Size + 1 + n) {
			return in, err
		}
		in.Arg = n
		in.Str = code[p+1 : p+1+n]
		in.Size += 1 + n
	case Table8:
		if short(in.Size + 1) {
			return in, err
		}
		n := int(code[p])
		if short(in.Size + 1 + n) {
			return in, err
		}
		in.Arg = n
		for t := p + 1; t+2 <= p+1+n; t += 2 {
			in.Table = append(in.Table, t+2+int16At(code, t))
		}
		in.Size += 1 + n
	case ModCall:
		if short(in.Size + 3) {
			return in, err
		}
		in.Arg = int(code[p])
		in.Arg2 = int16At(code, p+1)
		in.Size += 3
	case ModSym:
		if short(in.Size + 2) {
			return in, err
		}
		in.Arg = int(code[p])
		in.Arg2 = int(code[p+1])
		in.Size += 2
	}
	return in, nil
}
