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
	"fmt"
	"strconv"
)

// profile increments the reference count of the symbol starting at offset
// off in segment s, if any.
func (e *Env) profile(s, off int) *Symbol {
	m := e.segs[s].mod
	if m == nil {
		return nil
	}
	sym := m.SymbolAt(off)
	if sym != nil {
		sym.RefCount++
	}
	return sym
}

// where formats a code location as "R[depth] module::symbol@offset" and
// counts the reference to the symbol.
func (e *Env) where(b []byte, s, off int) []byte {
	b = append(b, "R["...)
	b = strconv.AppendInt(b, int64(e.rp), 10)
	b = append(b, "] "...)
	m := e.segs[s].mod
	if m == nil {
		return strconv.AppendInt(b, int64(off), 10)
	}
	b = append(append(b, m.Name...), "::"...)
	if sym := e.profile(s, off); sym != nil {
		b = append(append(b, sym.Name...), '@')
	}
	return strconv.AppendInt(b, int64(off), 10)
}

// target returns the code segment and offset of the callee or branch target
// of the instruction about to execute, or -1 if it has none.
func (e *Env) target(op Opcode) (seg, off int) {
	ip := e.ip
	switch op {
	case OpMest:
		s := e.dep(e.seg, int(e.code[ip]))
		return s, int16At(e.code, ip+1)
	case OpMesti:
		s := e.dep(e.seg, int(e.code[ip]))
		m := e.segs[s].mod
		if i := int(e.code[ip+1]); i < len(m.Symbols) {
			return s, m.Symbols[i].Offset
		}
	case OpBrax, OpBrzx:
		return e.seg, ip + 2 + int16At(e.code, ip)
	case OpNnest:
		t := 2 * int(e.tos)
		if t >= 0 && t < int(e.code[ip]) {
			p := ip + 1 + t
			return e.seg, p + 2 + int16At(e.code, p)
		}
	}
	return -1, -1
}

func (e *Env) traceLine(name string, b []byte) {
	if e.trace != nil {
		fmt.Fprintf(e.trace, "%8s %s\n", name, b)
	}
}

// overlay is the interpreter loop used when tracing or profiling. It counts
// executed opcodes and symbol references and, when tracing, prints one line
// per instruction before executing it.
func (e *Env) overlay() {
	var buf []byte
	for {
		tracing := e.status&statusTrace != 0
		b := int8(e.code[e.ip])
		e.ip++
		e.insCount++
		if b < 0 {
			e.nest(b)
			e.counters.Ops[OpNest]++
			if tracing {
				e.traceLine(OpNest.String(), e.where(buf[:0], e.seg, e.ip))
			} else {
				e.profile(e.seg, e.ip)
			}
			continue
		}
		op := Opcode(b)
		e.counters.Ops[op]++
		if tracing {
			buf = buf[:0]
			switch s, off := e.target(op); {
			case s >= 0:
				buf = e.where(buf, s, off)
			case op >= OpUnnest && op <= OpUnlit:
				buf = append(buf, "R["...)
				buf = strconv.AppendInt(buf, int64(e.rp), 10)
				buf = append(buf, ']')
			default:
				buf = append(buf, 'S')
				buf = e.appendStack(buf)
			}
			e.traceLine(op.String(), buf)
		} else if s, off := e.target(op); s >= 0 {
			e.profile(s, off)
		}
		if e.exec(op) {
			return
		}
	}
}
