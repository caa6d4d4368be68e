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

func flag(b bool) Cell {
	if b {
		return -1
	}
	return 0
}

func (e *Env) imm8() int {
	v := int(int8(e.code[e.ip]))
	e.ip++
	return v
}

func (e *Env) imm16() int {
	v := int(int16(binary.BigEndian.Uint16(e.code[e.ip:])))
	e.ip += 2
	return v
}

func (e *Env) imm32() Cell {
	v := Cell(int32(binary.BigEndian.Uint32(e.code[e.ip:])))
	e.ip += 4
	return v
}

func (e *Env) here() Cell { return Addr(e.seg, e.ip) }

// jump transfers control to address a.
func (e *Env) jump(a Cell) {
	e.seg, e.ip = Split(a)
	e.code = e.segs[e.seg].mem
}

func (e *Env) call(a Cell) {
	e.Rpush(e.here())
	e.jump(a)
}

// nest performs an implicit call. The first byte of the 16 bits offset has
// already been consumed.
func (e *Env) nest(hi int8) {
	off := int(int16(uint16(uint8(hi))<<8 | uint16(e.code[e.ip])))
	e.ip++
	e.Rpush(e.here())
	e.ip += off
}

// exec executes a single instruction whose opcode has been consumed. It
// returns true if the interpreter loop must be left, either on halt or when
// the trace or profile status changed.
func (e *Env) exec(op Opcode) bool {
	switch op {
	case OpExt0, OpExt1, OpExt2, OpExt3:
		x := Opcode(int(op)<<8 | int(e.code[e.ip]))
		e.ip++
		if x < OpCount {
			return e.exec(x)
		}
		if e.status != 0 {
			e.counters.Ops[x]++
		}
		h := e.ext[x]
		if h == nil {
			panic(errors.Errorf("illegal opcode %v", x))
		}
		if err := h(e); err != nil {
			panic(err)
		}
	case OpNext:
	case OpNest:
		off := e.imm16()
		e.Rpush(e.here())
		e.ip += off
	case OpNnest:
		n := int(e.code[e.ip])
		e.ip++
		t := 2 * int(e.Pop())
		if t >= 0 && t < n {
			e.Rpush(Addr(e.seg, e.ip+n))
			e.ip += t
			off := e.imm16()
			e.ip += off
		} else {
			e.ip += n
		}
	case OpUnnest:
		e.jump(e.Rpop())
	case OpUnneze:
		if e.tos == 0 {
			e.Pop()
			e.jump(e.Rpop())
		}
	case OpMest:
		i := int(e.code[e.ip])
		e.ip++
		off := e.imm16()
		d := e.dep(e.seg, i)
		e.Rpush(Cell(e.ctx))
		e.ctx = d
		e.call(Addr(d, off))
	case OpMesti:
		i := int(e.code[e.ip])
		s := int(e.code[e.ip+1])
		e.ip += 2
		d := e.dep(e.seg, i)
		m := e.segs[d].mod
		if s >= len(m.Symbols) {
			panic(errors.Wrapf(ErrLookup, "%s: symbol #%d", m.Name, s))
		}
		e.Rpush(Cell(e.ctx))
		e.ctx = d
		e.call(Addr(d, m.Symbols[s].Offset))
	case OpUnmest:
		e.ctx = int(e.Rpop())
	case OpUnmezt:
		e.ctx = int(e.Rpop())
		e.jump(e.Rpop())
	case OpUnslit:
		e.Push(e.here())
		e.jump(e.Rpop())
	case OpUnlit:
		e.Push(e.imm32())
		e.jump(e.Rpop())
	case OpBra:
		off := e.imm8()
		e.ip += off
	case OpBrax:
		off := e.imm16()
		e.ip += off
	case OpBrzx:
		off := e.imm16()
		if e.Pop() == 0 {
			e.ip += off
		}
	case OpBrze:
		off := e.imm8()
		if e.Pop() == 0 {
			e.ip += off
		}
	case OpBrzn:
		off := e.imm8()
		if e.Pop() != 0 {
			e.ip += off
		}
	case OpDbzn:
		off := e.imm8()
		e.tos--
		if e.tos >= 0 {
			e.ip += off
		} else {
			e.Pop()
		}
	case OpRbzn:
		off := e.imm8()
		e.ret[e.rp]--
		if e.ret[e.rp] >= 0 {
			e.ip += off
		} else {
			e.rp--
		}
	case OpRdbg:
		off := e.imm8()
		e.ret[e.rp] -= e.Pop()
		if e.ret[e.rp] >= 0 {
			e.ip += off
		} else {
			e.rp--
		}
	case OpRbri:
		off := e.imm8()
		limit := e.Pop()
		start := e.Pop()
		if start <= limit {
			e.Rpush(limit)
			e.Rpush(start)
		} else {
			e.ip += off
		}
	case OpRbne:
		off := e.imm8()
		e.ret[e.rp]++
		if e.ret[e.rp] <= e.ret[e.rp-1] {
			e.ip += off
		} else {
			e.rp -= 2
		}
	case OpRdne:
		off := e.imm8()
		e.ret[e.rp] += e.Pop()
		if e.ret[e.rp] <= e.ret[e.rp-1] {
			e.ip += off
		} else {
			e.rp -= 2
		}
	case OpTask:
		e.Push(e.handle)
	case OpLocal:
		off := e.imm16()
		e.Push(Addr(heapSeg, int(uint16(off))))
	case OpHere:
		e.Push(e.Here())
	case OpAllot:
		dp := e.dp + int(e.Pop())
		if dp < 0 || dp > len(e.segs[heapSeg].mem) {
			panic(errors.Wrapf(ErrAlloc, "heap pointer %d", dp))
		}
		e.dp = dp
	case OpTrace:
		e.setStatus(statusTrace, e.Pop() != 0)
		return true
	case OpProfile:
		v := e.Pop()
		e.setStatus(statusProfile, v != 0)
		if v == 1 {
			e.counters.Reset(e.segs[e.ctx].mod)
		}
		return true
	case OpExec:
		e.call(e.Pop())
	case OpCload:
		e.tos = e.LoadByte(e.tos)
	case OpCstore:
		a := e.Pop()
		e.StoreByte(a, e.Pop())
	case OpLoad:
		e.tos = e.Load(e.tos)
	case OpStore:
		a := e.Pop()
		e.Store(a, e.Pop())
	case OpIcload:
		a := e.Pop()
		e.tos = e.LoadByte(a + e.tos)
	case OpIcstore:
		a := e.Pop()
		e.StoreByte(a, e.LoadByte(a)+e.Pop())
	case OpIload:
		a := e.Pop()
		e.tos = e.Load(a + 4*e.tos)
	case OpIstore:
		a := e.Pop()
		e.Store(a, e.Load(a)+e.Pop())
	case OpRpush:
		e.Rpush(e.Pop())
	case OpRdup:
		e.Rpush(e.tos)
	case OpRpop:
		e.Push(e.Rpop())
	case OpRcopy:
		e.Push(e.ret[e.rp])
	case OpLit:
		e.Push(e.imm32())
	case OpClit:
		e.Push(Cell(e.imm8()))
	case OpPlit:
		off := e.imm16()
		e.Push(Addr(e.seg, e.ip+off))
	case OpSlit:
		n := int(e.code[e.ip])
		e.ip++
		e.Push(e.here())
		e.ip += n
	case OpDepth:
		e.Push(Cell(e.Depth()))
	case OpDrop:
		e.Pop()
	case OpNip:
		e.sp--
	case OpEmpty:
		e.sp, e.tos = -1, 0
	case OpDup:
		e.Push(e.tos)
	case OpDupnz:
		if e.tos != 0 {
			e.Push(e.tos)
		}
	case OpOver:
		e.Push(e.data[e.sp])
	case OpTuck:
		e.sp++
		e.data[e.sp], e.data[e.sp-1] = e.data[e.sp-1], e.tos
	case OpPick:
		e.tos = e.data[e.sp-int(e.tos)]
	case OpSwap:
		e.tos, e.data[e.sp] = e.data[e.sp], e.tos
	case OpRot:
		e.tos, e.data[e.sp-1], e.data[e.sp] = e.data[e.sp-1], e.data[e.sp], e.tos
	case OpTor:
		e.tos, e.data[e.sp], e.data[e.sp-1] = e.data[e.sp], e.data[e.sp-1], e.tos
	case OpRoll:
		n := int(e.Pop())
		if n > 0 {
			// bring data[sp-n+1] (the n-th item below tos) to the top
			v := e.data[e.sp-n+1]
			copy(e.data[e.sp-n+1:e.sp], e.data[e.sp-n+2:e.sp+1])
			e.data[e.sp] = e.tos
			e.tos = v
		}
	case OpCell:
		e.Push(4)
	case OpConstN2:
		e.Push(-2)
	case OpConstN1, OpTrue:
		e.Push(-1)
	case OpConst0, OpFalse:
		e.Push(0)
	case OpConst1:
		e.Push(1)
	case OpConst2:
		e.Push(2)
	case OpConst3:
		e.Push(3)
	case OpNot:
		e.tos = ^e.tos
	case OpAnd:
		rhs := e.Pop()
		e.tos &= rhs
	case OpOr:
		rhs := e.Pop()
		e.tos |= rhs
	case OpXor:
		rhs := e.Pop()
		e.tos ^= rhs
	case OpNeg:
		e.tos = -e.tos
	case OpInc:
		e.tos++
	case OpDec:
		e.tos--
	case OpInc2:
		e.tos += 2
	case OpDec2:
		e.tos -= 2
	case OpMul2:
		e.tos <<= 1
	case OpDiv2:
		e.tos >>= 1
	case OpAdd:
		rhs := e.Pop()
		e.tos += rhs
	case OpSub:
		rhs := e.Pop()
		e.tos -= rhs
	case OpMul:
		rhs := e.Pop()
		e.tos *= rhs
	case OpMuldiv:
		c := e.Pop()
		b := e.Pop()
		e.tos = Cell(int64(e.tos) * int64(b) / int64(c))
	case OpDiv:
		rhs := e.Pop()
		e.tos /= rhs
	case OpRem:
		rhs := e.Pop()
		e.tos %= rhs
	case OpDivrem:
		a, b := e.data[e.sp], e.tos
		e.data[e.sp], e.tos = a/b, a%b
	case OpLsh:
		rhs := e.Pop()
		e.tos <<= uint(rhs) & 31
	case OpRsh:
		rhs := e.Pop()
		e.tos >>= uint(rhs) & 31
	case OpZne:
		e.tos = flag(e.tos != 0)
	case OpZlt:
		e.tos = flag(e.tos < 0)
	case OpZle:
		e.tos = flag(e.tos <= 0)
	case OpZeq:
		e.tos = flag(e.tos == 0)
	case OpZge:
		e.tos = flag(e.tos >= 0)
	case OpZgt:
		e.tos = flag(e.tos > 0)
	case OpNe:
		rhs := e.Pop()
		e.tos = flag(e.tos != rhs)
	case OpLt:
		rhs := e.Pop()
		e.tos = flag(e.tos < rhs)
	case OpLe:
		rhs := e.Pop()
		e.tos = flag(e.tos <= rhs)
	case OpEq:
		rhs := e.Pop()
		e.tos = flag(e.tos == rhs)
	case OpGe:
		rhs := e.Pop()
		e.tos = flag(e.tos >= rhs)
	case OpGt:
		rhs := e.Pop()
		e.tos = flag(e.tos > rhs)
	case OpWithin:
		hi := e.Pop()
		lo := e.tos
		x := e.data[e.sp]
		e.tos = flag(x >= lo && x <= hi)
	case OpAbs:
		if e.tos < 0 {
			e.tos = -e.tos
		}
	case OpMin:
		rhs := e.Pop()
		if rhs < e.tos {
			e.tos = rhs
		}
	case OpMax:
		rhs := e.Pop()
		if rhs > e.tos {
			e.tos = rhs
		}
	case OpDump:
		e.write(append(e.appendStack(nil), '\n'))
	case OpPutc:
		e.putc(e.Pop())
	case OpPuti:
		e.puti(e.Pop(), 10)
	case OpPutx:
		e.puti(e.Pop(), 16)
	case OpPuts:
		e.write([]byte(e.String(e.Pop())))
	case OpCr:
		e.putc('\n')
	case OpGetc:
		e.Push(e.getc())
	case OpGets:
		n := e.Pop()
		e.tos = e.gets(e.tos, n)
	case OpVersion:
		_, v := e.moduleData(e.ctx)
		e.Push(v)
	case OpIdent:
		id, _ := e.moduleData(e.ctx)
		e.Push(id)
	case OpHalt:
		e.halted = true
		return true
	default:
		panic(errors.Errorf("illegal opcode %v", op))
	}
	return false
}

// fast is the interpreter loop used when neither tracing nor profiling is
// enabled.
func (e *Env) fast() {
	for {
		b := int8(e.code[e.ip])
		e.ip++
		e.insCount++
		if b < 0 {
			e.nest(b)
			continue
		}
		if e.exec(Opcode(b)) {
			return
		}
	}
}

// Run starts execution of the module's entry point.
//
// If the program returns from the entry point or executes halt, Run returns
// nil. Runtime faults such as stack overflows, out of bounds memory accesses
// or divisions by zero abort execution and are returned as errors carrying
// the machine registers.
func (e *Env) Run() error {
	if e.mod.Entry == 0 {
		return errors.Wrapf(ErrLookup, "%s: no entry point", e.mod.Name)
	}
	return e.RunAt(e.mod, e.mod.Entry)
}

// Call runs the function with the given name. The name may be qualified with
// the name of a used module as in "module::name".
func (e *Env) Call(name string) error {
	m, _, s, err := e.mod.Resolve(name)
	if err != nil {
		return err
	}
	return e.RunAt(m, s.Offset)
}

// RunAt runs the code of module m, which must have been linked to the
// environment's module, starting at offset ip.
func (e *Env) RunAt(m *Module, ip int) (err error) {
	if ip < 0 || ip >= len(m.Code) {
		return errors.Wrapf(ErrBadIP, "%s@%d", m.Name, ip)
	}
	defer func() {
		if x := recover(); x != nil {
			switch x := x.(type) {
			case error:
				mod, ip := e.IP()
				name := ""
				if mod != nil {
					name = mod.Name
				}
				err = errors.Wrapf(x, "Recovered error @ip=%s@%d, stack %d/%d, rstack %d/%d", name, ip, e.Depth(), len(e.data), e.rp, len(e.ret)-1)
			default:
				panic(x)
			}
		}
		e.flush()
	}()
	s := e.mapModule(m)
	e.insCount = 0
	e.halted = false
	e.rp = 0
	e.Rpush(Addr(stubSeg, 0))
	e.ctx = s
	e.jump(Addr(s, ip))
	if e.status != 0 {
		e.counters.Ops[OpNest]++
		e.profile(s, ip)
	}
	for !e.halted {
		if e.status == 0 {
			e.fast()
		} else {
			e.overlay()
		}
	}
	return nil
}
