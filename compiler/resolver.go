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

// Structured control flow is resolved in a single pass. The state stack
// records which construct is open; the mark stack records code positions
// waiting for a branch offset. Forward branches reserve one byte that is
// patched when the target is reached; backward branches know their target
// and emit the offset directly. Offsets are relative to the position after
// the offset byte.

func (u *unit) push(c control) error {
	if len(u.states) >= MaxStates {
		return u.errorf("control structures nested too deep")
	}
	u.states = append(u.states, c)
	return nil
}

func (u *unit) top() *control {
	if len(u.states) == 0 {
		return nil
	}
	return &u.states[len(u.states)-1]
}

// pop pops the state stack, which must hold tok on top.
func (u *unit) pop(tok token) (control, error) {
	c := u.top()
	if c == nil || c.tok != tok {
		return control{}, u.errorf("illegal control structure")
	}
	u.states = u.states[:len(u.states)-1]
	return *c, nil
}

// checkState verifies that no construct or parameter is pending.
func (u *unit) checkState() error {
	c := u.top()
	if c == nil {
		return nil
	}
	if c.tok == tokWord {
		return u.errorf("dangling parameter %d", c.value)
	}
	return u.errorf("illegal control structure")
}

// param pops a top level integer parameter.
func (u *unit) param() (vm.Cell, error) {
	if c := u.top(); c == nil || c.tok != tokWord {
		return 0, u.errorf("parameter expected")
	}
	c, _ := u.pop(tokWord)
	return c.value, nil
}

func (u *unit) inSelect() bool {
	c := u.top()
	return c != nil && c.tok == tokSelect
}

func (u *unit) mark(pos int) error {
	if len(u.marks) >= MaxMarks {
		return u.errorf("too many pending branches")
	}
	u.marks = append(u.marks, pos)
	return nil
}

func (u *unit) markForward() error {
	if err := u.mark(len(u.m.Code)); err != nil {
		return err
	}
	u.emit(0)
	return nil
}

func (u *unit) markBackward() error {
	return u.mark(len(u.m.Code))
}

func (u *unit) popMark() (int, error) {
	n := len(u.marks)
	if n == 0 {
		return 0, u.errorf("illegal control structure")
	}
	p := u.marks[n-1]
	u.marks = u.marks[:n-1]
	return p, nil
}

// swapMarks exchanges the two topmost marks.
func (u *unit) swapMarks() error {
	n := len(u.marks)
	if n < 2 {
		return u.errorf("illegal control structure")
	}
	u.marks[n-1], u.marks[n-2] = u.marks[n-2], u.marks[n-1]
	return nil
}

func (u *unit) resolveForward() error {
	p, err := u.popMark()
	if err != nil {
		return err
	}
	off := len(u.m.Code) - p - 1
	if off > 127 {
		return u.errorf("forward branch out of range (%d)", off)
	}
	u.m.Code[p] = byte(off)
	return nil
}

func (u *unit) resolveBackward() error {
	p, err := u.popMark()
	if err != nil {
		return err
	}
	off := p - len(u.m.Code) - 1
	if off < -128 {
		return u.errorf("backward branch out of range (%d)", off)
	}
	u.emit(byte(int8(off)))
	return nil
}

// ops emits a sequence of opcodes.
func (u *unit) ops(ops ...vm.Opcode) error {
	for _, op := range ops {
		if err := u.op(op); err != nil {
			return err
		}
	}
	return nil
}

// control compiles a control structure keyword.
func (u *unit) control(tok token) error {
	var err error
	switch tok {
	case tokIf, tokNotIf:
		op := vm.OpBrze
		if tok == tokNotIf {
			op = vm.OpBrzn
		}
		if err = u.op(op); err == nil {
			if err = u.push(control{tok: tokThen}); err == nil {
				err = u.markForward()
			}
		}
	case tokElse:
		if _, err = u.pop(tokThen); err != nil {
			return err
		}
		u.push(control{tok: tokThen})
		if err = u.op(vm.OpBra); err != nil {
			return err
		}
		if err = u.markForward(); err != nil {
			return err
		}
		u.swapMarks()
		err = u.resolveForward()
	case tokThen:
		if _, err = u.pop(tokThen); err == nil {
			err = u.resolveForward()
		}
	case tokBegin:
		if err = u.push(control{tok: tokBegin}); err == nil {
			err = u.markBackward()
		}
	case tokAgain, tokUntil:
		op := vm.OpBra
		if tok == tokUntil {
			op = vm.OpBrzn
		}
		if _, err = u.pop(tokBegin); err != nil {
			return err
		}
		if err = u.op(op); err == nil {
			err = u.resolveBackward()
		}
	case tokWhile:
		if _, err = u.pop(tokBegin); err != nil {
			return err
		}
		u.push(control{tok: tokWhile})
		if err = u.op(vm.OpBrze); err != nil {
			return err
		}
		if err = u.markForward(); err == nil {
			err = u.swapMarks()
		}
	case tokRepeat:
		if _, err = u.pop(tokWhile); err != nil {
			return err
		}
		if err = u.op(vm.OpBra); err != nil {
			return err
		}
		if err = u.resolveBackward(); err == nil {
			err = u.resolveForward()
		}
	case tokFor:
		if err = u.op(vm.OpRpush); err != nil {
			return err
		}
		if err = u.push(control{tok: tokFor}); err == nil {
			err = u.markBackward()
		}
	case tokNext, tokDecNext:
		op := vm.OpRbzn
		if tok == tokDecNext {
			op = vm.OpRdbg
		}
		if _, err = u.pop(tokFor); err != nil {
			return err
		}
		if err = u.op(op); err == nil {
			err = u.resolveBackward()
		}
	case tokDo:
		if err = u.ops(vm.OpRpush, vm.OpRpush); err != nil {
			return err
		}
		if err = u.push(control{tok: tokDo}); err == nil {
			err = u.markBackward()
		}
	case tokLoop, tokIncLoop:
		op := vm.OpRbne
		if tok == tokIncLoop {
			op = vm.OpRdne
		}
		if _, err = u.pop(tokDo); err != nil {
			return err
		}
		if err = u.op(op); err == nil {
			err = u.resolveBackward()
		}
	case tokSelect:
		if err = u.op(vm.OpNnest); err != nil {
			return err
		}
		if err = u.markForward(); err == nil {
			err = u.push(control{tok: tokSelect})
		}
	case tokEndSelect:
		if _, err = u.pop(tokSelect); err == nil {
			err = u.resolveForward()
		}
	case tokCase:
		err = u.push(control{tok: tokCase})
	case tokOf, tokRangeOf:
		c := u.top()
		if c == nil || c.tok != tokCase {
			return u.errorf("illegal control structure")
		}
		c.tok = tokOf
		if tok == tokOf {
			err = u.ops(vm.OpOver, vm.OpEq, vm.OpBrze)
		} else {
			err = u.ops(vm.OpWithin, vm.OpBrze)
		}
		if err != nil {
			return err
		}
		if err = u.markForward(); err == nil {
			err = u.op(vm.OpDrop)
		}
	case tokEndOf:
		c := u.top()
		if c == nil || c.tok != tokOf {
			return u.errorf("illegal control structure")
		}
		c.tok = tokCase
		c.value++
		if err = u.op(vm.OpBra); err != nil {
			return err
		}
		if err = u.markForward(); err != nil {
			return err
		}
		if err = u.swapMarks(); err == nil {
			err = u.resolveForward()
		}
	case tokEndCase:
		var c control
		if c, err = u.pop(tokCase); err != nil {
			return err
		}
		if err = u.op(vm.OpDrop); err != nil {
			return err
		}
		for i := vm.Cell(0); i < c.value && err == nil; i++ {
			err = u.resolveForward()
		}
	}
	return err
}
