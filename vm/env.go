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
	"os"
	"sync/atomic"

	"github.com/pkg/errors"
)

const (
	dataSize   = 1024
	returnSize = 1024
	heapSize   = 64 * 1024
)

// handles numbers environments for the task instruction.
var handles atomic.Int32

// status bits
const (
	statusTrace = 1 << iota
	statusProfile
)

// ExtensionHandler is the function prototype for opcodes bound in the
// extension pages. The handler operates on the environment's stacks.
type ExtensionHandler func(e *Env) error

// Env is an execution environment: stacks, heap and registers for running
// a linked module. Environments sharing modules share their code and
// variables but nothing else.
type Env struct {
	mod      *Module
	data     []Cell
	sp       int
	tos      Cell
	ret      []Cell
	rp       int
	segs     []segment
	modSeg   map[*Module]int
	seg      int // code segment of ip
	code     []byte
	ip       int
	ctx      int // current module context
	dp       int
	status   uint
	counters *Counters
	insCount int64
	input    io.ByteReader
	output   io.Writer
	trace    io.Writer
	ext      map[Opcode]ExtensionHandler
	handle   Cell
	halted   bool
}

// Option interface
type Option func(*Env) error

// DataSize sets the data stack size. The default is 1024 cells.
func DataSize(size int) Option {
	return func(e *Env) error {
		if size < 2 {
			return errors.Errorf("data stack size %d too small", size)
		}
		e.data = make([]Cell, size)
		return nil
	}
}

// ReturnSize sets the return stack size. The default is 1024 cells.
func ReturnSize(size int) Option {
	return func(e *Env) error {
		if size < 2 {
			return errors.Errorf("return stack size %d too small", size)
		}
		e.ret = make([]Cell, size+1)
		return nil
	}
}

// HeapSize sets the size in bytes of the heap addressed by here, allot and
// local. The default is 64KiB.
func HeapSize(size int) Option {
	return func(e *Env) error {
		if size < 0 || size > offMask {
			return errors.Wrapf(ErrAlloc, "heap size %d", size)
		}
		e.segs[heapSeg].mem = make([]byte, size)
		return nil
	}
}

// Input pushes the given Reader on top of the input stack.
func Input(r io.Reader) Option {
	return func(e *Env) error { e.PushInput(r); return nil }
}

// Output configures the writer used by the output instructions. Unless w
// implements Flush, writes are buffered and flushed whenever the program
// waits for input or Run returns. A nil writer discards output.
func Output(w io.Writer) Option {
	return func(e *Env) error {
		if _, ok := w.(flusher); ok || w == nil {
			e.output = w
		} else {
			e.output = bufio.NewWriter(w)
		}
		return nil
	}
}

// TraceOutput sets the writer for execution traces. The default is
// os.Stdout.
func TraceOutput(w io.Writer) Option {
	return func(e *Env) error { e.trace = w; return nil }
}

// Trace enables or disables instruction tracing.
func Trace(on bool) Option {
	return func(e *Env) error { e.setStatus(statusTrace, on); return nil }
}

// Profile enables or disables profiling.
func Profile(on bool) Option {
	return func(e *Env) error { e.setStatus(statusProfile, on); return nil }
}

// WithCounters sets the opcode counters updated while tracing or profiling.
// Several environments may share the same counters.
func WithCounters(c *Counters) Option {
	return func(e *Env) error { e.counters = c; return nil }
}

// Handle sets the value pushed by the task instruction. By default, each
// environment gets a distinct non-zero handle.
func Handle(h Cell) Option {
	return func(e *Env) error { e.handle = h; return nil }
}

// BindExtension binds handler to an opcode of the extension pages, that
// is an opcode not part of the base instruction set.
func BindExtension(op Opcode, handler ExtensionHandler) Option {
	return func(e *Env) error {
		if op < OpCount || op > MaxOpcode {
			return errors.Errorf("cannot bind opcode %d", op)
		}
		e.ext[op] = handler
		return nil
	}
}

// SetOptions sets the provided options.
func (e *Env) SetOptions(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return err
		}
	}
	return nil
}

// New creates a new execution environment for the linked module m.
//
// Options will be set by calling SetOptions.
func New(m *Module, opts ...Option) (*Env, error) {
	e := &Env{
		mod:    m,
		modSeg: make(map[*Module]int),
		segs:   make([]segment, firstCode, 16),
		ext:    make(map[Opcode]ExtensionHandler),
		trace:  os.Stdout,
		sp:     -1,
		handle: Cell(handles.Add(1)),
	}
	e.segs[stubSeg].mem = []byte{byte(OpHalt)}
	e.segs[heapSeg].mem = make([]byte, heapSize)
	if err := e.SetOptions(opts...); err != nil {
		return nil, err
	}
	if e.data == nil {
		e.data = make([]Cell, dataSize)
	}
	if e.ret == nil {
		e.ret = make([]Cell, returnSize+1)
	}
	if e.counters == nil {
		e.counters = new(Counters)
	}
	e.ctx = e.mapModule(m)
	e.seg, e.code = e.ctx, m.Code
	return e, nil
}

// Module returns the module the environment was created for.
func (e *Env) Module() *Module { return e.mod }

// Counters returns the opcode counters.
func (e *Env) Counters() *Counters { return e.counters }

// Tracing returns true if instruction tracing is enabled.
func (e *Env) Tracing() bool { return e.status&statusTrace != 0 }

// Profiling returns true if profiling is enabled.
func (e *Env) Profiling() bool { return e.status&statusProfile != 0 }

func (e *Env) setStatus(bit uint, on bool) {
	if on {
		e.status |= bit
	} else {
		e.status &^= bit
	}
}

// Depth returns the data stack depth.
func (e *Env) Depth() int {
	return e.sp + 1
}

// Push pushes the argument on top of the data stack.
func (e *Env) Push(v Cell) {
	e.sp++
	e.data[e.sp], e.tos = e.tos, v
}

// Pop pops the value on top of the data stack and returns it.
func (e *Env) Pop() Cell {
	v := e.tos
	e.tos = e.data[e.sp]
	e.sp--
	return v
}

// Rpush pushes the argument on top of the return stack.
func (e *Env) Rpush(v Cell) {
	e.rp++
	e.ret[e.rp] = v
}

// Rpop pops the value on top of the return stack and returns it.
func (e *Env) Rpop() Cell {
	v := e.ret[e.rp]
	e.rp--
	return v
}

// Data returns a copy of the data stack, bottom first.
func (e *Env) Data() []Cell {
	if e.sp < 0 {
		return nil
	}
	d := make([]Cell, 0, e.sp+1)
	d = append(d, e.data[1:e.sp+1]...)
	return append(d, e.tos)
}

// Address returns a copy of the return stack, bottom first.
func (e *Env) Address() []Cell {
	return append([]Cell(nil), e.ret[1:e.rp+1]...)
}

// InstructionCount returns the number of instructions executed so far.
func (e *Env) InstructionCount() int64 {
	return e.insCount
}

// IP returns the module and code offset the environment stopped at.
func (e *Env) IP() (*Module, int) {
	return e.segs[e.seg].mod, e.ip
}

// Reset clears the stacks and releases the heap.
func (e *Env) Reset() {
	e.sp, e.tos, e.rp, e.dp = -1, 0, 0, 0
}
