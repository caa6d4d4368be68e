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
)

// Addresses handed to programs are cells holding a segment number in the top
// byte and a byte offset in the lower 24 bits. Segment 0 is the heap, segment
// 1 holds the halt stub that terminates Run when the outermost call returns.
// Module code and read-only module data are mapped on first use.
const (
	segShift  = 24
	offMask   = 1<<segShift - 1
	heapSeg   = 0
	stubSeg   = 1
	firstCode = 2
	maxSegs   = 256
)

// Addr builds an address from a segment number and offset.
func Addr(seg, off int) Cell {
	return Cell(uint32(seg)<<segShift | uint32(off)&offMask)
}

// Split returns the segment number and offset of address a.
func Split(a Cell) (seg, off int) {
	return int(uint32(a) >> segShift), int(uint32(a) & offMask)
}

type segment struct {
	mem  []byte
	mod  *Module
	deps []int // segment of each used module, 0 until mapped
	data int   // segment holding ident and version, 0 until mapped
}

// mapModule returns the segment holding the code of m, mapping it if needed.
func (e *Env) mapModule(m *Module) int {
	if s, ok := e.modSeg[m]; ok {
		return s
	}
	if len(e.segs) >= maxSegs {
		panic(ErrAlloc)
	}
	e.segs = append(e.segs, segment{mem: m.Code, mod: m, deps: make([]int, len(m.Uses))})
	s := len(e.segs) - 1
	e.modSeg[m] = s
	return s
}

// dep returns the code segment of the i-th module used by the module mapped
// at segment s.
func (e *Env) dep(s, i int) int {
	d := e.segs[s].deps[i]
	if d == 0 {
		u := e.segs[s].mod.Uses[i].Module
		if u == nil {
			panic(ErrLookup)
		}
		d = e.mapModule(u)
		e.segs[s].deps[i] = d
	}
	return d
}

// moduleData returns the address of the ident and version strings of the
// module mapped at segment s.
func (e *Env) moduleData(s int) (ident, version Cell) {
	sg := &e.segs[s]
	if sg.data == 0 {
		if len(e.segs) >= maxSegs {
			panic(ErrAlloc)
		}
		m := sg.mod
		b := make([]byte, 0, len(m.Ident)+len(m.Version)+2)
		b = append(append(b, m.Ident...), 0)
		b = append(append(b, m.Version...), 0)
		e.segs = append(e.segs, segment{mem: b})
		sg = &e.segs[s]
		sg.data = len(e.segs) - 1
	}
	return Addr(sg.data, 0), Addr(sg.data, len(sg.mod.Ident)+1)
}

func (e *Env) bytes(a Cell) []byte {
	s, off := Split(a)
	return e.segs[s].mem[off:]
}

// Load returns the cell stored at address a.
func (e *Env) Load(a Cell) Cell {
	return Cell(int32(binary.BigEndian.Uint32(e.bytes(a))))
}

// Store stores v at address a.
func (e *Env) Store(a, v Cell) {
	binary.BigEndian.PutUint32(e.bytes(a), uint32(v))
}

// LoadByte returns the signed byte stored at address a.
func (e *Env) LoadByte(a Cell) Cell {
	return Cell(int8(e.bytes(a)[0]))
}

// StoreByte stores the low byte of v at address a.
func (e *Env) StoreByte(a, v Cell) {
	e.bytes(a)[0] = byte(v)
}

// String returns the zero terminated string at address a.
func (e *Env) String(a Cell) string {
	b := e.bytes(a)
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// Here returns the address of the first free heap byte.
func (e *Env) Here() Cell {
	return Addr(heapSeg, e.dp)
}

// Heap returns the heap memory. Changes to the returned slice are visible to
// the running program.
func (e *Env) Heap() []byte {
	return e.segs[heapSeg].mem
}
