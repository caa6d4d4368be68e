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

package vm_test

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/db47h/vfm/vm"
	"github.com/pkg/errors"
)

func TestObject_roundTrip(t *testing.T) {
	m := assemble(t, "rt", `
		.module a.b.rt .ident "test" .version "0.1" .timestamp 1234
		.use a.util 99 .use other 7
		.var v
		.fn main v load unnest
		.entry main`)
	var b bytes.Buffer
	if err := vm.WriteObject(&b, m); err != nil {
		t.Fatal(err)
	}
	raw := b.Bytes()
	if !bytes.HasPrefix(raw, []byte(vm.ObjectMagic)) {
		t.Errorf("bad signature %q", raw[:16])
	}
	r, err := vm.ReadObject(bytes.NewReader(raw), true)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(m, r) {
		t.Errorf("Expected\n%+v\ngot\n%+v", m, r)
	}

	r, err = vm.ReadObject(bytes.NewReader(raw), false)
	if err != nil {
		t.Fatal(err)
	}
	if r.Symbols != nil || !bytes.Equal(r.Code, m.Code) || r.Entry != m.Entry {
		t.Errorf("load without symbols: %+v", r)
	}

	// truncated objects
	for _, n := range []int{len(vm.ObjectMagic) + 2, len(raw) / 2, len(raw) - 1} {
		_, err = vm.ReadObject(bytes.NewReader(raw[:n]), true)
		if errors.Cause(err) != vm.ErrMalformed {
			t.Errorf("truncated at %d: expected ErrMalformed, got %v", n, err)
		}
	}
}

func TestObject_errors(t *testing.T) {
	data := []struct {
		name string
		in   string
		err  error
	}{
		{"empty", "", vm.ErrFormat},
		{"signature", "vfm object 0.9\nxxxxxxxxxxxxxx", vm.ErrFormat},
		{"long_line", strings.Repeat("x", 1000), vm.ErrFormat},
		{"uses", vm.ObjectMagic + "m\x00\x00\x00\x00\x00\x00\x00\x7f\xff\xff\xff", vm.ErrAlloc},
		{"code", vm.ObjectMagic + "m\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x7f\xff\xff\xff", vm.ErrAlloc},
	}
	for _, test := range data {
		_, err := vm.ReadObject(strings.NewReader(test.in), true)
		if errors.Cause(err) != test.err {
			t.Errorf("%s: expected %v, got %v", test.name, test.err, err)
		}
	}
}

func TestModule_resolve(t *testing.T) {
	util := assemble(t, "util", ".fn sq unnest .fn cube unnest")
	m := assemble(t, "main", ".use util 0 .fn sq unnest .fn sq2 unnest .fn main unnest")
	m.Uses[0].Module = util
	m.Symbols[1].Name = "sq"

	data := []struct {
		name string
		mod  *vm.Module
		use  int
		off  int
	}{
		{"sq", m, 0, m.Symbols[1].Offset},
		{"main::sq", m, 0, m.Symbols[1].Offset},
		{"util::sq", util, 1, util.Symbols[0].Offset},
		{"cube", util, 1, util.Symbols[1].Offset},
	}
	for _, test := range data {
		mod, use, s, err := m.Resolve(test.name)
		if err != nil {
			t.Errorf("%s: %v", test.name, err)
			continue
		}
		if mod != test.mod || use != test.use || s.Offset != test.off {
			t.Errorf("%s: got %s %d %d", test.name, mod.Name, use, s.Offset)
		}
	}
	for _, name := range []string{"", "nope", "util::main", "other::sq"} {
		if _, _, _, err := m.Resolve(name); errors.Cause(err) != vm.ErrLookup {
			t.Errorf("%s: expected ErrLookup, got %v", name, err)
		}
	}
	if s := m.SymbolAt(m.Symbols[2].Offset); s == nil || s.Name != "main" {
		t.Errorf("SymbolAt: got %v", s)
	}
	if s := m.SymbolAt(m.Symbols[2].Offset + 1); s != nil {
		t.Errorf("SymbolAt: got %v", s)
	}
}

func TestModule_walk(t *testing.T) {
	base := assemble(t, "base", ".fn b1 unnest")
	left := assemble(t, "left", ".use base 0 .fn l1 unnest")
	right := assemble(t, "right", ".use base 0 .fn r1 unnest .fn r2 unnest")
	top := assemble(t, "top", ".use left 0 .use right 0 .fn main unnest")
	left.Uses[0].Module = base
	right.Uses[0].Module = base
	top.Uses[0].Module = left
	top.Uses[1].Module = right

	var got []string
	top.Walk(true, func(m *vm.Module, s *vm.Symbol) error {
		got = append(got, m.Name+"::"+s.Name)
		return nil
	})
	exp := []string{"top::main", "left::l1", "base::b1", "right::r1", "right::r2"}
	if !reflect.DeepEqual(got, exp) {
		t.Errorf("Expected %v, got %v", exp, got)
	}

	got = got[:0]
	stop := errors.New("stop")
	err := top.Walk(false, func(m *vm.Module, s *vm.Symbol) error {
		got = append(got, s.Name)
		return stop
	})
	if err != stop || len(got) != 1 {
		t.Errorf("Walk did not stop: %v %v", err, got)
	}
}

func TestDecode(t *testing.T) {
	m := assemble(t, "decode", ".fn f f clit 1 lit 2 slit \"x\" nnest 1 f mest 3 4 ext2 7")
	exp := []vm.Instruction{
		{Pos: 1, Size: 2, Op: vm.OpNest, Call: true, Arg: -2, Target: 1},
		{Pos: 3, Size: 2, Op: vm.OpClit, Arg: 1, Target: -1},
		{Pos: 5, Size: 5, Op: vm.OpLit, Arg: 2, Target: -1},
		{Pos: 10, Size: 4, Op: vm.OpSlit, Arg: 2, Target: -1, Str: []byte{'x', 0}},
		{Pos: 14, Size: 4, Op: vm.OpNnest, Arg: 2, Target: -1, Table: []int{1}},
		{Pos: 18, Size: 4, Op: vm.OpMest, Arg: 3, Arg2: 4, Target: -1},
		{Pos: 22, Size: 2, Op: vm.Opcode(2<<8 | 7), Target: -1},
	}
	pc := 1
	for _, e := range exp {
		in, err := vm.Decode(m.Code, pc)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(in, e) {
			t.Errorf("Expected %+v, got %+v", e, in)
		}
		pc += in.Size
	}
	if _, err := vm.Decode(m.Code[:len(m.Code)-1], 22); errors.Cause(err) != vm.ErrMalformed {
		t.Errorf("Expected ErrMalformed, got %v", err)
	}
}
