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
	"fmt"
	"strings"
	"testing"

	"github.com/db47h/vfm/asm"
	"github.com/db47h/vfm/vm"
	"github.com/pkg/errors"
)

type C []vm.Cell

func assemble(t *testing.T, name, code string) *vm.Module {
	m, err := asm.Assemble(name, strings.NewReader(code))
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return m
}

func setup(t *testing.T, m *vm.Module, stack C, opts ...vm.Option) *vm.Env {
	e, err := vm.New(m, opts...)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range stack {
		e.Push(v)
	}
	return e
}

func equal(a, b C) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func check(t *testing.T, testName string, e *vm.Env, run func() error, stack C) {
	err := run()
	if err != nil {
		t.Errorf("%s: %+v", testName, err)
		return
	}
	if stk := e.Data(); !equal(stk, stack) {
		t.Errorf("%v", fmt.Errorf("%s: Stack error: expected %d, got %d", testName, stack, stk))
	}
}

func disasm(m *vm.Module) string {
	var b bytes.Buffer
	asm.DisassembleAll(m, &b)
	return b.String()
}

var tests = [...]struct {
	name string
	code string
	data C
}{
	{"nop", "next", nil},
	{"lit", "lit 25 clit -3 100000", C{25, -3, 100000}},
	{"dup", "1234 dup", C{1234, 1234}},
	{"drop", "50 drop", nil},
	{"swap", "50 60 swap", C{60, 50}},
	{"over", "1 2 over", C{1, 2, 1}},
	{"nip", "1 2 nip", C{2}},
	{"tuck", "1 2 tuck", C{2, 1, 2}},
	{"rot", "1 2 3 rot", C{2, 3, 1}},
	{"-rot", "1 2 3 tor", C{3, 1, 2}},
	{"pick", "10 20 30 0 pick   2 pick", C{10, 20, 30, 30, 20}},
	{"roll", "1 2 3 2 roll   0 roll", C{2, 3, 1}},
	{"depth", "5 6 depth", C{5, 6, 2}},
	{"empty", "1 2 3 empty 4", C{4}},
	{"?dup", "0 dupnz 5 dupnz", C{0, 5, 5}},
	{"constants", "cell constn2 constn1 const0 const1 const2 const3 true false", C{4, -2, -1, 0, 1, 2, 3, -1, 0}},
	{"add", "2 3 add    2 -3 add", C{5, -1}},
	{"sub", "2 1 sub   1 2 sub   1 -2 sub", C{1, -1, 3}},
	{"mul", "0 5 mul   -1 5 mul   5 5 mul", C{0, -5, 25}},
	{"div", "7 2 div   -7 2 div", C{3, -3}},
	{"rem", "7 2 rem   -7 2 rem", C{1, -1}},
	{"/mod", "26 5 divrem", C{5, 1}},
	{"*/", "100000 100000 1000000 muldiv", C{10000}},
	{"unary", "5 neg 5 inc 5 dec 5 inc2 5 dec2 5 mul2 -5 div2", C{-5, 6, 4, 7, 3, 10, -3}},
	{"logic", "0 not 12 10 and 12 10 or 12 10 xor", C{-1, 8, 14, 6}},
	{"shift", "1 4 lsh   -16 2 rsh   1 33 lsh", C{16, -4, 2}},
	{"compare", "-1 0 lt   0 -1 lt   5 5 le   5 5 eq   5 4 ge   4 5 gt   5 4 ne", C{-1, 0, -1, -1, -1, 0, -1}},
	{"compare_limits", "0x80000000 0x7fffffff lt   0x7fffffff 0x80000000 gt", C{-1, -1}},
	{"zero_compare", "0 zne 5 zne -1 zlt 0 zlt 0 zle 1 zle 0 zeq 1 zeq 0 zge -1 zge 1 zgt 0 zgt",
		C{0, -1, -1, 0, -1, 0, -1, 0, -1, 0, -1, 0}},
	{"within", "5 1 10 within   1 1 10 within   10 1 10 within   11 1 10 within   0 1 10 within",
		C{5, -1, 1, -1, 10, -1, 11, 0, 0, 0}},
	{"abs", "-5 abs 5 abs 0x80000001 abs", C{5, 5, 0x7fffffff}},
	{"min/max", "3 7 min   -3 -7 min   3 7 max   -3 -7 max", C{3, -7, 7, -3}},
	{"rstack", "5 rpush rcopy rpop 7 rdup rpop", C{5, 5, 7, 7}},
	{"bra", "1 bra 1+ 2 :1 3", C{1, 3}},
	{"brax", "1 brax 1+ 2 :1 3", C{1, 3}},
	{"brze", "1 0 brze 1+ 2 :1 3   5 brze 2+ 4 :2 5", C{1, 3, 4, 5}},
	{"brzx", "1 0 brzx 1+ 2 :1 3   5 brzx 2+ 4 :2 5", C{1, 3, 4, 5}},
	{"brzn", "0 brzn 1+ 2 :1 3   1 brzn 2+ 4 :2 5", C{2, 3, 5}},
	{"dbzn", "0 3 :1 swap inc swap dbzn 1-", C{4}},
	{"for/next", "0 4 rpush :1 inc rbzn 1-", C{5}},
	{"for/-next", "0 10 rpush :1 inc 3 rdbg 1-", C{4}},
	{"do/loop", "0 0 4 rpush rpush :1 inc rbne 1-", C{5}},
	{"do/+loop", "0 0 10 rpush rpush :1 inc 3 rdne 1-", C{4}},
	{"?do", "0 0 4 rbri 1+ :2 inc rbne 2- :1   5 4 rbri 1+ :2 inc rbne 2- :1", C{5}},
	{"here/allot", "here 8 allot here", C{0, 8}},
	{"local", "local 4", C{4}},
	{"load/store", "here 4 allot 0x12345678 over store dup load swap cload", C{0x12345678, 0x12}},
	{"c!", "here 4 allot -1 over cstore cload", C{-1}},
	{"+!", "here 4 allot 5 over store 3 over istore load", C{8}},
	{"+c@", "here 4 allot 0x01020304 over store 2 swap icload", C{3}},
	{"+c!", "here 4 allot dup 2 swap icstore cload", C{2}},
	{"+@", "here 8 allot 7 over 4 add store 1 swap iload", C{7}},
	{"halt", "1 halt 2", C{1}},
}

func TestCore(t *testing.T) {
	for _, test := range tests {
		m := assemble(t, test.name, test.code+"\nunnest")
		e := setup(t, m, nil)
		check(t, test.name, e, func() error { return e.RunAt(m, 0) }, test.data)
		if t.Failed() {
			t.Logf("%s:\n%s", test.name, disasm(m))
			return
		}
	}
}

func TestFunctions(t *testing.T) {
	data := []struct {
		name string
		code string
		data C
	}{
		{"nest", ".fn sq dup mul unnest .fn main 7 sq call after unnest .fn after 1 unnest", C{49, 1}},
		{"?exit", ".fn f 1 unneze 2 unneze 0 unneze 3 unnest .fn main f unnest", C{1, 2}},
		{"variable", ".var v .const c 42 .fn main 99 v store v load c unnest", C{99, 42}},
		{"select", `.fn a 10 unnest .fn b 20 unnest
			.fn main 1 nnest 2 a b   0 nnest 2 a b   5 nnest 2 a b   -1 nnest 2 a b unnest`, C{20, 10}},
		{"exec", ".fn a 10 unnest .fn main plit a exec unnest", C{10}},
		{"tail", ".fn a 10 unnest .fn main 1 brax a unnest", C{1, 10}},
	}
	for _, test := range data {
		m := assemble(t, test.name, test.code+"\n.entry main")
		e := setup(t, m, nil)
		check(t, test.name, e, e.Run, test.data)
	}
}

func TestModuleCall(t *testing.T) {
	util := assemble(t, "util", ".ident \"util\" .version \"1.0\" .fn sq dup mul unnest .fn ver version puts unnest")
	main := assemble(t, "main", `
		.ident "main" .version "2.0"
		.use util 0
		.fn main
			7 mest 0 1 unmest
			3 mesti 0 0 unmest
			ident puts
			mesti 0 1 unmest
			version puts
			unnest
		.entry main`)
	main.Uses[0].Module = util
	var out bytes.Buffer
	e := setup(t, main, nil, vm.Output(&out))
	check(t, "module call", e, e.Run, C{49, 9})
	if exp := "main1.02.0"; out.String() != exp {
		t.Errorf("Expected output %q, got %q", exp, out.String())
	}
	e.Reset()
	check(t, "qualified call", e, func() error { e.Push(5); return e.Call("util::sq") }, C{25})
	e.Reset()
	check(t, "unqualified call", e, func() error { e.Push(6); return e.Call("sq") }, C{36})
	if err := e.Call("nope"); errors.Cause(err) != vm.ErrLookup {
		t.Errorf("Expected ErrLookup, got %v", err)
	}
}

func TestIO(t *testing.T) {
	m := assemble(t, "io", `
		slit "hello" puts 42 puti 255 putx 'A' putc cr
		1 2 dump drop drop
		getc getc getc
		here dup 16 allot dup 16 gets cload
		here 16 gets
		getc
		unnest`)
	var out bytes.Buffer
	e := setup(t, m, nil, vm.Output(&out), vm.Input(strings.NewReader("ab\nline\n")))
	check(t, "io", e, func() error { return e.RunAt(m, 0) }, C{'a', 'b', '\n', 0, 'l', 0, -1})
	if exp := "hello42 0xff A\n[2] 1 2\n"; out.String() != exp {
		t.Errorf("Expected output %q, got %q", exp, out.String())
	}
	if s := e.String(0); s != "line\n" {
		t.Errorf("Expected line, got %q", s)
	}
}

func TestTask(t *testing.T) {
	m := assemble(t, "task", "task unnest")
	e := setup(t, m, nil, vm.Handle(77))
	check(t, "task", e, func() error { return e.RunAt(m, 0) }, C{77})

	var h [2]vm.Cell
	for i := range h {
		e = setup(t, m, nil)
		if err := e.RunAt(m, 0); err != nil {
			t.Fatal(err)
		}
		h[i] = e.Pop()
	}
	if h[0] == 0 || h[1] == 0 || h[0] == h[1] {
		t.Errorf("Expected distinct non-zero default handles, got %d and %d", h[0], h[1])
	}
}

func TestExtension(t *testing.T) {
	m := assemble(t, "ext", ".opcode square 300 6 square unnest")
	e := setup(t, m, nil, vm.BindExtension(300, func(e *vm.Env) error {
		v := e.Pop()
		e.Push(v * v)
		return nil
	}))
	check(t, "bound", e, func() error { return e.RunAt(m, 0) }, C{36})

	e = setup(t, m, nil)
	if err := e.RunAt(m, 0); err == nil {
		t.Error("Expected illegal opcode error")
	}
	if _, err := vm.New(m, vm.BindExtension(vm.OpAdd, nil)); err == nil {
		t.Error("Expected error binding a base opcode")
	}
}

func TestErrors(t *testing.T) {
	m := assemble(t, "err", "1 0 div unnest")
	e := setup(t, m, nil)
	for _, ip := range []int{-1, len(m.Code), 1000} {
		if err := e.RunAt(m, ip); errors.Cause(err) != vm.ErrBadIP {
			t.Errorf("ip %d: expected ErrBadIP, got %v", ip, err)
		}
	}
	if err := e.Run(); errors.Cause(err) != vm.ErrLookup {
		t.Errorf("Expected ErrLookup for missing entry point, got %v", err)
	}
	err := e.RunAt(m, 0)
	if err == nil || !strings.Contains(err.Error(), "divide by zero") {
		t.Errorf("Expected division by zero, got %v", err)
	}
	e.Reset()
	for _, code := range []string{"drop", "drop drop drop", "1 drop drop", "swap", "add"} {
		m = assemble(t, "underflow", code+" unnest")
		e = setup(t, m, nil)
		if err = e.RunAt(m, 0); err == nil {
			t.Errorf("%s: expected stack underflow error", code)
		}
	}
	e = setup(t, m, C{1})
	if v := e.Pop(); v != 1 || e.Depth() != 0 {
		t.Errorf("Expected 1 and empty stack, got %d and depth %d", v, e.Depth())
	}
	func() {
		defer func() {
			if recover() == nil {
				t.Error("Expected Pop on an empty stack to panic")
			}
		}()
		e.Pop()
	}()
	m = assemble(t, "overflow", ":1 1 bra 1-")
	e = setup(t, m, nil, vm.DataSize(16))
	if err = e.RunAt(m, 0); err == nil {
		t.Error("Expected stack overflow error")
	}
	m = assemble(t, "heap", "100 allot unnest")
	e = setup(t, m, nil, vm.HeapSize(10))
	if err = e.RunAt(m, 0); errors.Cause(err) != vm.ErrAlloc {
		t.Errorf("Expected ErrAlloc, got %v", err)
	}
}

func TestTrace(t *testing.T) {
	m := assemble(t, "trace", "clit 2 clit 3 add unnest")
	var out bytes.Buffer
	e := setup(t, m, nil, vm.Trace(true), vm.TraceOutput(&out))
	check(t, "trace", e, func() error { return e.RunAt(m, 0) }, C{5})
	exp := `    CLIT S[0]
    CLIT S[1] 2
     ADD S[2] 2 3
  UNNEST R[1]
    HALT S[1] 5
`
	if out.String() != exp {
		t.Errorf("Expected:\n%s\nGot:\n%s", exp, out.String())
	}
}

func TestProfile(t *testing.T) {
	m := assemble(t, "profile", `
		.fn inc1 inc unnest
		.fn main 0 4 rpush :1 inc1 rbzn 1- unnest
		.entry main`)
	var c vm.Counters
	e := setup(t, m, nil, vm.Profile(true), vm.WithCounters(&c))
	check(t, "profile", e, e.Run, C{5})
	if n := m.Lookup("inc1").RefCount; n != 5 {
		t.Errorf("inc1: expected 5 references, got %d", n)
	}
	if n := m.Lookup("main").RefCount; n != 1 {
		t.Errorf("main: expected 1 reference, got %d", n)
	}
	if c.Ops[vm.OpNest] != 6 || c.Ops[vm.OpInc] != 5 || c.Ops[vm.OpRbzn] != 5 {
		t.Errorf("bad counters: nest %d, inc %d, rbzn %d", c.Ops[vm.OpNest], c.Ops[vm.OpInc], c.Ops[vm.OpRbzn])
	}
	c.Reset(m)
	if m.Lookup("inc1").RefCount != 0 || c.Total() != 0 {
		t.Error("Reset failed")
	}

	// profile switched on and off by the program
	m = assemble(t, "profile_op", `
		.fn inc1 inc unnest
		.fn main 0 1 profile inc1 inc1 0 profile inc1 unnest
		.entry main`)
	e = setup(t, m, nil, vm.WithCounters(&c))
	check(t, "profile_op", e, e.Run, C{3})
	if n := m.Lookup("inc1").RefCount; n != 2 {
		t.Errorf("inc1: expected 2 references, got %d", n)
	}
	if e.Profiling() {
		t.Error("profiling still on")
	}
}

func TestSharedState(t *testing.T) {
	lib := assemble(t, "lib", ".var count .fn bump count load inc count store unnest")
	bump := lib.Lookup("bump").Offset
	for _, n := range []string{"a", "b"} {
		u := assemble(t, n, fmt.Sprintf(".use lib 0 .fn main mest 0 %d unmest unnest .entry main", bump))
		u.Uses[0].Module = lib
		e := setup(t, u, nil)
		if err := e.Run(); err != nil {
			t.Fatal(err)
		}
	}
	e := setup(t, lib, nil)
	if err := e.Call("count"); err != nil {
		t.Fatal(err)
	}
	if v := e.Load(e.Pop()); v != 2 {
		t.Errorf("Expected shared counter 2, got %d", v)
	}
}

const fib = `
	.fn fib dec rpush 0 1 :1 tuck add rbzn 1- drop unnest
	.fn main 35 fib unnest
	.entry main`

func Test_Fib_AsmLoop(t *testing.T) {
	m := assemble(t, "fib", fib)
	e := setup(t, m, nil)
	check(t, "Fib_AsmLoop", e, e.Run, C{9227465})
	e = setup(t, m, nil, vm.Profile(true))
	check(t, "Fib_AsmLoop_Profile", e, e.Run, C{9227465})
}

func benchFib(b *testing.B, opts ...vm.Option) {
	m, err := asm.Assemble("fib", strings.NewReader(fib))
	if err != nil {
		b.Fatal(err)
	}
	e, err := vm.New(m, opts...)
	if err != nil {
		b.Fatal(err)
	}
	off := m.Lookup("fib").Offset
	b.ResetTimer()
	for c := 0; c < b.N; c++ {
		e.Push(35)
		if err = e.RunAt(m, off); err != nil {
			b.Fatal(err)
		}
		e.Pop()
	}
}

func Benchmark_Fib_AsmLoop(b *testing.B) {
	benchFib(b)
}

func Benchmark_Fib_AsmLoopProfile(b *testing.B) {
	benchFib(b, vm.Profile(true))
}

func BenchmarkRun(b *testing.B) {
	m, err := asm.Assemble("run", strings.NewReader(`
		.fn sq dup mul unnest
		.fn main 0 10000 rpush :1 rcopy sq add rbzn 1- unnest
		.entry main`))
	if err != nil {
		b.Fatal(err)
	}
	e, err := vm.New(m)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for c := 0; c < b.N; c++ {
		e.Reset()
		if err = e.Run(); err != nil {
			b.Fatal(err)
		}
	}
}
