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

package asm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/db47h/vfm/asm"
	"github.com/db47h/vfm/vm"
)

// check some errors. We're not checking the messages, rather that they point at
// the correct place.
func TestAssemble_errors(t *testing.T) {
	code := `
	zzzz		( undefined )
	bra yyyy	( valid but undef'ed )
	.bad
	lit abcd
	`
	_, err := asm.Assemble("test_errors", strings.NewReader(code))
	if err == nil {
		t.Fatal("expected errors")
	}
	errs := err.(asm.ErrAsm)
	if len(errs) != 4 {
		t.Errorf("Expected 4 errors, got %d:\n%v", len(errs), err)
	}
	// locate and match errors in source code
	for _, e := range errs {
		o := e.Pos.Offset
		end := o + 4
		if end > len(code) {
			end = len(code)
		}
		if !strings.HasSuffix(e.Msg, code[o:end]) {
			t.Errorf("Error message \"%s\" points to %s", e.Msg, code[o:end])
		}
	}
}

func TestAssemble_ranges(t *testing.T) {
	data := []struct {
		name string
		code string
		msg  string
	}{
		{"forward_call", "foo :foo unnest", "must target an earlier address"},
		{"rel8", ":top .str \"" + strings.Repeat("x", 130) + "\" bra top", "out of range"},
		{"string", "slit \"" + strings.Repeat("x", 127) + "\"", "string too long"},
		{"local", "bra 1-", "no previous definition"},
		{"opcode", ".opcode foo 12", "opcode out of range"},
	}
	for _, test := range data {
		_, err := asm.Assemble(test.name, strings.NewReader(test.code))
		if err == nil {
			t.Errorf("%s: expected error", test.name)
			continue
		}
		if !strings.Contains(err.Error(), test.msg) {
			t.Errorf("%s: expected %q in %q", test.name, test.msg, err.Error())
		}
	}
}

func TestAssemble_module(t *testing.T) {
	m, err := asm.Assemble("noname", strings.NewReader(`
	.module test.mod
	.ident "id" .version "1.0" .timestamp 42
	.use util 7
	.var count
	.const answer 0x2a
	.fn main
		call later count load answer add unnest
	.fn later
		unnest
	.entry main
	`))
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "test.mod" || m.Ident != "id" || m.Version != "1.0" || m.Timestamp != 42 {
		t.Errorf("bad header: %+v", m)
	}
	if len(m.Uses) != 1 || m.Uses[0].Name != "util" || m.Uses[0].Timestamp != 7 {
		t.Errorf("bad use list: %+v", m.Uses)
	}
	names := []string{"count", "answer", "main", "later"}
	if len(m.Symbols) != len(names) {
		t.Fatalf("expected %d symbols, got %d", len(names), len(m.Symbols))
	}
	for i, n := range names {
		s := m.Symbols[i]
		if s.Name != n {
			t.Errorf("symbol %d: expected %s, got %s", i, n, s.Name)
		}
		if int(m.Code[s.Offset-1]) != i {
			t.Errorf("symbol %s: bad index byte %d", n, m.Code[s.Offset-1])
		}
	}
	if m.Entry != m.Symbols[2].Offset {
		t.Errorf("entry %d, expected %d", m.Entry, m.Symbols[2].Offset)
	}
	if m.Symbols[1].Mode != vm.ModeConstant || m.Symbols[0].Mode != vm.ModeVariable {
		t.Error("bad symbol modes")
	}
}

func TestDisassemble_roundTrip(t *testing.T) {
	m, err := asm.Assemble("rt", strings.NewReader(`
	.fn f
		clit -5 lit 100000 slit "hi" plit f
		brzx 1+ ext1 4 mest 0 3 mesti 1 2
	:1	nnest 2 f 1- unnest
	`))
	if err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	for pc := 1; pc < len(m.Code); {
		pc, err = asm.Disassemble(m, m.Code, pc, &b)
		if err != nil {
			t.Fatal(err)
		}
		b.WriteByte('\n')
	}
	exp := `clit -5
lit 100000
slit "hi"
plit f
brzx 28
ext1:4
mest 0 3
mesti 1 2
nnest 2 f 28
unnest
`
	if b.String() != exp {
		t.Errorf("Expected:\n%s\nGot:\n%s", exp, b.String())
	}
}
