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

package asm

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/scanner"
	"unicode"

	"github.com/db47h/vfm/vm"
)

const maxErrors = 10

func isIdentRune(ch rune, i int) bool {
	return ch != '"' && (unicode.IsLetter(ch) || unicode.IsSymbol(ch) || unicode.IsPunct(ch) || unicode.IsDigit(ch))
}

// ref kinds
const (
	refRel8 = iota
	refRel16
	refCall
	refTable
	refEntry
)

type labelSite struct {
	pos     scanner.Position
	address int
}

type ref struct {
	labelSite
	kind  int
	name  string
	local int // definition index for forward local labels, -1 otherwise
	base  int // offset the relative displacement is computed from
}

type parser struct {
	m      *vm.Module
	code   []byte
	s      scanner.Scanner
	labels map[string]labelSite
	locals map[string][]int
	consts map[string]int
	ops    map[string]vm.Opcode
	refs   []ref
	errs   ErrAsm
}

func newParser(name string) *parser {
	return &parser{
		m:      &vm.Module{Name: name},
		labels: make(map[string]labelSite),
		locals: make(map[string][]int),
		consts: make(map[string]int),
		ops:    make(map[string]vm.Opcode),
	}
}

func (p *parser) error(msg string) {
	pos := p.s.Position
	if !pos.IsValid() {
		pos = p.s.Pos()
	}
	p.errorAt(pos, msg)
}

func (p *parser) errorAt(pos scanner.Position, msg string) {
	if len(p.errs) < maxErrors {
		p.errs = append(p.errs, struct {
			Pos scanner.Position
			Msg string
		}{pos, msg})
	}
}

func (p *parser) byte(v int) {
	p.code = append(p.code, byte(v))
}

func (p *parser) int16(v int) {
	p.code = append(p.code, byte(v>>8), byte(v))
}

func (p *parser) int32(v int) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	p.code = append(p.code, b[:]...)
}

func (p *parser) op(op vm.Opcode) {
	if op >= vm.OpCount {
		p.byte(int(op) / vm.PageSize)
	}
	p.byte(int(op))
}

// next scans the next token, skipping comments.
func (p *parser) next() (rune, string) {
	for {
		tok := p.s.Scan()
		if tok == scanner.Ident && p.s.TokenText() == "(" {
			for tok != scanner.EOF && (tok != scanner.Ident || p.s.TokenText() != ")") {
				tok = p.s.Scan()
			}
			continue
		}
		return tok, p.s.TokenText()
	}
}

// number converts s to an integer if it is a number, a character literal or
// a constant.
func (p *parser) number(s string) (int, bool) {
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		if n < -1<<31 || n >= 1<<32 {
			p.error("integer out of range: " + s)
		}
		return int(int32(n)), true
	}
	if len(s) > 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		r, _, _, err := strconv.UnquoteChar(s[1:len(s)-1], '\'')
		if err != nil {
			p.error(err.Error())
			return 0, true
		}
		return int(r), true
	}
	v, ok := p.consts[s]
	return v, ok
}

func (p *parser) expectNumber(what string) int {
	tok, s := p.next()
	if tok == scanner.Ident {
		if v, ok := p.number(s); ok {
			return v
		}
	}
	p.error(what + ": expected number, got " + s)
	return 0
}

func (p *parser) expectIdent(what string) string {
	tok, s := p.next()
	if tok != scanner.Ident {
		p.error(what + ": expected identifier, got " + s)
		return ""
	}
	return s
}

func (p *parser) expectString(what string) string {
	tok, s := p.next()
	if tok != scanner.String {
		p.error(what + ": expected string, got " + s)
		return ""
	}
	v, err := strconv.Unquote(s)
	if err != nil {
		p.error(what + ": " + err.Error())
	}
	return v
}

func isLocal(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// useLabel records a reference to a label at the current position. base is
// the offset relative displacements are computed from.
func (p *parser) useLabel(name string, kind, base int) {
	r := ref{labelSite: labelSite{p.s.Position, len(p.code)}, kind: kind, name: name, local: -1, base: base}
	if n := len(name); n > 1 && (name[n-1] == '+' || name[n-1] == '-') && isLocal(name[:n-1]) {
		r.name = name[:n-1]
		defs := p.locals[r.name]
		if name[n-1] == '+' {
			r.local = len(defs)
		} else {
			if len(defs) == 0 {
				p.error("no previous definition of local label " + r.name)
			} else {
				r.local = len(defs) - 1
			}
		}
	}
	p.refs = append(p.refs, r)
}

func (p *parser) defineLabel(name string) {
	if len(name) == 0 {
		p.error("Empty label name")
		return
	}
	if isLocal(name) {
		p.locals[name] = append(p.locals[name], len(p.code))
		return
	}
	if _, ok := p.consts[name]; ok {
		p.error("Label redefinition: " + name + ", previously defined as a constant")
		return
	}
	if l, ok := p.labels[name]; ok {
		p.error("Label redefinition: " + name + ", previous definition here: " + l.pos.String())
		return
	}
	p.labels[name] = labelSite{p.s.Position, len(p.code)}
}

// symbol writes the symbol index byte and defines a label and a symbol at the
// following offset.
func (p *parser) symbol(name string, mode int32) {
	if len(p.m.Symbols) >= vm.MaxSymbols {
		p.error("symbol table full")
		return
	}
	p.byte(len(p.m.Symbols))
	p.defineLabel(name)
	p.m.Symbols = append(p.m.Symbols, vm.Symbol{Name: name, Offset: len(p.code), Mode: mode})
}

// operand parses the operand of op.
func (p *parser) operand(op vm.Opcode) {
	switch op.Operand() {
	case vm.Rel8, vm.Rel16:
		kind, size := refRel8, 1
		if op.Operand() == vm.Rel16 {
			kind, size = refRel16, 2
		}
		tok, s := p.next()
		if tok != scanner.Ident {
			p.error(op.String() + ": expected label or offset, got " + s)
			return
		}
		if v, ok := p.number(s); ok {
			if size == 1 {
				p.byte(v)
			} else {
				p.int16(v)
			}
			return
		}
		p.useLabel(s, kind, len(p.code)+size)
		p.code = append(p.code, make([]byte, size)...)
	case vm.Imm8:
		p.byte(p.expectNumber(op.String()))
	case vm.Imm32:
		p.int32(p.expectNumber(op.String()))
	case vm.Str8:
		s := p.expectString(op.String())
		if len(s)+1 > 127 {
			p.error("string too long")
			return
		}
		p.byte(len(s) + 1)
		p.code = append(append(p.code, s...), 0)
	case vm.Table8:
		n := p.expectNumber(op.String())
		if n < 0 || 2*n > 127 {
			p.error("bad table size")
			return
		}
		p.byte(2 * n)
		for i := 0; i < n; i++ {
			s := p.expectIdent(op.String())
			p.useLabel(s, refTable, len(p.code)+2)
			p.int16(0)
		}
	case vm.ModCall:
		p.byte(p.expectNumber(op.String()))
		p.int16(p.expectNumber(op.String()))
	case vm.ModSym:
		p.byte(p.expectNumber(op.String()))
		p.byte(p.expectNumber(op.String()))
	case vm.Page:
		p.byte(p.expectNumber(op.String()))
	}
}

func (p *parser) directive(s string) {
	switch s {
	case ".module":
		p.m.Name = p.expectIdent(s)
	case ".ident":
		p.m.Ident = p.expectString(s)
	case ".version":
		p.m.Version = p.expectString(s)
	case ".timestamp":
		p.m.Timestamp = int32(p.expectNumber(s))
	case ".use":
		name := p.expectIdent(s)
		p.m.Uses = append(p.m.Uses, vm.Use{Name: name, Timestamp: int32(p.expectNumber(s))})
	case ".entry":
		p.useLabel(p.expectIdent(s), refEntry, 0)
	case ".fn":
		p.symbol(p.expectIdent(s), vm.ModeFunction)
	case ".var":
		p.symbol(p.expectIdent(s), vm.ModeVariable)
		p.op(vm.OpUnslit)
		p.int32(0)
	case ".create":
		p.symbol(p.expectIdent(s), vm.ModeCreate)
		p.op(vm.OpUnslit)
	case ".const":
		name := p.expectIdent(s)
		v := p.expectNumber(s)
		p.symbol(name, vm.ModeConstant)
		p.op(vm.OpUnlit)
		p.int32(v)
	case ".equ":
		name := p.expectIdent(s)
		if l, ok := p.labels[name]; ok {
			p.error(".equ: redefinition of " + name + ", previously defined as a label here: " + l.pos.String())
			return
		}
		p.consts[name] = p.expectNumber(s)
	case ".opcode":
		name := p.expectIdent(s)
		v := p.expectNumber(s)
		if v < int(vm.OpCount) || v > vm.MaxOpcode {
			p.error(".opcode: opcode out of range: " + strconv.Itoa(v))
			return
		}
		p.ops[name] = vm.Opcode(v)
	case ".dat":
		p.int32(p.expectNumber(s))
	case ".byte":
		p.byte(p.expectNumber(s))
	case ".str":
		p.code = append(append(p.code, p.expectString(s)...), 0)
	default:
		p.error("Unknown dot directive: " + s)
	}
}

// Parse does the parsing and compiling.
func (p *parser) Parse(name string, r io.Reader) error {
	p.s.Init(r)
	p.s.Error = func(s *scanner.Scanner, msg string) {
		p.error(msg)
	}
	p.s.IsIdentRune = isIdentRune
	p.s.Mode = scanner.ScanIdents | scanner.ScanStrings
	p.s.Filename = name

	for tok, s := p.next(); tok != scanner.EOF && len(p.errs) < maxErrors; tok, s = p.next() {
		if tok != scanner.Ident {
			p.error("Unexpected token " + s)
			continue
		}
		if v, ok := p.number(s); ok {
			// implicit literal
			if v >= -128 && v <= 127 {
				p.op(vm.OpClit)
				p.byte(v)
			} else {
				p.op(vm.OpLit)
				p.int32(v)
			}
			continue
		}
		switch {
		case s[0] == ':':
			p.defineLabel(s[1:])
		case s[0] == '.' && len(s) > 1:
			p.directive(s)
		default:
			if op, ok := p.ops[s]; ok {
				p.op(op)
				continue
			}
			if op, ok := vm.Lookup(strings.ToUpper(s)); ok {
				p.op(op)
				p.operand(op)
				continue
			}
			if s == "call" {
				p.op(vm.OpNest)
				p.operand(vm.OpNest)
				continue
			}
			// implicit call, resolved backwards only
			p.useLabel(s, refCall, len(p.code)+2)
			p.int16(0)
		}
	}
	p.resolve()
	if len(p.code) > vm.MaxCodeSize {
		p.error("code too large")
	}
	if len(p.errs) > 0 {
		return p.errs
	}
	p.m.Code = p.code
	return nil
}

func (p *parser) lookup(r *ref) (int, bool) {
	if r.local < 0 {
		l, ok := p.labels[r.name]
		return l.address, ok
	}
	defs := p.locals[r.name]
	if r.local >= len(defs) {
		return 0, false
	}
	return defs[r.local], true
}

func (p *parser) resolve() {
	for i := range p.refs {
		r := &p.refs[i]
		addr, ok := p.lookup(r)
		if !ok {
			p.errorAt(r.pos, "Undefined label "+r.name)
			continue
		}
		off := addr - r.base
		switch r.kind {
		case refEntry:
			p.m.Entry = addr
		case refRel8:
			if off < -128 || off > 127 {
				p.errorAt(r.pos, fmt.Sprintf("branch to %s out of range: %d", r.name, off))
				continue
			}
			p.code[r.address] = byte(off)
		case refCall:
			if off >= 0 || off < -32768 {
				p.errorAt(r.pos, "implicit call to "+r.name+" must target an earlier address, use call")
				continue
			}
			binary.BigEndian.PutUint16(p.code[r.address:], uint16(off))
		default:
			if off < -32768 || off > 32767 {
				p.errorAt(r.pos, fmt.Sprintf("branch to %s out of range: %d", r.name, off))
				continue
			}
			binary.BigEndian.PutUint16(p.code[r.address:], uint16(off))
		}
	}
}
