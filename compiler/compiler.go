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

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/db47h/vfm/link"
	"github.com/db47h/vfm/vm"
	"github.com/pkg/errors"
)

// Compiler limits.
const (
	MaxStates = 64  // nested control structures
	MaxMarks  = 64  // pending branch offsets
	MaxString = 127 // inline string size, terminating zero included
)

// Error is a compile error.
type Error struct {
	File string
	Line int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: error: %s", e.File, e.Line, e.Msg)
}

// Compiler compiles source files to modules. Used modules are loaded through
// its link.Registry, so that a Compiler used for several files shares
// dependencies between them.
type Compiler struct {
	reg      *link.Registry
	warn     io.Writer
	entry    string
	now      func() time.Time
	counters *vm.Counters
}

// Option interface
type Option func(*Compiler) error

// WithRegistry sets the registry used to load used modules. The default is a
// registry searching the current directory.
func WithRegistry(r *link.Registry) Option {
	return func(c *Compiler) error { c.reg = r; return nil }
}

// Warnings sets the writer warnings are printed to. The default is
// os.Stderr.
func Warnings(w io.Writer) Option {
	return func(c *Compiler) error {
		if w == nil {
			w = io.Discard
		}
		c.warn = w
		return nil
	}
}

// Entry sets the name of the symbol used as the module entry point. The
// default is "main".
func Entry(name string) Option {
	return func(c *Compiler) error { c.entry = name; return nil }
}

// Clock sets the function used to timestamp compiled modules.
func Clock(now func() time.Time) Option {
	return func(c *Compiler) error { c.now = now; return nil }
}

// WithCounters makes the compiler count emitted opcodes into ctr.
func WithCounters(ctr *vm.Counters) Option {
	return func(c *Compiler) error { c.counters = ctr; return nil }
}

// New returns a new Compiler.
func New(opts ...Option) (*Compiler, error) {
	c := &Compiler{
		warn:  os.Stderr,
		entry: "main",
		now:   time.Now,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.reg == nil {
		r, err := link.New()
		if err != nil {
			return nil, err
		}
		c.reg = r
	}
	return c, nil
}

// Registry returns the registry used to load used modules.
func (c *Compiler) Registry() *link.Registry { return c.reg }

// CompileFile compiles the named source file.
func (c *Compiler) CompileFile(fileName string) (*vm.Module, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "open failed")
	}
	defer f.Close()
	return c.Compile(fileName, f)
}

// Compile compiles source text read from r. The base name of fileName must be
// the module name followed by ".fpp". Compilation stops at the first error,
// which is returned as an *Error unless it originates from loading a used
// module. No module is returned on error.
func (c *Compiler) Compile(fileName string, r io.Reader) (*vm.Module, error) {
	u := &unit{
		Compiler: c,
		file:     fileName,
		s:        newScanner(r),
		m:        &vm.Module{},
		mode:     top,
	}
	if err := u.compile(); err != nil {
		return nil, err
	}
	return u.m, nil
}

// control is an entry of the control structure stack. For top level
// parameters, value holds the parameter; for case structures it counts the
// pending exits.
type control struct {
	tok   token
	value vm.Cell
}

// unit holds the state of a single compilation.
type unit struct {
	*Compiler
	file   string
	s      *scanner
	m      *vm.Module
	mode   int
	states []control
	marks  []int
	used   []int
}

func (u *unit) errorf(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if u.s.err != nil {
		msg = u.s.err.Error()
	}
	return &Error{File: u.file, Line: u.s.line, Msg: msg}
}

func (u *unit) warnf(format string, args ...interface{}) {
	fmt.Fprintf(u.warn, "%s:%d: warning: %s\n", u.file, u.s.line, fmt.Sprintf(format, args...))
}

func (u *unit) scan() token { return u.s.scan(u.mode) }

// name scans the name following a declaring keyword.
func (u *unit) name(what string) (string, error) {
	if u.s.scan(top) != tokWord {
		return "", u.errorf("%s expected", what)
	}
	return u.s.text, nil
}

func (u *unit) compile() error {
	var prefix string
	tok := u.scan()
	if tok == tokPackage {
		p, err := u.name("package name")
		if err != nil {
			return err
		}
		prefix = p + "."
		tok = u.scan()
	}
	if tok != tokModule {
		return u.errorf("module expected")
	}
	name, err := u.name("module name")
	if err != nil {
		return err
	}
	u.m.Name = prefix + name
	if filepath.Base(u.file) != name+link.SourceExt {
		return u.errorf("file and module name do not match")
	}
	u.m.Timestamp = int32(u.now().Unix())

	tok = u.scan()
	if tok == tokIdent {
		if u.scan() != tokString {
			return u.errorf("ident string expected")
		}
		u.m.Ident = u.s.text
		tok = u.scan()
	}
	if tok == tokVersion {
		if u.scan() != tokString {
			return u.errorf("version string expected")
		}
		u.m.Version = u.s.text
		tok = u.scan()
	}
	for tok == tokUse {
		name, err := u.name("module name")
		if err != nil {
			return err
		}
		if err = u.use(name); err != nil {
			return err
		}
		tok = u.scan()
	}
	if tok == tokEOF {
		return u.errorf("missing module body")
	}

	for tok != tokEndModule && tok != tokEOF {
		if err = u.token(tok); err != nil {
			return err
		}
		if len(u.m.Code) > vm.MaxCodeSize {
			return u.errorf("module code size limit exceeded")
		}
		tok = u.scan()
	}
	if u.s.err != nil {
		return u.errorf("")
	}
	if u.mode == body {
		return u.errorf("unterminated definition")
	}
	if err = u.checkState(); err != nil {
		return err
	}
	if tok == tokEOF {
		u.warnf("missing end of module")
	} else if u.s.scan(top) != tokEOF || u.s.err != nil {
		return u.errorf("not end of file")
	}
	for i, n := range u.used {
		if n == 0 {
			u.warnf("module %s defined but not used", u.m.Uses[i].Name)
		}
	}
	if s := u.m.Lookup(u.entry); s != nil {
		u.m.Entry = s.Offset
		s.RefCount++
	}
	return nil
}

func (u *unit) use(name string) error {
	if len(u.m.Uses) >= vm.MaxUses {
		return u.errorf("too many use statements")
	}
	if u.m.UseIndex(name) >= 0 || name == u.m.Name {
		return u.errorf("module %s already used", name)
	}
	d, err := u.reg.Load(name)
	if err != nil {
		return errors.Wrapf(err, "%s:%d: use %s", u.file, u.s.line, name)
	}
	u.m.Uses = append(u.m.Uses, vm.Use{Name: name, Timestamp: d.Timestamp, Module: d})
	u.used = append(u.used, 0)
	return nil
}

// token compiles a single token of the module body.
func (u *unit) token(tok token) error {
	switch tok {
	case tokWord:
		return u.word(u.s.text)
	case tokString:
		return u.str(u.s.text)
	case tokOp:
		return u.op(u.s.kw.op)
	case tokIdent, tokVersion:
		if u.mode != body {
			return u.errorf("illegal %s", u.s.text)
		}
		return u.op(u.s.kw.op)
	case tokAllot:
		if u.mode == body {
			return u.op(vm.OpAllot)
		}
		n, err := u.param()
		if err != nil {
			return err
		}
		if n < 0 || n > vm.MaxCodeSize {
			return u.errorf("bad allot size %d", n)
		}
		u.emit(make([]byte, n)...)
	case tokComma:
		n, err := u.param()
		if err != nil {
			return err
		}
		u.cell(n)
	case tokCComma:
		n, err := u.param()
		if err != nil {
			return err
		}
		if n < -128 || n > 255 {
			return u.errorf("byte value %d out of range", n)
		}
		u.emit(byte(n))
	case tokColon, tokCreate, tokVariable, tokConstant:
		return u.declare(tok)
	case tokSemicolon:
		if err := u.checkState(); err != nil {
			return err
		}
		u.mode = top
		return u.op(vm.OpUnnest)
	case tokStartCompile:
		if err := u.checkState(); err != nil {
			return err
		}
		u.mode = body
	case tokEndCompile:
		if err := u.checkState(); err != nil {
			return err
		}
		u.mode = top
	case tokRecurse:
		s, err := u.latest()
		if err != nil {
			return err
		}
		return u.call(s)
	case tokTailRecurse:
		s, err := u.latest()
		if err != nil {
			return err
		}
		if err = u.mark(s.Offset); err != nil {
			return err
		}
		if err = u.op(vm.OpBra); err != nil {
			return err
		}
		return u.resolveBackward()
	case tokQuote, tokChain:
		op := vm.OpPlit
		if tok == tokChain {
			op = vm.OpBrax
		}
		name, err := u.name("identifier")
		if err != nil {
			return err
		}
		s := u.m.Lookup(name)
		if s == nil {
			return u.errorf("%s: undefined", name)
		}
		if err = u.op(op); err != nil {
			return err
		}
		return u.call(s)
	case tokGuard:
		s, err := u.latest()
		if err != nil {
			return err
		}
		var prev *vm.Symbol
		for i := len(u.m.Symbols) - 2; i >= 0; i-- {
			if u.m.Symbols[i].Name == s.Name {
				prev = &u.m.Symbols[i]
				break
			}
		}
		if prev == nil {
			return u.errorf("%s: undefined, illegal guard statement", s.Name)
		}
		if err = u.op(vm.OpBrzx); err != nil {
			return err
		}
		return u.call(prev)
	case tokExt:
		n, ok := vm.Cell(0), u.s.scan(top) == tokWord
		if ok {
			var err error
			n, err = parseInt(u.s.text)
			ok = err == nil
		}
		if !ok || n < 128 || n > 255 {
			return u.errorf("extension operation expected after ext0")
		}
		if err := u.op(vm.OpExt0); err != nil {
			return err
		}
		u.emit(byte(n))
		u.count(vm.Opcode(n))
	default:
		if tok >= tokIf && tok <= tokEndSelect {
			return u.control(tok)
		}
		return u.errorf("unexpected %s", u.s.text)
	}
	return nil
}

// declare compiles a symbol declaration.
func (u *unit) declare(tok token) error {
	if u.mode == body {
		return u.errorf("illegal declaration")
	}
	name, err := u.name("identifier")
	if err != nil {
		return err
	}
	var v vm.Cell
	if tok == tokConstant {
		if v, err = u.param(); err != nil {
			return err
		}
	}
	if err = u.checkState(); err != nil {
		return err
	}
	switch tok {
	case tokColon:
		if err = u.symbol(name, vm.ModeFunction); err == nil {
			u.mode = body
		}
	case tokCreate:
		if err = u.symbol(name, vm.ModeCreate); err == nil {
			err = u.op(vm.OpUnslit)
		}
	case tokVariable:
		if err = u.symbol(name, vm.ModeVariable); err == nil {
			err = u.op(vm.OpUnslit)
			u.cell(0)
		}
	case tokConstant:
		if err = u.symbol(name, vm.ModeConstant); err == nil {
			err = u.op(vm.OpUnlit)
			u.cell(v)
		}
	}
	return err
}

// word compiles an integer literal or a reference to a symbol.
func (u *unit) word(text string) error {
	v, err := parseInt(text)
	if errors.Is(err, strconv.ErrRange) {
		return u.errorf("%s: literal out of range", text)
	}
	if err == nil {
		if u.mode == top {
			return u.push(control{tokWord, v})
		}
		if v >= -128 && v <= 127 {
			if err := u.op(vm.OpClit); err != nil {
				return err
			}
			u.emit(byte(v))
			return nil
		}
		if err := u.op(vm.OpLit); err != nil {
			return err
		}
		u.cell(v)
		return nil
	}
	if u.mode == top {
		return u.errorf("%s: unexpected outside of a definition", text)
	}
	_, i, s, err := u.m.Resolve(text)
	if err != nil {
		return u.errorf("%s: undefined", text)
	}
	if i == 0 {
		return u.call(s)
	}
	u.used[i-1]++
	return u.moduleCall(i-1, s)
}

// str compiles a string literal: inline data skipped at run time in a
// definition, raw bytes elsewhere.
func (u *unit) str(s string) error {
	if u.mode == body {
		if len(s)+1 > MaxString {
			return u.errorf("literal string exceeds length limit (%d)", MaxString)
		}
		if err := u.op(vm.OpSlit); err != nil {
			return err
		}
		u.emit(byte(len(s) + 1))
	}
	u.emit([]byte(s)...)
	u.emit(0)
	return nil
}

// parseInt parses a decimal or 0x prefixed hexadecimal literal. The error
// wraps strconv.ErrRange if the literal does not fit in a cell.
func parseInt(s string) (vm.Cell, error) {
	if strings.HasPrefix(s, "0x") {
		v, err := strconv.ParseUint(s[2:], 16, 32)
		return vm.Cell(v), err
	}
	v, err := strconv.ParseInt(s, 10, 32)
	return vm.Cell(v), err
}
