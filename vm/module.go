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
	"strings"

	"github.com/pkg/errors"
)

// Cell is the raw type stored on the stacks.
type Cell int32

// Limits of a module.
const (
	MaxSymbols  = 256
	MaxCodeSize = 32 * 1024
	MaxUses     = 64
)

// Symbol modes.
const (
	ModeFunction int32 = iota
	ModeVariable
	ModeConstant
	ModeCreate
)

// Symbol is a named entry point in a module's code segment. Offset is the
// position of the first instruction; the byte before it holds the symbol's
// index in the symbol table.
type Symbol struct {
	Name     string
	Offset   int
	Mode     int32
	RefCount int64
}

// Use is a use-list entry. Timestamp is the compile time of the used module as
// recorded when the using module was compiled. Module is nil until linked.
type Use struct {
	Name      string
	Timestamp int32
	Module    *Module
}

// Module is a unit of compilation and linking.
type Module struct {
	Name      string
	Ident     string
	Version   string
	Timestamp int32
	Uses      []Use
	Entry     int // 0 if none
	Code      []byte
	Symbols   []Symbol // nil if the symbol table was not loaded
}

// Lookup returns the most recently declared symbol with the given name.
func (m *Module) Lookup(name string) *Symbol {
	if name == "" {
		return nil
	}
	for i := len(m.Symbols) - 1; i >= 0; i-- {
		if m.Symbols[i].Name == name {
			return &m.Symbols[i]
		}
	}
	return nil
}

// SymbolAt returns the symbol whose first instruction is at offset, using the
// symbol index stored in the byte preceding the entry point.
func (m *Module) SymbolAt(offset int) *Symbol {
	if offset < 1 || offset > len(m.Code) {
		return nil
	}
	i := int(m.Code[offset-1])
	if i >= len(m.Symbols) || m.Symbols[i].Offset != offset {
		return nil
	}
	return &m.Symbols[i]
}

// UseIndex returns the use-list index of the named module or -1.
func (m *Module) UseIndex(name string) int {
	for i := range m.Uses {
		if m.Uses[i].Name == name {
			return i
		}
	}
	return -1
}

// Resolve looks up a possibly module-qualified name (module::name). It
// returns the module defining the symbol, its use-list index plus one (0 for m
// itself) and the symbol. The error is ErrLookup if nothing matches.
func (m *Module) Resolve(name string) (*Module, int, *Symbol, error) {
	mod, sym := "", name
	if i := strings.Index(name, "::"); i >= 0 && i+2 < len(name) {
		mod, sym = name[:i], name[i+2:]
	}
	if mod == "" {
		if s := m.Lookup(sym); s != nil {
			return m, 0, s, nil
		}
		for i := range m.Uses {
			u := m.Uses[i].Module
			if u == nil {
				continue
			}
			if s := u.Lookup(sym); s != nil {
				return u, i + 1, s, nil
			}
		}
		return nil, -1, nil, errors.Wrap(ErrLookup, name)
	}
	if mod == m.Name {
		if s := m.Lookup(sym); s != nil {
			return m, 0, s, nil
		}
	}
	if i := m.UseIndex(mod); i >= 0 && m.Uses[i].Module != nil {
		if s := m.Uses[i].Module.Lookup(sym); s != nil {
			return m.Uses[i].Module, i + 1, s, nil
		}
	}
	return nil, -1, nil, errors.Wrap(ErrLookup, name)
}

// Walk calls fn for each symbol of m, then, if recursive is true, for each
// symbol of the used modules, depth first in use-list order. Modules reachable
// through several paths are visited once. Walk stops at the first error
// returned by fn.
func (m *Module) Walk(recursive bool, fn func(m *Module, s *Symbol) error) error {
	return m.walk(recursive, make(map[*Module]bool), fn)
}

func (m *Module) walk(recursive bool, seen map[*Module]bool, fn func(*Module, *Symbol) error) error {
	if seen[m] {
		return nil
	}
	seen[m] = true
	for i := range m.Symbols {
		if err := fn(m, &m.Symbols[i]); err != nil {
			return err
		}
	}
	if !recursive {
		return nil
	}
	for _, u := range m.Uses {
		if u.Module == nil {
			continue
		}
		if err := u.Module.walk(recursive, seen, fn); err != nil {
			return err
		}
	}
	return nil
}

// Path translates a dotted module name to a slash separated path, without
// extension.
func Path(name string) string {
	return strings.Replace(name, ".", "/", -1)
}
