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

// Package link resolves module dependencies. A Registry caches every module
// it loads by name, so that a module used by several others is loaded once
// and shared. Modules are read from loose object files along a search path
// or from indexed archives.
package link

import (
	"os"
	"path/filepath"

	"github.com/db47h/vfm/vm"
	"github.com/pkg/errors"
)

// Link errors. Use errors.Cause to test for them.
var (
	ErrTimestamp   = errors.New("compile timestamp mismatch")
	ErrModuleLimit = errors.New("module limit exceeded")
	ErrCycle       = errors.New("circular module dependency")
)

// Default limits and file extensions.
const (
	DefaultLimit = 256
	ObjectExt    = ".vfm"
	ArchiveExt   = ".vfa"
	SourceExt    = ".fpp"
)

// FileName returns the object file name for a module name: "a.b.c" becomes
// "a/b/c.vfm".
func FileName(name string) string {
	return filepath.FromSlash(vm.Path(name)) + ObjectExt
}

// FindObject returns the object file for arg, trying arg as a file name, then
// with the object extension appended, then as a module name.
func FindObject(arg string) (string, error) {
	for _, fn := range []string{arg, arg + ObjectExt, FileName(arg)} {
		if fi, err := os.Stat(fn); err == nil && !fi.IsDir() {
			return fn, nil
		}
	}
	return "", errors.Wrapf(vm.ErrLookup, "%s: unknown object file", arg)
}

// ReadFile reads a module from an object file without linking it.
func ReadFile(fileName string, symbols bool) (*vm.Module, error) {
	return readFile(fileName, symbols)
}

// Registry is a session scoped module cache. It is not safe for concurrent
// use.
type Registry struct {
	path     []string
	archives []*Archive
	symbols  bool
	limit    int
	mods     map[string]*vm.Module
	order    []*vm.Module
	loading  map[string]bool
}

// Option interface
type Option func(*Registry) error

// SearchPath sets the directories searched for object files. The default is
// the current directory.
func SearchPath(dirs ...string) Option {
	return func(r *Registry) error {
		r.path = append([]string(nil), dirs...)
		return nil
	}
}

// WithArchive adds an archive searched before loose object files. Archives
// are searched in the order they were added.
func WithArchive(a *Archive) Option {
	return func(r *Registry) error {
		r.archives = append(r.archives, a)
		return nil
	}
}

// Symbols sets whether symbol tables are loaded. Modules loaded without
// symbols cannot be profiled, traced by name nor called by name. The default
// is true.
func Symbols(load bool) Option {
	return func(r *Registry) error { r.symbols = load; return nil }
}

// Limit sets the maximum number of modules in the registry. The default is
// DefaultLimit.
func Limit(n int) Option {
	return func(r *Registry) error {
		if n <= 0 {
			return errors.Errorf("invalid module limit %d", n)
		}
		r.limit = n
		return nil
	}
}

// New returns a new Registry.
func New(opts ...Option) (*Registry, error) {
	r := &Registry{
		path:    []string{"."},
		symbols: true,
		limit:   DefaultLimit,
		mods:    make(map[string]*vm.Module),
		loading: make(map[string]bool),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Modules returns the registered modules in load order.
func (r *Registry) Modules() []*vm.Module {
	return append([]*vm.Module(nil), r.order...)
}

// Lookup returns the registered module with the given name or nil.
func (r *Registry) Lookup(name string) *vm.Module {
	return r.mods[name]
}

// Add registers m. Its used modules must be linked.
func (r *Registry) Add(m *vm.Module) error {
	if old, ok := r.mods[m.Name]; ok {
		if old == m {
			return nil
		}
		return errors.Errorf("%s: module already loaded", m.Name)
	}
	if len(r.order) >= r.limit {
		return errors.Wrap(ErrModuleLimit, m.Name)
	}
	r.mods[m.Name] = m
	r.order = append(r.order, m)
	return nil
}

// Load returns the module with the given name, loading and linking it if it
// is not registered yet.
func (r *Registry) Load(name string) (*vm.Module, error) {
	if m := r.mods[name]; m != nil {
		return m, nil
	}
	if r.loading[name] {
		return nil, errors.Wrap(ErrCycle, name)
	}
	if len(r.order) >= r.limit {
		return nil, errors.Wrap(ErrModuleLimit, name)
	}
	m, err := r.read(name)
	if err != nil {
		return nil, err
	}
	if m.Name != name {
		return nil, errors.Errorf("%s: object file contains module %s", name, m.Name)
	}
	r.loading[name] = true
	err = r.Link(m)
	delete(r.loading, name)
	if err != nil {
		return nil, err
	}
	if err = r.Add(m); err != nil {
		return nil, err
	}
	return m, nil
}

// read reads a module from the first archive that holds it or from its
// object file along the search path.
func (r *Registry) read(name string) (*vm.Module, error) {
	for _, a := range r.archives {
		if a.Contains(name) {
			return a.Load(name, r.symbols)
		}
	}
	fn := FileName(name)
	for _, dir := range r.path {
		m, err := readFile(filepath.Join(dir, fn), r.symbols)
		if os.IsNotExist(errors.Cause(err)) {
			continue
		}
		return m, err
	}
	return nil, errors.Wrapf(vm.ErrLookup, "%s: missing module file %s", name, fn)
}

func readFile(fileName string, symbols bool) (*vm.Module, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "open failed")
	}
	defer f.Close()
	m, err := vm.ReadObject(f, symbols)
	if err != nil {
		return nil, errors.Wrap(err, fileName)
	}
	return m, nil
}

// LoadFile loads a module from the given object file and links it. The
// module itself is not registered.
func (r *Registry) LoadFile(fileName string) (*vm.Module, error) {
	m, err := readFile(fileName, r.symbols)
	if err != nil {
		return nil, err
	}
	r.loading[m.Name] = true
	defer delete(r.loading, m.Name)
	if err = r.Link(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Link resolves the use list of m. Each used module is loaded if needed and
// its timestamp must match the one recorded in m.
func (r *Registry) Link(m *vm.Module) error {
	for i := range m.Uses {
		u := &m.Uses[i]
		d, err := r.Load(u.Name)
		if err != nil {
			return errors.Wrapf(err, "%s: use %s", m.Name, u.Name)
		}
		if d.Timestamp != u.Timestamp {
			return errors.Wrapf(ErrTimestamp, "%s: use %s: expected %d, got %d", m.Name, u.Name, u.Timestamp, d.Timestamp)
		}
		u.Module = d
	}
	return nil
}
