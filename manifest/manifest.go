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

// Package manifest handles vfm.toml project configuration.
//
// A project file looks like:
//
//	[modules]
//	path = ["lib", "."]
//	archives = ["core"]
//	symbols = true
//
//	[compile]
//	entry = "main"
//	output = "obj"
//
//	[run]
//	heap = 65536
//	profile-out = "vfm.prof"
//
// Relative paths are relative to the directory holding the file.
package manifest

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/db47h/vfm/link"
	"github.com/db47h/vfm/vm"
	"github.com/pkg/errors"
)

// FileName is the name of project files.
const FileName = "vfm.toml"

// Manifest represents a vfm.toml project configuration.
type Manifest struct {
	Modules Modules `toml:"modules"`
	Compile Compile `toml:"compile"`
	Run     Run     `toml:"run"`

	// Dir is the directory containing the vfm.toml file (set at load time).
	Dir string `toml:"-"`
}

// Modules configures module loading.
type Modules struct {
	Path     []string `toml:"path"`
	Archives []string `toml:"archives"`
	Limit    int      `toml:"limit"`
	Symbols  *bool    `toml:"symbols"`
}

// Compile configures the compiler.
type Compile struct {
	Entry   string `toml:"entry"`
	Output  string `toml:"output"`
	Package string `toml:"package"`
}

// Run configures execution environments.
type Run struct {
	Entry       string `toml:"entry"`
	DataStack   int    `toml:"data-stack"`
	ReturnStack int    `toml:"return-stack"`
	Heap        int    `toml:"heap"`
	ProfileOut  string `toml:"profile-out"`
}

func (m *Manifest) setDefaults() {
	if len(m.Modules.Path) == 0 {
		m.Modules.Path = []string{"."}
	}
	if m.Modules.Symbols == nil {
		t := true
		m.Modules.Symbols = &t
	}
	if m.Compile.Entry == "" {
		m.Compile.Entry = "main"
	}
	if m.Compile.Output == "" {
		m.Compile.Output = "."
	}
	if m.Compile.Package == "" {
		m.Compile.Package = "objects"
	}
}

// Default returns the configuration used for directory dir when it has no
// project file.
func Default(dir string) (*Manifest, error) {
	var m Manifest
	var err error
	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot resolve path %s", dir)
	}
	m.setDefaults()
	return &m, nil
}

// Load parses a vfm.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "parse error in %s", path)
	}
	if m.Modules.Limit < 0 {
		return nil, errors.Errorf("%s: invalid module limit %d", path, m.Modules.Limit)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot resolve path %s", dir)
	}
	m.setDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find a vfm.toml file, then loads and
// returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// SearchPath returns the absolute module search path.
func (m *Manifest) SearchPath() []string {
	var paths []string
	for _, d := range m.Modules.Path {
		paths = append(paths, m.abs(d))
	}
	return paths
}

// OutputDir returns the absolute path of the compiler output directory.
func (m *Manifest) OutputDir() string {
	return m.abs(m.Compile.Output)
}

// OpenArchives opens the configured archives. Archive names are looked up
// with link.FindArchive in the project directory then along the search path.
func (m *Manifest) OpenArchives() ([]*link.Archive, error) {
	var as []*link.Archive
	dirs := append([]string{m.Dir}, m.SearchPath()...)
	for _, name := range m.Modules.Archives {
		fn, err := link.FindArchive(name, dirs...)
		if err == nil {
			var a *link.Archive
			if a, err = link.OpenArchive(fn); err == nil {
				as = append(as, a)
				continue
			}
		}
		for _, a := range as {
			a.Close()
		}
		return nil, err
	}
	return as, nil
}

// LinkOptions returns the registry options for this configuration. archives
// are usually the result of OpenArchives.
func (m *Manifest) LinkOptions(archives ...*link.Archive) []link.Option {
	opts := []link.Option{link.SearchPath(m.SearchPath()...)}
	if m.Modules.Symbols != nil {
		opts = append(opts, link.Symbols(*m.Modules.Symbols))
	}
	if m.Modules.Limit > 0 {
		opts = append(opts, link.Limit(m.Modules.Limit))
	}
	for _, a := range archives {
		opts = append(opts, link.WithArchive(a))
	}
	return opts
}

// EnvOptions returns the execution environment options for this
// configuration. Zero sizes keep the defaults.
func (m *Manifest) EnvOptions() []vm.Option {
	var opts []vm.Option
	if m.Run.DataStack > 0 {
		opts = append(opts, vm.DataSize(m.Run.DataStack))
	}
	if m.Run.ReturnStack > 0 {
		opts = append(opts, vm.ReturnSize(m.Run.ReturnStack))
	}
	if m.Run.Heap > 0 {
		opts = append(opts, vm.HeapSize(m.Run.Heap))
	}
	return opts
}
