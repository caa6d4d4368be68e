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

package manifest_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/db47h/vfm/asm"
	"github.com/db47h/vfm/link"
	"github.com/db47h/vfm/manifest"
	"github.com/db47h/vfm/vm"
)

func writeFile(t *testing.T, fn string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(fn), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fn, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, manifest.FileName), []byte(`
[modules]
path = ["lib", "/usr/share/vfm"]
archives = ["core"]
limit = 16
symbols = false

[compile]
entry = "start"
output = "obj"

[run]
entry = "app::run"
data-stack = 64
return-stack = 32
heap = 4096
profile-out = "vfm.prof"
`))

	m, err := manifest.Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sp := m.SearchPath(); len(sp) != 2 || sp[0] != filepath.Join(m.Dir, "lib") || sp[1] != "/usr/share/vfm" {
		t.Errorf("search path = %v", sp)
	}
	if len(m.Modules.Archives) != 1 || m.Modules.Archives[0] != "core" {
		t.Errorf("archives = %v, want [core]", m.Modules.Archives)
	}
	if m.Modules.Limit != 16 {
		t.Errorf("limit = %d, want 16", m.Modules.Limit)
	}
	if *m.Modules.Symbols {
		t.Error("symbols = true, want false")
	}
	if m.Compile.Entry != "start" {
		t.Errorf("compile entry = %q, want start", m.Compile.Entry)
	}
	if m.OutputDir() != filepath.Join(m.Dir, "obj") {
		t.Errorf("output dir = %q", m.OutputDir())
	}
	if m.Compile.Package != "objects" {
		t.Errorf("package = %q, want objects", m.Compile.Package)
	}
	if m.Run.Entry != "app::run" || m.Run.DataStack != 64 || m.Run.ReturnStack != 32 || m.Run.Heap != 4096 {
		t.Errorf("run = %+v", m.Run)
	}
	if m.Run.ProfileOut != "vfm.prof" {
		t.Errorf("profile-out = %q, want vfm.prof", m.Run.ProfileOut)
	}
	if n := len(m.EnvOptions()); n != 3 {
		t.Errorf("expected 3 env options, got %d", n)
	}
}

func TestLoad_defaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, manifest.FileName), []byte("[run]\nheap = 100\n"))
	m, err := manifest.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	d, err := manifest.Default(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []*manifest.Manifest{m, d} {
		if sp := c.SearchPath(); len(sp) != 1 || sp[0] != c.Dir {
			t.Errorf("search path = %v, want [%s]", sp, c.Dir)
		}
		if !*c.Modules.Symbols || c.Compile.Entry != "main" || c.OutputDir() != c.Dir {
			t.Errorf("bad defaults: %+v", c)
		}
	}
	if len(d.EnvOptions()) != 0 {
		t.Error("default env options should be empty")
	}
}

func TestLoad_errors(t *testing.T) {
	for _, c := range []struct {
		name string
		data string
		msg  string
	}{
		{"syntax", "[modules\n", "parse error"},
		{"type", "[modules]\nlimit = \"x\"\n", "parse error"},
		{"limit", "[modules]\nlimit = -1\n", "invalid module limit"},
	} {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, manifest.FileName), []byte(c.data))
		_, err := manifest.Load(dir)
		if err == nil || !strings.Contains(err.Error(), c.msg) {
			t.Errorf("%s: expected %q error, got %v", c.name, c.msg, err)
		}
	}
	if _, err := manifest.Load(t.TempDir()); err == nil {
		t.Error("missing file: expected an error")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, manifest.FileName), []byte("[compile]\nentry = \"go\"\n"))
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	m, err := manifest.FindAndLoad(sub)
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Compile.Entry != "go" {
		t.Fatalf("expected the root manifest, got %+v", m)
	}
	abs, _ := filepath.Abs(root)
	if m.Dir != abs {
		t.Errorf("dir = %q, want %q", m.Dir, abs)
	}
}

func TestLinkOptions(t *testing.T) {
	dir := t.TempDir()
	lib, err := asm.Assemble("lib", strings.NewReader(".module lib.sq .fn sq dup mul unnest"))
	if err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	if err = link.WriteArchive(&b, []*vm.Module{lib}); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "lib", "libcore.vfa"), b.Bytes())
	writeFile(t, filepath.Join(dir, manifest.FileName), []byte(`
[modules]
path = ["lib"]
archives = ["core"]
symbols = false
`))
	m, err := manifest.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	as, err := m.OpenArchives()
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		for _, a := range as {
			a.Close()
		}
	}()
	r, err := link.New(m.LinkOptions(as...)...)
	if err != nil {
		t.Fatal(err)
	}
	mod, err := r.Load("lib.sq")
	if err != nil {
		t.Fatal(err)
	}
	if mod.Symbols != nil {
		t.Error("symbols loaded")
	}

	m.Modules.Archives = []string{"nope"}
	if _, err = m.OpenArchives(); err == nil {
		t.Error("expected an error for a missing archive")
	}
}
