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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/db47h/vfm/asm"
	"github.com/db47h/vfm/link"
	"github.com/db47h/vfm/vm"
	"github.com/pkg/errors"
)

func writeObject(t *testing.T, dir, src string) {
	t.Helper()
	m, err := asm.Assemble("test", strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	fn := filepath.Join(dir, link.FileName(m.Name))
	if err = os.MkdirAll(filepath.Dir(fn), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(fn)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err = vm.WriteObject(f, m); err != nil {
		t.Fatal(err)
	}
}

func newCLI(dir string) (*cli, *bytes.Buffer) {
	var out bytes.Buffer
	return &cli{dir: dir, stdout: &out, stderr: &bytes.Buffer{}}, &out
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	writeObject(t, dir, `.module lib.sq .ident "sq" .version "1.0" .timestamp 5 .fn sq dup mul unnest`)
	writeObject(t, dir, `.module app .use lib.sq 5 .fn main 3 mest 0 1 unmest unnest .entry main`)
	arc := filepath.Join(dir, "all")

	c, _ := newCLI(dir)
	if err := c.run([]string{arc, filepath.Join(dir, "lib", "sq"), filepath.Join(dir, "app.vfm")}); err != nil {
		t.Fatal(err)
	}
	a, err := link.OpenArchive(arc + link.ArchiveExt)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if es := a.Entries(); len(es) != 2 || es[0].Name != "lib.sq" || es[1].Name != "app" {
		t.Fatalf("bad entries %+v", es)
	}

	c, out := newCLI(dir)
	if err = c.run([]string{"-l", arc}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[0], " lib.sq sq 1.0") || !strings.HasPrefix(lines[0], "      0 ") {
		t.Errorf("bad listing:\n%s", out.String())
	}

	c, out = newCLI(dir)
	if err = c.run([]string{"-r", arc, "app"}); err != nil {
		t.Fatal(err)
	}
	if exp := "    1 *app::main\n    1  lib.sq::sq\n"; out.String() != exp {
		t.Errorf("expected:\n%s\ngot:\n%s", exp, out.String())
	}

	c, out = newCLI(dir)
	if err = c.run([]string{"-c", "-pkg", "lib", arc, "lib.sq"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "package lib\n") || !strings.Contains(out.String(), "var mod_lib_sq = &vm.Module{") {
		t.Errorf("bad source:\n%s", out.String())
	}

	c, _ = newCLI(dir)
	if err = c.run([]string{"-s", arc, "nope"}); errors.Cause(err) != vm.ErrLookup {
		t.Errorf("expected ErrLookup, got %v", err)
	}
}

func TestRun_errors(t *testing.T) {
	dir := t.TempDir()
	c, _ := newCLI(dir)
	if err := c.run(nil); err != errUsage {
		t.Errorf("expected usage error, got %v", err)
	}
	if err := c.run([]string{filepath.Join(dir, "x"), filepath.Join(dir, "nope")}); errors.Cause(err) != vm.ErrLookup {
		t.Errorf("expected ErrLookup, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "x.vfa")); !os.IsNotExist(err) {
		t.Error("archive created on error")
	}
	if err := c.run([]string{"-l", filepath.Join(dir, "x")}); errors.Cause(err) != vm.ErrLookup {
		t.Errorf("expected ErrLookup, got %v", err)
	}
}
