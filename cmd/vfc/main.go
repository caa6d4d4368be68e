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
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/db47h/vfm/compiler"
	"github.com/db47h/vfm/link"
	"github.com/db47h/vfm/manifest"
	"github.com/db47h/vfm/report"
	"github.com/db47h/vfm/vm"
	"github.com/pkg/errors"
)

var errUsage = errors.New("bad command line")

type cli struct {
	dir    string // where to look for vfm.toml
	stdout io.Writer
	stderr io.Writer

	coverage bool
	debug    bool
	entry    string
	output   string
	pkg      string
	profile  bool
	source   bool
}

func (c *cli) parse(args []string) ([]string, error) {
	fs := flag.NewFlagSet("vfc", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() {
		fmt.Fprintf(c.stderr, "usage: vfc [flags] file...\nvfm compiler and static analysis tool\n")
		fs.PrintDefaults()
	}
	fs.BoolVar(&c.coverage, "c", false, "static code coverage")
	fs.StringVar(&c.entry, "e", "", "define `entry` (default main)")
	fs.StringVar(&c.output, "o", "", "object files output `directory`")
	fs.BoolVar(&c.profile, "p", false, "static code usage profile")
	fs.BoolVar(&c.source, "s", false, "generate Go source code, package/file.go")
	fs.StringVar(&c.pkg, "pkg", "", "Go `package` name of generated source code")
	fs.BoolVar(&c.debug, "debug", false, "enable debug diagnostics")
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return nil, errUsage
	}
	return fs.Args(), nil
}

func create(fileName string, write func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(fileName), 0o755); err != nil {
		return err
	}
	f, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "%s: could not create file", fileName)
	}
	err = write(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (c *cli) run(args []string) error {
	files, err := c.parse(args)
	if err != nil {
		return err
	}
	man, err := manifest.FindAndLoad(c.dir)
	if err == nil && man == nil {
		man, err = manifest.Default(c.dir)
	}
	if err != nil {
		return err
	}
	if c.entry == "" {
		c.entry = man.Compile.Entry
	}
	if c.pkg == "" {
		c.pkg = man.Compile.Package
	}
	outDir := c.output
	if outDir == "" {
		outDir = man.OutputDir()
	}

	archives, err := man.OpenArchives()
	if err != nil {
		return err
	}
	defer func() {
		for _, a := range archives {
			a.Close()
		}
	}()
	opts := man.LinkOptions(archives...)
	// freshly compiled objects must be found by the files that follow
	opts = append(opts, link.SearchPath(append([]string{outDir}, man.SearchPath()...)...))
	reg, err := link.New(opts...)
	if err != nil {
		return err
	}
	var ctr vm.Counters
	comp, err := compiler.New(
		compiler.WithRegistry(reg),
		compiler.Warnings(c.stderr),
		compiler.Entry(c.entry),
		compiler.WithCounters(&ctr))
	if err != nil {
		return err
	}

	for _, fn := range files {
		if filepath.Ext(fn) == "" {
			fn += link.SourceExt
		}
		// modules compiled earlier in this run are shared by later uses
		ctr.Reset(nil)
		for _, u := range reg.Modules() {
			ctr.Reset(u)
		}
		m, err := comp.CompileFile(fn)
		if err != nil {
			return err
		}
		if reg.Lookup(m.Name) == nil {
			if err = reg.Add(m); err != nil {
				return err
			}
		}

		if len(files) > 1 && (c.profile || c.coverage) {
			fmt.Fprintf(c.stdout, "file: %s\n", fn)
		}
		if c.profile {
			if err = report.Profile(c.stdout, m, &ctr); err != nil {
				return err
			}
		}
		if c.coverage {
			if err = report.Coverage(c.stdout, m, &ctr); err != nil {
				return err
			}
		}
		if c.source {
			src := filepath.Join(outDir, filepath.FromSlash(vm.Path(m.Name))+".go")
			err = create(src, func(w io.Writer) error { return report.Source(w, src, c.pkg, m) })
			if err != nil {
				return err
			}
		}
		err = create(filepath.Join(outDir, link.FileName(m.Name)), func(w io.Writer) error { return vm.WriteObject(w, m) })
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) atExit(err error) {
	if err == nil {
		return
	}
	if err == errUsage {
		os.Exit(2)
	}
	if c.debug {
		fmt.Fprintf(c.stderr, "%+v\n", err)
	} else {
		fmt.Fprintf(c.stderr, "%v\n", err)
	}
	os.Exit(1)
}

func main() {
	c := &cli{dir: ".", stdout: os.Stdout, stderr: os.Stderr}
	c.atExit(c.run(os.Args[1:]))
}
