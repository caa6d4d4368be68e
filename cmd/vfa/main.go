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
	"time"

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

	debug     bool
	list      bool
	pkg       string
	recursive bool
	source    bool
	symbols   bool
}

func (c *cli) warn(msg string) {
	fmt.Fprintf(c.stderr, "warning: %s\n", msg)
}

func (c *cli) parse(args []string) ([]string, error) {
	fs := flag.NewFlagSet("vfa", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() {
		fmt.Fprintf(c.stderr, "usage: vfa [flags] archive object...\nvfm object code archiver\n")
		fs.PrintDefaults()
	}
	fs.BoolVar(&c.source, "c", false, "generate Go source code for the given modules")
	fs.BoolVar(&c.list, "l", false, "list archive object modules")
	fs.BoolVar(&c.recursive, "r", false, "list all symbols for the given modules")
	fs.BoolVar(&c.symbols, "s", false, "list symbols for the given modules")
	fs.StringVar(&c.pkg, "pkg", "", "Go `package` name of generated source code")
	fs.BoolVar(&c.debug, "debug", false, "enable debug diagnostics")
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}
	if c.recursive {
		c.symbols = true
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return nil, errUsage
	}
	if fs.NArg()-1 > link.MaxEntries {
		return nil, errors.Errorf("number of files exceeded (max %d)", link.MaxEntries)
	}
	return fs.Args(), nil
}

func (c *cli) listArchive(a *link.Archive) error {
	for _, e := range a.Entries() {
		ts := time.Unix(int64(e.Timestamp), 0).Format("Mon Jan _2 15:04:05")
		_, err := fmt.Fprintf(c.stdout, "%7d %5d %s %s %s %s\n", e.Offset, e.Size, ts, e.Name, e.Ident, e.Version)
		if err != nil {
			return err
		}
	}
	return nil
}

// inspect prints the source code or symbols of the named archive members.
func (c *cli) inspect(a *link.Archive, man *manifest.Manifest, names []string) error {
	reg, err := link.New(append(man.LinkOptions(), link.WithArchive(a))...)
	if err != nil {
		return err
	}
	for _, name := range names {
		if !a.Contains(name) {
			return errors.Wrapf(vm.ErrLookup, "%s: not in archive file", name)
		}
		m, err := reg.Load(name)
		if err != nil {
			return err
		}
		if c.source {
			if err = report.Source(c.stdout, name+".go", c.pkg, m); err != nil {
				return err
			}
		}
		if c.symbols {
			if err = report.Symbols(c.stdout, m, c.recursive); err != nil {
				return err
			}
		}
	}
	return nil
}

// build writes a new archive from the given object files.
func build(fileName string, objects []string) error {
	mods := make([]*vm.Module, 0, len(objects))
	for _, o := range objects {
		fn, err := link.FindObject(o)
		if err != nil {
			return err
		}
		m, err := link.ReadFile(fn, true)
		if err != nil {
			return err
		}
		mods = append(mods, m)
	}
	f, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "%s: could not create archive file", fileName)
	}
	err = link.WriteArchive(f, mods)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(fileName)
	}
	return errors.Wrap(err, fileName)
}

func (c *cli) run(args []string) error {
	args, err := c.parse(args)
	if err != nil {
		return err
	}
	archive, objects := args[0], args[1:]
	man, err := manifest.FindAndLoad(c.dir)
	if err == nil && man == nil {
		man, err = manifest.Default(c.dir)
	}
	if err != nil {
		return err
	}
	if c.pkg == "" {
		c.pkg = man.Compile.Package
	}

	if c.list || c.source || c.symbols {
		fn, err := link.FindArchive(archive, append([]string{"."}, man.SearchPath()...)...)
		if err != nil {
			return err
		}
		a, err := link.OpenArchive(fn)
		if err != nil {
			return err
		}
		defer a.Close()
		if c.list {
			if len(objects) > 0 {
				c.warn("arguments ignored")
			}
			return c.listArchive(a)
		}
		return c.inspect(a, man, objects)
	}

	if len(objects) == 0 {
		return nil
	}
	return build(archive+link.ArchiveExt, objects)
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
