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
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/db47h/vfm/link"
	"github.com/db47h/vfm/manifest"
	"github.com/db47h/vfm/report"
	"github.com/db47h/vfm/vm"
	"github.com/pkg/errors"
)

var errUsage = errors.New("bad command line")

type fileList []string

func (f *fileList) String() string     { return "" }
func (f *fileList) Set(s string) error { *f = append(*f, s); return nil }
func (f *fileList) Get() interface{}   { return *f }

// ttyReader reports end of input when CTRL-D is read from a terminal in
// non canonical mode.
type ttyReader struct {
	r io.Reader
}

func (t ttyReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	for i := 0; i < n; i++ {
		if p[i] == 4 {
			return i, io.EOF
		}
	}
	return n, err
}

type cli struct {
	dir    string // where to look for vfm.toml
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	tty    bool // stdin is os.Stdin
	env    *vm.Env

	bench      int
	coverage   bool
	debug      bool
	dump       bool
	entry      string
	archive    string
	noSymbols  bool
	noRawIO    bool
	profile    bool
	profileOut string
	recursive  bool
	symbols    bool
	trace      bool
	with       fileList
}

func (c *cli) warn(msg string) {
	fmt.Fprintf(c.stderr, "warning: %s\n", msg)
}

func (c *cli) parse(args []string) ([]string, error) {
	fs := flag.NewFlagSet("vfm", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() {
		fmt.Fprintf(c.stderr, "usage: vfm [flags] object\nvfm virtual forth machine run-time and dynamic analysis tool\n")
		fs.PrintDefaults()
	}
	fs.IntVar(&c.bench, "b", 0, "measure execution, number of `times`")
	fs.BoolVar(&c.coverage, "c", false, "measure code coverage")
	fs.BoolVar(&c.noSymbols, "n", false, "skip loading of symbols")
	fs.StringVar(&c.entry, "e", "", "start `symbol` (default module entry)")
	fs.StringVar(&c.archive, "l", "", "load object code files from `library`")
	fs.BoolVar(&c.profile, "p", false, "profile execution")
	fs.BoolVar(&c.symbols, "s", false, "dump object symbols")
	fs.BoolVar(&c.recursive, "r", false, "dump all object symbols")
	fs.BoolVar(&c.trace, "t", false, "trace execution")
	fs.StringVar(&c.profileOut, "profile-out", "", "merge profile counters into CBOR snapshot `file`")
	fs.BoolVar(&c.dump, "dump", false, "dump stacks and heap upon exit")
	fs.BoolVar(&c.noRawIO, "noraw", false, "disable raw terminal IO")
	fs.BoolVar(&c.debug, "debug", false, "enable debug diagnostics")
	fs.Var(&c.with, "with", "Add `filename` to the input list (can be specified multiple times)")
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}
	if c.recursive {
		c.symbols = true
	}
	if c.archive == "" && fs.NArg() != 1 {
		fs.Usage()
		return nil, errUsage
	}
	if c.bench < 0 {
		return nil, errors.New("illegal benchmark")
	}
	return fs.Args(), nil
}

func splitEntry(entry string) (mod, sym string) {
	if i := strings.Index(entry, "::"); i >= 0 {
		return entry[:i], entry[i+2:]
	}
	return entry, ""
}

func saveSnapshot(fileName string, m *vm.Module, ctr *vm.Counters) error {
	s := report.Take(m, ctr)
	if f, err := os.Open(fileName); err == nil {
		old, err := report.ReadSnapshot(f)
		f.Close()
		if err != nil {
			return errors.Wrap(err, fileName)
		}
		if err = old.Merge(s); err != nil {
			return errors.Wrap(err, fileName)
		}
		s = old
	} else if !os.IsNotExist(err) {
		return err
	}
	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	err = s.Encode(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return errors.Wrap(err, fileName)
}

func (c *cli) run(args []string) (err error) {
	args, err = c.parse(args)
	if err != nil {
		return err
	}
	// try to switch the terminal to non canonical mode. This fails if stdin
	// has been redirected.
	if c.tty && !c.noRawIO {
		if tearDown, err := setRawIO(); err == nil {
			defer tearDown()
			c.stdin = ttyReader{os.Stdin}
		}
	}

	man, err := manifest.FindAndLoad(c.dir)
	if err == nil && man == nil {
		man, err = manifest.Default(c.dir)
	}
	if err != nil {
		return err
	}

	symbols := *man.Modules.Symbols && !c.noSymbols
	if !symbols && (c.profile || c.coverage || c.profileOut != "") {
		c.warn("symbols needed")
		symbols = true
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
	if c.archive != "" {
		fn, err := link.FindArchive(c.archive, append([]string{"."}, man.SearchPath()...)...)
		if err != nil {
			return err
		}
		a, err := link.OpenArchive(fn)
		if err != nil {
			return err
		}
		archives = append([]*link.Archive{a}, archives...)
	}
	reg, err := link.New(append(man.LinkOptions(archives...), link.Symbols(symbols))...)
	if err != nil {
		return err
	}

	entry := c.entry
	if entry == "" {
		entry = man.Run.Entry
	}
	var mod *vm.Module
	if c.archive != "" {
		if entry == "" {
			return errors.New("undefined entry")
		}
		if len(args) > 0 {
			c.warn("parameters ignored")
		}
		var name string
		name, entry = splitEntry(entry)
		mod, err = reg.Load(name)
	} else {
		var fn string
		if fn, err = link.FindObject(args[0]); err == nil {
			mod, err = reg.LoadFile(fn)
		}
	}
	if err != nil {
		return err
	}

	if c.symbols {
		if c.trace || c.entry != "" || c.profile || c.coverage || c.bench > 0 {
			c.warn("options ignored")
		}
		return report.Symbols(c.stdout, mod, c.recursive)
	}

	out := bufio.NewWriter(c.stdout)
	defer func() {
		if ferr := out.Flush(); err == nil {
			err = ferr
		}
	}()
	var ctr vm.Counters
	opts := append(man.EnvOptions(),
		vm.Output(out),
		vm.TraceOutput(out),
		vm.Trace(c.trace),
		vm.Profile(c.profile || c.coverage || c.profileOut != ""),
		vm.WithCounters(&ctr),
		vm.Input(c.stdin))
	// push -with files in reverse order so that they are read in order of
	// appearance on the command line.
	for n := len(c.with) - 1; n >= 0; n-- {
		var f *os.File
		f, err = os.Open(c.with[n])
		if err != nil {
			return err
		}
		opts = append(opts, vm.Input(f))
	}
	c.env, err = vm.New(mod, opts...)
	if err != nil {
		return err
	}
	e := c.env
	exec := e.Run
	if entry != "" {
		exec = func() error { return e.Call(entry) }
	}

	if c.bench > 0 {
		start := time.Now()
		for i := 0; i < c.bench && err == nil; i++ {
			e.Reset()
			err = exec()
		}
		fmt.Fprintf(out, "%5.f ms\n", float64(time.Since(start))/float64(time.Millisecond))
	} else {
		err = exec()
	}
	if err != nil {
		return err
	}

	if c.dump {
		if err = report.DumpEnv(out, e); err != nil {
			return err
		}
	}
	if c.profile {
		if err = report.Profile(out, mod, &ctr); err != nil {
			return err
		}
	}
	if c.coverage {
		if err = report.Coverage(out, mod, &ctr); err != nil {
			return err
		}
	}
	profileOut := c.profileOut
	if profileOut == "" && (c.profile || c.coverage) {
		profileOut = man.Run.ProfileOut
	}
	if profileOut != "" {
		return saveSnapshot(profileOut, mod, &ctr)
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
	if !c.debug {
		fmt.Fprintf(c.stderr, "\n%v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(c.stderr, "\n%+v\n", err)
	if c.env != nil {
		m, ip := c.env.IP()
		name := "?"
		if m != nil {
			name = m.Name
		}
		fmt.Fprintf(c.stderr, "IP: %s@%d, Stack: %v, Addr: %v\n", name, ip, c.env.Data(), c.env.Address())
	}
	os.Exit(1)
}

func main() {
	c := &cli{
		dir:    ".",
		stdin:  bufio.NewReader(os.Stdin),
		stdout: os.Stdout,
		stderr: os.Stderr,
		tty:    true,
	}
	c.atExit(c.run(os.Args[1:]))
}
