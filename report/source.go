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

package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/db47h/vfm/vm"
	"github.com/pkg/errors"
	"golang.org/x/tools/imports"
)

const bytesPerLine = 12

// Ident returns the Go identifier used for module name in generated source.
func Ident(name string) string {
	return "mod_" + strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, name)
}

// deps returns the modules reachable from m, dependencies first.
func deps(m *vm.Module, seen map[*vm.Module]bool, l []*vm.Module) []*vm.Module {
	if seen[m] {
		return l
	}
	seen[m] = true
	for _, u := range m.Uses {
		if u.Module != nil {
			l = deps(u.Module, seen, l)
		}
	}
	return append(l, m)
}

func genModule(b *bytes.Buffer, m *vm.Module) {
	fmt.Fprintf(b, "var %s = &vm.Module{\n", Ident(m.Name))
	fmt.Fprintf(b, "Name: %q,\nIdent: %q,\nVersion: %q,\nTimestamp: %d,\n", m.Name, m.Ident, m.Version, m.Timestamp)
	if len(m.Uses) > 0 {
		b.WriteString("Uses: []vm.Use{\n")
		for _, u := range m.Uses {
			fmt.Fprintf(b, "{Name: %q, Timestamp: %d", u.Name, u.Timestamp)
			if u.Module != nil {
				fmt.Fprintf(b, ", Module: %s", Ident(u.Name))
			}
			b.WriteString("},\n")
		}
		b.WriteString("},\n")
	}
	fmt.Fprintf(b, "Entry: %d,\nCode: []byte{", m.Entry)
	for i, c := range m.Code {
		if i%bytesPerLine == 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(b, "0x%02x, ", c)
	}
	b.WriteString("\n},\n")
	if m.Symbols != nil {
		b.WriteString("Symbols: []vm.Symbol{\n")
		for _, s := range m.Symbols {
			fmt.Fprintf(b, "{Name: %q, Offset: %d, Mode: %d, RefCount: %d},\n", s.Name, s.Offset, s.Mode, s.RefCount)
		}
		b.WriteString("},\n")
	}
	b.WriteString("}\n\n")
}

// Source writes a Go source file for package pkg declaring one *vm.Module
// variable for m and for each module it uses, with the use lists linked.
// Variables are named by Ident. fileName is only used in error messages.
func Source(w io.Writer, fileName, pkg string, m *vm.Module) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "// Code generated by vfc from module %s. DO NOT EDIT.\n\npackage %s\n\n", m.Name, pkg)
	b.WriteString("import \"github.com/db47h/vfm/vm\"\n\n")
	for _, mod := range deps(m, make(map[*vm.Module]bool), nil) {
		genModule(&b, mod)
	}
	src, err := imports.Process(fileName, b.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return errors.Wrapf(err, "%s: generated source", fileName)
	}
	_, err = w.Write(src)
	return errors.Wrap(err, "write failed")
}
