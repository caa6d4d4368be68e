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
	"fmt"
	"io"

	"github.com/db47h/vfm/internal/xio"
	"github.com/db47h/vfm/vm"
)

// used returns m followed by its directly used modules, without duplicates.
func used(m *vm.Module) []*vm.Module {
	l := []*vm.Module{m}
	seen := map[*vm.Module]bool{m: true}
	for _, u := range m.Uses {
		if u.Module == nil || seen[u.Module] {
			continue
		}
		seen[u.Module] = true
		l = append(l, u.Module)
	}
	return l
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return n * 100 / total
}

// Profile writes the non-zero reference counts of the symbols of m and of its
// directly used modules, followed by the non-zero opcode counts in c. Modules
// loaded without a symbol table are skipped. c may be nil.
func Profile(w io.Writer, m *vm.Module, c *vm.Counters) error {
	ew := xio.NewErrWriter(w)
	for _, mod := range used(m) {
		for _, s := range mod.Symbols {
			if s.RefCount != 0 {
				fmt.Fprintf(ew, "%8d %s::%s\n", s.RefCount, mod.Name, s.Name)
			}
		}
	}
	if c != nil {
		for op, n := range c.Ops {
			if n != 0 {
				fmt.Fprintf(ew, "%8d vfm::%s\n", n, vm.Opcode(op))
			}
		}
	}
	return ew.Err
}

// Coverage writes one line per module (m and its directly used modules) with
// the total reference count, the number of referenced symbols over the
// number of symbols and the resulting percentage. A last line does the same
// for the kernel opcodes in c.
func Coverage(w io.Writer, m *vm.Module, c *vm.Counters) error {
	ew := xio.NewErrWriter(w)
	for _, mod := range used(m) {
		if mod.Symbols == nil {
			continue
		}
		var total int64
		var n int
		for _, s := range mod.Symbols {
			if s.RefCount != 0 {
				total += s.RefCount
				n++
			}
		}
		fmt.Fprintf(ew, "%8d %s %d/%d (%d%%)\n", total, mod.Name, n, len(mod.Symbols), percent(n, len(mod.Symbols)))
	}
	var total int64
	var n int
	if c != nil {
		for _, v := range c.Ops {
			if v != 0 {
				total += v
				n++
			}
		}
	}
	fmt.Fprintf(ew, "%8d vfm %d/%d (%d%%)\n", total, n, int(vm.OpHalt), percent(n, int(vm.OpHalt)))
	return ew.Err
}

// Symbols lists the symbol table of m: code offset, a star for the entry
// point and the qualified name. If recursive is true, the symbols of the used
// modules follow.
func Symbols(w io.Writer, m *vm.Module, recursive bool) error {
	ew := xio.NewErrWriter(w)
	return m.Walk(recursive, func(mod *vm.Module, s *vm.Symbol) error {
		mark := " "
		if mod.Entry != 0 && s.Offset == mod.Entry {
			mark = "*"
		}
		_, err := fmt.Fprintf(ew, "%5d %s%s::%s\n", s.Offset, mark, mod.Name, s.Name)
		return err
	})
}
