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
	"io"
	"strconv"

	"github.com/db47h/vfm/vm"
)

func dumpSlice(w io.Writer, prefix byte, a []vm.Cell) error {
	var err error
	l := len(a) - 1
	b := make([]byte, 0, 14)
	b = append(b, prefix)
	if l >= 0 {
		for i := 0; i < l; i++ {
			b = strconv.AppendInt(b, int64(a[i]), 10)
			b = append(b, ' ')
			_, err = w.Write(b)
			if err != nil {
				return err
			}
			b = b[:0]
		}
		b = strconv.AppendInt(b, int64(a[l]), 10)
	}
	_, err = w.Write(b)
	return err
}

// DumpEnv dumps the stacks and the used part of the heap of an execution
// environment to the specified io.Writer. Each section is introduced by a
// separator byte: \x1C for the data stack, \x1D for the address stack and the
// heap. Heap bytes are written as unsigned decimal values.
func DumpEnv(w io.Writer, e *vm.Env) error {
	err := dumpSlice(w, '\x1C', e.Data())
	if err != nil {
		return err
	}
	err = dumpSlice(w, '\x1D', e.Address())
	if err != nil {
		return err
	}
	_, off := vm.Split(e.Here())
	heap := e.Heap()[:off]
	c := make([]vm.Cell, len(heap))
	for i, v := range heap {
		c[i] = vm.Cell(v)
	}
	return dumpSlice(w, '\x1D', c)
}
