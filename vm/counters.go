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

package vm

// Counters holds per-opcode execution counts. Per-symbol counts live in
// Symbol.RefCount.
type Counters struct {
	Ops [MaxOpcode + 1]int64
}

// Reset clears the opcode counts and the reference counts of every symbol
// of m and of the modules it uses. m may be nil.
func (c *Counters) Reset(m *Module) {
	if c != nil {
		c.Ops = [MaxOpcode + 1]int64{}
	}
	if m == nil {
		return
	}
	m.Walk(true, func(_ *Module, s *Symbol) error {
		s.RefCount = 0
		return nil
	})
}

// Add adds the counts of o to c.
func (c *Counters) Add(o *Counters) {
	for i, n := range o.Ops {
		c.Ops[i] += n
	}
}

// Total returns the sum of all opcode counts.
func (c *Counters) Total() int64 {
	var t int64
	for _, n := range c.Ops {
		t += n
	}
	return t
}
