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

	"github.com/db47h/vfm/vm"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("report: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// ErrSnapshot is returned when merging or applying a snapshot taken from a
// different module.
var ErrSnapshot = errors.New("snapshot mismatch")

// SymbolCount is the reference count of one symbol in a Snapshot.
type SymbolCount struct {
	Module string `cbor:"m"`
	Name   string `cbor:"n"`
	Offset int    `cbor:"o"`
	Count  int64  `cbor:"c"`
}

// Snapshot is a serializable copy of the profiling counters of a module and
// of the modules it uses. Snapshots of several runs of the same module can be
// merged and applied back before printing a listing.
type Snapshot struct {
	Module    string           `cbor:"module"`
	Timestamp int32            `cbor:"timestamp"`
	Runs      int              `cbor:"runs"`
	Symbols   []SymbolCount    `cbor:"symbols"`
	Ops       map[uint16]int64 `cbor:"ops"`
}

// Take returns a snapshot of the non-zero counts of m, the modules it uses
// and c. c may be nil.
func Take(m *vm.Module, c *vm.Counters) *Snapshot {
	s := &Snapshot{
		Module:    m.Name,
		Timestamp: m.Timestamp,
		Runs:      1,
		Ops:       make(map[uint16]int64),
	}
	m.Walk(true, func(mod *vm.Module, sym *vm.Symbol) error {
		if sym.RefCount != 0 {
			s.Symbols = append(s.Symbols, SymbolCount{mod.Name, sym.Name, sym.Offset, sym.RefCount})
		}
		return nil
	})
	if c != nil {
		for op, n := range c.Ops {
			if n != 0 {
				s.Ops[uint16(op)] = n
			}
		}
	}
	return s
}

func (s *Snapshot) check(name string, ts int32) error {
	if s.Module != name || s.Timestamp != ts {
		return errors.Wrapf(ErrSnapshot, "%s@%d vs. %s@%d", s.Module, s.Timestamp, name, ts)
	}
	return nil
}

// Merge adds the counts of o to s.
func (s *Snapshot) Merge(o *Snapshot) error {
	if err := s.check(o.Module, o.Timestamp); err != nil {
		return err
	}
	type key struct {
		mod string
		off int
	}
	idx := make(map[key]int, len(s.Symbols))
	for i, sc := range s.Symbols {
		idx[key{sc.Module, sc.Offset}] = i
	}
	for _, sc := range o.Symbols {
		if i, ok := idx[key{sc.Module, sc.Offset}]; ok {
			s.Symbols[i].Count += sc.Count
			continue
		}
		idx[key{sc.Module, sc.Offset}] = len(s.Symbols)
		s.Symbols = append(s.Symbols, sc)
	}
	if s.Ops == nil {
		s.Ops = make(map[uint16]int64)
	}
	for op, n := range o.Ops {
		s.Ops[op] += n
	}
	s.Runs += o.Runs
	return nil
}

// Apply adds the counts of s to the symbols of m and the modules it uses, and
// to c if not nil. Counts of symbols that cannot be found are ignored.
func (s *Snapshot) Apply(m *vm.Module, c *vm.Counters) error {
	if err := s.check(m.Name, m.Timestamp); err != nil {
		return err
	}
	mods := make(map[string]*vm.Module)
	for _, mod := range deps(m, make(map[*vm.Module]bool), nil) {
		mods[mod.Name] = mod
	}
	for _, sc := range s.Symbols {
		mod := mods[sc.Module]
		if mod == nil {
			continue
		}
		if sym := mod.SymbolAt(sc.Offset); sym != nil && sym.Name == sc.Name {
			sym.RefCount += sc.Count
		}
	}
	if c != nil {
		for op, n := range s.Ops {
			if int(op) < len(c.Ops) {
				c.Ops[op] += n
			}
		}
	}
	return nil
}

// Encode writes s to w in canonical CBOR.
func (s *Snapshot) Encode(w io.Writer) error {
	b, err := encMode.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "snapshot encoding failed")
	}
	_, err = w.Write(b)
	return errors.Wrap(err, "write failed")
}

// ReadSnapshot decodes a snapshot written by Encode.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrap(err, "snapshot decoding failed")
	}
	return &s, nil
}
