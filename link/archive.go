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

package link

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/db47h/vfm/internal/xio"
	"github.com/db47h/vfm/vm"
	"github.com/pkg/errors"
)

// ArchiveMagic is the signature line of archive files.
const ArchiveMagic = "vfm archive 1.0\n"

// MaxEntries is the maximum number of objects in an archive.
const MaxEntries = 4096

// Entry describes an object stored in an archive. Offset is relative to the
// end of the archive header.
type Entry struct {
	Name      string
	Ident     string
	Version   string
	Timestamp int32
	Size      int32
	Offset    int32
}

// Archive is an indexed collection of object files.
type Archive struct {
	r       io.ReaderAt
	c       io.Closer
	base    int64
	entries []Entry
	index   map[string]int
}

// OpenArchive opens the named archive file. The file stays open until Close
// is called.
func OpenArchive(fileName string) (*Archive, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "open failed")
	}
	a, err := NewArchive(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, fileName)
	}
	a.c = f
	return a, nil
}

// FindArchive looks for the archive file of the given library name in dirs,
// trying libNAME.vfa, NAME.vfa and NAME in turn. The current directory is
// searched if dirs is empty. dirs are ignored if name is an absolute path.
func FindArchive(name string, dirs ...string) (string, error) {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	if filepath.IsAbs(name) {
		dirs = []string{""}
	}
	dir, base := filepath.Split(name)
	for _, d := range dirs {
		for _, fn := range []string{filepath.Join(dir, "lib"+base+ArchiveExt), name + ArchiveExt, name} {
			fn = filepath.Join(d, fn)
			if fi, err := os.Stat(fn); err == nil && !fi.IsDir() {
				return fn, nil
			}
		}
	}
	return "", errors.Wrapf(vm.ErrLookup, "archive %s", name)
}

// NewArchive reads the archive header from r and builds its index.
func NewArchive(r io.ReaderAt) (*Archive, error) {
	rd := xio.NewReader(io.NewSectionReader(r, 0, math.MaxInt64))
	if rd.Line() != ArchiveMagic {
		if err := rd.Err(); err != nil && err != io.ErrUnexpectedEOF {
			return nil, errors.Wrap(err, "read archive")
		}
		return nil, vm.ErrFormat
	}
	n := rd.Int32()
	if rd.Err() == nil && (n < 0 || n > MaxEntries) {
		return nil, errors.Wrapf(vm.ErrMalformed, "%d archive entries", n)
	}
	a := &Archive{r: r, index: make(map[string]int, n)}
	if n > 0 {
		a.entries = make([]Entry, n)
	}
	for i := range a.entries {
		e := &a.entries[i]
		e.Name = rd.String()
		e.Ident = rd.String()
		e.Version = rd.String()
		e.Timestamp = rd.Int32()
		e.Size = rd.Int32()
		e.Offset = rd.Int32()
		if rd.Err() != nil {
			break
		}
		if e.Size < 0 || e.Offset < 0 {
			return nil, errors.Wrapf(vm.ErrMalformed, "%s: bad archive entry", e.Name)
		}
		if _, ok := a.index[e.Name]; ok {
			return nil, errors.Wrapf(vm.ErrMalformed, "%s: duplicate archive entry", e.Name)
		}
		a.index[e.Name] = i
	}
	if err := rd.Err(); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, errors.Wrapf(vm.ErrMalformed, "archive header truncated at byte %d", rd.Offset())
		}
		return nil, errors.Wrap(err, "read archive")
	}
	a.base = rd.Offset()
	return a, nil
}

// Close closes the underlying file if the archive was opened with
// OpenArchive.
func (a *Archive) Close() error {
	if a.c == nil {
		return nil
	}
	return a.c.Close()
}

// Entries returns the archive index in storage order.
func (a *Archive) Entries() []Entry {
	return append([]Entry(nil), a.entries...)
}

// Contains reports whether the archive holds the named module.
func (a *Archive) Contains(name string) bool {
	_, ok := a.index[name]
	return ok
}

// Load reads the named module from the archive.
func (a *Archive) Load(name string, symbols bool) (*vm.Module, error) {
	i, ok := a.index[name]
	if !ok {
		return nil, errors.Wrapf(vm.ErrLookup, "%s: not in archive", name)
	}
	e := &a.entries[i]
	m, err := vm.ReadObject(io.NewSectionReader(a.r, a.base+int64(e.Offset), int64(e.Size)), symbols)
	if err != nil {
		return nil, errors.Wrapf(err, "archive member %s", name)
	}
	return m, nil
}

// WriteArchive writes an archive holding the given modules. Module names must
// be unique.
func WriteArchive(w io.Writer, mods []*vm.Module) error {
	if len(mods) > MaxEntries {
		return errors.Wrapf(vm.ErrAlloc, "%d archive entries", len(mods))
	}
	var (
		blobs bytes.Buffer
		ents  = make([]Entry, 0, len(mods))
		seen  = make(map[string]bool, len(mods))
	)
	for _, m := range mods {
		if seen[m.Name] {
			return errors.Errorf("%s: duplicate archive entry", m.Name)
		}
		seen[m.Name] = true
		pos := blobs.Len()
		if err := vm.WriteObject(&blobs, m); err != nil {
			return errors.Wrap(err, m.Name)
		}
		ents = append(ents, Entry{
			Name:      m.Name,
			Ident:     m.Ident,
			Version:   m.Version,
			Timestamp: m.Timestamp,
			Size:      int32(blobs.Len() - pos),
			Offset:    int32(pos),
		})
	}
	wr := xio.NewWriter(w)
	wr.Line(ArchiveMagic)
	wr.Int32(int32(len(ents)))
	for _, e := range ents {
		wr.String(e.Name)
		wr.String(e.Ident)
		wr.String(e.Version)
		wr.Int32(e.Timestamp)
		wr.Int32(e.Size)
		wr.Int32(e.Offset)
	}
	wr.Bytes(blobs.Bytes())
	return wr.Err()
}
