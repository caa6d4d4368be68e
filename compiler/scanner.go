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

package compiler

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// scanner splits source text into blank separated words. Comments are
// skipped and string literals are returned verbatim.
type scanner struct {
	r    *bufio.Reader
	line int // line of the last token
	cur  int
	text string
	kw   keyword
	err  error
}

func newScanner(r io.Reader) *scanner {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &scanner{r: br, line: 1, cur: 1}
}

func (s *scanner) next() (byte, bool) {
	c, err := s.r.ReadByte()
	if err != nil {
		if err != io.EOF && s.err == nil {
			s.err = errors.Wrap(err, "read failed")
		}
		return 0, false
	}
	if c == '\n' {
		s.cur++
	}
	return c, true
}

// skipTo consumes input up to and including delim.
func (s *scanner) skipTo(delim byte) bool {
	for {
		c, ok := s.next()
		if !ok {
			return false
		}
		if c == delim {
			return true
		}
	}
}

// scan returns the next token. Keywords not allowed in the given mode are
// returned as plain words.
func (s *scanner) scan(mode int) token {
	for {
		c, ok := s.next()
		for ok && c <= ' ' {
			c, ok = s.next()
		}
		if !ok {
			return tokEOF
		}
		s.line = s.cur
		b := make([]byte, 0, 16)
		for ok && c > ' ' {
			b = append(b, c)
			c, ok = s.next()
		}
		s.text = string(b)
		kw, found := keywords[s.text]
		if !found {
			return tokWord
		}
		switch kw.tok {
		case tokComment:
			if !s.skipTo(')') {
				return s.unterminated("comment")
			}
			continue
		case tokLine:
			if ok && c == '\n' {
				continue
			}
			s.skipTo('\n')
			continue
		case tokString:
			var str []byte
			for {
				c, ok = s.next()
				if !ok {
					return s.unterminated("string")
				}
				if c == '"' {
					break
				}
				str = append(str, c)
			}
			s.text = string(str)
			return tokString
		}
		if kw.mode&mode == 0 {
			return tokWord
		}
		s.kw = kw
		return kw.tok
	}
}

func (s *scanner) unterminated(what string) token {
	if s.err == nil {
		s.err = errors.Errorf("unterminated %s", what)
	}
	return tokEOF
}
