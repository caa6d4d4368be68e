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

import "github.com/pkg/errors"

// Load, link and run errors. Use errors.Cause to test for them.
var (
	ErrFormat    = errors.New("bad object signature")
	ErrMalformed = errors.New("malformed object")
	ErrAlloc     = errors.New("allocation failed")
	ErrLookup    = errors.New("not found")
	ErrBadIP     = errors.New("instruction pointer out of bounds")
)
