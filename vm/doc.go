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

// Package vm implements the vfm virtual machine: the module model, the
// object file format and a token threaded byte code interpreter.
//
// Instructions are one byte opcodes in the range 0 to 127, optionally
// followed by inline operands. A byte with its sign bit set starts an
// implicit call: together with the next byte it forms a negative 16 bits
// offset, relative to the end of the call, to a function compiled earlier in
// the same module. Opcodes 128 to 1023 are reached through the four
// extension page instructions EXT0 to EXT3 and can be bound to Go functions
// with BindExtension.
//
// Calls to other modules go through MEST (module index, code offset) or MESTI
// (module index, symbol index), which save the current module context on the
// return stack. The following UNMEST restores it.
//
// Cells are 32 bits, stored big endian in memory. Addresses seen by programs
// are cells holding a segment number in the top byte and a byte offset in
// the lower 24 bits. The heap is segment 0, module code is mapped on first
// use, so that a module used by several others is shared, variables
// included.
//
// An Env runs either a plain interpreter loop or, when tracing or profiling
// is enabled, an overlay loop that counts opcodes and symbol references and
// optionally prints each instruction. Programs switch between the two with
// the TRACE and PROFILE instructions.
//
// Errors: the only recoverable runtime error is an initial instruction
// pointer out of bounds (ErrBadIP). Any other fault, such as a stack
// overflow, an out of bounds memory access or a division by zero, aborts Run
// with an error wrapping the Go runtime error and the machine registers.
package vm
