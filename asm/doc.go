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

// Package asm provides utility functions to assemble and disassemble vfm
// byte code.
//
// Mnemonics are the lower case names of the vm opcodes (dup, add, brze, ...).
// Instructions taking an inline operand read it from the next token:
//
//	operand	instructions			argument
//	-------	------------			--------
//	rel8	bra brze brzn dbzn rbzn		label or raw signed offset
//		rdbg rbri rbne rdne
//	rel16	nest brax brzx plit local	label or raw signed offset
//	imm8	clit				integer
//	imm32	lit unlit			integer
//	str8	slit				"quoted string"
//	table8	nnest				entry count followed by as many labels
//	mod	mest				use index and code offset
//	modsym	mesti				use index and symbol index
//	page	ext0 ext1 ext2 ext3		low byte of the extended opcode
//
// Branch displacements are relative to the end of the instruction. Offsets
// that do not fit the operand size are reported as errors.
//
// Comments:
//
// Comments are placed between parentheses, i.e. '(' and ')'. The body of the
// comment must be separated from the enclosing parentheses by a space:
//
//	( this is a valid comment )
//	( this is a
//	  rather long
//	  multiline comment )
//
// Literals and label/const identifiers:
//
// Input is split at white space like in Forth. A token that parses as an
// integer (decimal, 0x hex or 0 octal), a quoted character ('x', '\n') or
// that names a constant defined with .equ compiles as an implicit literal:
// clit if the value fits in a signed byte, lit otherwise.
//
// Labels are defined by prefixing their name with a colon, as in ":loop".
// Labels made only of digits are local labels and may be redefined. A
// reference to a local label is suffixed with '-' for the closest previous
// definition or '+' for the next one:
//
//	:1	bra 1+
//	:1	bra 1-
//
// Any other identifier is an implicit call: a two bytes negative offset
// with its sign bit set. Implicit calls can only target earlier addresses;
// use "call label" (an alias of nest) for forward calls.
//
// Directives:
//
//	.module name		set the module name
//	.ident "text"		set the ident string
//	.version "text"		set the version string
//	.timestamp n		set the module timestamp
//	.use name ts		append name to the use list, with expected timestamp ts
//	.entry label		set the entry point
//	.fn name		start a function: write the symbol index byte, then
//				define label and symbol name
//	.var name		define a variable: symbol, unslit and a zero cell
//	.create name		define a data area symbol followed by unslit
//	.const name n		define a constant: symbol, unlit n
//	.equ name n		define an assembler constant
//	.opcode name n		name the extension opcode n (128 to 1023)
//	.dat n			write n as a big endian cell
//	.byte n			write the low byte of n
//	.str "text"		write a zero terminated string
package asm
