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

/*
Package compiler compiles source files to vm modules in a single pass.

A source file holds exactly one module. Its base name must be the module name
followed by ".fpp":

	package demo
	module square
	ident " square demo"
	version " 1.0"
	use util

	( comment ) \ line comment // line comment

	10 constant ten
	variable count
	create table 1 , 2 , 3 c, 4 allot " raw string"

	: square ( n -- n*n ) dup * ;
	: main 7 square . cr ;
	endmodule

Words are separated by blanks. A lone quote starts a string that runs up to
the next quote, with no escapes. The blank following the opening quote is not
part of the string. Integer literals are decimal or 0x prefixed
hexadecimal.

Outside definitions, integer literals are parameters for constant, allot,
comma (a cell) and c, (a byte). Strings are emitted as raw zero terminated
data. The words ] and [ switch to and from compilation without declaring a
symbol.

Inside definitions, integer literals and strings push their value or address,
and words name primitive operations, calls to earlier definitions or calls to
used modules. Names may be qualified with a module name: util::sq.
Unqualified names are searched in the module itself, most recent definition
first, then in used modules in the order of the use statements.

Control structures:

	flag if ... [else ...] then         -if branches on a true flag
	begin ... again
	begin ... flag until                loops while the flag is true
	begin ... flag while ... repeat
	n for ... next                      n+1 iterations, i is the counter
	n for ... step -next                counts down by step
	start limit do ... loop             i runs from start to limit included
	start limit do ... step +loop
	x case v of ... endof lo hi rangeof ... endof ... endcase
	n select f0 f1 ... endselect        calls the n-th function

A select block may only contain names of functions defined in the module.
recurse calls the current definition, tailrecurse jumps to its start and guard
chains to the previous definition of the same name when the top of the stack
is zero. ' name pushes the address of a symbol for execute, and chain name
jumps to it. ext0 n emits the bound extension operation n of page 0.

The keywords and their allowed modes are fixed. A keyword used where it is not
allowed is compiled as a plain word, so that, for instance, top level 0 is a
parameter and not the const0 operation.
*/
package compiler
