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

// The vfm command runs compiled modules and reports on their execution.
//
// Usage:
//
//	vfm [flags] object
//	vfm [flags] -l library -e module::symbol
//
// The object argument is tried as a file name, then with the .vfm extension
// appended, then as a module name translated to a path (a.b.c becomes
// a/b/c.vfm). Used modules are searched along the module path.
//
// Flags:
//
//	-b times
//		  run the entry point the given number of times and print the elapsed time
//	-c
//		  print code coverage upon exit
//	-debug
//		  print a full stacktrace and the machine registers on errors
//	-dump
//		  dump the stacks and used heap upon exit
//	-e symbol
//		  start symbol, optionally qualified as module::symbol
//	-l library
//		  load modules from an archive, tried as liblibrary.vfa, library.vfa
//		  and library
//	-n
//		  skip loading of symbols
//	-noraw
//		  disable raw terminal IO
//	-p
//		  print an execution profile upon exit
//	-profile-out file
//		  merge the profile counters into a CBOR snapshot file
//	-s, -r
//		  list the symbols of the object, -r includes used modules
//	-t
//		  trace execution
//	-with filename
//		  add filename to the input list (can be specified multiple times)
//
// Unless stdin has been redirected, vfm switches the terminal to non
// canonical mode so that getc returns as soon as a key is pressed. CTRL-D
// then signals the end of input.
//
// Defaults for the module path, archives, stack and heap sizes, entry point
// and profile file are read from the nearest vfm.toml file found in the
// current directory or its parents. Flags take precedence.
package main
