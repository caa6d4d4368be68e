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

// The vfc command compiles source files to object files.
//
// Usage:
//
//	vfc [flags] file...
//
// A file name without extension gets the .fpp extension appended. The module
// declared by a file must match its base name. The object file for module
// a.b.c is written to a/b/c.vfm in the output directory, which is also
// searched first for used modules, so that files can be compiled in
// dependency order in a single run.
//
// Flags:
//
//	-c
//		  print the static code coverage of each module
//	-debug
//		  print a full stacktrace on errors
//	-e entry
//		  name of the entry point (default main)
//	-o directory
//		  output directory for object and source files
//	-p
//		  print the static code usage profile of each module
//	-pkg package
//		  Go package name of generated source files (default objects)
//	-s
//		  also generate Go source code declaring the module and the modules
//		  it uses as *vm.Module variables, in a/b/c.go
//
// Defaults for the module path, archives, entry point and output directory
// are read from the nearest vfm.toml file found in the current directory or
// its parents.
package main
