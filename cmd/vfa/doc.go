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

// The vfa command bundles object files into archives and inspects them.
//
// Usage:
//
//	vfa archive object...
//	vfa -l archive
//	vfa [-c] [-s|-r] archive module...
//
// The first form writes archive.vfa holding the given object files. Objects
// are looked up like the object argument of the vfm command.
//
// The other forms look for the archive as libarchive.vfa, archive.vfa and
// archive, in the current directory then along the module path.
//
// Flags:
//
//	-c
//		  generate Go source code for the given modules
//	-debug
//		  print a full stacktrace on errors
//	-l
//		  list the archive members: offset, size, compilation time, name,
//		  ident and version
//	-pkg package
//		  Go package name of generated source code (default objects)
//	-s, -r
//		  list the symbols of the given modules, -r includes used modules
package main
