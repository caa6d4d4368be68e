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

package vm_test

import (
	"fmt"
	"os"
	"strings"

	"github.com/db47h/vfm/asm"
	"github.com/db47h/vfm/vm"
)

// Shows how to run a function of a module and read back the results.
func ExampleEnv_Call() {
	m, err := asm.Assemble("square", strings.NewReader(`
		.fn square dup mul unnest
		.fn main 7 square unnest
		.entry main`))
	if err != nil {
		panic(err)
	}
	e, err := vm.New(m, vm.Output(os.Stdout))
	if err != nil {
		panic(err)
	}
	// run the entry point
	if err = e.Run(); err != nil {
		panic(err)
	}
	fmt.Println(e.Data())
	// call a function by name
	e.Push(12)
	if err = e.Call("square"); err != nil {
		panic(err)
	}
	fmt.Println(e.Data())

	// Output:
	// [49]
	// [49 144]
}

// Shows how to add a custom instruction in the extension pages.
func ExampleBindExtension() {
	m, err := asm.Assemble("ext", strings.NewReader(`
		.opcode gcd 256
		.fn main 84 36 gcd unnest
		.entry main`))
	if err != nil {
		panic(err)
	}
	gcd := func(e *vm.Env) error {
		b, a := e.Pop(), e.Pop()
		for b != 0 {
			a, b = b, a%b
		}
		e.Push(a)
		return nil
	}
	e, err := vm.New(m, vm.BindExtension(256, gcd))
	if err != nil {
		panic(err)
	}
	if err = e.Run(); err != nil {
		panic(err)
	}
	fmt.Println(e.Data())

	// Output:
	// [12]
}
