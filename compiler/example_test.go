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

package compiler_test

import (
	"fmt"
	"os"
	"strings"

	"github.com/db47h/vfm/compiler"
	"github.com/db47h/vfm/vm"
)

const squareSrc = `
module square
( n -- n*n )
: square dup * ;
: main 7 square ;
endmodule
`

func ExampleCompiler_Compile() {
	c, err := compiler.New(compiler.Warnings(os.Stdout))
	if err != nil {
		panic(err)
	}
	m, err := c.Compile("square.fpp", strings.NewReader(squareSrc))
	if err != nil {
		fmt.Println(err)
		return
	}
	e, err := vm.New(m)
	if err != nil {
		panic(err)
	}
	if err = e.Run(); err != nil {
		panic(err)
	}
	fmt.Println(e.Data())

	// Output:
	// [49]
}

func ExampleError() {
	c, _ := compiler.New()
	_, err := c.Compile("bad.fpp", strings.NewReader("module bad\n: f if 1 ;\nendmodule\n"))
	fmt.Println(err)

	// Output:
	// bad.fpp:2: error: illegal control structure
}
