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

import "github.com/db47h/vfm/vm"

type token int

const (
	tokEOF token = iota
	tokWord       // identifier or integer literal
	tokString
	tokOp // primitive operation
	tokComment
	tokLine
	tokPackage
	tokModule
	tokVersion
	tokIdent
	tokUse
	tokEndModule
	tokCreate
	tokVariable
	tokConstant
	tokAllot
	tokComma
	tokCComma
	tokColon
	tokSemicolon
	tokGuard
	tokQuote
	tokStartCompile
	tokEndCompile
	tokRecurse
	tokTailRecurse
	tokIf
	tokNotIf
	tokElse
	tokThen
	tokBegin
	tokAgain
	tokWhile
	tokRepeat
	tokUntil
	tokFor
	tokNext
	tokDecNext
	tokDo
	tokLoop
	tokIncLoop
	tokCase
	tokOf
	tokRangeOf
	tokEndOf
	tokEndCase
	tokSelect
	tokEndSelect
	tokChain
	tokExt
)

// Keyword modes. A keyword found in the wrong mode is an ordinary word.
const (
	top  = 1 << iota // outside function bodies
	body             // inside function bodies
	both = top | body
)

type keyword struct {
	tok  token
	op   vm.Opcode
	mode int
}

var keywords = map[string]keyword{
	"(":           {tokComment, 0, both},
	"//":          {tokLine, 0, both},
	"\\":          {tokLine, 0, both},
	"\"":          {tokString, 0, both},
	"package":     {tokPackage, 0, top},
	"module":      {tokModule, 0, top},
	"version":     {tokVersion, vm.OpVersion, both},
	"ident":       {tokIdent, vm.OpIdent, both},
	"use":         {tokUse, 0, top},
	"endmodule":   {tokEndModule, 0, top},
	"create":      {tokCreate, 0, top},
	"variable":    {tokVariable, 0, top},
	"constant":    {tokConstant, 0, top},
	"allot":       {tokAllot, vm.OpAllot, both},
	",":           {tokComma, 0, top},
	"c,":          {tokCComma, 0, top},
	":":           {tokColon, 0, top},
	";":           {tokSemicolon, 0, body},
	"recurse":     {tokRecurse, 0, body},
	"tailrecurse": {tokTailRecurse, 0, body},
	"'":           {tokQuote, 0, body},
	"]":           {tokStartCompile, 0, top},
	"[":           {tokEndCompile, 0, body},
	"guard":       {tokGuard, 0, body},
	"if":          {tokIf, 0, body},
	"-if":         {tokNotIf, 0, body},
	"else":        {tokElse, 0, body},
	"then":        {tokThen, 0, body},
	"begin":       {tokBegin, 0, body},
	"again":       {tokAgain, 0, body},
	"while":       {tokWhile, 0, body},
	"repeat":      {tokRepeat, 0, body},
	"until":       {tokUntil, 0, body},
	"for":         {tokFor, 0, body},
	"next":        {tokNext, 0, body},
	"-next":       {tokDecNext, 0, body},
	"do":          {tokDo, 0, body},
	"loop":        {tokLoop, 0, body},
	"+loop":       {tokIncLoop, 0, body},
	"select":      {tokSelect, 0, body},
	"endselect":   {tokEndSelect, 0, body},
	"case":        {tokCase, 0, body},
	"of":          {tokOf, 0, body},
	"rangeof":     {tokRangeOf, 0, body},
	"endof":       {tokEndOf, 0, body},
	"endcase":     {tokEndCase, 0, body},
	"chain":       {tokChain, vm.OpBrax, body},
	"ext0":        {tokExt, vm.OpExt0, body},

	"nop":     {tokOp, vm.OpNext, body},
	"trace":   {tokOp, vm.OpTrace, body},
	"profile": {tokOp, vm.OpProfile, body},
	"execute": {tokOp, vm.OpExec, body},
	"exit":    {tokOp, vm.OpUnnest, body},
	"?exit":   {tokOp, vm.OpUnneze, body},
	"i":       {tokOp, vm.OpRcopy, body},
	"task":    {tokOp, vm.OpTask, body},
	"here":    {tokOp, vm.OpHere, body},
	"c@":      {tokOp, vm.OpCload, body},
	"c!":      {tokOp, vm.OpCstore, body},
	"@":       {tokOp, vm.OpLoad, body},
	"!":       {tokOp, vm.OpStore, body},
	"+c@":     {tokOp, vm.OpIcload, body},
	"+c!":     {tokOp, vm.OpIcstore, body},
	"+!":      {tokOp, vm.OpIstore, body},
	"+@":      {tokOp, vm.OpIload, body},
	">r":      {tokOp, vm.OpRpush, body},
	"dup>r":   {tokOp, vm.OpRdup, body},
	"r>":      {tokOp, vm.OpRpop, body},
	"r@":      {tokOp, vm.OpRcopy, body},
	"depth":   {tokOp, vm.OpDepth, body},
	"drop":    {tokOp, vm.OpDrop, body},
	"nip":     {tokOp, vm.OpNip, body},
	"empty":   {tokOp, vm.OpEmpty, body},
	"dup":     {tokOp, vm.OpDup, body},
	"?dup":    {tokOp, vm.OpDupnz, body},
	"over":    {tokOp, vm.OpOver, body},
	"tuck":    {tokOp, vm.OpTuck, body},
	"pick":    {tokOp, vm.OpPick, body},
	"swap":    {tokOp, vm.OpSwap, body},
	"rot":     {tokOp, vm.OpRot, body},
	"-rot":    {tokOp, vm.OpTor, body},
	"roll":    {tokOp, vm.OpRoll, body},
	"cell":    {tokOp, vm.OpCell, body},
	"-2":      {tokOp, vm.OpConstN2, body},
	"-1":      {tokOp, vm.OpConstN1, body},
	"0":       {tokOp, vm.OpConst0, body},
	"1":       {tokOp, vm.OpConst1, body},
	"2":       {tokOp, vm.OpConst2, body},
	"3":       {tokOp, vm.OpConst3, body},
	"true":    {tokOp, vm.OpTrue, body},
	"false":   {tokOp, vm.OpFalse, body},
	"not":     {tokOp, vm.OpNot, body},
	"and":     {tokOp, vm.OpAnd, body},
	"or":      {tokOp, vm.OpOr, body},
	"xor":     {tokOp, vm.OpXor, body},
	"negate":  {tokOp, vm.OpNeg, body},
	"1+":      {tokOp, vm.OpInc, body},
	"1-":      {tokOp, vm.OpDec, body},
	"2+":      {tokOp, vm.OpInc2, body},
	"2-":      {tokOp, vm.OpDec2, body},
	"2*":      {tokOp, vm.OpMul2, body},
	"2/":      {tokOp, vm.OpDiv2, body},
	"+":       {tokOp, vm.OpAdd, body},
	"-":       {tokOp, vm.OpSub, body},
	"*":       {tokOp, vm.OpMul, body},
	"*/":      {tokOp, vm.OpMuldiv, body},
	"/":       {tokOp, vm.OpDiv, body},
	"%":       {tokOp, vm.OpRem, body},
	"/%":      {tokOp, vm.OpDivrem, body},
	"<<":      {tokOp, vm.OpLsh, body},
	">>":      {tokOp, vm.OpRsh, body},
	"0<>":     {tokOp, vm.OpZne, body},
	"0<":      {tokOp, vm.OpZlt, body},
	"0<=":     {tokOp, vm.OpZle, body},
	"0=":      {tokOp, vm.OpZeq, body},
	"0>=":     {tokOp, vm.OpZge, body},
	"0>":      {tokOp, vm.OpZgt, body},
	"!=":      {tokOp, vm.OpNe, body},
	"<":       {tokOp, vm.OpLt, body},
	"<=":      {tokOp, vm.OpLe, body},
	"==":      {tokOp, vm.OpEq, body},
	">=":      {tokOp, vm.OpGe, body},
	">":       {tokOp, vm.OpGt, body},
	"within":  {tokOp, vm.OpWithin, body},
	"abs":     {tokOp, vm.OpAbs, body},
	"min":     {tokOp, vm.OpMin, body},
	"max":     {tokOp, vm.OpMax, body},
	".s":      {tokOp, vm.OpDump, body},
	".":       {tokOp, vm.OpPuti, body},
	"putc":    {tokOp, vm.OpPutc, body},
	"puti":    {tokOp, vm.OpPuti, body},
	"putx":    {tokOp, vm.OpPutx, body},
	"puts":    {tokOp, vm.OpPuts, body},
	"cr":      {tokOp, vm.OpCr, body},
	"getc":    {tokOp, vm.OpGetc, body},
	"gets":    {tokOp, vm.OpGets, body},
	"halt":    {tokOp, vm.OpHalt, body},
}
