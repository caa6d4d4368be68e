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

import "strconv"

// Opcode is an operation code. Opcodes 0 to 127 are encoded in a single byte,
// opcodes 128 to 1023 live in the extension pages and are encoded as one of
// OpExt0 to OpExt3 followed by the low byte of the opcode.
type Opcode int

// Virtual machine opcodes. The numbering is part of the object file format.
const (
	OpExt0 Opcode = iota
	OpExt1
	OpExt2
	OpExt3
	OpNext
	OpNest
	OpNnest
	OpUnnest
	OpUnneze
	OpMest
	OpMesti
	OpUnmest
	OpUnmezt
	OpUnslit
	OpUnlit
	OpBra
	OpBrax
	OpBrzx
	OpBrze
	OpBrzn
	OpDbzn
	OpRbzn
	OpRdbg
	OpRbri
	OpRbne
	OpRdne
	OpTask
	OpLocal
	OpHere
	OpAllot
	OpTrace
	OpProfile
	OpExec
	OpCload
	OpCstore
	OpLoad
	OpStore
	OpIcload
	OpIcstore
	OpIload
	OpIstore
	OpRpush
	OpRdup
	OpRpop
	OpRcopy
	OpLit
	OpClit
	OpPlit
	OpSlit
	OpDepth
	OpDrop
	OpNip
	OpEmpty
	OpDup
	OpDupnz
	OpOver
	OpTuck
	OpPick
	OpSwap
	OpRot
	OpTor
	OpRoll
	OpCell
	OpConstN2
	OpConstN1
	OpConst0
	OpConst1
	OpConst2
	OpConst3
	OpTrue
	OpFalse
	OpNot
	OpAnd
	OpOr
	OpXor
	OpNeg
	OpInc
	OpDec
	OpInc2
	OpDec2
	OpMul2
	OpDiv2
	OpAdd
	OpSub
	OpMul
	OpMuldiv
	OpDiv
	OpRem
	OpDivrem
	OpLsh
	OpRsh
	OpZne
	OpZlt
	OpZle
	OpZeq
	OpZge
	OpZgt
	OpNe
	OpLt
	OpLe
	OpEq
	OpGe
	OpGt
	OpWithin
	OpAbs
	OpMin
	OpMax
	OpDump
	OpPutc
	OpPuti
	OpPutx
	OpPuts
	OpCr
	OpGetc
	OpGets
	OpVersion
	OpIdent
	OpHalt

	// OpCount is the number of base opcodes.
	OpCount
)

// Page sizes.
const (
	PageSize  = 256
	PageCount = 4
	MaxOpcode = PageSize*PageCount - 1
)

// Operand describes the inline operand following an opcode.
type Operand int

// Operand kinds.
const (
	NoOperand Operand = iota
	Rel8              // signed byte offset, relative to the byte after it
	Rel16             // signed big-endian 16 bits offset, relative to the byte after it
	Imm8              // signed byte
	Imm32             // big-endian 32 bits integer
	Str8              // length byte followed by that many bytes
	Table8            // byte count followed by as many bytes of Rel16 entries
	ModCall           // use-list index byte and 16 bits offset in the used module
	ModSym            // use-list index byte and symbol index byte
	Page              // extension page opcode byte
)

type opInfo struct {
	name    string
	operand Operand
}

var opInfos = [OpCount]opInfo{
	OpExt0:    {"EXT0", Page},
	OpExt1:    {"EXT1", Page},
	OpExt2:    {"EXT2", Page},
	OpExt3:    {"EXT3", Page},
	OpNext:    {"NEXT", NoOperand},
	OpNest:    {"NEST", Rel16},
	OpNnest:   {"NNEST", Table8},
	OpUnnest:  {"UNNEST", NoOperand},
	OpUnneze:  {"UNNEZE", NoOperand},
	OpMest:    {"MEST", ModCall},
	OpMesti:   {"MESTI", ModSym},
	OpUnmest:  {"UNMEST", NoOperand},
	OpUnmezt:  {"UNMEZT", NoOperand},
	OpUnslit:  {"UNSLIT", NoOperand},
	OpUnlit:   {"UNLIT", Imm32},
	OpBra:     {"BRA", Rel8},
	OpBrax:    {"BRAX", Rel16},
	OpBrzx:    {"BRZX", Rel16},
	OpBrze:    {"BRZE", Rel8},
	OpBrzn:    {"BRZN", Rel8},
	OpDbzn:    {"DBZN", Rel8},
	OpRbzn:    {"RBZN", Rel8},
	OpRdbg:    {"RDBG", Rel8},
	OpRbri:    {"RBRI", Rel8},
	OpRbne:    {"RBNE", Rel8},
	OpRdne:    {"RDNE", Rel8},
	OpTask:    {"TASK", NoOperand},
	OpLocal:   {"LOCAL", Rel16},
	OpHere:    {"HERE", NoOperand},
	OpAllot:   {"ALLOT", NoOperand},
	OpTrace:   {"TRACE", NoOperand},
	OpProfile: {"PROFILE", NoOperand},
	OpExec:    {"EXEC", NoOperand},
	OpCload:   {"CLOAD", NoOperand},
	OpCstore:  {"CSTORE", NoOperand},
	OpLoad:    {"LOAD", NoOperand},
	OpStore:   {"STORE", NoOperand},
	OpIcload:  {"ICLOAD", NoOperand},
	OpIcstore: {"ICSTORE", NoOperand},
	OpIload:   {"ILOAD", NoOperand},
	OpIstore:  {"ISTORE", NoOperand},
	OpRpush:   {"RPUSH", NoOperand},
	OpRdup:    {"RDUP", NoOperand},
	OpRpop:    {"RPOP", NoOperand},
	OpRcopy:   {"RCOPY", NoOperand},
	OpLit:     {"LIT", Imm32},
	OpClit:    {"CLIT", Imm8},
	OpPlit:    {"PLIT", Rel16},
	OpSlit:    {"SLIT", Str8},
	OpDepth:   {"DEPTH", NoOperand},
	OpDrop:    {"DROP", NoOperand},
	OpNip:     {"NIP", NoOperand},
	OpEmpty:   {"EMPTY", NoOperand},
	OpDup:     {"DUP", NoOperand},
	OpDupnz:   {"DUPNZ", NoOperand},
	OpOver:    {"OVER", NoOperand},
	OpTuck:    {"TUCK", NoOperand},
	OpPick:    {"PICK", NoOperand},
	OpSwap:    {"SWAP", NoOperand},
	OpRot:     {"ROT", NoOperand},
	OpTor:     {"TOR", NoOperand},
	OpRoll:    {"ROLL", NoOperand},
	OpCell:    {"CELL", NoOperand},
	OpConstN2: {"CONSTN2", NoOperand},
	OpConstN1: {"CONSTN1", NoOperand},
	OpConst0:  {"CONST0", NoOperand},
	OpConst1:  {"CONST1", NoOperand},
	OpConst2:  {"CONST2", NoOperand},
	OpConst3:  {"CONST3", NoOperand},
	OpTrue:    {"TRUE", NoOperand},
	OpFalse:   {"FALSE", NoOperand},
	OpNot:     {"NOT", NoOperand},
	OpAnd:     {"AND", NoOperand},
	OpOr:      {"OR", NoOperand},
	OpXor:     {"XOR", NoOperand},
	OpNeg:     {"NEG", NoOperand},
	OpInc:     {"INC", NoOperand},
	OpDec:     {"DEC", NoOperand},
	OpInc2:    {"INC2", NoOperand},
	OpDec2:    {"DEC2", NoOperand},
	OpMul2:    {"MUL2", NoOperand},
	OpDiv2:    {"DIV2", NoOperand},
	OpAdd:     {"ADD", NoOperand},
	OpSub:     {"SUB", NoOperand},
	OpMul:     {"MUL", NoOperand},
	OpMuldiv:  {"MULDIV", NoOperand},
	OpDiv:     {"DIV", NoOperand},
	OpRem:     {"REM", NoOperand},
	OpDivrem:  {"DIVREM", NoOperand},
	OpLsh:     {"LSH", NoOperand},
	OpRsh:     {"RSH", NoOperand},
	OpZne:     {"ZNE", NoOperand},
	OpZlt:     {"ZLT", NoOperand},
	OpZle:     {"ZLE", NoOperand},
	OpZeq:     {"ZEQ", NoOperand},
	OpZge:     {"ZGE", NoOperand},
	OpZgt:     {"ZGT", NoOperand},
	OpNe:      {"NE", NoOperand},
	OpLt:      {"LT", NoOperand},
	OpLe:      {"LE", NoOperand},
	OpEq:      {"EQ", NoOperand},
	OpGe:      {"GE", NoOperand},
	OpGt:      {"GT", NoOperand},
	OpWithin:  {"WITHIN", NoOperand},
	OpAbs:     {"ABS", NoOperand},
	OpMin:     {"MIN", NoOperand},
	OpMax:     {"MAX", NoOperand},
	OpDump:    {"DUMP", NoOperand},
	OpPutc:    {"PUTC", NoOperand},
	OpPuti:    {"PUTI", NoOperand},
	OpPutx:    {"PUTX", NoOperand},
	OpPuts:    {"PUTS", NoOperand},
	OpCr:      {"CR", NoOperand},
	OpGetc:    {"GETC", NoOperand},
	OpGets:    {"GETS", NoOperand},
	OpVersion: {"VERSION", NoOperand},
	OpIdent:   {"IDENT", NoOperand},
	OpHalt:    {"HALT", NoOperand},
}

var opcodeIndex = make(map[string]Opcode)

func init() {
	for i, v := range opInfos {
		opcodeIndex[v.name] = Opcode(i)
	}
}

// String returns the opcode mnemonic. Extension opcodes without a name are
// formatted as EXTp:n.
func (op Opcode) String() string {
	if op >= 0 && op < OpCount {
		return opInfos[op].name
	}
	if op >= 0 && op <= MaxOpcode {
		return "EXT" + string(rune('0'+op/PageSize)) + ":" + strconv.Itoa(int(op%PageSize))
	}
	return "OP(" + strconv.Itoa(int(op)) + ")"
}

// Operand returns the kind of inline operand expected by op.
func (op Opcode) Operand() Operand {
	if op >= 0 && op < OpCount {
		return opInfos[op].operand
	}
	return NoOperand
}

// Lookup returns the opcode for the given mnemonic (case sensitive, upper
// case).
func Lookup(name string) (Opcode, bool) {
	op, ok := opcodeIndex[name]
	return op, ok
}
