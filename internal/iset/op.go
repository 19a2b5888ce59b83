/*
 * mipsc - Instruction set model
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package iset holds the decoded instruction model shared by the native
// codec, the compressed codec, the pseudo canonicalizer, the layout
// solver, the analyzer and the simulator.
package iset

// Op is the tag of a decoded instruction. The enumeration is dense and
// totally ordered; NOP is the first pseudo-op, so Op < NOP is
// native-expressible and Op >= NOP is pseudo-only.
type Op int

const (
	// ALU register-register.
	SLL Op = iota
	SRL
	SRA
	SLLV
	SRLV
	SRAV
	ADD
	ADDU
	SUB
	SUBU
	AND
	OR
	XOR
	NOR

	// ALU register-immediate.
	ADDI
	ADDIU
	ANDI
	ORI
	XORI
	LUI

	// Load and store.
	LB
	LH
	LW
	LBU
	LHU
	SB
	SH
	SW

	// Compare.
	SLT
	SLTU
	SLTI
	SLTIU

	// Branch and jump.
	BLTZ
	BGEZ
	BLTZAL
	BGEZAL
	BEQ
	BNE
	BLEZ
	BGTZ
	J
	JAL
	JR
	JALR

	// Coprocessor 0.
	MFC0
	MTC0

	// Pseudo instructions. NOP must stay first: Op < NOP is the
	// native/pseudo boundary used throughout the toolchain.
	NOP
	MOV   // rd = rt
	CLEAR // rd = 0
	NOT   // rd = ^rt
	NEG   // rd = -rt
	B
	BAL
	BEQZ // rs
	BNEZ // rs
	SEQZ // rd = (rs == 0)
	SNEZ // rd = (rt != 0)
	SLTZ // rd = (rs < 0)
	LSI  // rt = small signed immediate

	// INVALID is the reserved sentinel for decode failures; it must
	// stay last so the boundary checks above remain valid.
	INVALID
)

var names = [...]string{
	SLL: "sll", SRL: "srl", SRA: "sra",
	SLLV: "sllv", SRLV: "srlv", SRAV: "srav",
	ADD: "add", ADDU: "addu", SUB: "sub", SUBU: "subu",
	AND: "and", OR: "or", XOR: "xor", NOR: "nor",
	ADDI: "addi", ADDIU: "addiu", ANDI: "andi", ORI: "ori", XORI: "xori", LUI: "lui",
	LB: "lb", LH: "lh", LW: "lw", LBU: "lbu", LHU: "lhu",
	SB: "sb", SH: "sh", SW: "sw",
	SLT: "slt", SLTU: "sltu", SLTI: "slti", SLTIU: "sltiu",
	BLTZ: "bltz", BGEZ: "bgez", BLTZAL: "bltzal", BGEZAL: "bgezal",
	BEQ: "beq", BNE: "bne", BLEZ: "blez", BGTZ: "bgtz",
	J: "j", JAL: "jal", JR: "jr", JALR: "jalr",
	MFC0: "mfc0", MTC0: "mtc0",
	NOP: "nop", MOV: "mov", CLEAR: "clear", NOT: "not", NEG: "neg",
	B: "b", BAL: "bal", BEQZ: "beqz", BNEZ: "bnez",
	SEQZ: "seqz", SNEZ: "snez", SLTZ: "sltz", LSI: "lsi",
	INVALID: "invalid",
}

func (op Op) String() string {
	if op < 0 || int(op) >= len(names) || names[op] == "" {
		return "invalid"
	}
	return names[op]
}

// IsNative reports whether op can be encoded directly by the native codec.
func (op Op) IsNative() bool {
	return op < NOP
}

// IsPseudo reports whether op is a canonical pseudo form.
func (op Op) IsPseudo() bool {
	return op >= NOP && op < INVALID
}

// IsBranch reports whether op is a conditional or unconditional branch
// whose displacement lives in Instr.Simm (J/JAL are jumps, not branches:
// their target lives in Instr.Addr).
func (op Op) IsBranch() bool {
	switch op {
	case BLTZ, BGEZ, BLTZAL, BGEZAL, BEQ, BNE, BLEZ, BGTZ, B, BAL, BEQZ, BNEZ:
		return true
	default:
		return false
	}
}

// IsJump reports whether op carries an absolute byte target in Instr.Addr.
func (op Op) IsJump() bool {
	return op == J || op == JAL
}

// ContainsImm reports whether op carries a zero-extended immediate.
func (op Op) ContainsImm() bool {
	switch op {
	case ANDI, ORI, XORI, LUI:
		return true
	default:
		return false
	}
}

// ContainsSimm reports whether op carries a sign-extended immediate.
func (op Op) ContainsSimm() bool {
	switch op {
	case ADDI, ADDIU, SLTI, SLTIU:
		return true
	default:
		return false
	}
}

// Instr is the decoded instruction value. It is value-like: copy it,
// never alias it. Simm and Addr are always stored in byte units
// (invariant I5), regardless of the source ISA's word-shifted wire
// encoding.
type Instr struct {
	Op         Op
	Rs, Rt, Rd uint8  // register indices 0..31
	Shamt      uint8  // shift amount 0..31
	Imm        uint16 // zero-extended 16-bit immediate
	Simm       int32  // sign-extended immediate, or branch byte displacement
	Addr       uint32 // jump byte target (26-bit field widened after decode)
	Compressed bool   // encoding hint consumed by the converter and writer
}
