/*
 * mipsc - Textual disassembly
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

// Package printer formats a decoded instruction the way the toolchain's
// disassembler, analyzer trace and simulator debug mode all print it:
// one line, mnemonic first, operands in assembler order.
package printer

import (
	"fmt"

	"github.com/mipsc/toolchain/internal/iset"
)

// Format renders one instruction as a single assembler line, without a
// trailing newline.
func Format(in iset.Instr) string {
	switch in.Op {
	case iset.SLL, iset.SRL, iset.SRA:
		return fmt.Sprintf("%s r%d, r%d, %d", in.Op, in.Rd, in.Rt, in.Shamt)

	case iset.SLLV, iset.SRLV, iset.SRAV:
		return fmt.Sprintf("%s r%d, r%d, r%d", in.Op, in.Rd, in.Rt, in.Rs)

	case iset.ADD, iset.ADDU, iset.SUB, iset.SUBU,
		iset.AND, iset.OR, iset.XOR, iset.NOR, iset.SLT, iset.SLTU:
		return fmt.Sprintf("%s r%d, r%d, r%d", in.Op, in.Rd, in.Rs, in.Rt)

	case iset.ADDI, iset.ADDIU, iset.BEQ, iset.BNE:
		return fmt.Sprintf("%s r%d, r%d, %d", in.Op, in.Rt, in.Rs, in.Simm)

	case iset.ANDI, iset.ORI, iset.XORI:
		return fmt.Sprintf("%s r%d, r%d, %d", in.Op, in.Rt, in.Rs, in.Imm)

	case iset.SLTI, iset.SLTIU:
		return fmt.Sprintf("%s r%d, r%d, %d", in.Op, in.Rt, in.Rs, in.Simm)

	case iset.LUI:
		return fmt.Sprintf("lui r%d, 0x%X", in.Rt, in.Imm)

	case iset.LB, iset.LH, iset.LW, iset.LBU, iset.LHU, iset.SB, iset.SH, iset.SW:
		return fmt.Sprintf("%s r%d, %d(r%d)", in.Op, in.Rt, in.Simm, in.Rs)

	case iset.BLTZ, iset.BGEZ, iset.BLTZAL, iset.BGEZAL, iset.BLEZ, iset.BGTZ:
		return fmt.Sprintf("%s r%d, %d", in.Op, in.Rs, in.Simm)

	case iset.J, iset.JAL:
		return fmt.Sprintf("%s 0x%X", in.Op, in.Addr)

	case iset.JR:
		return fmt.Sprintf("jr r%d", in.Rs)

	case iset.JALR:
		return fmt.Sprintf("jalr r%d, r%d", in.Rd, in.Rs)

	case iset.MFC0, iset.MTC0:
		return fmt.Sprintf("%s r%d, cp0r%d", in.Op, in.Rt, in.Rd)

	case iset.NOP:
		return "nop"

	case iset.MOV, iset.NOT, iset.NEG:
		return fmt.Sprintf("%s r%d, r%d", in.Op, in.Rd, in.Rt)

	case iset.CLEAR:
		return fmt.Sprintf("clear r%d", in.Rd)

	case iset.B, iset.BAL:
		return fmt.Sprintf("%s %d", in.Op, in.Simm)

	case iset.BEQZ, iset.BNEZ:
		return fmt.Sprintf("%s r%d, %d", in.Op, in.Rs, in.Simm)

	case iset.SEQZ, iset.SLTZ:
		return fmt.Sprintf("%s r%d, r%d", in.Op, in.Rd, in.Rs)

	case iset.SNEZ:
		return fmt.Sprintf("%s r%d, r%d", in.Op, in.Rd, in.Rt)

	case iset.LSI:
		return fmt.Sprintf("lsi r%d, %d", in.Rt, in.Simm)

	default:
		return "unknown op"
	}
}
