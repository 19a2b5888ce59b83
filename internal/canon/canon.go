/*
 * mipsc - Pseudo-op canonicalizer
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

// Package canon is the PC component: it rewrites instructions between
// their native form and the tighter canonical pseudo forms using
// register-zero and immediate-zero identities. Neither direction
// changes dynamic semantics (I3); ToPseudo is idempotent (I7).
package canon

import "github.com/mipsc/toolchain/internal/iset"

// ToPseudo rewrites a native-expressible instruction to its canonical
// pseudo form when one of the zero-register/zero-immediate identities
// applies. Instructions that are already pseudo, or that match no
// identity, are returned unchanged.
func ToPseudo(in iset.Instr) iset.Instr {
	if !in.Op.IsNative() {
		return in
	}

	switch in.Op {
	case iset.SLL, iset.SRL, iset.SRA:
		return canonShift(in)
	case iset.SLLV, iset.SRLV, iset.SRAV:
		return canonShiftV(in)
	case iset.ADDU:
		return canonAddu(in)
	case iset.SUBU:
		return canonSubu(in)
	case iset.AND:
		return canonAnd(in)
	case iset.OR:
		return canonOr(in)
	case iset.XOR:
		return canonXor(in)
	case iset.NOR:
		return canonNor(in)
	case iset.ADDIU:
		return canonAddiu(in)
	case iset.ANDI:
		return canonAndi(in)
	case iset.ORI:
		return canonOriXori(in)
	case iset.XORI:
		return canonOriXori(in)
	case iset.LUI:
		return canonLui(in)
	case iset.SLT:
		return canonSlt(in)
	case iset.SLTU:
		return canonSltu(in)
	case iset.SLTI:
		return canonSlti(in)
	case iset.SLTIU:
		return canonSltiu(in)
	case iset.BGEZ:
		return canonUncondBranch(in, iset.B)
	case iset.BGEZAL:
		return canonUncondBranch(in, iset.BAL)
	case iset.BEQ:
		return canonEqBranch(in, iset.BEQZ)
	case iset.BNE:
		return canonEqBranch(in, iset.BNEZ)
	case iset.BLEZ:
		return canonUncondBranch(in, iset.B)
	case iset.JALR:
		return canonJalr(in)
	default:
		return in
	}
}

func nop() iset.Instr { return iset.Instr{Op: iset.NOP} }

func canonShift(in iset.Instr) iset.Instr {
	if in.Rd == 0 {
		return nop()
	}
	if in.Shamt == 0 {
		if in.Op == iset.SLL && in.Rt == 0 {
			return iset.Instr{Op: iset.CLEAR, Rd: in.Rd}
		}
		return iset.Instr{Op: iset.MOV, Rd: in.Rd, Rt: in.Rt}
	}
	if in.Op == iset.SRL && in.Shamt == 31 {
		return iset.Instr{Op: iset.SLTZ, Rd: in.Rd, Rs: in.Rt}
	}
	return in
}

// canonShiftV implements SLLV/SRLV/SRAV. Per DESIGN.md, the rs==0 and
// rt==0 checks are deliberately not mutually exclusive: when both
// registers are zero the rt==0 check (MOV) runs unconditionally after
// the rs==0 check (CLEAR) and wins, matching the source toolchain.
func canonShiftV(in iset.Instr) iset.Instr {
	if in.Rd == 0 {
		return nop()
	}
	out := in
	if in.Rs == 0 {
		out = iset.Instr{Op: iset.CLEAR, Rd: in.Rd}
	}
	if in.Rt == 0 {
		out = iset.Instr{Op: iset.MOV, Rd: in.Rd, Rt: in.Rt}
	}
	return out
}

func canonAddu(in iset.Instr) iset.Instr {
	if in.Rd == 0 {
		return nop()
	}
	switch {
	case in.Rs == 0 && in.Rt == 0:
		return iset.Instr{Op: iset.CLEAR, Rd: in.Rd}
	case in.Rs == 0:
		return iset.Instr{Op: iset.MOV, Rd: in.Rd, Rt: in.Rt}
	case in.Rt == 0:
		return iset.Instr{Op: iset.MOV, Rd: in.Rd, Rt: in.Rs}
	default:
		return in
	}
}

func canonSubu(in iset.Instr) iset.Instr {
	if in.Rd == 0 {
		return nop()
	}
	switch {
	case in.Rs == 0 && in.Rt == 0:
		return iset.Instr{Op: iset.CLEAR, Rd: in.Rd}
	case in.Rs == 0:
		return iset.Instr{Op: iset.NEG, Rd: in.Rd, Rt: in.Rt}
	case in.Rt == 0:
		return iset.Instr{Op: iset.MOV, Rd: in.Rd, Rt: in.Rs}
	default:
		return in
	}
}

func canonAnd(in iset.Instr) iset.Instr {
	if in.Rd == 0 {
		return nop()
	}
	if in.Rs == 0 || in.Rt == 0 {
		return iset.Instr{Op: iset.CLEAR, Rd: in.Rd}
	}
	return in
}

func canonOr(in iset.Instr) iset.Instr {
	if in.Rd == 0 {
		return nop()
	}
	switch {
	case in.Rs == 0 && in.Rt == 0:
		return iset.Instr{Op: iset.CLEAR, Rd: in.Rd}
	case in.Rs == 0:
		return iset.Instr{Op: iset.MOV, Rd: in.Rd, Rt: in.Rt}
	case in.Rt == 0:
		return iset.Instr{Op: iset.MOV, Rd: in.Rd, Rt: in.Rs}
	default:
		return in
	}
}

func canonXor(in iset.Instr) iset.Instr {
	return canonOr(in) // same zero-register structure as OR
}

func canonNor(in iset.Instr) iset.Instr {
	if in.Rd == 0 {
		return nop()
	}
	switch {
	case in.Rs == 0 && in.Rt != 0:
		return iset.Instr{Op: iset.NOT, Rd: in.Rd, Rt: in.Rt}
	case in.Rt == 0 && in.Rs != 0:
		return iset.Instr{Op: iset.NOT, Rd: in.Rd, Rt: in.Rs}
	default:
		return in
	}
}

func canonAddiu(in iset.Instr) iset.Instr {
	if in.Rt == 0 {
		return nop()
	}
	switch {
	case in.Rs == 0 && in.Simm == 0:
		return iset.Instr{Op: iset.CLEAR, Rd: in.Rt}
	case in.Simm == 0:
		return iset.Instr{Op: iset.MOV, Rd: in.Rt, Rt: in.Rs}
	case in.Rs == 0 && in.Simm >= -16 && in.Simm <= 15:
		return iset.Instr{Op: iset.LSI, Rt: in.Rt, Simm: in.Simm}
	default:
		return in
	}
}

func canonAndi(in iset.Instr) iset.Instr {
	if in.Rt == 0 {
		return nop()
	}
	if in.Rs == 0 || in.Imm == 0 {
		return iset.Instr{Op: iset.CLEAR, Rd: in.Rt}
	}
	return in
}

// canonOriXori implements ORI and XORI: unlike AND, OR/XOR only
// produce a zero result when both operands are zero.
func canonOriXori(in iset.Instr) iset.Instr {
	if in.Rt == 0 {
		return nop()
	}
	if in.Rs == 0 && in.Imm == 0 {
		return iset.Instr{Op: iset.CLEAR, Rd: in.Rt}
	}
	return in
}

func canonLui(in iset.Instr) iset.Instr {
	if in.Imm == 0 {
		return iset.Instr{Op: iset.CLEAR, Rd: in.Rt}
	}
	return in
}

func canonSlt(in iset.Instr) iset.Instr {
	if in.Rt == 0 {
		return iset.Instr{Op: iset.SLTZ, Rd: in.Rd, Rs: in.Rs}
	}
	return in
}

func canonSltu(in iset.Instr) iset.Instr {
	if in.Rs == 0 {
		return iset.Instr{Op: iset.SNEZ, Rd: in.Rd, Rt: in.Rt}
	}
	return in
}

func canonSlti(in iset.Instr) iset.Instr {
	if in.Simm == 0 {
		return iset.Instr{Op: iset.SLTZ, Rd: in.Rd, Rs: in.Rs}
	}
	return in
}

func canonSltiu(in iset.Instr) iset.Instr {
	if in.Imm == 1 {
		return iset.Instr{Op: iset.SEQZ, Rd: in.Rd, Rs: in.Rs}
	}
	return in
}

func canonUncondBranch(in iset.Instr, pseudo iset.Op) iset.Instr {
	if in.Rs == 0 {
		return iset.Instr{Op: pseudo, Simm: in.Simm}
	}
	return in
}

func canonEqBranch(in iset.Instr, pseudo iset.Op) iset.Instr {
	if in.Rs == in.Rt {
		b := iset.B
		if in.Op == iset.BNE {
			// rs == rt makes BNE never taken; there is no
			// "never branch" pseudo, so this case is left
			// native rather than synthesizing one.
			return in
		}
		return iset.Instr{Op: b, Simm: in.Simm}
	}
	switch {
	case in.Rs == 0 && in.Rt != 0:
		return iset.Instr{Op: pseudo, Rs: in.Rt, Simm: in.Simm}
	case in.Rt == 0 && in.Rs != 0:
		return iset.Instr{Op: pseudo, Rs: in.Rs, Simm: in.Simm}
	default:
		return in
	}
}

func canonJalr(in iset.Instr) iset.Instr {
	if in.Rd == 0 {
		return iset.Instr{Op: iset.JR, Rs: in.Rs}
	}
	return in
}

// ToNative expands a pseudo instruction back to the unique native
// instruction it stands for. Native-expressible input is returned
// unchanged.
func ToNative(in iset.Instr) iset.Instr {
	switch in.Op {
	case iset.NOP:
		return iset.Instr{Op: iset.ADDU}
	case iset.MOV:
		return iset.Instr{Op: iset.ADDU, Rd: in.Rd, Rt: in.Rt}
	case iset.CLEAR:
		return iset.Instr{Op: iset.ADDU, Rd: in.Rd}
	case iset.NOT:
		return iset.Instr{Op: iset.NOR, Rd: in.Rd, Rt: in.Rt}
	case iset.NEG:
		return iset.Instr{Op: iset.SUBU, Rd: in.Rd, Rt: in.Rt}
	case iset.B:
		return iset.Instr{Op: iset.BGEZ, Simm: in.Simm}
	case iset.BAL:
		return iset.Instr{Op: iset.BGEZAL, Simm: in.Simm}
	case iset.BEQZ:
		return iset.Instr{Op: iset.BEQ, Rs: in.Rs, Simm: in.Simm}
	case iset.BNEZ:
		return iset.Instr{Op: iset.BNE, Rs: in.Rs, Simm: in.Simm}
	case iset.SEQZ:
		return iset.Instr{Op: iset.SLTIU, Rd: in.Rd, Rs: in.Rs, Imm: 1}
	case iset.SNEZ:
		return iset.Instr{Op: iset.SLTU, Rd: in.Rd, Rt: in.Rt}
	case iset.SLTZ:
		return iset.Instr{Op: iset.SLT, Rd: in.Rd, Rs: in.Rs}
	case iset.LSI:
		return iset.Instr{Op: iset.ADDIU, Rt: in.Rt, Simm: in.Simm}
	default:
		return in
	}
}
