/*
 * mipsc - Native instruction codec
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

// Package native is the NC component: it decodes and encodes 32-bit
// native instruction words to and from the instruction model in
// internal/iset.
package native

import (
	"errors"
	"fmt"

	"github.com/mipsc/toolchain/internal/iset"
)

// Decode error kinds, returned wrapped so callers can errors.Is/As them.
var (
	ErrReservedFunct = errors.New("native: reserved or unsupported funct")
	ErrUnknownOpcode = errors.New("native: unknown opcode")
)

// Encode error kinds.
var (
	ErrPseudoNotNative = errors.New("native: cannot encode a pseudo operation")
	ErrFieldOverflow   = errors.New("native: field out of range for native encoding")
)

// funct codes under the 0x00 "special" opcode.
const (
	functSLL  = 0x00
	functSRL  = 0x02
	functSRA  = 0x03
	functSLLV = 0x04
	functSRLV = 0x06
	functSRAV = 0x07
	functJR   = 0x08
	functJALR = 0x09
	functADD  = 0x20
	functADDU = 0x21
	functSUB  = 0x22
	functSUBU = 0x23
	functAND  = 0x24
	functOR   = 0x25
	functXOR  = 0x26
	functNOR  = 0x27
	functSLT  = 0x2A
	functSLTU = 0x2B
)

// load/store opcodes.
const (
	opLB  = 0x20
	opLH  = 0x21
	opLW  = 0x23
	opLBU = 0x24
	opLHU = 0x25
	opSB  = 0x28
	opSH  = 0x29
	opSW  = 0x2B
)

// Decode extracts an iset.Instr from a 32-bit native word. It never
// returns an error: an unsupported encoding decodes to op INVALID, and
// the caller decides whether that is tolerable (disassembler, analyzer)
// or fatal (converter, simulator).
func Decode(word uint32) iset.Instr {
	opcode := (word >> 26) & 0x3F
	rs := uint8((word >> 21) & 0x1F)
	rt := uint8((word >> 16) & 0x1F)
	rd := uint8((word >> 11) & 0x1F)
	shamt := uint8((word >> 6) & 0x1F)
	funct := word & 0x3F
	imm16 := uint16(word & 0xFFFF)
	simm16 := int32(int16(imm16))
	addr26 := word & 0x3FFFFFF

	in := iset.Instr{Rs: rs, Rt: rt, Rd: rd, Shamt: shamt, Imm: imm16, Simm: simm16}

	switch opcode {
	case 0x00:
		in.Op = DecodeSpecialFunct(funct)
	case 0x01:
		switch rt {
		case 0x00:
			in.Op = iset.BLTZ
		case 0x01:
			in.Op = iset.BGEZ
		case 0x10:
			in.Op = iset.BLTZAL
		case 0x11:
			in.Op = iset.BGEZAL
		default:
			in.Op = iset.INVALID
		}
	case 0x02:
		in.Op = iset.J
		in.Addr = addr26
	case 0x03:
		in.Op = iset.JAL
		in.Addr = addr26
	case 0x04:
		in.Op = iset.BEQ
	case 0x05:
		in.Op = iset.BNE
	case 0x06:
		in.Op = iset.BLEZ
	case 0x07:
		in.Op = iset.BGTZ
	case 0x08:
		in.Op = iset.ADDI
	case 0x09:
		in.Op = iset.ADDIU
	case 0x0A:
		in.Op = iset.SLTI
	case 0x0B:
		in.Op = iset.SLTIU
	case 0x0C:
		in.Op = iset.ANDI
	case 0x0D:
		in.Op = iset.ORI
	case 0x0E:
		in.Op = iset.XORI
	case 0x0F:
		in.Op = iset.LUI
	case 0x10:
		switch rs {
		case 0x00:
			in.Op = iset.MFC0
		case 0x04:
			in.Op = iset.MTC0
		default:
			in.Op = iset.INVALID
		}
	case opLB:
		in.Op = iset.LB
	case opLH:
		in.Op = iset.LH
	case opLW:
		in.Op = iset.LW
	case opLBU:
		in.Op = iset.LBU
	case opLHU:
		in.Op = iset.LHU
	case opSB:
		in.Op = iset.SB
	case opSH:
		in.Op = iset.SH
	case opSW:
		in.Op = iset.SW
	default:
		in.Op = iset.INVALID
	}

	// Byte-address normalization (I5): from here on branch simm and
	// jump addr are in bytes, never word units. Decode only ever
	// produces native branch ops (BLTZ..BGTZ), never the pseudo
	// B/BAL/BEQZ/BNEZ forms, so IsBranch alone is a safe guard here.
	if in.Op.IsBranch() {
		in.Simm *= 4
	}
	if in.Op.IsJump() {
		in.Addr *= 4
	}

	return in
}

// DecodeSpecialFunct dispatches the funct field of a 0x00 "special"
// opcode word. Exported so the compressed codec's long-instruction
// decoder, whose opcode-0x00 layout is identical to native's, can
// reuse the same dispatch instead of duplicating it.
func DecodeSpecialFunct(funct uint32) iset.Op {
	switch funct {
	case functSLL:
		return iset.SLL
	case functSRL:
		return iset.SRL
	case functSRA:
		return iset.SRA
	case functSLLV:
		return iset.SLLV
	case functSRLV:
		return iset.SRLV
	case functSRAV:
		return iset.SRAV
	case functJR:
		return iset.JR
	case functJALR:
		return iset.JALR
	case functADD:
		return iset.ADD
	case functADDU:
		return iset.ADDU
	case functSUB:
		return iset.SUB
	case functSUBU:
		return iset.SUBU
	case functAND:
		return iset.AND
	case functOR:
		return iset.OR
	case functXOR:
		return iset.XOR
	case functNOR:
		return iset.NOR
	case functSLT:
		return iset.SLT
	case functSLTU:
		return iset.SLTU
	default:
		// BREAK (0x0D), MFHI/MTHI/MFLO/MTLO (0x10-0x13) and
		// MULT/MULTU/DIV/DIVU (0x18-0x1B) are reserved: this ISA
		// has no multiply/divide unit and no trap support.
		return iset.INVALID
	}
}

// Encode packs a native-expressible instruction back into a 32-bit
// word. It fails if in.Op is a pseudo op (the caller must run
// canon.ToNative first) or if a register, shift-amount, branch
// displacement or jump target field does not fit its native bit width.
// Other immediates are packed as their low 16 bits.
func Encode(in iset.Instr) (uint32, error) {
	if !in.Op.IsNative() {
		return 0, fmt.Errorf("%w: %s", ErrPseudoNotNative, in.Op)
	}
	if in.Rs > 31 || in.Rt > 31 || in.Rd > 31 || in.Shamt > 31 {
		return 0, fmt.Errorf("%w: register or shamt field", ErrFieldOverflow)
	}
	if in.Op.IsBranch() && (in.Simm/4 < -0x8000 || in.Simm/4 > 0x7FFF) {
		return 0, fmt.Errorf("%w: branch displacement %d", ErrFieldOverflow, in.Simm)
	}
	if in.Op.IsJump() && in.Addr/4 > 0x3FFFFFF {
		return 0, fmt.Errorf("%w: jump target %#x", ErrFieldOverflow, in.Addr)
	}

	word, ok := encodeByOp(in)
	if !ok {
		return 0, fmt.Errorf("%w: op %s has no native encoding", ErrFieldOverflow, in.Op)
	}
	return word, nil
}

func encodeByOp(in iset.Instr) (uint32, bool) {
	r := func(funct uint32) uint32 {
		return pack(0, uint32(in.Rs), uint32(in.Rt), uint32(in.Rd), uint32(in.Shamt), funct)
	}
	i := func(opcode uint32, imm uint32) uint32 {
		return pack(opcode, uint32(in.Rs), uint32(in.Rt), 0, 0, 0) | (imm & 0xFFFF)
	}

	switch in.Op {
	case iset.SLL:
		return r(functSLL), true
	case iset.SRL:
		return r(functSRL), true
	case iset.SRA:
		return r(functSRA), true
	case iset.SLLV:
		return r(functSLLV), true
	case iset.SRLV:
		return r(functSRLV), true
	case iset.SRAV:
		return r(functSRAV), true
	case iset.JR:
		return r(functJR), true
	case iset.JALR:
		return r(functJALR), true
	case iset.ADD:
		return r(functADD), true
	case iset.ADDU:
		return r(functADDU), true
	case iset.SUB:
		return r(functSUB), true
	case iset.SUBU:
		return r(functSUBU), true
	case iset.AND:
		return r(functAND), true
	case iset.OR:
		return r(functOR), true
	case iset.XOR:
		return r(functXOR), true
	case iset.NOR:
		return r(functNOR), true
	case iset.SLT:
		return r(functSLT), true
	case iset.SLTU:
		return r(functSLTU), true

	case iset.BLTZ:
		return i(0x01, uint32(in.Simm/4)&0xFFFF), true
	case iset.BGEZ:
		return pack(0x01, uint32(in.Rs), 0x01, 0, 0, 0) | (uint32(in.Simm/4) & 0xFFFF), true
	case iset.BLTZAL:
		return pack(0x01, uint32(in.Rs), 0x10, 0, 0, 0) | (uint32(in.Simm/4) & 0xFFFF), true
	case iset.BGEZAL:
		return pack(0x01, uint32(in.Rs), 0x11, 0, 0, 0) | (uint32(in.Simm/4) & 0xFFFF), true

	case iset.J:
		return 0x02<<26 | ((in.Addr / 4) & 0x3FFFFFF), true
	case iset.JAL:
		return 0x03<<26 | ((in.Addr / 4) & 0x3FFFFFF), true

	case iset.BEQ:
		return i(0x04, uint32(in.Simm/4)&0xFFFF), true
	case iset.BNE:
		return i(0x05, uint32(in.Simm/4)&0xFFFF), true
	case iset.BLEZ:
		return i(0x06, uint32(in.Simm/4)&0xFFFF), true
	case iset.BGTZ:
		return i(0x07, uint32(in.Simm/4)&0xFFFF), true

	case iset.ADDI:
		return i(0x08, uint32(in.Simm)&0xFFFF), true
	case iset.ADDIU:
		return i(0x09, uint32(in.Simm)&0xFFFF), true
	case iset.SLTI:
		return i(0x0A, uint32(in.Simm)&0xFFFF), true
	case iset.SLTIU:
		return i(0x0B, uint32(in.Simm)&0xFFFF), true
	case iset.ANDI:
		return i(0x0C, uint32(in.Imm)), true
	case iset.ORI:
		return i(0x0D, uint32(in.Imm)), true
	case iset.XORI:
		return i(0x0E, uint32(in.Imm)), true
	case iset.LUI:
		return i(0x0F, uint32(in.Imm)), true

	case iset.MFC0:
		return pack(0x10, 0x00, uint32(in.Rt), uint32(in.Rd), 0, 0), true
	case iset.MTC0:
		return pack(0x10, 0x04, uint32(in.Rt), uint32(in.Rd), 0, 0), true

	case iset.LB:
		return i(opLB, uint32(in.Simm)&0xFFFF), true
	case iset.LH:
		return i(opLH, uint32(in.Simm)&0xFFFF), true
	case iset.LW:
		return i(opLW, uint32(in.Simm)&0xFFFF), true
	case iset.LBU:
		return i(opLBU, uint32(in.Simm)&0xFFFF), true
	case iset.LHU:
		return i(opLHU, uint32(in.Simm)&0xFFFF), true
	case iset.SB:
		return i(opSB, uint32(in.Simm)&0xFFFF), true
	case iset.SH:
		return i(opSH, uint32(in.Simm)&0xFFFF), true
	case iset.SW:
		return i(opSW, uint32(in.Simm)&0xFFFF), true

	default:
		return 0, false
	}
}

func pack(opcode, rs, rt, rd, shamt, funct uint32) uint32 {
	return (opcode&0x3F)<<26 | (rs&0x1F)<<21 | (rt&0x1F)<<16 | (rd&0x1F)<<11 | (shamt&0x1F)<<6 | (funct & 0x3F)
}
