/*
 * mipsc - Compressed (v2) instruction codec
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

// Package compressed implements CP (the compressibility predicate)
// and CC (the variable-length 16/32-bit compressed codec).
package compressed

import (
	"errors"
	"fmt"

	"github.com/mipsc/toolchain/internal/canon"
	"github.com/mipsc/toolchain/internal/iset"
	"github.com/mipsc/toolchain/internal/native"
)

// Short-form opcodes (5 bits).
const (
	cMOV = iota
	cADDU
	cSUBU
	cOR
	cXOR
	cNEG
	cNOT
	cSLTU
	cADDIU
	cANDI
	cSLL
	cSRL
	cSRA
	cLSI
	cB
	cBAL
	cBEQZ
	cBNEZ
	cJALR
	cLWS
	cSWS
)

// Long-form load/store opcodes, remapped out of the native range.
const (
	lLB  = 0x18
	lLH  = 0x19
	lLW  = 0x1A
	lLBU = 0x1B
	lLHU = 0x1C
	lSB  = 0x1D
	lSH  = 0x1E
	lSW  = 0x1F
)

var (
	// ErrShortNotCompressible is returned when the layout solver (or
	// a caller) asks CC to pack an instruction in short form that CP
	// does not admit. The layout solver must never do this.
	ErrShortNotCompressible = errors.New("compressed: instruction is not short-encodable")
	ErrTruncated            = errors.New("compressed: truncated instruction stream")
	ErrUnknownOpcode        = errors.New("compressed: unknown long-form opcode")
)

// Compressible is CP: a pure function over an already pseudo-canonical
// instruction that reports whether CC can encode it in 16 bits.
func Compressible(in iset.Instr) bool {
	switch in.Op {
	case iset.NOP, iset.MOV, iset.CLEAR, iset.NOT, iset.NEG, iset.LSI, iset.JR, iset.JALR:
		return true
	case iset.SLL, iset.SRL, iset.SRA:
		return in.Rd == in.Rt
	case iset.ADDU, iset.OR, iset.XOR:
		return in.Rd == in.Rs || in.Rd == in.Rt
	case iset.SUBU, iset.SLTU:
		return in.Rd == in.Rs
	case iset.ADDIU:
		return in.Rs == in.Rt && in.Simm >= -16 && in.Simm <= 15
	case iset.ANDI:
		return in.Rs == in.Rt && in.Imm <= 31
	case iset.SW, iset.LW:
		return in.Rs == 29 && in.Simm%4 == 0 && in.Simm >= 0 && in.Simm < 128
	case iset.B, iset.BAL:
		return in.Simm >= -1024 && in.Simm <= 1022
	case iset.BEQZ, iset.BNEZ:
		return in.Simm >= -32 && in.Simm <= 30
	default:
		return false
	}
}

// Decode reads one instruction from the head of data, which must hold
// at least 2 bytes (or 4, for a long instruction). It returns the
// decoded instruction and the number of bytes consumed (2 or 4). A
// short instruction decodes to the op its short opcode stands for, with
// Compressed set for re-encoding symmetry; for MOV, CLEAR, NEG, NOT,
// LSI, B, BAL, BEQZ and BNEZ that is a pseudo op, which canon.ToNative
// expands. A long instruction decodes to a native op
// with Compressed clear.
func Decode(data []byte) (iset.Instr, int, error) {
	if len(data) < 2 {
		return iset.Instr{}, 0, ErrTruncated
	}
	hi := uint16(data[0])<<8 | uint16(data[1])

	if hi&0x8000 != 0 {
		return decodeShort(hi), 2, nil
	}

	if len(data) < 4 {
		return iset.Instr{}, 0, ErrTruncated
	}
	lo := uint16(data[2])<<8 | uint16(data[3])
	word := uint32(hi)<<16 | uint32(lo)
	in, err := decodeLong(word)
	return in, 4, err
}

func decodeShort(hi uint16) iset.Instr {
	opcode := (hi >> 10) & 0x1F
	rds := uint8((hi >> 5) & 0x1F)
	operand5 := uint8(hi & 0x1F)
	simm5 := int32(int8(operand5<<3) >> 3) // sign-extend 5-bit field
	disp10 := int32(int16(hi<<6)) >> 6      // sign-extend 10-bit field

	switch opcode {
	case cMOV:
		if operand5 == 0 {
			return iset.Instr{Op: iset.CLEAR, Rd: rds, Compressed: true}
		}
		return iset.Instr{Op: iset.MOV, Rd: rds, Rt: operand5, Compressed: true}
	case cADDU:
		return iset.Instr{Op: iset.ADDU, Rd: rds, Rs: rds, Rt: operand5, Compressed: true}
	case cSUBU:
		return iset.Instr{Op: iset.SUBU, Rd: rds, Rs: rds, Rt: operand5, Compressed: true}
	case cOR:
		return iset.Instr{Op: iset.OR, Rd: rds, Rs: rds, Rt: operand5, Compressed: true}
	case cXOR:
		return iset.Instr{Op: iset.XOR, Rd: rds, Rs: rds, Rt: operand5, Compressed: true}
	case cNEG:
		return iset.Instr{Op: iset.NEG, Rd: rds, Rt: operand5, Compressed: true}
	case cNOT:
		return iset.Instr{Op: iset.NOT, Rd: rds, Rt: operand5, Compressed: true}
	case cSLTU:
		return iset.Instr{Op: iset.SLTU, Rd: rds, Rs: rds, Rt: operand5, Compressed: true}
	case cADDIU:
		return iset.Instr{Op: iset.ADDIU, Rt: rds, Rs: rds, Simm: simm5, Compressed: true}
	case cANDI:
		return iset.Instr{Op: iset.ANDI, Rt: rds, Rs: rds, Imm: uint16(operand5), Compressed: true}
	case cSLL:
		return iset.Instr{Op: iset.SLL, Rd: rds, Rt: rds, Shamt: operand5, Compressed: true}
	case cSRL:
		return iset.Instr{Op: iset.SRL, Rd: rds, Rt: rds, Shamt: operand5, Compressed: true}
	case cSRA:
		return iset.Instr{Op: iset.SRA, Rd: rds, Rt: rds, Shamt: operand5, Compressed: true}
	case cLSI:
		return iset.Instr{Op: iset.LSI, Rt: rds, Simm: simm5, Compressed: true}
	case cB:
		return iset.Instr{Op: iset.B, Simm: disp10 * 2, Compressed: true}
	case cBAL:
		return iset.Instr{Op: iset.BAL, Simm: disp10 * 2, Compressed: true}
	case cBEQZ:
		return iset.Instr{Op: iset.BEQZ, Rs: rds, Simm: simm5 * 2, Compressed: true}
	case cBNEZ:
		return iset.Instr{Op: iset.BNEZ, Rs: rds, Simm: simm5 * 2, Compressed: true}
	case cJALR:
		if rds == 0 {
			return iset.Instr{Op: iset.JR, Rs: operand5, Compressed: true}
		}
		return iset.Instr{Op: iset.JALR, Rd: rds, Rs: operand5, Compressed: true}
	case cLWS:
		return iset.Instr{Op: iset.LW, Rt: rds, Rs: 29, Simm: int32(operand5) * 4, Compressed: true}
	case cSWS:
		return iset.Instr{Op: iset.SW, Rt: rds, Rs: 29, Simm: int32(operand5) * 4, Compressed: true}
	default:
		return iset.Instr{Op: iset.INVALID, Compressed: true}
	}
}

func decodeLong(word uint32) (iset.Instr, error) {
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
		in.Op = native.DecodeSpecialFunct(funct)
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
		in.Simm *= 2
	case 0x02:
		in = iset.Instr{Op: iset.J, Addr: addr26 * 2}
	case 0x03:
		in = iset.Instr{Op: iset.JAL, Addr: addr26 * 2}
	case 0x04:
		in.Op = iset.BEQ
		in.Simm *= 2
	case 0x05:
		in.Op = iset.BNE
		in.Simm *= 2
	case 0x06:
		in.Op = iset.BLEZ
		in.Simm *= 2
	case 0x07:
		in.Op = iset.BGTZ
		in.Simm *= 2
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
	case lLB:
		in.Op = iset.LB
	case lLH:
		in.Op = iset.LH
	case lLW:
		in.Op = iset.LW
	case lLBU:
		in.Op = iset.LBU
	case lLHU:
		in.Op = iset.LHU
	case lSB:
		in.Op = iset.SB
	case lSH:
		in.Op = iset.SH
	case lSW:
		in.Op = iset.SW
	default:
		return iset.Instr{}, fmt.Errorf("%w: %#x", ErrUnknownOpcode, opcode)
	}

	return in, nil
}

// Encode packs in into its compressed wire form: 2 bytes if
// in.Compressed is set, 4 bytes if it is clear (always true native
// expansion via canon.ToNative, packed with the long-form displacement
// scale of 2 and remapped load/store opcodes). A Compressed instruction
// that CP does not admit is rejected with ErrShortNotCompressible; it
// is not widened to the long form.
func Encode(in iset.Instr) ([]byte, error) {
	if in.Compressed {
		word, err := encodeShort(in)
		if err != nil {
			return nil, err
		}
		return []byte{byte(word >> 8), byte(word)}, nil
	}
	word, err := encodeLong(in)
	if err != nil {
		return nil, err
	}
	return []byte{byte(word >> 24), byte(word >> 16), byte(word >> 8), byte(word)}, nil
}

func encodeShort(in iset.Instr) (uint16, error) {
	if !Compressible(in) {
		return 0, fmt.Errorf("%w: %s", ErrShortNotCompressible, in.Op)
	}

	r := func(opcode uint16, rds, operand uint8) uint16 {
		return 0x8000 | opcode<<10 | uint16(rds&0x1F)<<5 | uint16(operand&0x1F)
	}

	switch in.Op {
	case iset.NOP:
		return r(cMOV, 0, 0), nil
	case iset.MOV:
		return r(cMOV, in.Rd, in.Rt), nil
	case iset.CLEAR:
		return r(cMOV, in.Rd, 0), nil
	case iset.ADDU:
		return r(cADDU, in.Rd, other(in.Rd, in.Rs, in.Rt)), nil
	case iset.SUBU:
		return r(cSUBU, in.Rd, in.Rt), nil
	case iset.OR:
		return r(cOR, in.Rd, other(in.Rd, in.Rs, in.Rt)), nil
	case iset.XOR:
		return r(cXOR, in.Rd, other(in.Rd, in.Rs, in.Rt)), nil
	case iset.NEG:
		return r(cNEG, in.Rd, in.Rt), nil
	case iset.NOT:
		return r(cNOT, in.Rd, in.Rt), nil
	case iset.SLTU:
		return r(cSLTU, in.Rd, in.Rt), nil
	case iset.ADDIU:
		return r(cADDIU, in.Rt, uint8(in.Simm)&0x1F), nil
	case iset.ANDI:
		return r(cANDI, in.Rt, uint8(in.Imm)), nil
	case iset.SLL:
		return r(cSLL, in.Rd, in.Shamt), nil
	case iset.SRL:
		return r(cSRL, in.Rd, in.Shamt), nil
	case iset.SRA:
		return r(cSRA, in.Rd, in.Shamt), nil
	case iset.LSI:
		return r(cLSI, in.Rt, uint8(in.Simm)&0x1F), nil
	case iset.B:
		return 0x8000 | cB<<10 | uint16(in.Simm/2)&0x3FF, nil
	case iset.BAL:
		return 0x8000 | cBAL<<10 | uint16(in.Simm/2)&0x3FF, nil
	case iset.BEQZ:
		return r(cBEQZ, in.Rs, uint8(in.Simm/2)&0x1F), nil
	case iset.BNEZ:
		return r(cBNEZ, in.Rs, uint8(in.Simm/2)&0x1F), nil
	case iset.JR:
		return r(cJALR, 0, in.Rs), nil
	case iset.JALR:
		return r(cJALR, in.Rd, in.Rs), nil
	case iset.LW:
		return r(cLWS, in.Rt, uint8(in.Simm/4)), nil
	case iset.SW:
		return r(cSWS, in.Rt, uint8(in.Simm/4)), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrShortNotCompressible, in.Op)
	}
}

// other returns whichever of rs, rt is not equal to rd, for the
// commutative two-operand short forms (ADDU, OR, XOR) where CP only
// requires rd to match one side.
func other(rd, rs, rt uint8) uint8 {
	if rd == rs {
		return rt
	}
	return rs
}

func encodeLong(in iset.Instr) (uint32, error) {
	nin := in
	if !nin.Op.IsNative() {
		nin = canon.ToNative(nin)
	}

	// Load/store displacements are memory byte offsets, not control-flow
	// displacements measured in instruction units: unlike branches and
	// jumps they carry no word-scaling in either format.
	switch nin.Op {
	case iset.LB:
		return packLong(lLB, nin.Rs, nin.Rt, 0, 0, 0) | uint32(nin.Simm)&0xFFFF, nil
	case iset.LH:
		return packLong(lLH, nin.Rs, nin.Rt, 0, 0, 0) | uint32(nin.Simm)&0xFFFF, nil
	case iset.LW:
		return packLong(lLW, nin.Rs, nin.Rt, 0, 0, 0) | uint32(nin.Simm)&0xFFFF, nil
	case iset.LBU:
		return packLong(lLBU, nin.Rs, nin.Rt, 0, 0, 0) | uint32(nin.Simm)&0xFFFF, nil
	case iset.LHU:
		return packLong(lLHU, nin.Rs, nin.Rt, 0, 0, 0) | uint32(nin.Simm)&0xFFFF, nil
	case iset.SB:
		return packLong(lSB, nin.Rs, nin.Rt, 0, 0, 0) | uint32(nin.Simm)&0xFFFF, nil
	case iset.SH:
		return packLong(lSH, nin.Rs, nin.Rt, 0, 0, 0) | uint32(nin.Simm)&0xFFFF, nil
	case iset.SW:
		return packLong(lSW, nin.Rs, nin.Rt, 0, 0, 0) | uint32(nin.Simm)&0xFFFF, nil

	case iset.J:
		return 0x02<<26 | ((nin.Addr / 2) & 0x3FFFFFF), nil
	case iset.JAL:
		return 0x03<<26 | ((nin.Addr / 2) & 0x3FFFFFF), nil

	case iset.BLTZ:
		return packLong(0x01, nin.Rs, 0x00, 0, 0, 0) | uint32(nin.Simm/2)&0xFFFF, nil
	case iset.BGEZ:
		return packLong(0x01, nin.Rs, 0x01, 0, 0, 0) | uint32(nin.Simm/2)&0xFFFF, nil
	case iset.BLTZAL:
		return packLong(0x01, nin.Rs, 0x10, 0, 0, 0) | uint32(nin.Simm/2)&0xFFFF, nil
	case iset.BGEZAL:
		return packLong(0x01, nin.Rs, 0x11, 0, 0, 0) | uint32(nin.Simm/2)&0xFFFF, nil
	case iset.BEQ:
		return packLong(0x04, nin.Rs, nin.Rt, 0, 0, 0) | uint32(nin.Simm/2)&0xFFFF, nil
	case iset.BNE:
		return packLong(0x05, nin.Rs, nin.Rt, 0, 0, 0) | uint32(nin.Simm/2)&0xFFFF, nil
	case iset.BLEZ:
		return packLong(0x06, nin.Rs, nin.Rt, 0, 0, 0) | uint32(nin.Simm/2)&0xFFFF, nil
	case iset.BGTZ:
		return packLong(0x07, nin.Rs, nin.Rt, 0, 0, 0) | uint32(nin.Simm/2)&0xFFFF, nil

	default:
		// ALU-R, ALU-I, and COP0 long forms carry no displacement
		// field: the native encoder's layout is exact, unscaled.
		return native.Encode(nin)
	}
}

func packLong(opcode, rs, rt, rd, shamt, funct uint8) uint32 {
	return uint32(opcode&0x3F)<<26 | uint32(rs&0x1F)<<21 | uint32(rt&0x1F)<<16 |
		uint32(rd&0x1F)<<11 | uint32(shamt&0x1F)<<6 | uint32(funct&0x3F)
}
