/*
 * mipsc - Simulator execution loop
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

// Package machine is the SE component: a sequential, single-threaded
// instruction stepper over a byte-addressable memory, modeling the
// toolchain's one MMIO device (a UART) and a deferred jump latch that
// produces a one-instruction branch delay slot.
package machine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mipsc/toolchain/internal/canon"
	"github.com/mipsc/toolchain/internal/compressed"
	"github.com/mipsc/toolchain/internal/iset"
	"github.com/mipsc/toolchain/internal/native"
	"github.com/mipsc/toolchain/internal/printer"
)

// PCStart is the conventional starting program counter; instruction
// memory is addressed relative to it.
const PCStart uint32 = 0x40000000

// UART MMIO addresses, intercepted by loads/stores before they touch
// data memory.
const (
	uartStatus uint32 = 0xFFFFFFF8
	uartData   uint32 = 0xFFFFFFFC
)

// UART input escape protocol: a literal 0x00 byte in the input stream
// is escaped upstream as two bytes (0x00 0x00), and end-of-stream is
// signaled as (0x00 0x01), so a raw 0x00 is never ambiguous with EOF.
// On the read side, 0x00 followed by any non-zero byte is taken as EOF.
const (
	uartEscapeByte byte = 0x00
	uartEscapeEOF  byte = 0x01
)

var (
	// ErrPCOutOfRange is a fatal run error: the program counter fell
	// below PCStart or past the end of instruction memory.
	ErrPCOutOfRange = errors.New("machine: program counter out of range")
	// ErrInvalidOpcode is a fatal run error: the fetched word/halfword
	// did not decode to a native, executable instruction.
	ErrInvalidOpcode = errors.New("machine: invalid opcode at fetch")
)

// Machine holds one simulator instance's full state. Nothing here is
// package-global: every field lives on the instance so that multiple
// Machines (e.g. in tests) never share state.
type Machine struct {
	Reg [32]uint32

	curPC    uint32
	jump     bool
	jumpAddr uint32

	imem []byte
	dmem []byte

	compressed bool

	// UART plumbing: In is read one byte at a time on a load from
	// uartData; Out receives one byte per store to uartData.
	In     io.ByteReader
	Out    io.Writer
	uartEOF bool

	// Trace, when non-nil, receives one formatted line per executed
	// instruction (the simulator's -x debug mode).
	Trace io.Writer
}

// New builds a Machine with the given instruction/data memory sizes
// (in bytes) and initial program counter PCStart. v2 selects the
// compressed decoder for fetch; otherwise the native (4-byte) decoder
// is used.
func New(imemSize, dmemSize int, v2 bool) *Machine {
	return &Machine{
		curPC:      PCStart,
		imem:       make([]byte, imemSize),
		dmem:       make([]byte, dmemSize),
		compressed: v2,
	}
}

// LoadInstructions copies prog into instruction memory starting at
// offset 0 (i.e. address PCStart).
func (m *Machine) LoadInstructions(prog []byte) {
	copy(m.imem, prog)
}

// LoadData copies data into data memory starting at byte offset
// dmemOffset. The simulator's main loads a DATA-FILE at offset 4,
// leaving the first word zero by convention.
func (m *Machine) LoadData(data []byte, dmemOffset int) {
	copy(m.dmem[dmemOffset:], data)
}

// PC reports the current program counter.
func (m *Machine) PC() uint32 { return m.curPC }

// Run executes up to numSteps instructions, or until an unrecoverable
// error occurs. It returns the number of instructions actually
// executed and any fatal error.
func (m *Machine) Run(numSteps uint64) (uint64, error) {
	var executed uint64
	for ; executed < numSteps; executed++ {
		if err := m.Step(); err != nil {
			return executed, err
		}
	}
	return executed, nil
}

// Step executes exactly one instruction. Matching the original
// simulator's ordering, the instruction at the current PC is fetched
// first; the PC is then advanced (to jumpAddr if the previous step
// latched a jump, otherwise past this instruction) *before* the
// instruction executes, so that a taken branch's target is computed
// relative to the already-advanced PC. The net effect is a one
// instruction delay slot: the instruction sequentially following a
// taken branch/jump always executes before control reaches the
// target.
func (m *Machine) Step() error {
	if m.curPC < PCStart || int(m.curPC-PCStart) >= len(m.imem) {
		return fmt.Errorf("%w: pc=%#x", ErrPCOutOfRange, m.curPC)
	}

	fetchPC := m.curPC
	offset := int(fetchPC - PCStart)
	in, size, err := m.fetch(offset)
	if err != nil {
		return err
	}

	if m.jump {
		m.curPC = m.jumpAddr
		m.jump = false
	} else {
		m.curPC += uint32(size)
	}

	sizeNext := 4
	if m.compressed {
		nextOffset := int(m.curPC - PCStart)
		if nextOffset >= 0 && nextOffset < len(m.imem) && m.imem[nextOffset] >= 0x80 {
			sizeNext = 2
		}
	}

	if !in.Op.IsNative() {
		return fmt.Errorf("%w: op %s is not native-executable", ErrInvalidOpcode, in.Op)
	}

	if m.Trace != nil {
		fmt.Fprintf(m.Trace, "%08X: %s\n", fetchPC, printer.Format(in))
	}

	m.execute(in, sizeNext)
	m.Reg[0] = 0
	return nil
}

// fetch decodes the instruction at the given instruction-memory byte
// offset, dispatching to NC or CC depending on the machine's mode, and
// reports its encoded size in bytes.
func (m *Machine) fetch(offset int) (iset.Instr, int, error) {
	if m.compressed {
		in, n, err := compressed.Decode(m.imem[offset:])
		if err != nil {
			return iset.Instr{}, 0, err
		}
		return canon.ToNative(in), n, nil
	}
	if offset+4 > len(m.imem) {
		return iset.Instr{}, 0, fmt.Errorf("%w: truncated fetch at offset %#x", ErrInvalidOpcode, offset)
	}
	word := binary.BigEndian.Uint32(m.imem[offset : offset+4])
	return native.Decode(word), 4, nil
}

func sext8(b byte) uint32 {
	if b < 0x80 {
		return uint32(b)
	}
	return 0xFFFFFF00 | uint32(b)
}

func sext16(h uint16) uint32 {
	if h < 0x8000 {
		return uint32(h)
	}
	return 0xFFFF0000 | uint32(h)
}

func shiftAmount(v uint32) uint32 { return v % 32 }

func sll(rt, shift uint32) uint32 { return rt << shiftAmount(shift) }
func srl(rt, shift uint32) uint32 { return rt >> shiftAmount(shift) }

func sra(rt, shift uint32) uint32 {
	n := shiftAmount(shift)
	s := int32(rt) >> n
	return uint32(s)
}

func slt(rs, rt uint32) uint32 {
	if int32(rs) < int32(rt) {
		return 1
	}
	return 0
}

// execute performs the effect of one native instruction, including any
// memory access and branch/jump latching. sizeNext is the byte size of
// the instruction that will execute after this one (needed for link
// register computations, which must point past the delay slot).
func (m *Machine) execute(in iset.Instr, sizeNext int) {
	rt := m.Reg[in.Rt]
	rs := m.Reg[in.Rs]
	imm := uint32(in.Imm)
	simm := in.Simm

	switch in.Op {
	case iset.SLL:
		m.Reg[in.Rd] = sll(rt, uint32(in.Shamt))
	case iset.SRL:
		m.Reg[in.Rd] = srl(rt, uint32(in.Shamt))
	case iset.SRA:
		m.Reg[in.Rd] = sra(rt, uint32(in.Shamt))
	case iset.SLLV:
		m.Reg[in.Rd] = sll(rt, rs)
	case iset.SRLV:
		m.Reg[in.Rd] = srl(rt, rs)
	case iset.SRAV:
		m.Reg[in.Rd] = sra(rt, rs)
	case iset.ADD, iset.ADDU:
		m.Reg[in.Rd] = rt + rs
	case iset.SUB, iset.SUBU:
		m.Reg[in.Rd] = rs - rt
	case iset.AND:
		m.Reg[in.Rd] = rs & rt
	case iset.OR:
		m.Reg[in.Rd] = rs | rt
	case iset.XOR:
		m.Reg[in.Rd] = rs ^ rt
	case iset.NOR:
		m.Reg[in.Rd] = ^(rs | rt)

	case iset.ADDI, iset.ADDIU:
		m.Reg[in.Rt] = rs + uint32(simm)
	case iset.ANDI:
		m.Reg[in.Rt] = rs & imm
	case iset.ORI:
		m.Reg[in.Rt] = rs | imm
	case iset.XORI:
		m.Reg[in.Rt] = rs ^ imm
	case iset.LUI:
		m.Reg[in.Rt] = imm << 16

	case iset.LB:
		m.Reg[in.Rt] = m.loadByte(rs + uint32(simm))
	case iset.LBU:
		m.Reg[in.Rt] = m.loadByteU(rs + uint32(simm))
	case iset.LH:
		m.Reg[in.Rt] = m.loadHalf(rs + uint32(simm))
	case iset.LHU:
		m.Reg[in.Rt] = m.loadHalfU(rs + uint32(simm))
	case iset.LW:
		m.Reg[in.Rt] = m.loadWord(rs + uint32(simm))
	case iset.SB:
		m.storeByte(rs+uint32(simm), rt)
	case iset.SH:
		m.storeHalf(rs+uint32(simm), rt)
	case iset.SW:
		m.storeWord(rs+uint32(simm), rt)

	case iset.SLT:
		m.Reg[in.Rd] = slt(rs, rt)
	case iset.SLTU:
		m.Reg[in.Rd] = boolToWord(rs < rt)
	case iset.SLTI:
		m.Reg[in.Rt] = slt(rs, uint32(simm))
	case iset.SLTIU:
		m.Reg[in.Rt] = boolToWord(rs < uint32(simm))

	case iset.BLTZ:
		m.branchIf(int32(rs) < 0, simm)
	case iset.BGEZ:
		m.branchIf(int32(rs) >= 0, simm)
	case iset.BLTZAL:
		m.Reg[31] = m.curPC + uint32(sizeNext)
		m.branchIf(int32(rs) < 0, simm)
	case iset.BGEZAL:
		m.Reg[31] = m.curPC + uint32(sizeNext)
		m.branchIf(int32(rs) >= 0, simm)
	case iset.BEQ:
		m.branchIf(rs == rt, simm)
	case iset.BNE:
		m.branchIf(rs != rt, simm)
	case iset.BLEZ:
		m.branchIf(int32(rs) <= 0, simm)
	case iset.BGTZ:
		m.branchIf(int32(rs) > 0, simm)

	case iset.J:
		m.jumpAddr = (m.curPC & 0xF0000000) | (in.Addr & 0x0FFFFFFF)
		m.jump = true
	case iset.JAL:
		m.jumpAddr = (m.curPC & 0xF0000000) | (in.Addr & 0x0FFFFFFF)
		m.Reg[31] = m.curPC + uint32(sizeNext)
		m.jump = true
	case iset.JR:
		m.jumpAddr = rs
		m.jump = true
	case iset.JALR:
		m.jumpAddr = rs
		m.Reg[in.Rd] = m.curPC + uint32(sizeNext)
		m.jump = true

	case iset.MFC0, iset.MTC0:
		// No coprocessor-0 registers are modeled; these are no-ops.
	}
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (m *Machine) branchIf(cond bool, simm int32) {
	if cond {
		m.jumpAddr = m.curPC + uint32(simm)
		m.jump = true
	}
}

func (m *Machine) loadByte(addr uint32) uint32 {
	if addr == uartStatus {
		return 0x03
	}
	if addr == uartData {
		return sext8(byte(m.uartRead()))
	}
	if int(addr) >= len(m.dmem) {
		slog.Warn("load out of range", "addr", addr, "max", len(m.dmem))
		return 0
	}
	return sext8(m.dmem[addr])
}

func (m *Machine) loadByteU(addr uint32) uint32 {
	if addr == uartStatus {
		return 0x03
	}
	if addr == uartData {
		return m.uartRead()
	}
	if int(addr) >= len(m.dmem) {
		slog.Warn("load out of range", "addr", addr, "max", len(m.dmem))
		return 0
	}
	return uint32(m.dmem[addr])
}

func (m *Machine) loadHalf(addr uint32) uint32 {
	if addr == uartStatus {
		return 0x03
	}
	if addr == uartData {
		return m.uartRead()
	}
	if int(addr)+2 > len(m.dmem) {
		slog.Warn("load out of range", "addr", addr, "max", len(m.dmem))
		return 0
	}
	return sext16(binary.LittleEndian.Uint16(m.dmem[addr:]))
}

func (m *Machine) loadHalfU(addr uint32) uint32 {
	if addr == uartStatus {
		return 0x03
	}
	if addr == uartData {
		return m.uartRead()
	}
	if int(addr)+2 > len(m.dmem) {
		slog.Warn("load out of range", "addr", addr, "max", len(m.dmem))
		return 0
	}
	return uint32(binary.LittleEndian.Uint16(m.dmem[addr:]))
}

func (m *Machine) loadWord(addr uint32) uint32 {
	if addr == uartStatus {
		return 0x03
	}
	if addr == uartData {
		return m.uartRead()
	}
	if int(addr)+4 > len(m.dmem) {
		slog.Warn("load out of range", "addr", addr, "max", len(m.dmem))
		return 0
	}
	return binary.LittleEndian.Uint32(m.dmem[addr:])
}

func (m *Machine) storeByte(addr, value uint32) {
	if addr == uartData {
		m.uartWrite(byte(value))
		return
	}
	if addr == uartStatus {
		return
	}
	if int(addr) >= len(m.dmem) {
		slog.Warn("store out of range", "addr", addr, "max", len(m.dmem))
		return
	}
	m.dmem[addr] = byte(value)
}

func (m *Machine) storeHalf(addr, value uint32) {
	if addr == uartData {
		m.uartWrite(byte(value))
		return
	}
	if addr == uartStatus {
		return
	}
	if int(addr)+2 > len(m.dmem) {
		slog.Warn("store out of range", "addr", addr, "max", len(m.dmem))
		return
	}
	binary.LittleEndian.PutUint16(m.dmem[addr:], uint16(value))
}

func (m *Machine) storeWord(addr, value uint32) {
	if addr == uartData {
		m.uartWrite(byte(value))
		return
	}
	if addr == uartStatus {
		return
	}
	if int(addr)+4 > len(m.dmem) {
		slog.Warn("store out of range", "addr", addr, "max", len(m.dmem))
		return
	}
	binary.LittleEndian.PutUint32(m.dmem[addr:], value)
}

// uartRead returns one character from the simulated UART's data
// register. m.In is assumed already escaped upstream (every literal
// 0x00 doubled, end-of-stream marked with a trailing 0x01), so a
// leading 0x00 is de-escaped here rather than passed straight through.
// Once the input stream is exhausted it latches EOF and returns 1 on
// every subsequent read, matching the original simulator's is_eof flag.
func (m *Machine) uartRead() uint32 {
	if m.uartEOF || m.In == nil {
		return 1
	}
	b, err := m.In.ReadByte()
	if err != nil {
		m.uartEOF = true
		return 0
	}
	if b != uartEscapeByte {
		return uint32(b)
	}

	b2, err := m.In.ReadByte()
	if err != nil || b2 != uartEscapeByte {
		m.uartEOF = true
		return 0
	}
	// b2 == uartEscapeByte: a literal NUL was escaped as 0x00 0x00.
	return 0
}

// uartWrite writes one character to the simulated UART's data register.
func (m *Machine) uartWrite(b byte) {
	if m.Out == nil {
		return
	}
	m.Out.Write([]byte{b})
}
