package machine

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// asm packs native 32-bit words (big-endian) into a byte slice.
func asm(words ...uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}

// Encodings below are hand-assembled against the native field layout
// (opcode 31-26, rs 25-21, rt 20-16, rd 15-11, shamt 10-6, funct 5-0).

func addiu(rt, rs uint8, simm int16) uint32 {
	return (0x09 << 26) | (uint32(rs) << 21) | (uint32(rt) << 16) | uint32(uint16(simm))
}

func addu(rd, rs, rt uint8) uint32 {
	return (uint32(rs) << 21) | (uint32(rt) << 16) | (uint32(rd) << 11) | 0x21
}

func beq(rs, rt uint8, simmWords int16) uint32 {
	return (0x04 << 26) | (uint32(rs) << 21) | (uint32(rt) << 16) | uint32(uint16(simmWords))
}

func jmp(byteAddr uint32) uint32 {
	return (0x02 << 26) | ((byteAddr / 4) & 0x03FFFFFF)
}

func sw(rt, rs uint8, simm int16) uint32 {
	return (0x2B << 26) | (uint32(rs) << 21) | (uint32(rt) << 16) | uint32(uint16(simm))
}

func lw(rt, rs uint8, simm int16) uint32 {
	return (0x23 << 26) | (uint32(rs) << 21) | (uint32(rt) << 16) | uint32(uint16(simm))
}

func TestAddiuAndAddu(t *testing.T) {
	m := New(64, 64, false)
	m.LoadInstructions(asm(
		addiu(1, 0, 5),    // r1 = 5
		addiu(2, 0, 7),    // r2 = 7
		addu(3, 1, 2),     // r3 = r1+r2 = 12
	))
	if _, err := m.Run(3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.Reg[3] != 12 {
		t.Fatalf("r3 = %d, want 12", m.Reg[3])
	}
}

func TestRegisterZeroAlwaysZero(t *testing.T) {
	m := New(64, 64, false)
	m.LoadInstructions(asm(addiu(0, 0, 5)))
	if _, err := m.Run(1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.Reg[0] != 0 {
		t.Fatalf("r0 = %d, want 0 (invariant I1)", m.Reg[0])
	}
}

// Delay-slot model: a taken branch's target takes effect only after
// the sequentially-next instruction (the delay slot) executes.
func TestBranchHasOneInstructionDelaySlot(t *testing.T) {
	m := New(64, 64, false)
	// pc=0x40000000: beq r0,r0,+2words -> target = pc+4(delay slot)+8 = pc+12
	// pc=0x40000004: addiu r1,r0,1   (delay slot, must execute)
	// pc=0x40000008: addiu r2,r0,2   (must be skipped)
	// pc=0x4000000C: addiu r3,r0,3   (branch target)
	m.LoadInstructions(asm(
		beq(0, 0, 2),
		addiu(1, 0, 1),
		addiu(2, 0, 2),
		addiu(3, 0, 3),
	))
	if _, err := m.Run(3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.Reg[1] != 1 {
		t.Fatalf("delay slot instruction should have executed: r1=%d, want 1", m.Reg[1])
	}
	if m.Reg[2] != 0 {
		t.Fatalf("instruction at branch-skip target should not execute: r2=%d, want 0", m.Reg[2])
	}
	if m.Reg[3] != 3 {
		t.Fatalf("branch target instruction should execute third: r3=%d, want 3", m.Reg[3])
	}
}

func TestJumpDelaySlot(t *testing.T) {
	m := New(64, 64, false)
	// pc=0: j 0xC          -> target = 0x4000000C
	// pc=4: addiu r1,r0,9  (delay slot, executes)
	// pc=8: addiu r2,r0,9  (skipped)
	// pc=C: addiu r3,r0,9  (target, executes)
	m.LoadInstructions(asm(
		jmp(0x0C),
		addiu(1, 0, 9),
		addiu(2, 0, 9),
		addiu(3, 0, 9),
	))
	if _, err := m.Run(3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.Reg[1] != 9 || m.Reg[2] != 0 || m.Reg[3] != 9 {
		t.Fatalf("r1=%d r2=%d r3=%d, want 9,0,9", m.Reg[1], m.Reg[2], m.Reg[3])
	}
}

func TestLoadStoreLittleEndian(t *testing.T) {
	m := New(64, 64, false)
	m.LoadInstructions(asm(
		addiu(1, 0, 0x1234), // r1 = 0x1234
		sw(1, 0, 8),         // mem[8] = r1
		lw(2, 0, 8),         // r2 = mem[8]
	))
	if _, err := m.Run(3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.Reg[2] != 0x1234 {
		t.Fatalf("r2 = %#x, want 0x1234", m.Reg[2])
	}
	if m.dmem[8] != 0x34 || m.dmem[9] != 0x12 {
		t.Fatalf("little-endian word layout wrong: dmem[8:10]=%x", m.dmem[8:10])
	}
}

// UART_DATA (0xFFFFFFFC) doesn't fit a 16-bit store immediate, so this
// exercises the MMIO intercept directly rather than through a program.
func TestUARTOutput(t *testing.T) {
	m := New(64, 64, false)
	var out bytes.Buffer
	m.Out = &out
	m.storeByte(uartData, 'A')
	if out.String() != "A" {
		t.Fatalf("UART output = %q, want %q", out.String(), "A")
	}
}

func TestUARTInputAndEOF(t *testing.T) {
	m := New(64, 64, false)
	m.In = bytes.NewReader([]byte("hi"))
	if got := m.loadByteU(uartData); got != 'h' {
		t.Fatalf("first UART read = %d, want %d", got, 'h')
	}
	if got := m.loadByteU(uartData); got != 'i' {
		t.Fatalf("second UART read = %d, want %d", got, 'i')
	}
	if got := m.loadByteU(uartData); got != 0 {
		t.Fatalf("UART read at EOF = %d, want 0", got)
	}
	if got := m.loadByteU(uartData); got != 1 {
		t.Fatalf("UART read after EOF latched = %d, want 1", got)
	}
	if got := m.loadByteU(uartStatus); got != 0x03 {
		t.Fatalf("UART status = %#x, want 0x03", got)
	}
}

// A literal NUL byte arrives doubled (0x00 0x00); end-of-stream arrives
// as (0x00 0x01). Neither is ambiguous with the unescaped bytes around it.
func TestUARTInputDeEscapesNulAndEOFMarker(t *testing.T) {
	m := New(64, 64, false)
	m.In = bytes.NewReader([]byte{'h', 0x00, 0x00, 'i', 0x00, 0x01})
	if got := m.loadByteU(uartData); got != 'h' {
		t.Fatalf("first UART read = %d, want %d", got, 'h')
	}
	if got := m.loadByteU(uartData); got != 0 {
		t.Fatalf("escaped NUL read = %d, want 0", got)
	}
	if got := m.loadByteU(uartData); got != 'i' {
		t.Fatalf("UART read after escaped NUL = %d, want %d", got, 'i')
	}
	if got := m.loadByteU(uartData); got != 0 {
		t.Fatalf("UART read at escaped EOF marker = %d, want 0", got)
	}
	if got := m.loadByteU(uartData); got != 1 {
		t.Fatalf("UART read after EOF latched = %d, want 1", got)
	}
}

func TestPCOutOfRangeIsFatal(t *testing.T) {
	m := New(4, 4, false)
	m.curPC = 0 // below PCStart
	if _, err := m.Run(1); err == nil {
		t.Fatal("Run should fail when pc is below PCStart")
	}
}
