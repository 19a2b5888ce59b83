package native

import (
	"testing"

	"github.com/mipsc/toolchain/internal/iset"
)

func TestDecodeDispatch(t *testing.T) {
	tests := []struct {
		name string
		word uint32
		op   iset.Op
	}{
		{"addu", 0x00051821, iset.ADDU}, // addu r3, r0, r5
		{"sll-nop", 0x00000000, iset.SLL},
		{"jal", 0x0C000080, iset.JAL}, // jal 0x200 (addr26=0x80)
		{"bltz", 0x04000001, iset.BLTZ},
		{"bgez", 0x04010001, iset.BGEZ},
		{"addiu", 0x2408000C, iset.ADDIU}, // addiu r8, r0, 12
		{"lw-stack", 0x8FA8000C, iset.LW}, // lw r8, 12(r29)
		{"mfc0", 0x40086000, iset.MFC0},
		{"break-invalid", 0x0000000D, iset.INVALID},
		{"reserved-opcode", 0xFC000000, iset.INVALID},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := Decode(tc.word)
			if in.Op != tc.op {
				t.Fatalf("Decode(%#x).Op = %s, want %s", tc.word, in.Op, tc.op)
			}
		})
	}
}

func TestByteAddressNormalization(t *testing.T) {
	in := Decode(0x2408000C) // addiu r8, r0, 12 -- not a branch, unaffected
	if in.Simm != 12 {
		t.Fatalf("addiu simm = %d, want 12", in.Simm)
	}

	in = Decode(0x10000003) // beq r0, r0, 3 (word units)
	if in.Simm != 12 {
		t.Fatalf("beq simm = %d, want 12 (3*4 bytes)", in.Simm)
	}

	in = Decode(0x08000040) // j 0x40 (word units) -> addr 0x100 bytes
	if in.Addr != 0x100 {
		t.Fatalf("j addr = %#x, want 0x100", in.Addr)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	words := []uint32{
		0x00051821, // addu r3, r0, r5
		0x00000000, // sll r0,r0,0 (nop)
		0x2408000C, // addiu r8, r0, 12
		0x8FA8000C, // lw r8, 12(r29)
		0xAFA8000C, // sw r8, 12(r29)
		0x10000003, // beq r0, r0, 3
		0x04010005, // bgez r0, 5
	}
	for _, w := range words {
		in := Decode(w)
		if in.Op == iset.INVALID {
			t.Fatalf("Decode(%#x) = INVALID unexpectedly", w)
		}
		got, err := Encode(in)
		if err != nil {
			t.Fatalf("Encode(Decode(%#x)): %v", w, err)
		}
		if got != w {
			t.Fatalf("round trip %#x -> %#x, want %#x", w, got, w)
		}
	}
}

func TestEncodeRejectsPseudo(t *testing.T) {
	in := iset.Instr{Op: iset.MOV, Rd: 1, Rt: 2}
	if _, err := Encode(in); err == nil {
		t.Fatal("Encode(MOV) should fail: pseudo ops are not native-expressible")
	}
}

func TestEncodeRejectsOverflow(t *testing.T) {
	in := iset.Instr{Op: iset.ADDU, Rd: 40, Rs: 1, Rt: 2}
	if _, err := Encode(in); err == nil {
		t.Fatal("Encode with rd=40 should fail: register index out of range")
	}
}
