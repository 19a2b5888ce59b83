package compressed

import (
	"bytes"
	"testing"

	"github.com/mipsc/toolchain/internal/iset"
)

func TestCompressibleAlwaysTrue(t *testing.T) {
	for _, op := range []iset.Op{iset.NOP, iset.MOV, iset.CLEAR, iset.NOT, iset.NEG, iset.LSI, iset.JR, iset.JALR} {
		if !Compressible(iset.Instr{Op: op}) {
			t.Fatalf("Compressible(%s) = false, want true (always-compressible op)", op)
		}
	}
}

func TestCompressibleStackOps(t *testing.T) {
	tests := []struct {
		name string
		in   iset.Instr
		want bool
	}{
		{"lw-sp-ok", iset.Instr{Op: iset.LW, Rs: 29, Simm: 12}, true},
		{"lw-sp-odd", iset.Instr{Op: iset.LW, Rs: 29, Simm: 13}, false},
		{"lw-sp-too-far", iset.Instr{Op: iset.LW, Rs: 29, Simm: 128}, false},
		{"lw-not-sp", iset.Instr{Op: iset.LW, Rs: 8, Simm: 12}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Compressible(tc.in); got != tc.want {
				t.Fatalf("Compressible(%+v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestCompressibleBranchRanges(t *testing.T) {
	tests := []struct {
		name string
		in   iset.Instr
		want bool
	}{
		{"b-min", iset.Instr{Op: iset.B, Simm: -1024}, true},
		{"b-max", iset.Instr{Op: iset.B, Simm: 1022}, true},
		{"b-over", iset.Instr{Op: iset.B, Simm: 1024}, false},
		{"beqz-min", iset.Instr{Op: iset.BEQZ, Simm: -32}, true},
		{"beqz-max", iset.Instr{Op: iset.BEQZ, Simm: 30}, true},
		{"beqz-over", iset.Instr{Op: iset.BEQZ, Simm: 32}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Compressible(tc.in); got != tc.want {
				t.Fatalf("Compressible(%+v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

// S1 from the testable-properties scenarios: addu r3, r0, r5 canonicalizes
// to MOV rd=3, rt=5, which short-encodes as opcode C_MOV=0.
func TestScenarioIdentityMov(t *testing.T) {
	in := iset.Instr{Op: iset.MOV, Rd: 3, Rt: 5, Compressed: true}
	got, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode(MOV r3,r5): %v", err)
	}
	want := []byte{0x80, 0x65}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode(MOV r3,r5) = % x, want % x", got, want)
	}

	decoded, n, err := Decode(got)
	if err != nil || n != 2 {
		t.Fatalf("Decode(%x) = (_, %d, %v)", got, n, err)
	}
	if decoded.Op != iset.MOV || decoded.Rd != 3 || decoded.Rt != 5 {
		t.Fatalf("Decode(%x) = %+v, want MOV rd=3 rt=5", got, decoded)
	}
}

// S2: sll r0,r0,0 canonicalizes to NOP, encoded as opcode C_MOV with a
// zero operand (0x80 0x00).
func TestScenarioNop(t *testing.T) {
	got, err := Encode(iset.Instr{Op: iset.NOP, Compressed: true})
	if err != nil {
		t.Fatalf("Encode(NOP): %v", err)
	}
	want := []byte{0x80, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode(NOP) = % x, want % x", got, want)
	}
}

// S5: lw r8, 12(r29) is stack-relative and short-encodable via C_LWS.
func TestScenarioStackLoad(t *testing.T) {
	in := iset.Instr{Op: iset.LW, Rt: 8, Rs: 29, Simm: 12}
	if !Compressible(in) {
		t.Fatal("stack-relative lw r8,12(r29) should be compressible")
	}
	in.Compressed = true
	encoded, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode(lw stack): %v", err)
	}
	decoded, n, err := Decode(encoded)
	if err != nil || n != 2 {
		t.Fatalf("Decode stack lw: n=%d err=%v", n, err)
	}
	if decoded.Op != iset.LW || decoded.Rt != 8 || decoded.Rs != 29 || decoded.Simm != 12 {
		t.Fatalf("Decode(Encode(lw stack)) = %+v, want LW rt=8 rs=29 simm=12", decoded)
	}
}

func TestShortRoundTrip(t *testing.T) {
	tests := []iset.Instr{
		{Op: iset.MOV, Rd: 3, Rt: 5},
		{Op: iset.CLEAR, Rd: 7},
		{Op: iset.ADDU, Rd: 4, Rs: 4, Rt: 6},
		{Op: iset.SUBU, Rd: 4, Rs: 4, Rt: 6},
		{Op: iset.SLL, Rd: 2, Rt: 2, Shamt: 5},
		{Op: iset.LSI, Rt: 9, Simm: -5},
		{Op: iset.B, Simm: 100},
		{Op: iset.BEQZ, Rs: 4, Simm: -20},
		{Op: iset.JR, Rs: 31},
	}
	for _, in := range tests {
		in.Compressed = true
		encoded, err := Encode(in)
		if err != nil {
			t.Fatalf("Encode(%+v): %v", in, err)
		}
		if len(encoded) != 2 {
			t.Fatalf("Encode(%+v) produced %d bytes, want 2", in, len(encoded))
		}
		decoded, n, err := Decode(encoded)
		if err != nil || n != 2 {
			t.Fatalf("Decode(%x): n=%d err=%v", encoded, n, err)
		}
		if decoded != in {
			t.Fatalf("round trip %+v -> %+v", in, decoded)
		}
	}
}

func TestLongRoundTrip(t *testing.T) {
	tests := []iset.Instr{
		{Op: iset.ADDI, Rs: 1, Rt: 2, Simm: 100},
		{Op: iset.LW, Rs: 8, Rt: 9, Simm: 200},
		{Op: iset.SW, Rs: 8, Rt: 9, Simm: -40},
		{Op: iset.BEQ, Rs: 1, Rt: 2, Simm: 40},
		{Op: iset.J, Addr: 0x1000},
	}
	for _, in := range tests {
		in.Compressed = false
		encoded, err := Encode(in)
		if err != nil {
			t.Fatalf("Encode(%+v): %v", in, err)
		}
		if len(encoded) != 4 {
			t.Fatalf("Encode(%+v) produced %d bytes, want 4", in, len(encoded))
		}
		decoded, n, err := Decode(encoded)
		if err != nil || n != 4 {
			t.Fatalf("Decode(%x): n=%d err=%v", encoded, n, err)
		}
		if decoded.Op != in.Op || decoded.Rs != in.Rs || decoded.Rt != in.Rt ||
			decoded.Simm != in.Simm || decoded.Addr != in.Addr {
			t.Fatalf("long round trip %+v -> %+v", in, decoded)
		}
	}
}

func TestEncodeShortRejectsUncompressible(t *testing.T) {
	in := iset.Instr{Op: iset.ADDU, Rd: 1, Rs: 2, Rt: 3, Compressed: true}
	if _, err := Encode(in); err == nil {
		t.Fatal("Encode should reject a short-flagged instruction CP does not admit")
	}
}
