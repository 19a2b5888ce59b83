package canon

import (
	"testing"

	"github.com/mipsc/toolchain/internal/iset"
)

func TestToPseudoIdentityMov(t *testing.T) {
	in := iset.Instr{Op: iset.ADDU, Rd: 3, Rs: 0, Rt: 5}
	got := ToPseudo(in)
	want := iset.Instr{Op: iset.MOV, Rd: 3, Rt: 5}
	if got != want {
		t.Fatalf("ToPseudo(addu r3,r0,r5) = %+v, want %+v", got, want)
	}
}

func TestToPseudoNop(t *testing.T) {
	in := iset.Instr{Op: iset.SLL}
	got := ToPseudo(in)
	if got.Op != iset.NOP {
		t.Fatalf("ToPseudo(sll r0,r0,0).Op = %s, want nop", got.Op)
	}
}

func TestShiftVBothZeroYieldsMov(t *testing.T) {
	// rs == 0 && rt == 0: the rt==0 (MOV) check runs unconditionally
	// after rs==0 (CLEAR), matching the source toolchain quirk.
	in := iset.Instr{Op: iset.SLLV, Rd: 4, Rs: 0, Rt: 0}
	got := ToPseudo(in)
	if got.Op != iset.MOV {
		t.Fatalf("ToPseudo(sllv rd,r0,r0).Op = %s, want mov", got.Op)
	}
}

func TestToPseudoBranches(t *testing.T) {
	tests := []struct {
		name string
		in   iset.Instr
		want iset.Op
	}{
		{"beqz", iset.Instr{Op: iset.BEQ, Rs: 0, Rt: 4, Simm: 8}, iset.BEQZ},
		{"beqz-swap", iset.Instr{Op: iset.BEQ, Rs: 4, Rt: 0, Simm: 8}, iset.BEQZ},
		{"beq-always", iset.Instr{Op: iset.BEQ, Rs: 3, Rt: 3, Simm: 8}, iset.B},
		{"bnez", iset.Instr{Op: iset.BNE, Rs: 0, Rt: 4, Simm: 8}, iset.BNEZ},
		{"bgez-to-b", iset.Instr{Op: iset.BGEZ, Rs: 0, Simm: 8}, iset.B},
		{"blez-to-b", iset.Instr{Op: iset.BLEZ, Rs: 0, Simm: 8}, iset.B},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ToPseudo(tc.in)
			if got.Op != tc.want {
				t.Fatalf("ToPseudo(%+v).Op = %s, want %s", tc.in, got.Op, tc.want)
			}
		})
	}
}

func TestToPseudoIsIdempotent(t *testing.T) {
	inputs := []iset.Instr{
		{Op: iset.ADDU, Rd: 3, Rs: 0, Rt: 5},
		{Op: iset.SLL, Rd: 0},
		{Op: iset.SRL, Rd: 2, Rt: 9, Shamt: 31},
		{Op: iset.JALR, Rd: 0, Rs: 7},
		{Op: iset.SLTIU, Rd: 1, Rs: 2, Imm: 1},
		{Op: iset.ADDIU, Rt: 4, Rs: 0, Simm: 5},
	}
	for _, in := range inputs {
		once := ToPseudo(in)
		twice := ToPseudo(once)
		if once != twice {
			t.Fatalf("ToPseudo not idempotent for %+v: once=%+v twice=%+v", in, once, twice)
		}
	}
}

func TestToNativeInverse(t *testing.T) {
	tests := []struct {
		name string
		in   iset.Instr
		want iset.Op
	}{
		{"nop", iset.Instr{Op: iset.NOP}, iset.ADDU},
		{"mov", iset.Instr{Op: iset.MOV, Rd: 1, Rt: 2}, iset.ADDU},
		{"clear", iset.Instr{Op: iset.CLEAR, Rd: 1}, iset.ADDU},
		{"not", iset.Instr{Op: iset.NOT, Rd: 1, Rt: 2}, iset.NOR},
		{"neg", iset.Instr{Op: iset.NEG, Rd: 1, Rt: 2}, iset.SUBU},
		{"b", iset.Instr{Op: iset.B, Simm: 12}, iset.BGEZ},
		{"bal", iset.Instr{Op: iset.BAL, Simm: 12}, iset.BGEZAL},
		{"beqz", iset.Instr{Op: iset.BEQZ, Rs: 4, Simm: 8}, iset.BEQ},
		{"bnez", iset.Instr{Op: iset.BNEZ, Rs: 4, Simm: 8}, iset.BNE},
		{"seqz", iset.Instr{Op: iset.SEQZ, Rd: 1, Rs: 2}, iset.SLTIU},
		{"snez", iset.Instr{Op: iset.SNEZ, Rd: 1, Rt: 2}, iset.SLTU},
		{"sltz", iset.Instr{Op: iset.SLTZ, Rd: 1, Rs: 2}, iset.SLT},
		{"lsi", iset.Instr{Op: iset.LSI, Rt: 4, Simm: 5}, iset.ADDIU},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ToNative(tc.in)
			if got.Op != tc.want {
				t.Fatalf("ToNative(%s).Op = %s, want %s", tc.name, got.Op, tc.want)
			}
			if !got.Op.IsNative() {
				t.Fatalf("ToNative(%s) produced non-native op %s", tc.name, got.Op)
			}
		})
	}
}

func TestToNativePassesThroughNative(t *testing.T) {
	in := iset.Instr{Op: iset.ADDU, Rd: 1, Rs: 2, Rt: 3}
	got := ToNative(in)
	if got != in {
		t.Fatalf("ToNative(native) = %+v, want unchanged %+v", got, in)
	}
}
