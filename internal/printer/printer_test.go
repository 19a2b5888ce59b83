package printer

import (
	"testing"

	"github.com/mipsc/toolchain/internal/iset"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		in   iset.Instr
		want string
	}{
		{iset.Instr{Op: iset.SLL, Rd: 2, Rt: 3, Shamt: 4}, "sll r2, r3, 4"},
		{iset.Instr{Op: iset.SLLV, Rd: 2, Rt: 3, Rs: 4}, "sllv r2, r3, r4"},
		{iset.Instr{Op: iset.ADDU, Rd: 1, Rs: 2, Rt: 3}, "addu r1, r2, r3"},
		{iset.Instr{Op: iset.ADDIU, Rt: 1, Rs: 2, Simm: -5}, "addiu r1, r2, -5"},
		{iset.Instr{Op: iset.ANDI, Rt: 1, Rs: 2, Imm: 7}, "andi r1, r2, 7"},
		{iset.Instr{Op: iset.LUI, Rt: 4, Imm: 0x10}, "lui r4, 0x10"},
		{iset.Instr{Op: iset.LW, Rt: 8, Rs: 29, Simm: 12}, "lw r8, 12(r29)"},
		{iset.Instr{Op: iset.BEQ, Rs: 1, Rt: 2, Simm: 40}, "beq r2, r1, 40"},
		{iset.Instr{Op: iset.J, Addr: 0x1000}, "j 0x1000"},
		{iset.Instr{Op: iset.JR, Rs: 31}, "jr r31"},
		{iset.Instr{Op: iset.JALR, Rd: 31, Rs: 4}, "jalr r31, r4"},
		{iset.Instr{Op: iset.NOP}, "nop"},
		{iset.Instr{Op: iset.MOV, Rd: 3, Rt: 5}, "mov r3, r5"},
		{iset.Instr{Op: iset.CLEAR, Rd: 7}, "clear r7"},
		{iset.Instr{Op: iset.B, Simm: -8}, "b -8"},
		{iset.Instr{Op: iset.BEQZ, Rs: 4, Simm: -8}, "beqz r4, -8"},
		{iset.Instr{Op: iset.LSI, Rt: 9, Simm: -5}, "lsi r9, -5"},
		{iset.Instr{Op: iset.SEQZ, Rd: 2, Rs: 3}, "seqz r2, r3"},
		{iset.Instr{Op: iset.SNEZ, Rd: 2, Rt: 3}, "snez r2, r3"},
		{iset.Instr{Op: iset.SLTZ, Rd: 2, Rs: 3}, "sltz r2, r3"},
	}
	for _, tc := range tests {
		if got := Format(tc.in); got != tc.want {
			t.Errorf("Format(%+v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
