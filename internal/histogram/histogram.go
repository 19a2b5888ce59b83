/*
 * mipsc - Analyzer histograms
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

// Package histogram is the IH component: the keyed counters behind the
// analyzer's frequency table and its five optional histograms
// (branch-offset, stack-offset, immediate-value, register-usage,
// delay-slot NOP).
package histogram

import (
	"fmt"
	"io"
	"sort"

	"github.com/mipsc/toolchain/internal/iset"
)

// FreqTable counts how often each op appears, and how often it appeared
// in an instruction CP would admit to the short encoding.
type FreqTable struct {
	total int
	freq  map[iset.Op]int
	comp  map[iset.Op]int
}

// NewFreqTable returns an empty frequency table.
func NewFreqTable() *FreqTable {
	return &FreqTable{freq: make(map[iset.Op]int), comp: make(map[iset.Op]int)}
}

// Record counts one decoded instruction. compressible should come from
// compressed.Compressible on the same (already pseudo-canonicalized, if
// applicable) instruction.
func (f *FreqTable) Record(op iset.Op, compressible bool) {
	f.total++
	f.freq[op]++
	if compressible {
		f.comp[op]++
	}
}

// nativeOps and pseudoOps list the rows of the report in the same order
// as the original analyzer's PRINT macro sequence.
var nativeOps = []iset.Op{
	iset.SLL, iset.SRL, iset.SRA, iset.SLLV, iset.SRLV, iset.SRAV,
	iset.ADD, iset.ADDU, iset.SUB, iset.SUBU, iset.AND, iset.OR, iset.XOR, iset.NOR,
	iset.ADDI, iset.ADDIU, iset.ANDI, iset.ORI, iset.XORI,
	iset.LUI, iset.LB, iset.LH, iset.LW, iset.LBU, iset.LHU, iset.SB, iset.SH, iset.SW,
	iset.SLT, iset.SLTU, iset.SLTI, iset.SLTIU,
	iset.BLTZ, iset.BGEZ, iset.BLTZAL, iset.BGEZAL, iset.BEQ, iset.BNE, iset.BLEZ, iset.BGTZ,
	iset.J, iset.JAL, iset.JR, iset.JALR,
	iset.MFC0, iset.MTC0,
}

var pseudoOps = []iset.Op{
	iset.NOP, iset.MOV, iset.CLEAR, iset.NOT, iset.NEG,
	iset.B, iset.BAL, iset.BEQZ, iset.BNEZ, iset.SEQZ, iset.SNEZ, iset.SLTZ, iset.LSI,
}

// Print renders the frequency/compression table. When withPseudo is
// true the pseudo-op rows are appended after the native rows, matching
// the analyzer's -p behavior.
func (f *FreqTable) Print(w io.Writer, withPseudo bool) {
	fmt.Fprintln(w, "instr | freq | freq/total | comp | comp/freq | comp/total")
	rows := nativeOps
	if withPseudo {
		rows = append(append([]iset.Op{}, nativeOps...), pseudoOps...)
	}
	for _, op := range rows {
		freq := f.freq[op]
		comp := f.comp[op]
		freqPct := 0.0
		compFreqPct := 0.0
		compTotalPct := 0.0
		if f.total > 0 {
			freqPct = 100.0 * float64(freq) / float64(f.total)
			compTotalPct = 100.0 * float64(comp) / float64(f.total)
		}
		if freq > 0 {
			compFreqPct = 100.0 * float64(comp) / float64(freq)
		}
		fmt.Fprintf(w, "%8s | %4d | %6.2f%% | %4d | %6.2f%% | %6.2f%%\n",
			op, freq, freqPct, comp, compFreqPct, compTotalPct)
	}
	fmt.Fprintf(w, "Total instructions: %d\n", f.total)
}

// Total reports the number of recorded instructions.
func (f *FreqTable) Total() int { return f.total }

// CompressibleTotal reports how many recorded instructions were
// compressible, across every op.
func (f *FreqTable) CompressibleTotal() int {
	n := 0
	for _, c := range f.comp {
		n += c
	}
	return n
}

// PrintSizeSummary prints the estimated-size report the analyzer shows
// after the frequency table.
func PrintSizeSummary(w io.Writer, f *FreqTable) {
	total := f.Total()
	numComp := f.CompressibleTotal()
	numUncomp := total - numComp
	uncompSize := uint32(total) * 4
	compSize := uint32(numComp)*2 + uint32(numUncomp)*4
	fmt.Fprintf(w, "Num small instructions: %d (%5.2f%%)\n", numComp, pct(numComp, total))
	fmt.Fprintf(w, "Num big instructions: %d (%5.2f%%)\n", numUncomp, pct(numUncomp, total))
	fmt.Fprintf(w, "Uncompressed size %d bytes\n", uncompSize)
	fmt.Fprintf(w, "Estimated comp size: %d bytes\n", compSize)
	fmt.Fprintf(w, "Estimated comp ratio: %5.2f%%\n", 100.0*float64(compSize)/float64(uncompSize))
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100.0 * float64(n) / float64(total)
}

// BranchHistogram counts how often each distinct branch displacement
// occurs, across every branch-family op (including the unconditional
// B/BAL and the zero-compare BEQZ/BNEZ pseudo forms).
type BranchHistogram struct {
	counts map[int32]uint32
}

// NewBranchHistogram returns an empty branch-displacement histogram.
func NewBranchHistogram() *BranchHistogram {
	return &BranchHistogram{counts: make(map[int32]uint32)}
}

// Observe records one instruction's branch displacement, if it has one.
func (b *BranchHistogram) Observe(in iset.Instr) {
	if !in.Op.IsBranch() {
		return
	}
	b.counts[in.Simm]++
}

// Print renders the histogram sorted by ascending displacement
// magnitude, matching imm_list_sort_signed.
func (b *BranchHistogram) Print(w io.Writer) {
	simms := make([]int32, 0, len(b.counts))
	for s := range b.counts {
		simms = append(simms, s)
	}
	sort.Slice(simms, func(i, j int) bool {
		ai, aj := abs32(simms[i]), abs32(simms[j])
		if ai != aj {
			return ai < aj
		}
		return simms[i] < simms[j]
	})
	fmt.Fprintln(w, "All branch distances:")
	for _, s := range simms {
		fmt.Fprintf(w, "%3d x %5d\n", b.counts[s], s)
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// StackEntry is one distinct stack-relative offset's per-width access
// counts, mirroring struct mem_stat.
type StackEntry struct {
	Offset                     int32
	Word, Half, HalfU, Byte, ByteU uint32
}

// StackHistogram counts stack-relative (r29-based) load/store accesses
// keyed by byte offset, broken down by access width and signedness.
type StackHistogram struct {
	entries map[int32]*StackEntry
}

// NewStackHistogram returns an empty stack-offset histogram.
func NewStackHistogram() *StackHistogram {
	return &StackHistogram{entries: make(map[int32]*StackEntry)}
}

// stackPointer is the register index the original analyzer treats as
// the stack pointer for this purpose.
const stackPointer = 29

// Observe records one instruction's stack-relative memory access, if
// it is a load/store through r29.
func (s *StackHistogram) Observe(in iset.Instr) {
	switch in.Op {
	case iset.SW, iset.LW, iset.SH, iset.LH, iset.LHU, iset.SB, iset.LB, iset.LBU:
	default:
		return
	}
	if in.Rs != stackPointer {
		return
	}
	e, ok := s.entries[in.Simm]
	if !ok {
		e = &StackEntry{Offset: in.Simm}
		s.entries[in.Simm] = e
	}
	switch in.Op {
	case iset.SW, iset.LW:
		e.Word++
	case iset.SH, iset.LH:
		e.Half++
	case iset.LHU:
		e.HalfU++
	case iset.SB, iset.LB:
		e.Byte++
	case iset.LBU:
		e.ByteU++
	}
}

// Print renders the histogram sorted by ascending offset magnitude,
// matching cmp_mem_stat.
func (s *StackHistogram) Print(w io.Writer) {
	entries := make([]*StackEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		ai, aj := abs32(entries[i].Offset), abs32(entries[j].Offset)
		if ai != aj {
			return ai < aj
		}
		return entries[i].Offset < entries[j].Offset
	})
	fmt.Fprintln(w, "All stack mem_op offsets:")
	fmt.Fprintln(w, "offset   W   H  HU   B  BU")
	for _, e := range entries {
		fmt.Fprintf(w, "%5d: %3d %3d %3d %3d %3d\n", e.Offset, e.Word, e.Half, e.HalfU, e.Byte, e.ByteU)
	}
}

// ImmHistogram counts how often each distinct immediate operand value
// occurs across non-branch, immediate-carrying instructions (ADDI,
// ADDIU, ANDI, ORI, XORI, LUI, SLTI, SLTIU) — the generic counterpart
// to BranchHistogram's branch-displacement tracking, keyed the same
// way (sorted by magnitude via imm_list_sort_signed in the original).
type ImmHistogram struct {
	counts map[int32]uint32
}

// NewImmHistogram returns an empty immediate-value histogram.
func NewImmHistogram() *ImmHistogram {
	return &ImmHistogram{counts: make(map[int32]uint32)}
}

// Observe records one instruction's immediate operand, if it carries
// one and is not itself a branch (those belong to BranchHistogram).
func (h *ImmHistogram) Observe(in iset.Instr) {
	if in.Op.IsBranch() {
		return
	}
	switch {
	case in.Op.ContainsSimm():
		h.counts[in.Simm]++
	case in.Op.ContainsImm():
		h.counts[int32(in.Imm)]++
	}
}

// Print renders the histogram sorted by ascending value magnitude.
func (h *ImmHistogram) Print(w io.Writer) {
	vals := make([]int32, 0, len(h.counts))
	for v := range h.counts {
		vals = append(vals, v)
	}
	sort.Slice(vals, func(i, j int) bool {
		ai, aj := abs32(vals[i]), abs32(vals[j])
		if ai != aj {
			return ai < aj
		}
		return vals[i] < vals[j]
	})
	fmt.Fprintln(w, "All immediate values:")
	for _, v := range vals {
		fmt.Fprintf(w, "%3d x %5d\n", h.counts[v], v)
	}
}

// RegisterHistogram counts how often each of the 32 registers appears
// in an instruction's rs, rt and rd fields. LUI and LSI, whose only
// register is the destination held in Rt, are counted under rd.
type RegisterHistogram struct {
	asRs, asRt, asRd [32]uint32
}

// NewRegisterHistogram returns an empty register-usage histogram.
func NewRegisterHistogram() *RegisterHistogram {
	return &RegisterHistogram{}
}

// Observe records one instruction's register fields. A field is counted
// unless usesRs, usesRt or usesRd lists the op as not using it; ops not
// in those lists have the field counted even where its value (usually
// r0) is unused, as for CLEAR's rs and rt.
func (r *RegisterHistogram) Observe(in iset.Instr) {
	switch in.Op {
	case iset.J, iset.JAL, iset.LUI, iset.NOP, iset.LSI:
		if in.Op == iset.LUI || in.Op == iset.LSI {
			r.asRd[in.Rt]++
		}
		return
	}
	if usesRs(in.Op) {
		r.asRs[in.Rs]++
	}
	if usesRt(in.Op) {
		r.asRt[in.Rt]++
	}
	if usesRd(in.Op) {
		r.asRd[in.Rd]++
	}
}

func usesRs(op iset.Op) bool {
	switch op {
	case iset.LUI, iset.J, iset.JAL, iset.NOP:
		return false
	default:
		return true
	}
}

func usesRt(op iset.Op) bool {
	switch op {
	case iset.J, iset.JAL, iset.JR, iset.JALR, iset.NOP,
		iset.BLTZ, iset.BGEZ, iset.BLTZAL, iset.BGEZAL, iset.BLEZ, iset.BGTZ,
		iset.SEQZ, iset.SLTZ:
		return false
	default:
		return true
	}
}

func usesRd(op iset.Op) bool {
	switch op {
	case iset.SB, iset.SH, iset.SW, iset.BEQ, iset.BNE,
		iset.BLTZ, iset.BGEZ, iset.BLTZAL, iset.BGEZAL, iset.BLEZ, iset.BGTZ,
		iset.BEQZ, iset.BNEZ, iset.J, iset.JAL, iset.JR, iset.NOP,
		iset.B, iset.BAL, iset.ADDI, iset.ADDIU, iset.ANDI, iset.ORI, iset.XORI,
		iset.LB, iset.LH, iset.LW, iset.LBU, iset.LHU:
		return false
	default:
		return true
	}
}

// Print renders one row per register that was referenced at least once.
func (r *RegisterHistogram) Print(w io.Writer) {
	fmt.Fprintln(w, "reg |   rs |   rt |   rd")
	for i := 0; i < 32; i++ {
		if r.asRs[i] == 0 && r.asRt[i] == 0 && r.asRd[i] == 0 {
			continue
		}
		fmt.Fprintf(w, "r%-3d| %4d | %4d | %4d\n", i, r.asRs[i], r.asRt[i], r.asRd[i])
	}
}

// DelaySlotHistogram counts how many NOPs immediately follow a branch
// or jump in the decoded stream. The instruction set has no
// architectural delay slot; this is purely informational, sized for a
// compiler targeting a delay-slot variant of this ISA.
type DelaySlotHistogram struct {
	prevWasControlFlow bool
	controlFlowCount   int
	nopAfterCount      int
}

// NewDelaySlotHistogram returns an empty delay-slot histogram.
func NewDelaySlotHistogram() *DelaySlotHistogram {
	return &DelaySlotHistogram{}
}

// Observe records one decoded instruction in program order.
func (d *DelaySlotHistogram) Observe(in iset.Instr) {
	if d.prevWasControlFlow && in.Op == iset.NOP {
		d.nopAfterCount++
	}
	d.prevWasControlFlow = in.Op.IsBranch() || in.Op.IsJump() || in.Op == iset.JR || in.Op == iset.JALR
	if d.prevWasControlFlow {
		d.controlFlowCount++
	}
}

// Print renders the delay-slot NOP summary.
func (d *DelaySlotHistogram) Print(w io.Writer) {
	pct := 0.0
	if d.controlFlowCount > 0 {
		pct = 100.0 * float64(d.nopAfterCount) / float64(d.controlFlowCount)
	}
	fmt.Fprintf(w, "Branch/jump instructions: %d\n", d.controlFlowCount)
	fmt.Fprintf(w, "NOP immediately following: %d (%5.2f%%)\n", d.nopAfterCount, pct)
}
