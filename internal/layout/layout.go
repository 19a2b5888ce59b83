/*
 * mipsc - Layout solver
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

// Package layout is the RL component: the converter's core. It
// assigns new byte addresses to a PC-canonicalized program, retargets
// branches and jumps, widens instructions that no longer fit a short
// encoding, and iterates to a fixed point.
package layout

import (
	"errors"
	"fmt"

	"github.com/mipsc/toolchain/internal/compressed"
	"github.com/mipsc/toolchain/internal/iset"
)

// ErrBadTarget is a LayoutError: a branch or jump whose target does
// not land on any instruction boundary in the program.
var ErrBadTarget = errors.New("layout: branch or jump target is not an instruction boundary")

// Entry is one instruction as RL sees it: the decoded, PC-canonicalized
// value plus its byte offset in the original (pre-conversion) stream.
type Entry struct {
	Instr      iset.Instr
	OrigOffset uint32
}

// Result is RL's output for one instruction: its new byte address and
// final compression decision. Result[i].Instr carries the updated
// Simm/Addr/Compressed fields ready for CC encoding.
type Result struct {
	Instr   iset.Instr
	NewAddr uint32
}

const (
	rangeBMin     = -1024
	rangeBMax     = 1022
	rangeBeqzMin  = -32
	rangeBeqzMax  = 30
)

// Solve runs the fixed-point layout algorithm over entries, in program
// order, and returns the converted program with final addresses,
// branch/jump targets and compression decisions.
func Solve(entries []Entry) ([]Result, error) {
	n := len(entries)
	if n == 0 {
		return nil, nil
	}

	offsetIndex := make(map[uint32]int, n)
	for i, e := range entries {
		offsetIndex[e.OrigOffset] = i
	}

	instrs := make([]iset.Instr, n)
	targetIdx := make([]int, n)
	comp := make([]bool, n)
	for i, e := range entries {
		instrs[i] = e.Instr
		comp[i] = compressed.Compressible(e.Instr)

		targetIdx[i] = -1
		switch {
		case e.Instr.Op.IsJump():
			idx, ok := offsetIndex[e.Instr.Addr]
			if !ok {
				return nil, fmt.Errorf("%w: instruction %d jumps to %#x", ErrBadTarget, i, e.Instr.Addr)
			}
			targetIdx[i] = idx
		case e.Instr.Op.IsBranch():
			if i+1 >= n {
				return nil, fmt.Errorf("%w: instruction %d is a trailing branch", ErrBadTarget, i)
			}
			target := entries[i+1].OrigOffset + uint32(int32(e.Instr.Simm))
			idx, ok := offsetIndex[target]
			if !ok {
				return nil, fmt.Errorf("%w: instruction %d branches to %#x", ErrBadTarget, i, target)
			}
			targetIdx[i] = idx
		}
	}

	newAddr := seedAddresses(instrs, comp)

	downgradeJumps(instrs, comp, targetIdx, newAddr)
	newAddr = seedAddresses(instrs, comp)

	for pass := 0; pass <= n+1; pass++ {
		newAddr = seedAddresses(instrs, comp)
		dirty := false

		for i := range instrs {
			if targetIdx[i] < 0 {
				continue
			}
			in := &instrs[i]

			if in.Op.IsJump() {
				in.Addr = newAddr[targetIdx[i]]
				continue
			}

			nextAddr := newAddr[i+1]
			simm := int32(newAddr[targetIdx[i]]) - int32(nextAddr)
			in.Simm = simm

			switch in.Op {
			case iset.B, iset.BAL:
				want := simm >= rangeBMin && simm <= rangeBMax
				if want != comp[i] {
					comp[i] = want
					dirty = true
				}
			case iset.BEQZ, iset.BNEZ:
				want := simm >= rangeBeqzMin && simm <= rangeBeqzMax
				if want != comp[i] {
					comp[i] = want
					dirty = true
				}
			}
		}

		if !dirty {
			break
		}
	}

	results := make([]Result, n)
	for i, in := range instrs {
		in.Compressed = comp[i]
		results[i] = Result{Instr: in, NewAddr: newAddr[i]}
	}
	return results, nil
}

// seedAddresses walks the program once and assigns sequential byte
// addresses from the current compression choices. The returned slice
// has len(instrs)+1 entries: addr[i] is instruction i's address,
// addr[len(instrs)] is the address one past the end of the program.
func seedAddresses(instrs []iset.Instr, comp []bool) []uint32 {
	addr := make([]uint32, len(instrs)+1)
	for i := range instrs {
		size := uint32(4)
		if comp[i] {
			size = 2
		}
		addr[i+1] = addr[i] + size
	}
	return addr
}

// downgradeJumps is the one-shot pre-pass: a J/JAL whose target, under
// the addresses seeded from CP's initial choices, is in branch range
// is rewritten to B/BAL before the fixed-point loop starts.
func downgradeJumps(instrs []iset.Instr, comp []bool, targetIdx []int, newAddr []uint32) {
	for i := range instrs {
		in := &instrs[i]
		if !in.Op.IsJump() || targetIdx[i] < 0 {
			continue
		}
		nextAddr := newAddr[i] + 4
		simm := int32(newAddr[targetIdx[i]]) - int32(nextAddr)
		if simm < rangeBMin || simm > rangeBMax {
			continue
		}
		if in.Op == iset.J {
			in.Op = iset.B
		} else {
			in.Op = iset.BAL
		}
		in.Simm = simm
		in.Addr = 0
		comp[i] = true
	}
}
