/*
 * mipsc - Analyzer entry point
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

// Command mipsc-analyze decodes a program and prints frequency,
// compression-ratio and (optionally) histogram reports over it.
package main

import (
	"fmt"
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"

	"github.com/mipsc/toolchain/internal/canon"
	"github.com/mipsc/toolchain/internal/compressed"
	"github.com/mipsc/toolchain/internal/histogram"
	"github.com/mipsc/toolchain/internal/iset"
	"github.com/mipsc/toolchain/internal/native"
	logger "github.com/mipsc/toolchain/util/logger"
)

func main() {
	optCompressed := getopt.BoolLong("compressed", 'c', "compressed instruction format")
	optPseudo := getopt.BoolLong("pseudo", 'p', "count pseudo-canonicalized rows too")
	optBranch := getopt.BoolLong("branch", 'b', "branch-offset histogram")
	optStack := getopt.BoolLong("stack", 's', "stack-offset histogram")
	optImm := getopt.BoolLong("imm", 'i', "immediate-value histogram")
	optNop := getopt.BoolLong("nop", 'n', "delay-slot-NOP histogram")
	optReg := getopt.BoolLong("registers", 'r', "register-usage histogram")
	optHelp := getopt.BoolLong("help", 'h', "help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	slog.SetDefault(slog.New(logger.NewHandler(nil, &slog.HandlerOptions{Level: level}, new(bool))))

	args := getopt.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "input file required")
		getopt.Usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		slog.Error("couldn't open file", "file", args[0], "error", err)
		os.Exit(1)
	}

	freq := histogram.NewFreqTable()
	branches := histogram.NewBranchHistogram()
	stack := histogram.NewStackHistogram()
	imm := histogram.NewImmHistogram()
	regs := histogram.NewRegisterHistogram()
	delay := histogram.NewDelaySlotHistogram()

	addr := uint32(0)
	for len(data) > 0 {
		var in iset.Instr
		var size int

		if *optCompressed {
			in, size, err = compressed.Decode(data)
			if err != nil {
				slog.Error("truncated instruction", "addr", addr)
				os.Exit(1)
			}
		} else {
			if len(data) < 4 {
				slog.Error("truncated instruction", "addr", addr)
				os.Exit(1)
			}
			word := uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
			in, size = native.Decode(word), 4
		}

		if in.Op == iset.INVALID {
			slog.Warn("invalid instruction", "addr", addr)
			data = data[size:]
			addr += uint32(size)
			continue
		}

		stat := in
		if *optPseudo {
			stat = canon.ToPseudo(in)
		}

		freq.Record(stat.Op, compressed.Compressible(stat))
		branches.Observe(stat)
		stack.Observe(stat)
		regs.Observe(stat)
		delay.Observe(stat)
		if stat.Op.ContainsImm() || stat.Op.ContainsSimm() {
			imm.Observe(stat)
		}

		data = data[size:]
		addr += uint32(size)
	}

	freq.Print(os.Stdout, *optPseudo)
	histogram.PrintSizeSummary(os.Stdout, freq)

	if *optBranch {
		fmt.Println("\nBranch offset histogram:")
		branches.Print(os.Stdout)
	}
	if *optStack {
		fmt.Println("\nStack offset histogram:")
		stack.Print(os.Stdout)
	}
	if *optImm {
		fmt.Println("\nImmediate value histogram:")
		imm.Print(os.Stdout)
	}
	if *optReg {
		fmt.Println("\nRegister usage histogram:")
		regs.Print(os.Stdout)
	}
	if *optNop {
		fmt.Println("\nDelay-slot NOP histogram:")
		delay.Print(os.Stdout)
	}
}
