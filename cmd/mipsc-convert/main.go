/*
 * mipsc - Converter entry point
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

// Command mipsc-convert rewrites a native 32-bit program into the
// compressed format: decode, canonicalize to pseudo form, solve for
// new addresses and branch widths, then let CC's long-form encoder
// canonicalize back to native ops wherever a result stays full-width.
package main

import (
	"fmt"
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"

	"github.com/mipsc/toolchain/internal/canon"
	"github.com/mipsc/toolchain/internal/compressed"
	"github.com/mipsc/toolchain/internal/iset"
	"github.com/mipsc/toolchain/internal/layout"
	"github.com/mipsc/toolchain/internal/native"
	logger "github.com/mipsc/toolchain/util/logger"
)

func main() {
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
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "IN-FILE and OUT-FILE required")
		getopt.Usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		slog.Error("couldn't open file", "file", args[0], "error", err)
		os.Exit(1)
	}
	if len(data)%4 != 0 {
		slog.Error("input file is not a whole number of native instructions", "file", args[0])
		os.Exit(1)
	}

	entries := make([]layout.Entry, 0, len(data)/4)
	for offset := 0; offset < len(data); offset += 4 {
		word := uint32(data[offset])<<24 | uint32(data[offset+1])<<16 |
			uint32(data[offset+2])<<8 | uint32(data[offset+3])
		in := native.Decode(word)
		if in.Op == iset.INVALID {
			slog.Error("invalid instruction, cannot convert", "addr", offset)
			os.Exit(1)
		}
		entries = append(entries, layout.Entry{
			Instr:      canon.ToPseudo(in),
			OrigOffset: uint32(offset),
		})
	}

	results, err := layout.Solve(entries)
	if err != nil {
		slog.Error("layout failed", "error", err)
		os.Exit(1)
	}

	out := make([]byte, 0, len(data))
	for _, r := range results {
		enc, err := compressed.Encode(r.Instr)
		if err != nil {
			slog.Error("encode failed", "error", err)
			os.Exit(1)
		}
		out = append(out, enc...)
	}

	if err := os.WriteFile(args[1], out, 0o644); err != nil {
		slog.Error("couldn't write file", "file", args[1], "error", err)
		os.Exit(1)
	}
}
