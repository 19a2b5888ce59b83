/*
 * mipsc - Simulator entry point
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

// Command mipsc-sim loads a program (and optional data image) into a
// simulated machine and runs it, optionally single-stepping through an
// interactive trace prompt.
package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	getopt "github.com/pborman/getopt/v2"
	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/mipsc/toolchain/internal/machine"
	logger "github.com/mipsc/toolchain/util/logger"
)

func main() {
	optIMem := getopt.StringLong("imem", 'i', "64", "instruction memory size, in KiB")
	optDMem := getopt.StringLong("dmem", 'd', "64", "data memory size, in KiB")
	optCycles := getopt.StringLong("cycles", 'n', "1000000", "maximum number of cycles to run")
	optCompressed := getopt.BoolLong("compressed", 'c', "compressed instruction format")
	optTrace := getopt.BoolLong("trace", 'x', "debug trace")
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
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(os.Stderr, "BIN-FILE required, DATA-FILE optional")
		getopt.Usage()
		os.Exit(1)
	}

	iKiB, err := strconv.Atoi(*optIMem)
	if err != nil || iKiB <= 0 {
		slog.Error("invalid instruction memory size", "value", *optIMem)
		os.Exit(1)
	}
	dKiB, err := strconv.Atoi(*optDMem)
	if err != nil || dKiB <= 0 {
		slog.Error("invalid data memory size", "value", *optDMem)
		os.Exit(1)
	}
	cycles, err := strconv.ParseUint(*optCycles, 10, 64)
	if err != nil {
		slog.Error("invalid cycle count", "value", *optCycles)
		os.Exit(1)
	}

	prog, err := os.ReadFile(args[0])
	if err != nil {
		slog.Error("couldn't open file", "file", args[0], "error", err)
		os.Exit(1)
	}

	m := machine.New(iKiB*1024, dKiB*1024, *optCompressed)
	m.LoadInstructions(prog)
	// The UART's de-escaping read path needs ReadByte; stdin itself
	// (an *os.File) doesn't implement io.ByteReader, so it is wrapped
	// here. The escape protocol is applied upstream of this process.
	m.In = bufio.NewReader(os.Stdin)
	m.Out = os.Stdout

	if len(args) == 2 {
		data, err := os.ReadFile(args[1])
		if err != nil {
			slog.Error("couldn't open file", "file", args[1], "error", err)
			os.Exit(1)
		}
		m.LoadData(data, 4)
	}

	if *optTrace && term.IsTerminal(int(os.Stdin.Fd())) {
		err = runInteractive(m, cycles)
	} else {
		if *optTrace {
			m.Trace = os.Stdout
		}
		_, err = m.Run(cycles)
	}

	if err != nil && !errors.Is(err, machine.ErrPCOutOfRange) {
		slog.Error("simulation stopped", "error", err)
		os.Exit(1)
	}
}

// runInteractive single-steps the machine through a liner prompt: Enter
// advances one instruction, "c" free-runs to completion, "q" stops
// early. Each step's trace line is printed before the prompt.
func runInteractive(m *machine.Machine, cycles uint64) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	var traceBuf bytes.Buffer
	m.Trace = &traceBuf

	for step := uint64(0); step < cycles; step++ {
		traceBuf.Reset()
		if err := m.Step(); err != nil {
			return err
		}
		fmt.Print(traceBuf.String())

		cmd, err := line.Prompt("step> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			return err
		}
		line.AppendHistory(cmd)

		switch cmd {
		case "q":
			return nil
		case "c":
			m.Trace = nil
			_, err := m.Run(cycles - step - 1)
			return err
		}
	}
	return nil
}
