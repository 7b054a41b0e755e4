// serialrunner is the headless test harness: it executes a bounded number
// of instructions and compares the cartridge's serial output against an
// expectation. Exit code 0 on match, 1 with a diff otherwise. blargg's CPU
// test ROMs report through the serial port, which makes this the cheapest
// end-to-end check of the interpreter.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/ahertlein/gbemu/internal/emu"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] <rom.gb> <instructions> <expected-serial>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	trace := flag.Bool("trace", false, "write per-instruction trace to stderr")
	stream := flag.Bool("stream", false, "echo serial bytes to stdout while running")
	writeLog := flag.Int("writelog", 0, "on mismatch, dump the last N memory writes (records a per-step diff; slow)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 3 {
		usage()
		os.Exit(1)
	}
	romPath := flag.Arg(0)
	count, err := strconv.ParseUint(flag.Arg(1), 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad instruction count %q: %v\n", flag.Arg(1), err)
		os.Exit(1)
	}
	expected := flag.Arg(2)

	rom, err := os.ReadFile(romPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read ROM %s: %v\n", romPath, err)
		os.Exit(1)
	}

	m := emu.New(emu.Config{Trace: *trace})
	if err := m.LoadCartridge(rom); err != nil {
		fmt.Fprintf(os.Stderr, "load cartridge: %v\n", err)
		os.Exit(1)
	}
	if *trace {
		m.SetTraceWriter(os.Stderr)
	}
	if *stream {
		m.SetSerialWriter(os.Stdout)
	}
	if *writeLog > 0 {
		m.EnableHistory()
	}

	m.RunInstructions(count)

	got := m.SerialOutput()
	if got == expected {
		os.Exit(0)
	}

	fmt.Printf("serial output mismatch after %d instructions\n", count)
	fmt.Printf("--- expected (%d bytes)\n%s\n", len(expected), expected)
	fmt.Printf("--- got (%d bytes)\n%s\n", len(got), got)
	if i := firstDiff(expected, got); i >= 0 {
		fmt.Printf("first difference at byte %d\n", i)
	}
	if *writeLog > 0 {
		diffs := m.History().LastDiffs(*writeLog)
		fmt.Printf("--- last %d memory writes\n", len(diffs))
		for _, d := range diffs {
			fmt.Printf("%04x: %02x -> %02x\n", d.Address, d.Orig, d.New)
		}
	}
	os.Exit(1)
}

func firstDiff(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}
