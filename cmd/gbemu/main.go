package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ahertlein/gbemu/internal/cart"
	"github.com/ahertlein/gbemu/internal/emu"
	"github.com/ahertlein/gbemu/internal/ui"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] <rom.gb>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	scale := flag.Int("scale", 3, "window scale")
	palette := flag.Int("palette", 0, "host palette index")
	trace := flag.Bool("trace", false, "write per-instruction trace to stderr")
	headless := flag.Bool("headless", false, "run without a window")
	frames := flag.Int("frames", 300, "frames to run in headless mode")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}
	romPath := flag.Arg(0)

	rom, err := os.ReadFile(romPath)
	if err != nil {
		log.Fatalf("read ROM %s: %v", romPath, err)
	}

	if h, err := cart.ParseHeader(rom); err == nil {
		status := "ok"
		if !cart.ChecksumOK(rom) {
			status = fmt.Sprintf("BAD (computed %02x, stored %02x)", cart.ComputeChecksum(rom), h.HeaderChecksum)
		}
		log.Printf("ROM: %q type=0x%02x banks=%d ram=%dB checksum=%s",
			h.Title, h.CartType, h.ROMBanks, h.RAMSizeBytes, status)
	}

	m := emu.New(emu.Config{Trace: *trace, LimitFPS: !*headless, Palette: *palette})
	if err := m.LoadCartridge(rom); err != nil {
		log.Fatalf("load cartridge: %v", err)
	}
	if *trace {
		m.SetTraceWriter(os.Stderr)
	}

	if *headless {
		for i := 0; i < *frames; i++ {
			m.StepFrame()
		}
		log.Printf("headless: frames=%d instructions=%d cycles=%d", *frames, m.Instructions(), m.Cycles())
		return
	}

	app := ui.NewApp(ui.Config{Title: "gbemu", Scale: *scale, Palette: *palette}, m)
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
