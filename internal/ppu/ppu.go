// Package ppu implements the scanline-driven pixel pipeline: the STAT mode
// state machine, LY/LYC coincidence, and the background/window/sprite
// compositor that fills a 160x144 paletted display buffer.
package ppu

import "github.com/ahertlein/gbemu/internal/memory"

const (
	ScreenWidth  = 160
	ScreenHeight = 144

	// CyclesPerScanline and CyclesPerFrame are machine cycles.
	CyclesPerScanline = 456 / 4
	ScanlinesPerFrame = 154
	CyclesPerFrame    = CyclesPerScanline * ScanlinesPerFrame

	vblankStart = 144
)

const (
	addrLCDC = 0xFF40
	addrSTAT = 0xFF41
	addrSCY  = 0xFF42
	addrSCX  = 0xFF43
	addrLY   = 0xFF44
	addrLYC  = 0xFF45
	addrBGP  = 0xFF47
	addrOBP0 = 0xFF48
	addrOBP1 = 0xFF49
	addrWY   = 0xFF4A
	addrWX   = 0xFF4B
)

// BackgroundPixel carries a pixel both before and after palette mapping;
// the raw color index decides sprite priority in the mix step.
type BackgroundPixel struct {
	Render byte
	Raw    byte
}

// WindowPixel is a background pixel that only participates where the
// window covers the scanline.
type WindowPixel struct {
	Active bool
	Render byte
	Raw    byte
}

// SpritePixel additionally records whether the sprite wins over non-zero
// background pixels (OAM attribute bit 7 cleared).
type SpritePixel struct {
	Render byte
	Raw    byte
	OverBG bool
}

// PPU advances per machine cycle count fed by the emulator loop. It does
// not own memory; every access goes through the router passed to Update.
type PPU struct {
	scanlineCycles uint64
	frameCycles    uint64
	lcdEnabled     bool

	// Per-scanline layer buffers, mixed into display at end of line.
	bgLine     [ScreenWidth]BackgroundPixel
	winLine    [ScreenWidth]WindowPixel
	spriteLine [ScreenWidth]SpritePixel

	display [ScreenWidth * ScreenHeight]byte

	// One-shot latches for the work done once per scanline.
	spritesGathered bool
	tilesDrawn      bool
	hblankIssued    bool
	vblankIssued    bool
}

func New() *PPU { return &PPU{lcdEnabled: true} }

// State is the serializable PPU state for machine save-states.
type State struct {
	ScanlineCycles uint64
	FrameCycles    uint64
	LCDEnabled     bool
	Display        [ScreenWidth * ScreenHeight]byte
	SpritesGathered, TilesDrawn, HBlankIssued, VBlankIssued bool
}

func (p *PPU) State() State {
	return State{
		ScanlineCycles: p.scanlineCycles,
		FrameCycles:    p.frameCycles,
		LCDEnabled:     p.lcdEnabled,
		Display:        p.display,
		SpritesGathered: p.spritesGathered,
		TilesDrawn:      p.tilesDrawn,
		HBlankIssued:    p.hblankIssued,
		VBlankIssued:    p.vblankIssued,
	}
}

func (p *PPU) Restore(s State) {
	p.scanlineCycles = s.ScanlineCycles
	p.frameCycles = s.FrameCycles
	p.lcdEnabled = s.LCDEnabled
	p.display = s.Display
	p.spritesGathered = s.SpritesGathered
	p.tilesDrawn = s.TilesDrawn
	p.hblankIssued = s.HBlankIssued
	p.vblankIssued = s.VBlankIssued
}

// Display returns the paletted framebuffer, row-major, values 0..3.
func (p *PPU) Display() []byte { return p.display[:] }

// LCDEnabled reports the LCDC bit 7 state seen on the last Update.
func (p *PPU) LCDEnabled() bool { return p.lcdEnabled }

// Update advances the scanline state machine. Mode windows within a line
// are machine cycles 0..19 (OAM scan), 20..62 (drawing), 63..113 (HBlank).
func (p *PPU) Update(mem *memory.Memory, cycles int) {
	p.lcdEnabled = mem.Read(addrLCDC)&(1<<7) != 0

	p.frameCycles += uint64(cycles)
	if p.lcdEnabled {
		if p.frameCycles >= CyclesPerFrame {
			p.frameCycles -= CyclesPerFrame
		}
	} else {
		// LCD off: LY forced to zero, mode bits cleared, nothing rendered.
		p.scanlineCycles = 0
		mem.DirectWrite(addrLY, 0)
		mem.DirectWrite(addrSTAT, mem.DirectRead(addrSTAT)&^0x03)
		return
	}

	p.scanlineCycles += uint64(cycles)

	stat := mem.DirectRead(addrSTAT)
	ly := mem.DirectRead(addrLY)

	oldMode := stat & 0x03
	newMode := oldMode
	requestStat := false

	if ly >= vblankStart {
		newMode = 1
	} else {
		switch {
		case p.scanlineCycles < 20:
			newMode = 2
			requestStat = stat&(1<<5) != 0
			if !p.spritesGathered {
				p.gatherSprites(mem, ly)
				p.spritesGathered = true
			}
		case p.scanlineCycles < 63:
			newMode = 3
			if !p.tilesDrawn {
				p.drawBackground(mem, ly)
				p.drawWindow(mem, ly)
				p.tilesDrawn = true
			}
		default:
			newMode = 0
			if !p.hblankIssued {
				requestStat = stat&(1<<3) != 0
				p.hblankIssued = true
			}
		}
	}
	if newMode != oldMode && requestStat {
		mem.RequestInterrupt(1)
	}
	mem.DirectWrite(addrSTAT, stat&^0x03|newMode)

	if p.scanlineCycles >= CyclesPerScanline {
		p.scanlineCycles -= CyclesPerScanline
		p.spritesGathered, p.tilesDrawn, p.hblankIssued = false, false, false

		if ly < vblankStart {
			p.mixScanline(ly)
		}

		if ly+1 >= ScanlinesPerFrame {
			mem.DirectWrite(addrLY, 0)
			p.vblankIssued = false
		} else {
			mem.DirectWrite(addrLY, ly+1)
		}
		if mem.DirectRead(addrLY) == vblankStart && !p.vblankIssued {
			p.vblankIssued = true
			mem.RequestInterrupt(0)
			if mem.DirectRead(addrSTAT)&(1<<4) != 0 {
				mem.RequestInterrupt(1)
			}
		}
		p.checkLYC(mem)
	}
}

// checkLYC updates the coincidence flag on every LY change and raises the
// STAT interrupt on a transition to equal when enabled.
func (p *PPU) checkLYC(mem *memory.Memory) {
	stat := mem.DirectRead(addrSTAT)
	if mem.DirectRead(addrLY) == mem.DirectRead(addrLYC) {
		mem.DirectWrite(addrSTAT, stat|1<<2)
		if stat&(1<<6) != 0 {
			mem.RequestInterrupt(1)
		}
	} else {
		mem.DirectWrite(addrSTAT, stat&^(1<<2))
	}
}

// mixScanline composes the three layer buffers into the display row:
// background below, sprites per their priority bit, window on top.
func (p *PPU) mixScanline(ly byte) {
	row := int(ly) * ScreenWidth
	for x := 0; x < ScreenWidth; x++ {
		d := p.bgLine[x].Render
		sp := p.spriteLine[x]
		if sp.Raw != 0 && (sp.OverBG || p.bgLine[x].Raw == 0) {
			d = sp.Render
		}
		if p.winLine[x].Active {
			d = p.winLine[x].Render
		}
		p.display[row+x] = d
	}
}
