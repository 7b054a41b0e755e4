// Package ui is the ebiten front end: it presents the 160x144 paletted
// framebuffer, maps the keyboard onto the joypad byte, and paces the
// emulator at the display's 60 Hz tick.
package ui

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/ahertlein/gbemu/internal/emu"
	"github.com/ahertlein/gbemu/internal/memory"
	"github.com/ahertlein/gbemu/internal/ppu"
)

// Palettes maps the four display color indices to RGBA. Index 0 is the
// classic bgb green ramp.
var Palettes = [][4][4]byte{
	{ // bgb
		{0xE0, 0xF8, 0xD0, 0xFF},
		{0x88, 0xC0, 0x70, 0xFF},
		{0x34, 0x68, 0x56, 0xFF},
		{0x08, 0x18, 0x20, 0xFF},
	},
	{ // grand ivory
		{0xD9, 0xD6, 0xBE, 0xFF},
		{0xA5, 0xA3, 0x91, 0xFF},
		{0x66, 0x64, 0x59, 0xFF},
		{0x26, 0x25, 0x21, 0xFF},
	},
	{ // grayscale
		{0xFF, 0xFF, 0xFF, 0xFF},
		{0xA0, 0xA0, 0xA0, 0xFF},
		{0x50, 0x50, 0x50, 0xFF},
		{0x00, 0x00, 0x00, 0xFF},
	},
}

// App runs a Machine inside an ebiten window.
type App struct {
	cfg Config
	m   *emu.Machine

	tex *ebiten.Image
	rgb []byte
}

func NewApp(cfg Config, m *emu.Machine) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(ppu.ScreenWidth*cfg.Scale, ppu.ScreenHeight*cfg.Scale)
	return &App{
		cfg: cfg,
		m:   m,
		rgb: make([]byte, ppu.ScreenWidth*ppu.ScreenHeight*4),
	}
}

// Run blocks until the window closes or Escape is pressed.
func (a *App) Run() error {
	err := ebiten.RunGame(a)
	if err == ebiten.Termination {
		return nil
	}
	return err
}

// Update advances the machine one frame and latches input. Ebiten calls it
// at 60 TPS, which doubles as the frame limiter.
func (a *App) Update() error {
	if ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	a.m.SetJoypadState(pollJoypad())
	a.m.StepFrame()
	return nil
}

// pollJoypad builds the joypad byte: bits 0..3 Right/Left/Up/Down, bits
// 4..7 A/B/Select/Start; set means pressed.
func pollJoypad() byte {
	var mask byte
	if ebiten.IsKeyPressed(ebiten.KeyRight) {
		mask |= memory.JoypRight
	}
	if ebiten.IsKeyPressed(ebiten.KeyLeft) {
		mask |= memory.JoypLeft
	}
	if ebiten.IsKeyPressed(ebiten.KeyUp) {
		mask |= memory.JoypUp
	}
	if ebiten.IsKeyPressed(ebiten.KeyDown) {
		mask |= memory.JoypDown
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) {
		mask |= memory.JoypA
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) {
		mask |= memory.JoypB
	}
	if ebiten.IsKeyPressed(ebiten.KeySpace) {
		mask |= memory.JoypSel
	}
	if ebiten.IsKeyPressed(ebiten.KeyEnter) {
		mask |= memory.JoypStart
	}
	return mask
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(ppu.ScreenWidth, ppu.ScreenHeight)
	}
	colors := Palettes[a.cfg.Palette]
	fb := a.m.Framebuffer()
	for i, ci := range fb {
		copy(a.rgb[i*4:], colors[ci&0x3][:])
	}
	a.tex.WritePixels(a.rgb)
	screen.DrawImage(a.tex, nil)
}

func (a *App) Layout(outW, outH int) (int, int) {
	return ppu.ScreenWidth, ppu.ScreenHeight
}
