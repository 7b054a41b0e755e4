package ppu

import (
	"testing"

	"github.com/ahertlein/gbemu/internal/memory"
)

// writeTileRow stores one row of a tile: lo/hi bit planes.
func writeTileRow(m *memory.Memory, tileAddr uint16, row byte, lo, hi byte) {
	m.DirectWrite(tileAddr+uint16(row)*2, lo)
	m.DirectWrite(tileAddr+uint16(row)*2+1, hi)
}

// solidTile fills tile id with one color index in the 0x8000 table.
func solidTile(m *memory.Memory, id byte, ci byte) {
	var lo, hi byte
	if ci&1 != 0 {
		lo = 0xFF
	}
	if ci&2 != 0 {
		hi = 0xFF
	}
	for row := byte(0); row < 8; row++ {
		writeTileRow(m, 0x8000+uint16(id)*16, row, lo, hi)
	}
}

func newLayerMemory() *memory.Memory {
	m := memory.New(nil)
	// identity palette: index i renders as color i
	m.DirectWrite(0xFF47, 0xE4)
	m.DirectWrite(0xFF48, 0xE4)
	m.DirectWrite(0xFF49, 0xE4)
	// zero the 0x9800 map and scroll registers; LCDC 0x91 selects the
	// 0x8000 tile table and the 0x9800 map with BG enabled
	m.DirectWrite(0xFF42, 0)
	m.DirectWrite(0xFF43, 0)
	for addr := 0x9800; addr < 0x9C00; addr++ {
		m.DirectWrite(uint16(addr), 0)
	}
	return m
}

func TestPaletteColors(t *testing.T) {
	c := paletteColors(0x1B) // 00 01 10 11 -> 3,2,1,0
	if c != [4]byte{3, 2, 1, 0} {
		t.Fatalf("palette got %v", c)
	}
}

func TestTileAddress(t *testing.T) {
	if got := tileAddress(0x10, true); got != 0x8100 {
		t.Fatalf("unsigned got %04X want 8100", got)
	}
	if got := tileAddress(0x10, false); got != 0x9100 {
		t.Fatalf("signed positive got %04X want 9100", got)
	}
	if got := tileAddress(0x80, false); got != 0x8800 {
		t.Fatalf("signed negative got %04X want 8800", got)
	}
	if got := tileAddress(0xFF, false); got != 0x8FF0 {
		t.Fatalf("signed -1 got %04X want 8FF0", got)
	}
}

func TestBackgroundScanline(t *testing.T) {
	m := newLayerMemory()
	solidTile(m, 1, 3)
	m.DirectWrite(0x9800, 1) // first map cell uses tile 1

	p := New()
	p.drawBackground(m, 0)
	for x := 0; x < 8; x++ {
		if p.bgLine[x].Raw != 3 || p.bgLine[x].Render != 3 {
			t.Fatalf("x=%d got raw %d render %d want 3/3", x, p.bgLine[x].Raw, p.bgLine[x].Render)
		}
	}
	if p.bgLine[8].Raw != 0 {
		t.Fatalf("tile boundary leaked: %d", p.bgLine[8].Raw)
	}
}

func TestBackgroundPaletteMapping(t *testing.T) {
	m := newLayerMemory()
	solidTile(m, 1, 3)
	m.DirectWrite(0x9800, 1)
	m.DirectWrite(0xFF47, 0x1B) // maps index 3 to color 0

	p := New()
	p.drawBackground(m, 0)
	if p.bgLine[0].Raw != 3 || p.bgLine[0].Render != 0 {
		t.Fatalf("got raw %d render %d want 3/0", p.bgLine[0].Raw, p.bgLine[0].Render)
	}
}

func TestBackgroundScrollWrap(t *testing.T) {
	m := newLayerMemory()
	solidTile(m, 1, 2)
	m.DirectWrite(0x9800, 1) // tile column 0
	m.DirectWrite(0xFF43, 0xF8) // SCX -8: screen x 8.. shows map column 0

	p := New()
	p.drawBackground(m, 0)
	if p.bgLine[0].Raw != 0 {
		t.Fatalf("x=0 should come from map column 31, got %d", p.bgLine[0].Raw)
	}
	for x := 8; x < 16; x++ {
		if p.bgLine[x].Raw != 2 {
			t.Fatalf("x=%d got %d want 2 (wrapped tile)", x, p.bgLine[x].Raw)
		}
	}
}

func TestBackgroundDisabled(t *testing.T) {
	m := newLayerMemory()
	solidTile(m, 1, 3)
	m.DirectWrite(0x9800, 1)
	m.DirectWrite(0xFF40, 0x90) // LCDC bit 0 cleared

	p := New()
	p.drawBackground(m, 0)
	if p.bgLine[0].Raw != 0 || p.bgLine[0].Render != 0 {
		t.Fatalf("disabled BG should render as color 0")
	}
}

func TestSignedTileAddressing(t *testing.T) {
	m := newLayerMemory()
	m.DirectWrite(0xFF40, 0x81) // bit 4 clear: signed ids around 0x9000
	// tile id 0x80 lives at 0x8800 in signed mode
	for row := byte(0); row < 8; row++ {
		writeTileRow(m, 0x8800, row, 0xFF, 0x00) // color index 1
	}
	m.DirectWrite(0x9800, 0x80)

	p := New()
	p.drawBackground(m, 0)
	if p.bgLine[0].Raw != 1 {
		t.Fatalf("signed tile fetch got %d want 1", p.bgLine[0].Raw)
	}
}

func TestWindowScanline(t *testing.T) {
	m := newLayerMemory()
	solidTile(m, 2, 1)
	m.DirectWrite(0xFF40, 0xB1) // LCDC with window enable (bit 5)
	m.DirectWrite(0xFF4A, 0)    // WY
	m.DirectWrite(0xFF4B, 7+10) // WX: window starts at screen x 10
	for addr := 0x9800; addr < 0x9C00; addr++ {
		m.DirectWrite(uint16(addr), 2)
	}

	p := New()
	p.drawWindow(m, 0)
	if p.winLine[9].Active {
		t.Fatalf("x=9 left of the window is active")
	}
	if !p.winLine[10].Active || p.winLine[10].Raw != 1 {
		t.Fatalf("x=10 got active=%v raw=%d want true/1", p.winLine[10].Active, p.winLine[10].Raw)
	}
	if !p.winLine[159].Active {
		t.Fatalf("window should extend to the right edge")
	}
}

func TestWindowBelowWY(t *testing.T) {
	m := newLayerMemory()
	m.DirectWrite(0xFF40, 0xB1)
	m.DirectWrite(0xFF4A, 100) // WY below the scanline
	p := New()
	p.drawWindow(m, 50)
	for x := 0; x < ScreenWidth; x++ {
		if p.winLine[x].Active {
			t.Fatalf("window active above WY at x=%d", x)
		}
	}
}

// writeSprite stores one OAM entry. rawY/rawX are the raw OAM values
// (screen position + 16/+8).
func writeSprite(m *memory.Memory, slot int, rawY, rawX, tile, attrs byte) {
	base := uint16(0xFE00 + slot*4)
	m.DirectWrite(base, rawY)
	m.DirectWrite(base+1, rawX)
	m.DirectWrite(base+2, tile)
	m.DirectWrite(base+3, attrs)
}

func clearOAM(m *memory.Memory) {
	for a := 0xFE00; a < 0xFEA0; a++ {
		m.DirectWrite(uint16(a), 0)
	}
}

func TestSpriteScanline(t *testing.T) {
	m := newLayerMemory()
	clearOAM(m)
	m.DirectWrite(0xFF40, 0x93) // OBJ enable
	solidTile(m, 4, 2)
	writeSprite(m, 0, 16, 8, 4, 0) // screen position (0,0)

	p := New()
	p.gatherSprites(m, 0)
	for x := 0; x < 8; x++ {
		if p.spriteLine[x].Raw != 2 || !p.spriteLine[x].OverBG {
			t.Fatalf("x=%d got raw=%d over=%v want 2/true", x, p.spriteLine[x].Raw, p.spriteLine[x].OverBG)
		}
	}
	if p.spriteLine[8].Raw != 0 {
		t.Fatalf("sprite wider than 8px")
	}
	// scanline 8 is below the 8x8 sprite
	p.gatherSprites(m, 8)
	if p.spriteLine[0].Raw != 0 {
		t.Fatalf("sprite should not cover scanline 8")
	}
}

func TestSpriteUsesOBP1(t *testing.T) {
	m := newLayerMemory()
	clearOAM(m)
	m.DirectWrite(0xFF40, 0x93) // OBJ enable
	solidTile(m, 4, 3)
	m.DirectWrite(0xFF49, 0x1B)       // OBP1 maps 3 -> 0
	writeSprite(m, 0, 16, 8, 4, 1<<4) // palette select OBP1

	p := New()
	p.gatherSprites(m, 0)
	if p.spriteLine[0].Raw != 3 || p.spriteLine[0].Render != 0 {
		t.Fatalf("got raw=%d render=%d want 3/0", p.spriteLine[0].Raw, p.spriteLine[0].Render)
	}
}

func TestSpriteXFlip(t *testing.T) {
	m := newLayerMemory()
	clearOAM(m)
	m.DirectWrite(0xFF40, 0x93) // OBJ enable
	// tile 4: leftmost pixel only, color 1
	for row := byte(0); row < 8; row++ {
		writeTileRow(m, 0x8000+4*16, row, 0x80, 0x00)
	}
	writeSprite(m, 0, 16, 8, 4, 1<<5) // x flip

	p := New()
	p.gatherSprites(m, 0)
	if p.spriteLine[0].Raw != 0 || p.spriteLine[7].Raw != 1 {
		t.Fatalf("x flip got [0]=%d [7]=%d want 0/1", p.spriteLine[0].Raw, p.spriteLine[7].Raw)
	}
}

func TestSpriteYFlip(t *testing.T) {
	m := newLayerMemory()
	clearOAM(m)
	m.DirectWrite(0xFF40, 0x93) // OBJ enable
	// tile 4: top row only, color 1
	writeTileRow(m, 0x8000+4*16, 0, 0xFF, 0x00)
	for row := byte(1); row < 8; row++ {
		writeTileRow(m, 0x8000+4*16, row, 0x00, 0x00)
	}
	writeSprite(m, 0, 16, 8, 4, 1<<6) // y flip: row appears at the bottom

	p := New()
	p.gatherSprites(m, 0)
	if p.spriteLine[0].Raw != 0 {
		t.Fatalf("flipped sprite should be empty on scanline 0")
	}
	p.gatherSprites(m, 7)
	if p.spriteLine[0].Raw != 1 {
		t.Fatalf("flipped sprite missing on scanline 7")
	}
}

func TestSpriteBehindBackground(t *testing.T) {
	m := newLayerMemory()
	clearOAM(m)
	m.DirectWrite(0xFF40, 0x93) // OBJ enable
	solidTile(m, 4, 2)
	writeSprite(m, 0, 16, 8, 4, 1<<7) // behind background

	p := New()
	p.gatherSprites(m, 0)
	if p.spriteLine[0].OverBG {
		t.Fatalf("attr bit 7 should put the sprite behind the background")
	}
}

func TestSpriteLimitTenPerLine(t *testing.T) {
	m := newLayerMemory()
	clearOAM(m)
	m.DirectWrite(0xFF40, 0x93) // OBJ enable
	solidTile(m, 4, 1)
	solidTile(m, 5, 2)
	// ten sprites left of x=80, then one more to the right using tile 5
	for i := 0; i < 10; i++ {
		writeSprite(m, i, 16, byte(8+8*i), 4, 0)
	}
	writeSprite(m, 10, 16, 8+8*14, 5, 0)

	p := New()
	p.gatherSprites(m, 0)
	if p.spriteLine[8*14].Raw != 0 {
		t.Fatalf("eleventh sprite drew despite the 10-per-line limit")
	}
	if p.spriteLine[0].Raw != 1 {
		t.Fatalf("leftmost sprite missing")
	}
}

func TestSpriteLowerXWins(t *testing.T) {
	m := newLayerMemory()
	clearOAM(m)
	m.DirectWrite(0xFF40, 0x93) // OBJ enable
	solidTile(m, 4, 1)
	solidTile(m, 5, 2)
	writeSprite(m, 0, 16, 12, 5, 0) // x=4, drawn last
	writeSprite(m, 1, 16, 8, 4, 0)  // x=0, lower x wins the overlap

	p := New()
	p.gatherSprites(m, 0)
	if p.spriteLine[4].Raw != 1 {
		t.Fatalf("overlap got %d want 1 (lower x wins)", p.spriteLine[4].Raw)
	}
	if p.spriteLine[9].Raw != 2 {
		t.Fatalf("right sprite tail got %d want 2", p.spriteLine[9].Raw)
	}
}

func TestTallSprites(t *testing.T) {
	m := newLayerMemory()
	clearOAM(m)
	m.DirectWrite(0xFF40, 0x97) // OBJ enable + 8x16 sprites
	solidTile(m, 6, 1)
	solidTile(m, 7, 2)
	// tile id 7 has its low bit ignored: upper half uses 6, lower half 7
	writeSprite(m, 0, 16, 8, 7, 0)

	p := New()
	p.gatherSprites(m, 4)
	if p.spriteLine[0].Raw != 1 {
		t.Fatalf("upper half got %d want 1", p.spriteLine[0].Raw)
	}
	p.gatherSprites(m, 12)
	if p.spriteLine[0].Raw != 2 {
		t.Fatalf("lower half got %d want 2", p.spriteLine[0].Raw)
	}
}

func TestSpritesDisabled(t *testing.T) {
	m := newLayerMemory()
	clearOAM(m)
	solidTile(m, 4, 1)
	writeSprite(m, 0, 16, 8, 4, 0)
	m.DirectWrite(0xFF40, 0x91) // OBJ enable bit clear

	p := New()
	p.gatherSprites(m, 0)
	if p.spriteLine[0].Raw != 0 {
		t.Fatalf("disabled sprites still rendered")
	}
}

func TestMixScanline(t *testing.T) {
	p := New()
	// x0: background only
	p.bgLine[0] = BackgroundPixel{Render: 1, Raw: 1}
	// x1: sprite above background
	p.bgLine[1] = BackgroundPixel{Render: 1, Raw: 1}
	p.spriteLine[1] = SpritePixel{Render: 2, Raw: 2, OverBG: true}
	// x2: sprite behind non-zero background loses
	p.bgLine[2] = BackgroundPixel{Render: 1, Raw: 1}
	p.spriteLine[2] = SpritePixel{Render: 2, Raw: 2, OverBG: false}
	// x3: sprite behind zero background wins
	p.bgLine[3] = BackgroundPixel{Render: 0, Raw: 0}
	p.spriteLine[3] = SpritePixel{Render: 2, Raw: 2, OverBG: false}
	// x4: window beats everything
	p.bgLine[4] = BackgroundPixel{Render: 1, Raw: 1}
	p.spriteLine[4] = SpritePixel{Render: 2, Raw: 2, OverBG: true}
	p.winLine[4] = WindowPixel{Active: true, Render: 3, Raw: 3}
	// x5: transparent sprite (raw 0) never draws
	p.bgLine[5] = BackgroundPixel{Render: 1, Raw: 1}
	p.spriteLine[5] = SpritePixel{Render: 2, Raw: 0, OverBG: true}

	p.mixScanline(0)
	want := []byte{1, 2, 1, 2, 3, 1}
	for x, w := range want {
		if got := p.display[x]; got != w {
			t.Fatalf("display[%d] got %d want %d", x, got, w)
		}
	}
}

func TestDisplayBufferThroughUpdate(t *testing.T) {
	m := newLayerMemory()
	clearOAM(m)
	solidTile(m, 1, 3)
	for addr := 0x9800; addr < 0x9C00; addr++ {
		m.DirectWrite(uint16(addr), 1)
	}

	p := New()
	for i := 0; i < CyclesPerScanline*2; i++ {
		p.Update(m, 1)
	}
	fb := p.Display()
	for x := 0; x < ScreenWidth; x++ {
		if fb[x] != 3 {
			t.Fatalf("display row 0 x=%d got %d want 3", x, fb[x])
		}
	}
}
