package ppu

import (
	"sort"

	"github.com/ahertlein/gbemu/internal/memory"
)

// paletteColors decodes a BGP/OBP byte into the four display colors.
func paletteColors(p byte) [4]byte {
	return [4]byte{p & 0x3, p >> 2 & 0x3, p >> 4 & 0x3, p >> 6 & 0x3}
}

// tileAddress resolves a tile id against the selected tile-data area:
// unsigned ids from 0x8000, or signed ids around the 0x9000 base.
func tileAddress(id byte, unsigned bool) uint16 {
	if unsigned {
		return 0x8000 + uint16(id)*16
	}
	return uint16(0x9000 + int32(int8(id))*16)
}

// tilePixel extracts the 2-bit color index of column px (0..7) from a
// tile row's two bytes.
func tilePixel(lo, hi byte, px byte) byte {
	bit := 7 - px
	return (hi>>bit&1)<<1 | lo>>bit&1
}

// drawBackground fills the background line buffer for scanline ly.
func (p *PPU) drawBackground(mem *memory.Memory, ly byte) {
	lcdc := mem.Read(addrLCDC)
	if lcdc&0x01 == 0 {
		p.bgLine = [ScreenWidth]BackgroundPixel{}
		return
	}

	colors := paletteColors(mem.Read(addrBGP))
	scy := mem.Read(addrSCY)
	scx := mem.Read(addrSCX)

	unsignedIDs := lcdc&(1<<4) != 0
	tileMap := uint16(0x9800)
	if lcdc&(1<<3) != 0 {
		tileMap = 0x9C00
	}

	posY := ly + scy // wraps mod 256
	rowBase := tileMap + uint16(posY)/8*32

	for x := 0; x < ScreenWidth; x++ {
		posX := byte(x) + scx
		id := mem.Read(rowBase + uint16(posX)/8)
		addr := tileAddress(id, unsignedIDs) + uint16(posY%8)*2
		ci := tilePixel(mem.Read(addr), mem.Read(addr+1), posX%8)
		p.bgLine[x] = BackgroundPixel{Render: colors[ci], Raw: ci}
	}
}

// drawWindow fills the window line buffer. The window participates when
// LCDC bit 5 is set and WY has been reached; WX-7 is its screen origin.
func (p *PPU) drawWindow(mem *memory.Memory, ly byte) {
	p.winLine = [ScreenWidth]WindowPixel{}

	lcdc := mem.Read(addrLCDC)
	wy := mem.Read(addrWY)
	if lcdc&(1<<5) == 0 || wy > ly {
		return
	}

	colors := paletteColors(mem.Read(addrBGP))
	wx := int(mem.Read(addrWX)) - 7

	unsignedIDs := lcdc&(1<<4) != 0
	tileMap := uint16(0x9800)
	if lcdc&(1<<6) != 0 {
		tileMap = 0x9C00
	}

	posY := ly - wy
	rowBase := tileMap + uint16(posY)/8*32

	startX := wx
	if startX < 0 {
		startX = 0
	}
	for x := startX; x < ScreenWidth; x++ {
		posX := x - wx
		id := mem.Read(rowBase + uint16(posX)/8)
		addr := tileAddress(id, unsignedIDs) + uint16(posY%8)*2
		ci := tilePixel(mem.Read(addr), mem.Read(addr+1), byte(posX%8))
		p.winLine[x] = WindowPixel{Active: true, Render: colors[ci], Raw: ci}
	}
}

// sprite is one 8-pixel-high OAM slice; 8x16 objects contribute two.
type sprite struct {
	tile     byte
	behindBG bool
	yFlip    bool
	xFlip    bool
	colors   [4]byte
	posX     byte
	posY     byte
}

// gatherSprites scans OAM for sprites intersecting scanline ly and renders
// the winners into the sprite line buffer.
func (p *PPU) gatherSprites(mem *memory.Memory, ly byte) {
	p.spriteLine = [ScreenWidth]SpritePixel{}

	lcdc := mem.Read(addrLCDC)
	if lcdc&(1<<1) == 0 {
		return
	}
	tall := lcdc&(1<<2) != 0

	var onLine []sprite
	for i := 0; i < 40; i++ {
		base := uint16(0xFE00 + i*4)
		posY := mem.Read(base) - 16
		posX := mem.Read(base+1) - 8
		tile := mem.Read(base + 2)
		attrs := mem.Read(base + 3)

		paletteAddr := uint16(addrOBP0)
		if attrs&(1<<4) != 0 {
			paletteAddr = addrOBP1
		}
		s := sprite{
			tile:     tile,
			behindBG: attrs&(1<<7) != 0,
			yFlip:    attrs&(1<<6) != 0,
			xFlip:    attrs&(1<<5) != 0,
			colors:   paletteColors(mem.Read(paletteAddr)),
			posX:     posX,
			posY:     posY,
		}
		if tall {
			// 8x16: bit 0 of the id is ignored; the lower half uses id+1.
			s.tile &^= 1
			lower := s
			lower.tile++
			lower.posY += 8
			p.appendIfOnLine(&onLine, s, ly)
			p.appendIfOnLine(&onLine, lower, ly)
		} else {
			p.appendIfOnLine(&onLine, s, ly)
		}
	}

	// Hardware keeps the ten leftmost sprites; drawing lowest-x last makes
	// it win overlaps, so sort ascending, trim, then reverse.
	sort.SliceStable(onLine, func(a, b int) bool { return onLine[a].posX < onLine[b].posX })
	if len(onLine) > 10 {
		onLine = onLine[:10]
	}
	for i, j := 0, len(onLine)-1; i < j; i, j = i+1, j-1 {
		onLine[i], onLine[j] = onLine[j], onLine[i]
	}

	for _, s := range onLine {
		p.renderSprite(mem, s, ly)
	}
}

func (p *PPU) appendIfOnLine(list *[]sprite, s sprite, ly byte) {
	py := int(s.posY)
	if int(s.posX) < ScreenWidth && py <= int(ly) && int(ly) <= py+7 {
		*list = append(*list, s)
	}
}

func (p *PPU) renderSprite(mem *memory.Memory, s sprite, ly byte) {
	row := ly - s.posY
	if s.yFlip {
		row = 7 - row
	}
	base := 0x8000 + uint16(s.tile)*16 + uint16(row)*2
	lo := mem.Read(base)
	hi := mem.Read(base + 1)

	for px := byte(0); px < 8; px++ {
		x := int(s.posX) + int(px)
		if x < 0 || x >= ScreenWidth {
			continue
		}
		col := px
		if s.xFlip {
			col = 7 - px
		}
		ci := tilePixel(lo, hi, col)
		if ci == 0 {
			continue
		}
		p.spriteLine[x] = SpritePixel{Render: s.colors[ci], Raw: ci, OverBG: !s.behindBG}
	}
}
