package cart

import (
	"errors"
	"strings"
)

const (
	headerStart = 0x0100
	headerEnd   = 0x014F
)

var nintendoLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E, 0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// Header holds the cartridge header fields at fixed offsets in the first
// 32 KiB, plus a few decoded conveniences for startup logging.
type Header struct {
	Title            string // 0x0134-0x013E, trimmed ASCII
	ManufacturerCode string // 0x013F-0x0142
	CGBFlag          byte   // 0x0143
	CartType         byte   // 0x0147
	ROMSizeCode      byte   // 0x0148
	RAMSizeCode      byte   // 0x0149
	Destination      byte   // 0x014A
	HeaderChecksum   byte   // 0x014D

	ROMBanks     int
	RAMSizeBytes int
	LogoOK       bool
}

// ParseHeader decodes the header region. It does not reject ROMs with a bad
// logo or checksum; ChecksumOK lets callers decide what to do about that.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < headerEnd+1 {
		return nil, errors.New("ROM too small to contain header")
	}

	h := &Header{
		Title:            strings.TrimRight(string(rom[0x0134:0x013F]), "\x00"),
		ManufacturerCode: strings.TrimRight(string(rom[0x013F:0x0143]), "\x00"),
		CGBFlag:          rom[0x0143],
		CartType:         rom[0x0147],
		ROMSizeCode:      rom[0x0148],
		RAMSizeCode:      rom[0x0149],
		Destination:      rom[0x014A],
		HeaderChecksum:   rom[0x014D],
		LogoOK:           true,
	}
	for i := 0; i < 48; i++ {
		if rom[0x0104+i] != nintendoLogo[i] {
			h.LogoOK = false
			break
		}
	}
	h.ROMBanks = decodeROMBanks(h.ROMSizeCode)
	h.RAMSizeBytes = decodeRAMSize(h.RAMSizeCode)
	return h, nil
}

// ComputeChecksum evaluates the header checksum over 0x0134-0x014C with
// 8-bit wraparound: x = x - byte - 1 per byte.
func ComputeChecksum(rom []byte) byte {
	var sum byte
	for addr := 0x0134; addr <= 0x014C; addr++ {
		sum = sum - rom[addr] - 1
	}
	return sum
}

// ChecksumOK reports whether the computed checksum matches byte 0x014D.
func ChecksumOK(rom []byte) bool {
	if len(rom) < headerEnd+1 {
		return false
	}
	return ComputeChecksum(rom) == rom[0x014D]
}

func decodeROMBanks(code byte) int {
	if code <= 0x08 {
		return 2 << code
	}
	return 0
}

func decodeRAMSize(code byte) int {
	switch code {
	case 0x02:
		return 8 * 1024
	case 0x03:
		return 32 * 1024
	case 0x04:
		return 128 * 1024
	case 0x05:
		return 64 * 1024
	default:
		return 0
	}
}
