package cart

import "fmt"

// ErrUnsupportedMBC reports a cartridge whose banking chip this core does
// not implement (MBC3 and newer). Surfaced as a startup error.
type ErrUnsupportedMBC struct {
	Code byte
}

func (e ErrUnsupportedMBC) Error() string {
	return fmt.Sprintf("unsupported cartridge type 0x%02X", e.Code)
}

// Cartridge is the address-space view of ROM plus external RAM. The memory
// router delegates reads and writes in 0x0000-0x7FFF and 0xA000-0xBFFF here.
type Cartridge interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
	// Clone returns an independent copy; the disassembler dry-steps against
	// clones, so banking registers must not be shared.
	Clone() Cartridge
	// SaveState/LoadState serialize banking registers and external RAM.
	SaveState() []byte
	LoadState(data []byte)
}

// New classifies the ROM by header byte 0x147 and returns the matching
// implementation. Unknown banking chips are a startup error.
func New(rom []byte) (Cartridge, error) {
	if len(rom) < headerEnd+1 {
		return nil, fmt.Errorf("ROM too small (%d bytes) to contain a header", len(rom))
	}
	switch rom[0x147] {
	case 0x00:
		return NewROMOnly(rom), nil
	case 0x01, 0x02, 0x03:
		return NewMBC1(rom), nil
	case 0x05, 0x06:
		return NewMBC2(rom), nil
	default:
		return nil, ErrUnsupportedMBC{Code: rom[0x147]}
	}
}
