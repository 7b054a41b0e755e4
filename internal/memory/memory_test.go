package memory

import (
	"testing"

	"github.com/ahertlein/gbemu/internal/cart"
)

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	rom := make([]byte, 0x8000)
	rom[0x1234] = 0xAB
	c, err := cart.New(rom) // type 0x00: ROM only
	if err != nil {
		t.Fatal(err)
	}
	return New(c)
}

func TestInitialShape(t *testing.T) {
	m := newTestMemory(t)
	if got := m.DirectRead(0xFF04); got != 0xAC {
		t.Fatalf("DIV got %02X want AC", got)
	}
	if got := m.DirectRead(0xFF07); got != 0xF8 {
		t.Fatalf("TAC got %02X want F8", got)
	}
	if got := m.DirectRead(0xFF40); got != 0x91 {
		t.Fatalf("LCDC got %02X want 91", got)
	}
	for _, addr := range []uint16{0xA000, 0xC123, 0xDFFF} {
		if got := m.DirectRead(addr); got != 0xFF {
			t.Fatalf("addr %04X got %02X want FF", addr, got)
		}
	}
}

func TestROMDelegation(t *testing.T) {
	m := newTestMemory(t)
	if got := m.Read(0x1234); got != 0xAB {
		t.Fatalf("ROM read got %02X want AB", got)
	}
	m.Write(0x1234, 0x00) // handed to the cartridge; ROM-only ignores it
	if got := m.Read(0x1234); got != 0xAB {
		t.Fatalf("ROM write leaked: %02X", got)
	}
}

func TestWRAMAndHRAM(t *testing.T) {
	m := newTestMemory(t)
	m.Write(0xC000, 0x11)
	m.Write(0xFF80, 0x22)
	if got := m.Read(0xC000); got != 0x11 {
		t.Fatalf("WRAM got %02X", got)
	}
	if got := m.Read(0xFF80); got != 0x22 {
		t.Fatalf("HRAM got %02X", got)
	}
}

func TestEchoMirror(t *testing.T) {
	m := newTestMemory(t)
	m.Write(0xE000, 0x5A)
	if got := m.Read(0xC000); got != 0x5A {
		t.Fatalf("echo write did not land in WRAM: %02X", got)
	}
	m.Write(0xC100, 0xA5)
	if got := m.Read(0xE100); got != 0xA5 {
		t.Fatalf("echo read did not mirror WRAM: %02X", got)
	}
}

func TestDIVWriteResets(t *testing.T) {
	m := newTestMemory(t)
	m.Write(0xFF04, 0x7E)
	if got := m.Read(0xFF04); got != 0x00 {
		t.Fatalf("DIV got %02X want 00", got)
	}
	if !m.ConsumeDIVReset() {
		t.Fatalf("DIV reset not flagged for the timer")
	}
	if m.ConsumeDIVReset() {
		t.Fatalf("DIV reset flag should be one-shot")
	}
}

func TestDMACopiesIntoOAM(t *testing.T) {
	m := newTestMemory(t)
	for i := uint16(0); i < 0xA0; i++ {
		m.Write(0xC000+i, byte(i)^0x5A)
	}
	m.Write(0xFF46, 0xC0)
	for i := uint16(0); i < 0xA0; i++ {
		want := byte(i) ^ 0x5A
		if got := m.Read(0xFE00 + i); got != want {
			t.Fatalf("OAM[%02X] got %02X want %02X", i, got, want)
		}
	}
	if got := m.Read(0xFF46); got != 0xC0 {
		t.Fatalf("DMA register got %02X want C0", got)
	}
}

func TestDMAFromROMUsesRoutedReads(t *testing.T) {
	m := newTestMemory(t)
	m.Write(0xFF46, 0x12) // source 0x1200..0x129F in ROM
	if got := m.Read(0xFE34); got != 0xAB {
		t.Fatalf("OAM[34] got %02X want AB (ROM byte 0x1234)", got)
	}
}

func TestJoypadSynthesis(t *testing.T) {
	m := newTestMemory(t)
	m.SetJoypadState(JoypRight | JoypA)

	// bit 4 low selects the direction half-nibble, returned inverted
	m.Write(0xFF00, 0x20)
	if got := m.Read(0xFF00); got != ^byte(0x01) {
		t.Fatalf("direction read got %02X want %02X", got, ^byte(0x01))
	}
	// bit 5 low selects the action half-nibble
	m.Write(0xFF00, 0x10)
	if got := m.Read(0xFF00); got != ^byte(0x01) {
		t.Fatalf("action read got %02X want %02X", got, ^byte(0x01))
	}
	// neither selected: plain stored byte
	m.Write(0xFF00, 0x30)
	if got := m.Read(0xFF00); got != 0x30 {
		t.Fatalf("unselected read got %02X want 30", got)
	}
}

func TestJoypadInterruptOnPress(t *testing.T) {
	m := newTestMemory(t)
	m.Write(0xFF00, 0x20) // select directions
	m.SetJoypadState(JoypLeft)
	if m.Read(0xFF0F)&0x10 == 0 {
		t.Fatalf("selected press should raise IF bit 4")
	}

	m = newTestMemory(t)
	m.Write(0xFF00, 0x20)      // directions selected
	m.SetJoypadState(JoypA)    // action button: not selected
	if m.Read(0xFF0F)&0x10 != 0 {
		t.Fatalf("unselected press must not raise IF bit 4")
	}
	// holding the button is not a fresh press
	m.Write(0xFF00, 0x10)
	m.SetJoypadState(JoypA)
	if m.Read(0xFF0F)&0x10 != 0 {
		t.Fatalf("held button must not re-raise IF bit 4")
	}
}

func TestRequestInterrupt(t *testing.T) {
	m := newTestMemory(t)
	m.RequestInterrupt(2)
	if got := m.Read(0xFF0F) & 0x1F; got != 0x04 {
		t.Fatalf("IF got %02X want 04", got)
	}
}

func TestCloneIsolation(t *testing.T) {
	m := newTestMemory(t)
	m.Write(0xC000, 0x01)
	c := m.Clone()
	c.Write(0xC000, 0x99)
	if got := m.Read(0xC000); got != 0x01 {
		t.Fatalf("clone write leaked: %02X", got)
	}
}

func TestSaveLoadState(t *testing.T) {
	m := newTestMemory(t)
	m.Write(0xC000, 0x77)
	m.SetJoypadState(JoypStart)
	state := m.SaveState()

	m2 := newTestMemory(t)
	m2.LoadState(state)
	if got := m2.Read(0xC000); got != 0x77 {
		t.Fatalf("restored WRAM got %02X want 77", got)
	}
	if m2.JoypadState() != JoypStart {
		t.Fatalf("joypad latch not restored")
	}
}

func TestDisabledExternalRAMFloatsHigh(t *testing.T) {
	m := newTestMemory(t)
	if got := m.Read(0xA100); got != 0xFF {
		t.Fatalf("ext RAM read got %02X want FF", got)
	}
}
