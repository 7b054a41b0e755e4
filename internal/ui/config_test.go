package ui

import "testing"

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.Defaults()
	if c.Title == "" || c.Scale <= 0 {
		t.Fatalf("defaults not applied: %+v", c)
	}
	c = Config{Palette: 99}
	c.Defaults()
	if c.Palette != 0 {
		t.Fatalf("out-of-range palette not clamped: %d", c.Palette)
	}
}

func TestPalettesShape(t *testing.T) {
	if len(Palettes) == 0 {
		t.Fatal("no palettes defined")
	}
	for i, p := range Palettes {
		for ci, rgba := range p {
			if rgba[3] != 0xFF {
				t.Fatalf("palette %d color %d not opaque", i, ci)
			}
		}
	}
}
