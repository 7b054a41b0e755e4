package ui

// Config holds the window settings.
type Config struct {
	Title   string
	Scale   int
	Palette int // index into the palette table
}

// Defaults fills unset fields.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "gbemu"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
	if c.Palette < 0 || c.Palette >= len(Palettes) {
		c.Palette = 0
	}
}
