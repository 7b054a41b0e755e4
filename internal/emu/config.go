package emu

// Config contains settings that affect emulation behavior.
type Config struct {
	Trace    bool // write a binjgb-format line per instruction
	LimitFPS bool // throttle presentation to ~60 Hz (display builds)
	Palette  int  // host palette index for the UI layer
}
