package hw

import "fmt"

// BusError reports an access outside any mapped region or a width
// violation. It is guest-visible data: the CPU core turns it into its own
// exception sequence, the emulator never aborts on it.
type BusError struct {
	Addr  uint32
	Width Width
	Kind  AccessKind
}

func (e *BusError) Error() string {
	return fmt.Sprintf("bus error: %s %s at %06x", e.Kind, e.Width, e.Addr)
}

// ConfigError reports an invalid machine configuration (bad divisor/phase,
// bad region...). Raised before any tick runs, never during emulation.
type ConfigError struct {
	Component string
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Component, e.Reason)
}
