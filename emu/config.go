package emu

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"amber/emu/log"
	"amber/hw"

	"github.com/BurntSushi/toml"
	"github.com/kirsle/configdir"
)

type Config struct {
	Machine MachineConfig `toml:"machine"`
	Timing  TimingConfig  `toml:"timing"`
	Audio   AudioConfig   `toml:"audio"`
}

type MachineConfig struct {
	Region    string `toml:"region"` // "pal" or "ntsc"
	CrystalHz uint64 `toml:"crystal_hz"`
	FPS       uint64 `toml:"fps"`
	ChipRAMKB uint32 `toml:"chip_ram_kb"`
}

type TimingConfig struct {
	CPUDivisor  uint64 `toml:"cpu_divisor"`
	SlotDivisor uint64 `toml:"slot_divisor"`
	EDivisor    uint64 `toml:"e_divisor"`

	// CPU wait states charged per owner class, keyed by owner name
	// (refresh, bitplane, copper, blitter, disk, audio, sprite).
	ContentionCosts map[string]int `toml:"contention_costs"`
}

type AudioConfig struct {
	DisableAudio bool    `toml:"disable_audio"`
	SampleRate   float64 `toml:"sample_rate"`
}

var ConfigDir string = sync.OnceValue(func() string {
	dir := configdir.LocalConfig("amber")
	if err := configdir.MakePath(dir); err != nil {
		log.ModEmu.Fatalf("failed to create directory %s: %v", dir, err)
	}
	return dir
})()

const cfgFilename = "config.toml"

// LoadConfigOrDefault loads the configuration from the amber config
// directory, or provides a default one.
func LoadConfigOrDefault() Config {
	var cfg Config
	_, err := toml.DecodeFile(filepath.Join(ConfigDir, cfgFilename), &cfg)
	if err != nil {
		return Config{
			Audio: AudioConfig{SampleRate: 44100},
		}
	}
	return cfg
}

// SaveConfig into the amber config directory.
func SaveConfig(cfg Config) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(ConfigDir, cfgFilename), buf, 0644)
}

var ownerByName = map[string]hw.SlotOwner{
	"refresh":  hw.OwnerRefresh,
	"bitplane": hw.OwnerBitplane,
	"copper":   hw.OwnerCopper,
	"blitter":  hw.OwnerBlitter,
	"disk":     hw.OwnerDisk,
	"audio":    hw.OwnerAudio,
	"sprite":   hw.OwnerSprite,
}

// HWConfig translates the file configuration into a machine configuration.
// Unknown owner names are reported and skipped rather than failing the
// whole file.
func (cfg Config) HWConfig() hw.Config {
	hwcfg := hw.Config{
		CrystalHz:   cfg.Machine.CrystalHz,
		FPS:         cfg.Machine.FPS,
		ChipRAM:     cfg.Machine.ChipRAMKB * 1024,
		CPUDivisor:  cfg.Timing.CPUDivisor,
		SlotDivisor: cfg.Timing.SlotDivisor,
		EDivisor:    cfg.Timing.EDivisor,
	}
	if strings.EqualFold(cfg.Machine.Region, "ntsc") {
		hwcfg.Region = hw.NTSC
	}
	if !cfg.Audio.DisableAudio {
		hwcfg.SampleRate = cfg.Audio.SampleRate
		if hwcfg.SampleRate == 0 {
			hwcfg.SampleRate = 44100
		}
	}
	if len(cfg.Timing.ContentionCosts) > 0 {
		hwcfg.ContentionCosts = make(map[hw.SlotOwner]int)
		for name, cost := range cfg.Timing.ContentionCosts {
			owner, ok := ownerByName[strings.ToLower(name)]
			if !ok {
				log.ModEmu.Warnf("unknown contention cost owner %q", name)
				continue
			}
			hwcfg.ContentionCosts[owner] = cost
		}
	}
	return hwcfg
}
