package emu

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"nesppu/emu/log"
	"nesppu/hw"

	"github.com/BurntSushi/toml"
	"github.com/kirsle/configdir"
)

type Config struct {
	Video   VideoConfig   `toml:"video"`
	Paths   PathsConfig   `toml:"paths"`
	General GeneralConfig `toml:"general"`
}

type GeneralConfig struct {
	// Save states are zlib-compressed unless this is set.
	UncompressedStates bool `toml:"uncompressed_states"`
}

type VideoConfig struct {
	// Palette file: 64 or 512 RGB triplets. Empty for the default palette.
	Palette string `toml:"palette"`

	// Ignore PPUMASK color emphasis bits.
	DisableEmphasis bool `toml:"disable_emphasis"`
}

type PathsConfig struct {
	SaveDir  string `toml:"save_dir"`  // battery-backed RAM
	StateDir string `toml:"state_dir"` // save states
}

// LoadPalette returns the palette described by the video configuration.
func (vcfg *VideoConfig) LoadPalette() (*hw.Palette, error) {
	pal := hw.DefaultPalette()
	if vcfg.Palette != "" {
		f, err := os.Open(vcfg.Palette)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		if pal, err = hw.ReadPalette(f); err != nil {
			return nil, fmt.Errorf("palette %s: %w", vcfg.Palette, err)
		}
	}

	if vcfg.DisableEmphasis {
		nopal := *pal
		for i := 64; i < len(nopal); i++ {
			nopal[i] = nopal[i&0x3F]
		}
		pal = &nopal
	}
	return pal, nil
}

var ConfigDir = sync.OnceValue(func() string {
	dir := configdir.LocalConfig("nesppu")
	if err := configdir.MakePath(dir); err != nil {
		log.ModEmu.Fatalf("failed to create directory %s: %v", dir, err)
	}
	return dir
})

const cfgFilename = "config.toml"

// DefaultConfig returns the configuration used when there's no config file,
// with paths rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		Paths: PathsConfig{
			SaveDir:  filepath.Join(dir, "saves"),
			StateDir: filepath.Join(dir, "states"),
		},
	}
}

// LoadConfig loads the configuration at path. Missing keys keep their
// default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig(filepath.Dir(path))
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, err
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		log.ModEmu.WarnZ("unknown config keys").String("path", path).String("keys", fmt.Sprint(undec)).End()
	}
	return cfg, nil
}

// LoadConfigOrDefault loads the configuration from the nesppu config directory,
// or provide a default one.
func LoadConfigOrDefault() Config {
	dir := ConfigDir()
	cfg, err := LoadConfig(filepath.Join(dir, cfgFilename))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.ModEmu.WarnZ("failed to load config, using default").Error("err", err).End()
		}
		return DefaultConfig(dir)
	}
	return cfg
}

// SaveConfig into nesppu config directory.
func SaveConfig(cfg Config) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(ConfigDir(), cfgFilename), buf, 0644)
}
