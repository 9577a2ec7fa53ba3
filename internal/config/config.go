package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/pelletier/go-toml/v2"
)

// FileName is the config file looked up when no -config flag is given.
const FileName = "scene-import.toml"

// DefaultWorkers is the trajectory parser pool size used when neither the
// config file nor the command line sets one.
const DefaultWorkers = 16

// Config holds tool settings shared by every import run.
type Config struct {
	// Import
	Workers    int  `toml:"workers"`
	FrameStart int  `toml:"frame_start"`
	Frames     int  `toml:"frames"`    // explicit total frame count, 0 = from trajectories
	Frequency  int  `toml:"frequency"` // 0 = descriptor value
	FailFast   bool `toml:"fail_fast"`

	// Paths
	Report     string `toml:"report"`
	Output     string `toml:"output"`
	TextureDir string `toml:"texture_dir"`

	MaxTextureSize int    `toml:"max_texture_size"`
	LogLevel       string `toml:"log_level"`

	explicitWorkers bool
}

// Load reads a TOML config file. Unknown keys are rejected.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, Invalid(path, "", "%v", err)
	}

	// A literal "workers = 0" must survive Resolve so it can be rejected later.
	var probe struct {
		Workers *int `toml:"workers"`
	}
	if err := toml.Unmarshal(data, &probe); err == nil && probe.Workers != nil {
		cfg.explicitWorkers = true
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Workers        int
	WorkersSet     bool // -workers given explicitly, even as 0
	FrameStart     int
	Frames         int
	Frequency      int
	FailFast       bool
	Report         string
	Output         string
	TextureDir     string
	MaxTextureSize int
	LogLevel       string
}

// Resolve overlays non-empty flags onto the config and fills defaults.
// The worker count is passed through unchanged once set by either source;
// validating it is the importer's job. Frames and Frequency stay 0 unless
// set so the scene descriptor can supply them.
func (c *Config) Resolve(flags Flags) error {
	if err := copier.CopyWithOption(c, &flags, copier.Option{IgnoreEmpty: true}); err != nil {
		return fmt.Errorf("config: apply flags: %w", err)
	}
	if flags.WorkersSet {
		c.Workers = flags.Workers
		c.explicitWorkers = true
	}

	if !c.explicitWorkers && c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return nil
}

// Level parses LogLevel into a slog level.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, Invalid("config", "log_level", "unknown level %q", c.LogLevel)
	}
	return lvl, nil
}

// FindFile returns the first scene-import.toml found in the working directory
// or next to the executable, or "" when there is none.
func FindFile() string {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if exe, err := os.Executable(); err == nil && exe != "" {
		dirs = append(dirs, filepath.Dir(exe))
	}
	for _, dir := range dirs {
		p := filepath.Join(dir, FileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
