package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Dicklesworthstone/aerotop/internal/procview"
)

// Config carries runtime options for aerotop.
type Config struct {
	Interval      time.Duration `yaml:"interval"`
	GatherTimeout time.Duration `yaml:"gather_timeout"`
	Sort          string        `yaml:"sort"`
	Filter        string        `yaml:"filter"`
	Tree          bool          `yaml:"tree"`
	JSON          bool          `yaml:"-"`
	JSONStream    bool          `yaml:"-"`
	EnableTemps   bool          `yaml:"temperature"`
	EnableDisk    bool          `yaml:"disk"`
	EnableFS      bool          `yaml:"filesystems"`
	LogFile       string        `yaml:"log_file"`
	Debug         bool          `yaml:"debug"`
	ConfigPath    string        `yaml:"-"`
}

func Default() Config {
	return Config{
		Interval:    time.Second,
		Sort:        string(procview.ColCPU),
		EnableTemps: true,
		EnableDisk:  true,
		EnableFS:    true,
	}
}

// Load parses flags, reads the YAML file named by -config if any, and applies
// environment overrides. Precedence: env > explicit flags > file > defaults.
func Load(args []string) (Config, error) {
	cfg := Default()
	fs := flag.NewFlagSet("aerotop", flag.ContinueOnError)
	register(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if cfg.ConfigPath != "" {
		fromFile := Default()
		if err := loadFile(cfg.ConfigPath, &fromFile); err != nil {
			return cfg, err
		}
		fromFile.ConfigPath = cfg.ConfigPath
		// Re-apply only the flags given on the command line.
		again := flag.NewFlagSet("aerotop", flag.ContinueOnError)
		again.SetOutput(io.Discard)
		register(again, &fromFile)
		set := make(map[string]bool)
		fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
		fs.VisitAll(func(f *flag.Flag) {
			if set[f.Name] {
				_ = again.Set(f.Name, f.Value.String())
			}
		})
		cfg = fromFile
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func register(fs *flag.FlagSet, cfg *Config) {
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "refresh interval")
	fs.DurationVar(&cfg.GatherTimeout, "gather-timeout", cfg.GatherTimeout, "per-tick gather timeout (0 = interval)")
	fs.StringVar(&cfg.Sort, "sort", cfg.Sort, "initial sort column: cpu|mem|pid|user|priority|nice|virt|res|command|state|started")
	fs.StringVar(&cfg.Filter, "filter", cfg.Filter, "initial process search text")
	fs.BoolVar(&cfg.Tree, "tree", cfg.Tree, "start in tree view")
	fs.BoolVar(&cfg.JSON, "json", cfg.JSON, "output one-shot JSON and exit")
	fs.BoolVar(&cfg.JSONStream, "json-stream", cfg.JSONStream, "stream NDJSON until interrupted")
	fs.BoolVar(&cfg.EnableTemps, "temps", cfg.EnableTemps, "enable temperature sampling")
	fs.BoolVar(&cfg.EnableDisk, "disk", cfg.EnableDisk, "enable disk IO sampling")
	fs.BoolVar(&cfg.EnableFS, "fs", cfg.EnableFS, "enable filesystem usage sampling")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "write logs to this file")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "log degraded sources and slow ticks")
	fs.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "YAML config file")
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("AEROTOP_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Interval = parsed
		} else if parsed, err2 := time.ParseDuration(v + "s"); err2 == nil {
			cfg.Interval = parsed
		}
	}
	if v := os.Getenv("AEROTOP_TEMPS"); v == "0" {
		cfg.EnableTemps = false
	}
	if v := os.Getenv("AEROTOP_DISK"); v == "0" {
		cfg.EnableDisk = false
	}
	if v := os.Getenv("AEROTOP_FS"); v == "0" {
		cfg.EnableFS = false
	}
}

// Validate rejects settings the collector or view cannot run with.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", c.Interval)
	}
	if c.GatherTimeout < 0 {
		return errors.New("gather timeout must not be negative")
	}
	if _, err := procview.ParseColumn(c.Sort); err != nil {
		return err
	}
	return nil
}

// ViewState is the initial process view described by the config.
func (c Config) ViewState() procview.ViewState {
	state := procview.DefaultState()
	if col, err := procview.ParseColumn(c.Sort); err == nil {
		state.SortColumn = col
		state.SortDirection = col.DefaultDirection()
	}
	state.SearchQuery = c.Filter
	state.TreeMode = c.Tree
	return state
}
