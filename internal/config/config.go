package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"example.com/milbus/internal/common"
	"example.com/milbus/pkg/mil1553"
)

type ReportConfig struct {
	Directory         string   `yaml:"directory" toml:"directory"`
	Formats           []string `yaml:"formats" toml:"formats"`
	Title             string   `yaml:"title" toml:"title"`
	MaxFindings       int      `yaml:"maxFindings" toml:"maxFindings"`
	IncludeTimestamps *bool    `yaml:"includeTimestamps" toml:"includeTimestamps"`
}

// Config holds the settings shared by every milbusctl subcommand.
type Config struct {
	Capacity   int              `yaml:"capacity" toml:"capacity"`
	Framing    string           `yaml:"framing" toml:"framing"`
	Dictionary string           `yaml:"dictionary" toml:"dictionary"`
	RulePack   string           `yaml:"rulePack" toml:"rulePack"`
	Report     ReportConfig     `yaml:"report" toml:"report"`
	Logs       common.LogConfig `yaml:"logs" toml:"logs"`
}

var (
	ErrUnknownFormat = errors.New("unknown configuration format")
	ErrInvalid       = errors.New("invalid configuration")
)

var reportFormats = map[string]bool{"json": true, "cbor": true, "pdf": true, "ndjson": true}

func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML (.yaml, .yml) or TOML (.toml) file. An empty path yields
// the defaults. Relative paths in the file resolve against its directory.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("parse %s: unknown key %s", path, undecoded[0])
		}
	default:
		return Config{}, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	cfg.resolvePaths(filepath.Dir(path))
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) resolvePaths(baseDir string) {
	resolve := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" {
			return ""
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Clean(filepath.Join(baseDir, p))
	}
	c.Dictionary = resolve(c.Dictionary)
	c.RulePack = resolve(c.RulePack)
	c.Report.Directory = resolve(c.Report.Directory)
	c.Logs.Directory = resolve(c.Logs.Directory)
}

func (c *Config) applyDefaults() {
	if c.Framing == "" {
		c.Framing = mil1553.FramingWords.String()
	}
	if len(c.Report.Formats) == 0 {
		c.Report.Formats = []string{"json"}
	}
	for i, f := range c.Report.Formats {
		c.Report.Formats[i] = strings.ToLower(strings.TrimSpace(f))
	}
	if c.Report.MaxFindings <= 0 {
		c.Report.MaxFindings = 200
	}
	if c.Report.IncludeTimestamps == nil {
		on := true
		c.Report.IncludeTimestamps = &on
	}
	if c.Logs.Directory != "" {
		if c.Logs.MaxSizeMB <= 0 {
			c.Logs.MaxSizeMB = 25
		}
		if c.Logs.MaxAgeDays <= 0 {
			c.Logs.MaxAgeDays = 7
		}
		if c.Logs.MaxBackups <= 0 {
			c.Logs.MaxBackups = 5
		}
	}
}

func (c Config) Validate() error {
	if c.Capacity < 0 || c.Capacity > mil1553.MaxWords {
		return fmt.Errorf("%w: capacity %d outside 0..%d", ErrInvalid, c.Capacity, mil1553.MaxWords)
	}
	if _, err := mil1553.ParseFraming(c.Framing); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	for _, f := range c.Report.Formats {
		if !reportFormats[f] {
			return fmt.Errorf("%w: report format %q", ErrInvalid, f)
		}
	}
	return nil
}

// Parser returns the message parser the configuration describes.
func (c Config) Parser() (mil1553.Parser, error) {
	framing, err := mil1553.ParseFraming(c.Framing)
	if err != nil {
		return mil1553.Parser{}, err
	}
	if c.Capacity < 0 || c.Capacity > mil1553.MaxWords {
		return mil1553.Parser{}, fmt.Errorf("%w: capacity %d", ErrInvalid, c.Capacity)
	}
	return mil1553.Parser{Capacity: c.Capacity, Framing: framing}, nil
}

func (c Config) WantsFormat(format string) bool {
	for _, f := range c.Report.Formats {
		if f == format {
			return true
		}
	}
	return false
}
