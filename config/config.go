// Package config holds the serializable configuration of an inspector.
//
// A Config is built once, from defaults, a YAML or TOML file, and environment
// overrides, and is then treated as immutable: the converter, the criterion
// evaluator and the printer receive it (or the part of it they need) at
// construction.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
)

var ErrInvalid = errors.New("invalid config")

// MiB is the unit of the buffer size settings.
const MiB = 1 << 20

type Config struct {
	// ManageBuffer bounds the message history by BufferSizeMB.  When false
	// the history keeps every message.
	ManageBuffer bool `yaml:"manage_buffer" toml:"manage_buffer"`
	// BufferSizeMB is the history capacity in MiB.  Zero disables retention.
	BufferSizeMB int `yaml:"buffer_size_mb" toml:"buffer_size_mb"`
	// SkipParsingLargerThanMB leaves messages larger than this undecoded.
	// Zero or negative means no limit.
	SkipParsingLargerThanMB int `yaml:"skip_parsing_larger_than_mb" toml:"skip_parsing_larger_than_mb"`
	// MaxDepth bounds nested conversion.
	MaxDepth int `yaml:"max_depth" toml:"max_depth"`
	// ActivateASN1 enables the ASN.1 decoder family.
	ActivateASN1 bool `yaml:"activate_asn1" toml:"activate_asn1"`

	Notes         []Rule         `yaml:"notes" toml:"notes"`
	Shading       []Rule         `yaml:"shading" toml:"shading"`
	Keys          []KeyFile      `yaml:"keys" toml:"keys"`
	Modifications []Modification `yaml:"modifications" toml:"modifications"`

	Display Display `yaml:"display" toml:"display"`
	Log     Log     `yaml:"log" toml:"log"`
}

// Rule pairs a criterion with a text.  For notes the text is attached to
// matching elements; for shading it formats their displayed value.  In both,
// "%s" stands for the element's content.
type Rule struct {
	Criterion string `yaml:"criterion" toml:"criterion"`
	Text      string `yaml:"text" toml:"text"`
}

// Modification rewrites the element selected by Target in messages for which
// Condition holds, then re-encodes the message.  An empty Condition always
// holds.  With a RegexFilter only the matches in the target's content are
// replaced, and ReplaceWith may refer to groups as $1.
type Modification struct {
	Name        string `yaml:"name" toml:"name"`
	Condition   string `yaml:"condition" toml:"condition"`
	Target      string `yaml:"target" toml:"target"`
	ReplaceWith string `yaml:"replace_with" toml:"replace_with"`
	RegexFilter string `yaml:"regex_filter" toml:"regex_filter"`
}

// KeyFile names a PEM file loaded into the key manager at startup.
type KeyFile struct {
	Name       string `yaml:"name" toml:"name"`
	File       string `yaml:"file" toml:"file"`
	Precedence int    `yaml:"precedence" toml:"precedence"`
}

type ColorMode string

const (
	ColorsAuto   ColorMode = "auto"
	ColorsAlways ColorMode = "always"
	ColorsNever  ColorMode = "never"
)

// Display holds formatting and debugging switches.
type Display struct {
	Colors         ColorMode `yaml:"colors" toml:"colors"`
	Facets         bool      `yaml:"facets" toml:"facets"`
	PathDebug      bool      `yaml:"path_debug" toml:"path_debug"`
	CriterionDebug bool      `yaml:"criterion_debug" toml:"criterion_debug"`
}

type Log struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ManageBuffer: true,
		BufferSizeMB: 1024,
		MaxDepth:     64,
		Display: Display{
			Colors: ColorsAuto,
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	if c.BufferSizeMB < 0 {
		errs = append(errs, fmt.Errorf("buffer_size_mb must not be negative, got %d", c.BufferSizeMB))
	}
	if c.MaxDepth <= 0 {
		errs = append(errs, fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth))
	}
	switch c.Display.Colors {
	case "", ColorsAuto, ColorsAlways, ColorsNever:
	default:
		errs = append(errs, fmt.Errorf("unknown color mode %q", c.Display.Colors))
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	for i, r := range c.Notes {
		if r.Criterion == "" {
			errs = append(errs, fmt.Errorf("note %d has no criterion", i))
		}
	}
	for i, r := range c.Shading {
		if r.Criterion == "" {
			errs = append(errs, fmt.Errorf("shading %d has no criterion", i))
		}
	}
	for i, k := range c.Keys {
		if k.File == "" {
			errs = append(errs, fmt.Errorf("key %d has no file", i))
		}
	}
	for i, m := range c.Modifications {
		if m.Target == "" {
			errs = append(errs, fmt.Errorf("modification %d has no target", i))
		}
		if m.RegexFilter != "" {
			if _, err := regexp.Compile(m.RegexFilter); err != nil {
				errs = append(errs, fmt.Errorf("modification %d: %w", i, err))
			}
		}
	}
	if len(errs) != 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
)

// FormatOf picks a format by file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return "", fmt.Errorf("unknown config format for %q", path)
}

// LoadConfig loads a configuration file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		for i := range cfg.Keys {
			if !filepath.IsAbs(cfg.Keys[i].File) {
				cfg.Keys[i].File = filepath.Join(dir, cfg.Keys[i].File)
			}
		}
	}
	return cfg, nil
}

// Parse decodes data on top of the defaults and validates the result.
func Parse(data []byte, format Format) (*Config, error) {
	cfg := DefaultConfig()
	switch format {
	case YAML:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	case TOML:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown config format %q", format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	res := *c
	res.Notes = append([]Rule(nil), c.Notes...)
	res.Shading = append([]Rule(nil), c.Shading...)
	res.Keys = append([]KeyFile(nil), c.Keys...)
	res.Modifications = append([]Modification(nil), c.Modifications...)
	return &res
}

// BufferBytes returns the history capacity in bytes.
func (c *Config) BufferBytes() int64 {
	return int64(c.BufferSizeMB) * MiB
}

// SkipParsingBytes returns the size above which messages are not decoded, or
// zero for no limit.
func (c *Config) SkipParsingBytes() int64 {
	if c.SkipParsingLargerThanMB <= 0 {
		return 0
	}
	return int64(c.SkipParsingLargerThanMB) * MiB
}
