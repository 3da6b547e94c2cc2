package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxLineWidth = 80
	DefaultIndentWidth  = 4
)

// Rule is the raw configuration of one rule. Nil Enabled means "use the
// baseline"; an empty Severity keeps the rule's default.
type Rule struct {
	Enabled  *bool          `yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	Severity string         `yaml:"severity,omitempty" toml:"severity,omitempty"`
	Params   map[string]any `yaml:"params,omitempty" toml:"params,omitempty"`
}

// Config is the unvalidated rule configuration as written by the user.
// rules.Compile turns it into an immutable RuleSet.
type Config struct {
	MaxLineWidth int               `yaml:"maxLineWidth" toml:"maxLineWidth"`
	IndentWidth  int               `yaml:"indentWidth" toml:"indentWidth"`
	All          *bool             `yaml:"all,omitempty" toml:"all,omitempty"`
	Naming       map[string]string `yaml:"naming,omitempty" toml:"naming,omitempty"`
	Rules        map[string]Rule   `yaml:"rules,omitempty" toml:"rules,omitempty"`
}

func NewConfig() *Config {
	return &Config{
		MaxLineWidth: DefaultMaxLineWidth,
		IndentWidth:  DefaultIndentWidth,
		Naming:       make(map[string]string),
		Rules:        make(map[string]Rule),
	}
}

type Format int

const (
	YAML Format = iota
	TOML
)

// FormatOf picks the file format from the extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return YAML, fmt.Errorf("unsupported config format '%s' (want .yaml, .yml or .toml)", filepath.Ext(path))
}

// Load reads a configuration file from fs. Settings absent from the file
// keep their defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data on top of the defaults. Unknown keys are errors.
func Parse(data []byte, format Format) (*Config, error) {
	cfg := NewConfig()
	switch format {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
	case TOML:
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("parsing toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return nil, fmt.Errorf("parsing toml: unknown keys %s", strings.Join(keys, ", "))
		}
	default:
		return nil, fmt.Errorf("unknown config format %d", format)
	}
	if cfg.Naming == nil {
		cfg.Naming = make(map[string]string)
	}
	if cfg.Rules == nil {
		cfg.Rules = make(map[string]Rule)
	}
	return cfg, nil
}

func (c *Config) SetRule(id string, enabled bool) {
	r := c.Rules[id]
	r.Enabled = &enabled
	c.Rules[id] = r
}

func (c *Config) SetSeverity(id, severity string) {
	r := c.Rules[id]
	r.Severity = severity
	c.Rules[id] = r
}

func (c *Config) SetParam(id, name string, value any) {
	r := c.Rules[id]
	if r.Params == nil {
		r.Params = make(map[string]any)
	}
	r.Params[name] = value
	c.Rules[id] = r
}

// SetAll changes the baseline for every rule and forgets per-rule switches
// made before it, the way -Wall overrides earlier settings.
func (c *Config) SetAll(enabled bool) {
	c.All = &enabled
	for id, r := range c.Rules {
		r.Enabled = nil
		c.Rules[id] = r
	}
}

// ApplyFlag understands -W<rule>, -Wno-<rule>, -Wall, -Wno-all and
// -Werror=<rule>. Unknown rule names are kept and rejected by rules.Compile.
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimLeft(flag, "-")
	if !strings.HasPrefix(trimmed, "W") {
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}
	name := strings.TrimPrefix(trimmed, "W")

	if sev, ok := strings.CutPrefix(name, "error="); ok {
		if sev == "" {
			return fmt.Errorf("missing rule name in '%s'", flag)
		}
		c.SetRule(sev, true)
		c.SetSeverity(sev, "error")
		return nil
	}

	enable := true
	if rest, ok := strings.CutPrefix(name, "no-"); ok {
		name, enable = rest, false
	}
	if name == "" {
		return fmt.Errorf("missing rule name in '%s'", flag)
	}
	if name == "all" {
		c.SetAll(enable)
		return nil
	}
	c.SetRule(name, enable)
	return nil
}

func isAllFlag(name string) bool { return name == "Wall" || name == "Wno-all" }

// ProcessFlags applies -Wall/-Wno-all before any specific rule flag so the
// specific ones win regardless of command-line order.
func (c *Config) ProcessFlags(visitFlag func(fn func(name string))) error {
	var errs []error
	visitFlag(func(name string) {
		if isAllFlag(name) {
			errs = append(errs, c.ApplyFlag("-"+name))
		}
	})
	visitFlag(func(name string) {
		if !isAllFlag(name) {
			errs = append(errs, c.ApplyFlag("-"+name))
		}
	})
	return errors.Join(errs...)
}

// ProcessFlagString applies whitespace separated flags, for example from
// the CSTYLE_FLAGS environment variable.
func (c *Config) ProcessFlagString(flagStr string) error {
	fields := strings.Fields(flagStr)
	return c.ProcessFlags(func(fn func(string)) {
		for _, f := range fields {
			fn(strings.TrimLeft(f, "-"))
		}
	})
}

// RuleIDs lists the rules mentioned in the configuration, sorted.
func (c *Config) RuleIDs() []string {
	ids := make([]string, 0, len(c.Rules))
	for id := range c.Rules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
