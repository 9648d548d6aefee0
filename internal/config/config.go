// Package config loads and validates sqlaudit's run configuration, merging
// defaults, an optional TOML file, and CLI flags in that priority order the
// way the teacher's internal/parser/toml decodes a schema file into a
// struct-tagged type with BurntSushi/toml, then validates the merged result
// with go-playground/validator/v10 struct tags the way
// xaas-cloud-genai-toolbox validates its source configs.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"sqlaudit/internal/diagnostic"
)

// Config is the merged configuration for one sqlaudit invocation.
type Config struct {
	Dialect       string   `toml:"dialect" validate:"omitempty,oneof=mysql"`
	DisabledRules []string `toml:"disabled_rules" validate:"dive,len=5"`
	MaxErrors     int      `toml:"max_errors" validate:"gte=0"`
	Files         []string `toml:"files"`
	OutputFormat  string   `toml:"output_format" validate:"oneof=human json sarif"`
	FailOn        string   `toml:"fail_on" validate:"oneof=error warning"`
}

// Default returns the configuration used when no file and no flags override
// it: human output, MySQL dialect, unbounded diagnostics, fail on any error.
func Default() Config {
	return Config{
		Dialect:      "mysql",
		MaxErrors:    0,
		OutputFormat: "human",
		FailOn:       "error",
	}
}

// Load reads path (if it exists) as a TOML file and overlays it onto
// Default(). A missing file is not an error — it means "use defaults",
// mirroring how a project without a schema file still analyzes fine.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	if _, err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: decode %q: %w", path, err)
	}
	return cfg, nil
}

// Overrides carries the subset of Config a CLI invocation can set via flags.
// Only fields a caller actually set should be non-zero; Merge only ever
// overwrites a field backed by a non-zero override.
type Overrides struct {
	Dialect       string
	DisabledRules []string
	MaxErrors     *int
	Files         []string
	OutputFormat  string
	FailOn        string
}

// Merge layers o onto cfg, giving flags the highest priority of the three
// configuration sources (spec.md §6.2: defaults -> file -> flags).
func Merge(cfg Config, o Overrides) Config {
	if o.Dialect != "" {
		cfg.Dialect = o.Dialect
	}
	if len(o.DisabledRules) > 0 {
		cfg.DisabledRules = o.DisabledRules
	}
	if o.MaxErrors != nil {
		cfg.MaxErrors = *o.MaxErrors
	}
	if len(o.Files) > 0 {
		cfg.Files = o.Files
	}
	if o.OutputFormat != "" {
		cfg.OutputFormat = o.OutputFormat
	}
	if o.FailOn != "" {
		cfg.FailOn = o.FailOn
	}
	return cfg
}

var validate = validator.New()

// Validate reports whether cfg satisfies its struct tags, translating the
// first validator.FieldError into a plain error a CLI can print directly.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: field %q failed %q constraint", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// DisabledSet converts cfg's textual rule list into a diagnostic.Set the
// analyzer can query in O(1) per diagnostic.
func DisabledSet(cfg Config) diagnostic.Set {
	if len(cfg.DisabledRules) == 0 {
		return nil
	}
	set := make(diagnostic.Set, len(cfg.DisabledRules))
	for _, code := range cfg.DisabledRules {
		set[diagnostic.Code(code)] = true
	}
	return set
}
