package cmd

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/syssam/schemac/compiler/cache"
	"github.com/syssam/schemac/compiler/gen"
	"github.com/syssam/schemac/compiler/lint"
	"github.com/syssam/schemac/compiler/load"
	"github.com/syssam/schemac/compiler/validate"
)

// DefaultConfigFile is read when --config is not given. It may be absent.
const DefaultConfigFile = "schemac.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCHEMAC_"

// Config is the content of schemac.yaml after environment and flag
// overrides.
type Config struct {
	Root         string                   `yaml:"root"`
	Include      []string                 `yaml:"include"`
	Skip         []string                 `yaml:"skip"`
	IncludeGlobs []string                 `yaml:"include_globs"`
	SkipGlobs    []string                 `yaml:"skip_globs"`
	Primitives   []string                 `yaml:"primitives"`
	External     map[string]string        `yaml:"external"`
	Output       string                   `yaml:"output"`
	Languages    []string                 `yaml:"languages"`
	Layout       string                   `yaml:"layout"`
	Bundle       string                   `yaml:"bundle"`
	Header       string                   `yaml:"header"`
	Workers      int                      `yaml:"workers"`
	Profiles     map[string]ProfileConfig `yaml:"profiles"`
	Validator    ValidatorConfig          `yaml:"validator"`
	Lint         LintConfig               `yaml:"lint"`
	Cache        CacheConfig              `yaml:"cache"`
	Log          LogConfig                `yaml:"log"`
}

// ProfileConfig overrides a built-in render profile.
type ProfileConfig struct {
	Types    map[string]string `yaml:"types"`
	Optional string            `yaml:"optional"`
}

// ValidatorConfig selects the external validator.
type ValidatorConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// LintConfig configures lint rules.
type LintConfig struct {
	RequireKind bool     `yaml:"require_kind"`
	Disable     []string `yaml:"disable"`
}

// CacheConfig enables the render cache.
type CacheConfig struct {
	Dir  string `yaml:"dir"`
	Size int    `yaml:"size"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Root:      ".",
		Output:    "gen",
		Languages: []string{"go"},
		Layout:    string(gen.LayoutPerType),
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads a config file over the defaults. A missing file is an
// error only when required.
func LoadConfig(path string, required bool) (*Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !required:
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv applies SCHEMAC_* overrides.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	env := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}
	if v, ok := env("ROOT"); ok {
		c.Root = v
	}
	if v, ok := env("OUTPUT"); ok {
		c.Output = v
	}
	if v, ok := env("LANGUAGES"); ok {
		c.Languages = splitList(v)
	}
	if v, ok := env("LAYOUT"); ok {
		c.Layout = v
	}
	if v, ok := env("HEADER"); ok {
		c.Header = v
	}
	if v, ok := env("WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %sWORKERS: %w", EnvPrefix, err)
		}
		c.Workers = n
	}
	if v, ok := env("VALIDATOR"); ok {
		c.Validator.Command = v
	}
	if v, ok := env("CACHE_DIR"); ok {
		c.Cache.Dir = v
	}
	if v, ok := env("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := env("LOG_FORMAT"); ok {
		c.Log.Format = v
	}
	return nil
}

// ApplyFlags applies the flags set on the command line.
func (c *Config) ApplyFlags(flags *pflag.FlagSet) error {
	var errs []error
	str := func(name string, dst *string) {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			return
		}
		v, err := flags.GetString(name)
		errs = append(errs, err)
		*dst = v
	}
	str(FlagRoot, &c.Root)
	str(FlagOutput, &c.Output)
	str(FlagLayout, &c.Layout)
	str(FlagLogLevel, &c.Log.Level)
	str(FlagLogFormat, &c.Log.Format)
	if flags.Lookup(FlagLanguage) != nil && flags.Changed(FlagLanguage) {
		v, err := flags.GetStringSlice(FlagLanguage)
		errs = append(errs, err)
		c.Languages = v
	}
	if flags.Lookup(FlagWorkers) != nil && flags.Changed(FlagWorkers) {
		v, err := flags.GetInt(FlagWorkers)
		errs = append(errs, err)
		c.Workers = v
	}
	return errors.Join(errs...)
}

// LoaderOptions returns the corpus filters.
func (c *Config) LoaderOptions() []load.Option {
	return []load.Option{
		load.WithInclude(c.Include...),
		load.WithSkip(c.Skip...),
		load.WithGlobs(c.IncludeGlobs, c.SkipGlobs),
	}
}

// GenConfig builds the generation config. All option errors are reported
// together.
func (c *Config) GenConfig() (*gen.Config, error) {
	opts := []gen.Option{
		gen.WithTarget(cmp.Or(c.Output, "gen")),
		gen.WithLayout(gen.Layout(c.Layout)),
		gen.WithHeader(c.Header),
		gen.WithPrimitives(c.Primitives...),
		gen.WithExternal(c.External),
	}
	if c.Workers > 0 {
		opts = append(opts, gen.WithWorkers(c.Workers))
	}
	if c.Bundle != "" {
		opts = append(opts, gen.WithBundle(c.Bundle))
	}
	for lang, pc := range c.Profiles {
		p, ok := gen.Profile(lang)
		if !ok {
			return nil, gen.NewConfigError("Profiles", lang, "no built-in profile to override")
		}
		if err := p.Override(pc.Types, gen.OptionalStrategy(pc.Optional)); err != nil {
			return nil, err
		}
		opts = append(opts, gen.WithProfile(p))
	}
	opts = append(opts, gen.WithLanguages(c.Languages...))
	if c.Cache.Dir != "" {
		var copts []cache.Option
		if c.Cache.Size > 0 {
			copts = append(copts, cache.WithSize(c.Cache.Size))
		}
		store, err := cache.New(append(copts, cache.WithDir(c.Cache.Dir))...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, gen.WithCache(store))
	}
	cfg, err := gen.NewConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyAll(opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LintOptions returns the lint options.
func (c *Config) LintOptions() []lint.Option {
	return []lint.Option{
		lint.WithRequireKind(c.Lint.RequireKind),
		lint.WithDisabled(c.Lint.Disable...),
	}
}

// NewValidator returns the configured validator.
func (c *Config) NewValidator() validate.Validator {
	return validate.New(validate.Config{
		Command: c.Validator.Command,
		Args:    c.Validator.Args,
		Root:    c.Root,
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
