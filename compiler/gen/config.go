package gen

import (
	"errors"
	"maps"
	"runtime"
	"slices"
	"strings"

	"github.com/syssam/schemac"
)

// Layout selects how regions are distributed over files.
type Layout string

// Layouts.
const (
	// LayoutPerType writes one file per region.
	LayoutPerType Layout = "per-type"
	// LayoutBundle writes all regions of a language into one file.
	LayoutBundle Layout = "bundle"
)

// Config holds the generation settings of a compilation run.
type Config struct {
	// Target is the output directory. Each language writes below
	// Target/<language>.
	Target    string
	Languages []string
	Workers   int
	Layout    Layout
	// Bundle is the file stem of the bundle layout.
	Bundle string
	Header string
	// Primitives are hand-written schemas that are never generated.
	Primitives []string
	// External maps schema ids to types provided by a dependency.
	External map[string]string
	// Profiles overrides built-in profiles by language.
	Profiles map[string]*RenderProfile
	Cache    schemac.Cache
}

// Option configures code generation.
type Option func(*Config) error

// WithTarget sets the output directory.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("Target", nil, "target directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithLanguages selects the emitted languages. Each needs a built-in
// profile or one set with WithProfile.
func WithLanguages(langs ...string) Option {
	return func(c *Config) error {
		for _, l := range langs {
			if _, ok := builtin[l]; !ok && c.Profiles[l] == nil {
				return NewConfigError("Languages", l, "unknown language; use one of "+strings.Join(Languages(), ", "))
			}
			if !slices.Contains(c.Languages, l) {
				c.Languages = append(c.Languages, l)
			}
		}
		return nil
	}
}

// WithWorkers sets the number of parallel emitters.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return NewConfigError("Workers", n, "workers cannot be negative")
		}
		c.Workers = n
		return nil
	}
}

// WithLayout sets the file layout.
func WithLayout(l Layout) Option {
	return func(c *Config) error {
		switch l {
		case LayoutPerType, LayoutBundle:
			c.Layout = l
			return nil
		default:
			return NewConfigError("Layout", l, "use per-type or bundle")
		}
	}
}

// WithBundle sets the file stem used by the bundle layout.
func WithBundle(stem string) Option {
	return func(c *Config) error {
		if stem == "" {
			return NewConfigError("Bundle", nil, "bundle name cannot be empty")
		}
		c.Bundle = stem
		return nil
	}
}

// WithHeader sets the file header comment.
// The header is added at the top of each generated file.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithPrimitives adds hand-written schema ids.
func WithPrimitives(ids ...string) Option {
	return func(c *Config) error {
		c.Primitives = append(c.Primitives, ids...)
		return nil
	}
}

// WithExternal maps schema ids to externally provided types.
func WithExternal(m map[string]string) Option {
	return func(c *Config) error {
		if c.External == nil {
			c.External = make(map[string]string, len(m))
		}
		maps.Copy(c.External, m)
		return nil
	}
}

// WithProfile sets the render profile of its language.
func WithProfile(p *RenderProfile) Option {
	return func(c *Config) error {
		if p == nil || p.Language == "" {
			return NewConfigError("Profile", nil, "profile needs a language")
		}
		if c.Profiles == nil {
			c.Profiles = make(map[string]*RenderProfile)
		}
		c.Profiles[p.Language] = p
		return nil
	}
}

// WithCache sets the render cache.
func WithCache(cache schemac.Cache) Option {
	return func(c *Config) error {
		c.Cache = cache
		return nil
	}
}

// ProfileFor returns the profile of a language: the configured one, else
// the built-in one.
func (c *Config) ProfileFor(lang string) (*RenderProfile, error) {
	if p, ok := c.Profiles[lang]; ok {
		return p, nil
	}
	if p, ok := Profile(lang); ok {
		return p, nil
	}
	return nil, NewConfigError("Profile", lang, "no profile for language")
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
// Returns a joined error if any options failed.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewConfig creates a new Config with defaults and the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Workers: runtime.GOMAXPROCS(0),
		Layout:  LayoutPerType,
		Bundle:  "types",
	}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNewConfig creates a new Config with the given options.
// It panics if any option fails.
func MustNewConfig(opts ...Option) *Config {
	c, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return c
}
