package wizard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
)

// KeyCase selects the case transform applied to field names when deriving
// tree keys. Explicit renames and aliases bypass the transform.
type KeyCase int

const (
	// KeyCaseSnake renders field names as snake_case. Default.
	KeyCaseSnake KeyCase = iota

	// KeyCaseCamel renders field names as lowerCamelCase.
	KeyCaseCamel

	// KeyCasePascal renders field names as PascalCase.
	KeyCasePascal

	// KeyCaseKebab renders field names as kebab-case.
	KeyCaseKebab

	// KeyCaseNone keeps the Go field name unchanged.
	KeyCaseNone
)

// Apply transforms a Go field name into a tree key.
func (c KeyCase) Apply(name string) string {
	switch c {
	case KeyCaseSnake:
		return strcase.ToSnake(name)
	case KeyCaseCamel:
		return strcase.ToLowerCamel(name)
	case KeyCasePascal:
		return strcase.ToCamel(name)
	case KeyCaseKebab:
		return strcase.ToKebab(name)
	default:
		return name
	}
}

// TimeMode selects how temporal values render in trees.
type TimeMode int

const (
	// TimeRFC3339 renders times as RFC 3339 text with UTC as literal 'Z'.
	// Default.
	TimeRFC3339 TimeMode = iota

	// TimeUnix renders times as integer epoch seconds, normalized to UTC.
	TimeUnix
)

// UnknownKeyPolicy selects what happens to input keys no declared field
// claims when the schema has no catch-all field.
type UnknownKeyPolicy int

const (
	// UnknownKeyIgnore drops unmapped keys silently. Default.
	UnknownKeyIgnore UnknownKeyPolicy = iota

	// UnknownKeyWarn drops unmapped keys and emits a diagnostic signal.
	UnknownKeyWarn

	// UnknownKeyRaise fails the conversion with a ParseError.
	UnknownKeyRaise
)

// SkipFunc is a per-field skip predicate: returning true omits the field
// from dump output.
type SkipFunc func(v any) bool

// DefaultFunc produces a fresh default value for a field absent on load.
// Mutually exclusive with a default= tag literal on the same field.
type DefaultFunc func() any

// Config holds the resolved conversion configuration for a schema.
// A Config is read-only once a plan has been compiled against it.
type Config struct {
	// TagKey is the struct tag key carrying field options.
	TagKey string

	// KeyCase transforms field names into dump keys.
	KeyCase KeyCase

	// UnionTagKey is the discriminator key embedded in serialized union
	// variants.
	UnionTagKey string

	// AutoAssignTags synthesizes a variant's type name as its tag when the
	// variant was registered without one.
	AutoAssignTags bool

	// SkipDefaults omits fields whose value equals their declared default.
	SkipDefaults bool

	// UnknownKeys selects handling of unmapped input keys.
	UnknownKeys UnknownKeyPolicy

	// TimeMode selects temporal output rendering.
	TimeMode TimeMode

	// Location is applied when a temporal layout carries no zone
	// information. Nil means UTC.
	Location *time.Location

	// Layouts are fallback temporal layouts tried after the RFC 3339 fast
	// path, in order, for fields without a format= tag.
	Layouts []string

	// Recursive applies this configuration to nested record plans. When
	// false, nested records compile against the default configuration.
	Recursive bool

	skipFuncs    map[string]SkipFunc
	defaultFuncs map[string]DefaultFunc
}

// defaultLayouts are tried after the RFC 3339 fast path.
var defaultLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
	time.TimeOnly,
}

// defaultConfig returns the configuration used when no options are given.
func defaultConfig() *Config {
	return &Config{
		TagKey:      "wiz",
		KeyCase:     KeyCaseSnake,
		UnionTagKey: "__tag__",
		Layouts:     defaultLayouts,
		Recursive:   true,
	}
}

// newConfig resolves options into a Config.
func newConfig(opts ...Option) *Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// location returns the configured default location, or UTC.
func (c *Config) location() *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return time.UTC
}

// nested returns the configuration nested record plans compile against.
func (c *Config) nested() *Config {
	if c.Recursive {
		return c
	}
	return defaultConfig()
}

// fingerprint derives the cache-key component for this configuration.
// Two configs with equal fingerprints compile identical plans.
func (c *Config) fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%d|%s|%t|%t|%d|%d|%t", c.TagKey, c.KeyCase, c.UnionTagKey,
		c.AutoAssignTags, c.SkipDefaults, c.UnknownKeys, c.TimeMode, c.Recursive)
	fmt.Fprintf(&b, "|%s", c.location().String())
	fmt.Fprintf(&b, "|%s", strings.Join(c.Layouts, ","))
	for _, m := range []int{0, 1} {
		var names []string
		if m == 0 {
			for name := range c.skipFuncs {
				names = append(names, name)
			}
		} else {
			for name := range c.defaultFuncs {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		fmt.Fprintf(&b, "|%s", strings.Join(names, ","))
	}
	return b.String()
}

// Option configures a schema plan.
type Option func(*Config)

// WithTagKey sets the struct tag key carrying field options.
func WithTagKey(key string) Option {
	return func(c *Config) { c.TagKey = key }
}

// WithKeyCase sets the dump-key case transform.
func WithKeyCase(kc KeyCase) Option {
	return func(c *Config) { c.KeyCase = kc }
}

// WithUnionTagKey sets the union discriminator key.
func WithUnionTagKey(key string) Option {
	return func(c *Config) { c.UnionTagKey = key }
}

// WithAutoTags enables auto-assignment of union variant tags from type names.
func WithAutoTags(v bool) Option {
	return func(c *Config) { c.AutoAssignTags = v }
}

// WithSkipDefaults omits fields equal to their declared default on dump.
func WithSkipDefaults(v bool) Option {
	return func(c *Config) { c.SkipDefaults = v }
}

// WithUnknownKeys sets the unmapped-input-key policy.
func WithUnknownKeys(p UnknownKeyPolicy) Option {
	return func(c *Config) { c.UnknownKeys = p }
}

// WithTimeMode sets temporal output rendering.
func WithTimeMode(m TimeMode) Option {
	return func(c *Config) { c.TimeMode = m }
}

// WithLocation sets the location applied to zone-less temporal layouts.
func WithLocation(loc *time.Location) Option {
	return func(c *Config) { c.Location = loc }
}

// WithLayouts sets the fallback temporal layouts tried in declared order.
func WithLayouts(layouts ...string) Option {
	return func(c *Config) { c.Layouts = layouts }
}

// WithRecursive controls whether the configuration applies to nested
// record plans.
func WithRecursive(v bool) Option {
	return func(c *Config) { c.Recursive = v }
}

// WithSkipFunc registers a dump-side skip predicate for a field, by Go
// field name.
func WithSkipFunc(field string, fn SkipFunc) Option {
	return func(c *Config) {
		if c.skipFuncs == nil {
			c.skipFuncs = make(map[string]SkipFunc)
		}
		c.skipFuncs[field] = fn
	}
}

// WithDefaultFactory registers a load-side default factory for a field, by
// Go field name. Mutually exclusive with a default= tag literal.
func WithDefaultFactory(field string, fn DefaultFunc) Option {
	return func(c *Config) {
		if c.defaultFuncs == nil {
			c.defaultFuncs = make(map[string]DefaultFunc)
		}
		c.defaultFuncs[field] = fn
	}
}
