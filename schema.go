package wizard

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/zoobzio/sentinel"
)

// pathPart is one step of a nested-path alias: a mapping key or a sequence
// index.
type pathPart struct {
	key     string
	index   int
	isIndex bool
}

func (p pathPart) String() string {
	if p.isIndex {
		return strconv.Itoa(p.index)
	}
	return p.key
}

// field is one declared schema field with its resolved load/dump metadata.
// The enc/dec closures and the coerced default value are filled in when the
// owning plan compiles.
type field struct {
	name    string // Go field name
	key     string // dump key
	aliases []string
	path    []pathPart
	index   []int // reflect.Value.FieldByIndex access path
	typ     reflect.Type
	ann     annotations

	required    bool
	omitEmpty   bool
	skipDefault bool
	catchAll    bool

	defaultLit    string
	hasDefaultLit bool
	defaultFn     DefaultFunc
	skipFn        SkipFunc

	loadKeys []string // keys tried on load, in priority order
	normKeys []string // normalized forms of loadKeys for lenient matching

	hasDefault bool
	defaultVal reflect.Value

	enc encoderFunc
	dec decoderFunc
}

// schema is a record type's ordered field declarations plus configuration.
// Read-only once compiled.
type schema struct {
	typ      reflect.Type
	name     string
	cfg      *Config
	fields   []*field
	catchAll *field
	// knownKeys holds every input key claimed by a declared field; the
	// catch-all set-difference runs against it.
	knownKeys map[string]struct{}
}

func (s *schema) fieldNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.name
	}
	return names
}

// scanSchema resolves a struct type's declared fields against a
// configuration. Field enumeration comes from sentinel metadata; exported
// fields only, and anonymous embedded structs without a tag flatten into
// the parent schema.
func scanSchema(rt reflect.Type, cfg *Config) (*schema, error) {
	if rt.Kind() != reflect.Struct {
		return nil, newUnsupportedTypeError(rt, "schemas must be struct types")
	}
	s := &schema{
		typ:       rt,
		name:      recordName(rt),
		cfg:       cfg,
		knownKeys: make(map[string]struct{}),
	}
	if err := s.scanFields(rt, typeMetadata(rt, cfg), nil, cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// typeMetadata resolves a struct type's sentinel metadata. Top-level types
// pass through sentinel.Scan and resolve from its registry; nested types
// reached only through fields are scanned here in the same shape.
func typeMetadata(rt reflect.Type, cfg *Config) sentinel.Metadata {
	if meta, ok := sentinel.Lookup(rt.String()); ok {
		return meta
	}

	meta := sentinel.Metadata{
		TypeName:    rt.Name(),
		PackageName: rt.PkgPath(),
		Fields:      make([]sentinel.FieldMetadata, 0, rt.NumField()),
	}
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}

		fm := sentinel.FieldMetadata{
			Name:        sf.Name,
			Type:        sf.Type.String(),
			ReflectType: sf.Type,
			Index:       sf.Index,
			Tags:        make(map[string]string),
		}
		if tag, ok := sf.Tag.Lookup(cfg.TagKey); ok {
			fm.Tags[cfg.TagKey] = tag
		}

		switch sf.Type.Kind() {
		case reflect.Struct:
			fm.Kind = sentinel.KindStruct
		case reflect.Pointer:
			fm.Kind = sentinel.KindPointer
		case reflect.Slice, reflect.Array:
			fm.Kind = sentinel.KindSlice
		case reflect.Map:
			fm.Kind = sentinel.KindMap
		case reflect.Interface:
			fm.Kind = sentinel.KindInterface
		default:
			fm.Kind = sentinel.KindScalar
		}

		meta.Fields = append(meta.Fields, fm)
	}
	return meta
}

// scanFields walks the metadata's fields, recursing through untagged
// anonymous embedded structs with the parent index prefix.
func (s *schema) scanFields(rt reflect.Type, meta sentinel.Metadata, prefix []int, cfg *Config) error {
	for _, fm := range meta.Fields {
		sf := rt.FieldByIndex(fm.Index)
		if !sf.IsExported() {
			continue
		}
		tag, ok := fm.Tags[cfg.TagKey]
		if !ok {
			// Metadata cached before the tag key was registered does not
			// carry it; the struct tag itself is authoritative.
			tag = sf.Tag.Get(cfg.TagKey)
		}
		if tag == "-" {
			continue
		}
		if sf.Anonymous && fm.Kind == sentinel.KindStruct && tag == "" {
			nested := append(append([]int{}, prefix...), fm.Index...)
			if err := s.scanFields(fm.ReflectType, typeMetadata(fm.ReflectType, cfg), nested, cfg); err != nil {
				return err
			}
			continue
		}

		f, err := parseFieldTag(fm, tag, cfg)
		if err != nil {
			return fmt.Errorf("schema %s: %w", s.name, err)
		}
		f.index = append(append([]int{}, prefix...), fm.Index...)

		if f.catchAll {
			if s.catchAll != nil {
				return fmt.Errorf("schema %s: %w: duplicate catchall on field %s",
					s.name, ErrInvalidTag, fm.Name)
			}
			if fm.ReflectType != reflect.TypeOf(map[string]any(nil)) {
				return fmt.Errorf("schema %s: %w: catchall field %s must be map[string]any",
					s.name, ErrInvalidTag, fm.Name)
			}
			s.catchAll = f
			// The collector claims no input keys of its own.
			s.fields = append(s.fields, f)
			continue
		}

		f.loadKeys = loadKeys(f, sf.Name)
		for _, k := range f.loadKeys {
			f.normKeys = append(f.normKeys, normalizeKey(k))
		}
		if len(f.path) > 0 {
			s.knownKeys[f.path[0].String()] = struct{}{}
		} else {
			for _, k := range f.loadKeys {
				s.knownKeys[k] = struct{}{}
			}
		}

		s.fields = append(s.fields, f)
	}
	return nil
}

// parseFieldTag resolves one field's tag options against the configuration.
func parseFieldTag(fm sentinel.FieldMetadata, tag string, cfg *Config) (*field, error) {
	f := &field{
		name: fm.Name,
		typ:  fm.ReflectType,
	}

	parts := strings.Split(tag, ",")
	rename := parts[0]
	for _, opt := range parts[1:] {
		val := ""
		if eq := strings.IndexByte(opt, '='); eq >= 0 {
			opt, val = opt[:eq], opt[eq+1:]
		}
		switch opt {
		case "":
		case "omitempty":
			f.omitEmpty = true
		case "skipdefault":
			f.skipDefault = true
		case "required":
			f.required = true
		case "catchall":
			f.catchAll = true
		case "unix":
			f.ann.unix = true
		case "alias":
			f.aliases = strings.Split(val, "|")
		case "path":
			p, err := parsePath(val)
			if err != nil {
				return nil, fmt.Errorf("%w: field %s: %v", ErrInvalidTag, fm.Name, err)
			}
			f.path = p
		case "default":
			f.defaultLit = val
			f.hasDefaultLit = true
		case "format":
			f.ann.layouts = strings.Split(val, "|")
		case "tz":
			loc, err := time.LoadLocation(val)
			if err != nil {
				return nil, fmt.Errorf("%w: field %s: unknown location %q", ErrInvalidTag, fm.Name, val)
			}
			f.ann.loc = loc
		default:
			return nil, fmt.Errorf("%w: field %s: unknown option %q", ErrInvalidTag, fm.Name, opt)
		}
	}

	// A field resolves through at most one of direct alias and path alias.
	if len(f.aliases) > 0 && len(f.path) > 0 {
		return nil, fmt.Errorf("%w: field %s: alias and path are mutually exclusive", ErrInvalidTag, fm.Name)
	}

	if rename != "" {
		f.key = rename
	} else {
		f.key = cfg.KeyCase.Apply(fm.Name)
	}

	f.skipFn = cfg.skipFuncs[fm.Name]
	f.defaultFn = cfg.defaultFuncs[fm.Name]
	if f.defaultFn != nil && f.hasDefaultLit {
		return nil, fmt.Errorf("%w: field %s: default literal and default factory are mutually exclusive",
			ErrInvalidTag, fm.Name)
	}

	return f, nil
}

// parsePath parses a dot-separated nested path; all-digit segments address
// sequence positions.
func parsePath(raw string) ([]pathPart, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty path")
	}
	segs := strings.Split(raw, ".")
	parts := make([]pathPart, 0, len(segs))
	for _, seg := range segs {
		if seg == "" {
			return nil, fmt.Errorf("empty path segment in %q", raw)
		}
		if n, err := strconv.Atoi(seg); err == nil {
			parts = append(parts, pathPart{index: n, isIndex: true})
			continue
		}
		parts = append(parts, pathPart{key: seg})
	}
	if parts[0].isIndex {
		return nil, fmt.Errorf("path %q must start with a mapping key", raw)
	}
	return parts, nil
}

// loadKeys returns the keys tried for a field on load, in priority order:
// declared aliases, the dump key, then the Go field name.
func loadKeys(f *field, goName string) []string {
	keys := make([]string, 0, len(f.aliases)+2)
	keys = append(keys, f.aliases...)
	if f.key != "" {
		keys = append(keys, f.key)
	}
	if goName != f.key {
		keys = append(keys, goName)
	}
	return keys
}

// normalizeKey folds case and separator differences so camelCase input
// matches snake_case declarations and vice versa.
func normalizeKey(k string) string {
	var b strings.Builder
	b.Grow(len(k))
	for _, r := range k {
		switch r {
		case '_', '-', ' ':
			continue
		}
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// lookup finds a field's raw value in the input mapping: exact keys in
// priority order, the nested path when declared, then a lenient normalized
// match. Returns the value, the claimed top-level key and whether a value
// was found.
func (f *field) lookup(m map[string]any) (any, string, bool) {
	if len(f.path) > 0 {
		v, ok := walkPath(m, f.path)
		return v, f.path[0].String(), ok
	}
	for _, k := range f.loadKeys {
		if v, ok := m[k]; ok {
			return v, k, true
		}
	}
	for k, v := range m {
		nk := normalizeKey(k)
		for _, want := range f.normKeys {
			if nk == want {
				return v, k, true
			}
		}
	}
	return nil, "", false
}

// walkPath digs into a tree along mapping keys and sequence indices.
func walkPath(root any, path []pathPart) (any, bool) {
	cur := root
	for _, p := range path {
		if p.isIndex {
			seq, ok := asSlice(cur)
			if !ok || p.index < 0 || p.index >= len(seq) {
				return nil, false
			}
			cur = seq[p.index]
			continue
		}
		m, ok := asStringMap(cur)
		if !ok {
			return nil, false
		}
		v, ok := m[p.key]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// setPath writes a value into a nested output structure, creating
// intermediate mappings and growing sequences as needed.
func setPath(root map[string]any, path []pathPart, val any) {
	head := path[0]
	if len(path) == 1 {
		root[head.key] = val
		return
	}
	rest := path[1:]
	if rest[0].isIndex {
		seq, _ := root[head.key].([]any)
		root[head.key] = setSeqPath(seq, rest, val)
		return
	}
	m, ok := root[head.key].(map[string]any)
	if !ok {
		m = map[string]any{}
		root[head.key] = m
	}
	setPath(m, rest, val)
}

// setSeqPath writes along a sequence step, growing the slice to cover the
// index.
func setSeqPath(seq []any, path []pathPart, val any) []any {
	idx := path[0].index
	for len(seq) <= idx {
		seq = append(seq, nil)
	}
	if len(path) == 1 {
		seq[idx] = val
		return seq
	}
	rest := path[1:]
	if rest[0].isIndex {
		inner, _ := seq[idx].([]any)
		seq[idx] = setSeqPath(inner, rest, val)
		return seq
	}
	m, ok := seq[idx].(map[string]any)
	if !ok {
		m = map[string]any{}
		seq[idx] = m
	}
	setPath(m, rest, val)
	return seq
}
