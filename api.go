// Package wizard converts structured record types to and from generic tree
// data (the maps, slices, and scalars produced by JSON-style decoders).
//
// Conversion routines are compiled once per record type and configuration,
// then cached. A compiled plan walks a struct's declared fields with
// closures specialized to each field's shape, so repeated conversions pay
// no per-call reflection beyond field access.
//
// # Tag Syntax
//
// Field behavior is declared under the "wiz" struct tag key:
//
//	wiz:"name"                 - rename the output key
//	wiz:"-"                    - skip the field entirely
//	wiz:",alias=a|b"           - accept extra input keys
//	wiz:",path=meta.owner.0"   - map to a nested input location
//	wiz:",default=5"           - fallback when the input key is absent
//	wiz:",required"            - error when the input key is absent
//	wiz:",omitempty"           - drop zero values from output
//	wiz:",skipdefault"         - drop values equal to the field default
//	wiz:",catchall"            - collect unclaimed input keys (map[string]any)
//	wiz:",unix"                - epoch-seconds form for a time field
//	wiz:",format=2006-01-02"   - extra parse layouts for a time field
//	wiz:",tz=America/New_York" - zone for zone-less layouts
//
// # Basic Usage
//
//	type User struct {
//	    ID    int        `wiz:"id,required"`
//	    Name  string     `wiz:",alias=full_name"`
//	    Email *string    // optional, collapses to null
//	    Since time.Time  `wiz:",unix"`
//	}
//
//	w, _ := wizard.For[User]()
//
//	// Tree to record
//	u, _ := w.FromTree(ctx, map[string]any{"id": 1, "full_name": "Alice"})
//
//	// Record to tree
//	tree, _ := w.ToTree(ctx, *u)
//
// # Special Shapes
//
// Beyond scalars, slices, maps, and nested structs, the converter handles
// pointers (optional values), fixed-size arrays (strict arity), time.Time,
// time.Duration, uuid.UUID, decimal.Decimal, []byte (base64), registered
// enums, tagged interface unions, and any type implementing
// encoding.TextMarshaler/TextUnmarshaler or the TreeMarshaler and
// TreeUnmarshaler overrides.
//
// # Extension Points
//
//   - RegisterEnum constrains a named scalar type to a declared value set
//   - RegisterUnion maps an interface to tagged concrete variants
//   - RegisterCodec supplies conversion functions for an opaque type
//
// # Codec Providers
//
// The following byte-level codecs are available as subpackages:
//
//   - json - JSON encoding (application/json)
//   - yaml - YAML encoding (application/yaml)
//   - toml - TOML encoding (application/toml)
//   - msgpack - MessagePack encoding (application/msgpack)
package wizard

import (
	"context"
	"errors"
	"reflect"
	"time"

	"github.com/zoobzio/sentinel"
)

func init() {
	// Register the default tag with sentinel so scanned metadata carries it
	sentinel.Tag("wiz")
}

// ErrNoCodec reports a byte-level operation on a Wizard without a codec.
var ErrNoCodec = errors.New("no codec configured")

// Wizard converts values of one record type to and from generic trees.
// Safe for concurrent use.
type Wizard[T any] struct {
	plan  *plan
	cfg   *Config
	codec Codec
}

// For compiles (or retrieves from cache) the conversion plan for T.
// T must be a struct type.
func For[T any](opts ...Option) (*Wizard[T], error) {
	cfg := newConfig(opts...)
	// Register the configured tag before scanning so the metadata carries
	// it. The plan builder resolves the scanned metadata via sentinel.Lookup.
	if cfg.TagKey != "wiz" {
		sentinel.Tag(cfg.TagKey)
	}
	sentinel.Scan[T]()

	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return nil, newUnsupportedTypeError(t, "record conversion requires a struct type")
	}
	p, err := compilePlan(t, cfg)
	if err != nil {
		return nil, err
	}
	return &Wizard[T]{plan: p, cfg: cfg}, nil
}

// WithCodec attaches a byte-level codec, enabling Marshal and Unmarshal.
func (w *Wizard[T]) WithCodec(c Codec) *Wizard[T] {
	w.codec = c
	return w
}

// Schema returns the record type's declared field names in order.
func (w *Wizard[T]) Schema() []string {
	return w.plan.schema.fieldNames()
}

// ToTree converts a record value into a generic tree.
func (w *Wizard[T]) ToTree(ctx context.Context, v T, opts ...DumpOption) (out any, retErr error) {
	start := time.Now()
	emitMarshalStart(ctx, w.plan.schema.name)
	defer func() {
		emitMarshalComplete(ctx, w.plan.schema.name, time.Since(start), retErr)
	}()

	e := &encodeState{skipDefaults: w.cfg.SkipDefaults}
	for _, opt := range opts {
		opt(e)
	}
	tree, err := w.plan.enc(e, reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	if len(e.exclude) > 0 {
		if m, ok := tree.(map[string]any); ok {
			for _, k := range e.exclude {
				delete(m, k)
			}
		}
	}
	return tree, nil
}

// FromTree converts a generic tree into a record value.
func (w *Wizard[T]) FromTree(ctx context.Context, tree any) (out *T, retErr error) {
	start := time.Now()
	emitUnmarshalStart(ctx, w.plan.schema.name)
	defer func() {
		emitUnmarshalComplete(ctx, w.plan.schema.name, time.Since(start), retErr)
	}()

	result := new(T)
	d := &decodeState{ctx: ctx}
	if err := w.plan.dec(d, tree, reflect.ValueOf(result).Elem()); err != nil {
		return nil, err
	}
	return result, nil
}

// FromTreeSlice converts a sequence of trees into record values.
func (w *Wizard[T]) FromTreeSlice(ctx context.Context, trees []any) ([]T, error) {
	out := make([]T, 0, len(trees))
	for _, tree := range trees {
		v, err := w.FromTree(ctx, tree)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// Marshal converts a record to bytes through the attached codec.
func (w *Wizard[T]) Marshal(ctx context.Context, v T, opts ...DumpOption) ([]byte, error) {
	if w.codec == nil {
		return nil, ErrNoCodec
	}
	tree, err := w.ToTree(ctx, v, opts...)
	if err != nil {
		return nil, err
	}
	return w.codec.Marshal(tree)
}

// Unmarshal converts bytes to a record through the attached codec.
func (w *Wizard[T]) Unmarshal(ctx context.Context, data []byte) (*T, error) {
	if w.codec == nil {
		return nil, ErrNoCodec
	}
	var tree any
	if err := w.codec.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return w.FromTree(ctx, tree)
}
