package wizard

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"
)

// plan is a record type's compiled conversion routines under one
// configuration. The enc/dec closures are filled after the plan pointer is
// registered, so self-referential types call through the pointer and find
// the finished closures at conversion time.
type plan struct {
	typ    reflect.Type
	schema *schema
	enc    encoderFunc
	dec    decoderFunc
}

// builder compiles plans for one configuration. The guard map tracks types
// whose plans are mid-build so recursive shapes bind to the in-flight plan
// instead of recursing forever.
//
// Builders run with the registry write lock held and read planRegistry
// directly. Never call one from a path that already holds the read lock.
type builder struct {
	cfg   *Config
	guard map[reflect.Type]*plan
}

func newBuilder(cfg *Config) *builder {
	return &builder{cfg: cfg, guard: make(map[reflect.Type]*plan)}
}

// planFor resolves a nested record shape to its plan. When the
// configuration does not propagate to nested records, the child compiles
// under the default configuration instead.
func (b *builder) planFor(t reflect.Type) (*plan, error) {
	nested := b.cfg.nested()
	if nested != b.cfg {
		return newBuilder(nested).build(t)
	}
	return b.build(t)
}

func (b *builder) build(t reflect.Type) (*plan, error) {
	key := planKey{typ: t, config: b.cfg.fingerprint()}
	if p, ok := planRegistry[key]; ok {
		return p, nil
	}
	if p, ok := b.guard[t]; ok {
		return p, nil
	}

	start := time.Now()
	p := &plan{typ: t}
	b.guard[t] = p
	defer delete(b.guard, t)

	s, err := scanSchema(t, b.cfg)
	if err != nil {
		return nil, err
	}
	p.schema = s

	for _, f := range s.fields {
		if f.catchAll {
			continue
		}
		sh, err := classify(f.typ, f.ann)
		if err != nil {
			return nil, fieldBuildError(err, s, f)
		}
		if f.enc, err = b.encoderFor(sh); err != nil {
			return nil, fieldBuildError(err, s, f)
		}
		if f.dec, err = b.decoderFor(sh); err != nil {
			return nil, fieldBuildError(err, s, f)
		}
		if f.hasDefaultLit {
			dv := reflect.New(f.typ).Elem()
			if err := f.dec(&decodeState{ctx: context.Background()}, f.defaultLit, dv); err != nil {
				return nil, fmt.Errorf("field %s.%s: cannot coerce default %q: %w",
					s.name, f.name, f.defaultLit, err)
			}
			f.defaultVal = dv
			f.hasDefault = true
		}
	}

	p.enc = structEncoder(s)
	p.dec = structDecoder(s)
	planRegistry[key] = p
	emitPlanCompiled(context.Background(), s.name, len(s.fields), time.Since(start))
	return p, nil
}

// fieldBuildError attributes a compile failure to the field whose shape
// could not be handled.
func fieldBuildError(err error, s *schema, f *field) error {
	var c contextual
	if errors.As(err, &c) {
		c.fillContext(s.name, f.name)
	}
	return err
}
