package wizard

import (
	"context"
	"reflect"
	"sync"
)

// union is a registered set of variants for an interface type.
type union struct {
	typ      reflect.Type
	variants []UnionVariant // declared order
}

// UnionVariant pairs a concrete type with its discriminator tag. An empty
// tag leaves the variant untagged unless auto-assignment is enabled.
type UnionVariant struct {
	Type reflect.Type
	Tag  string
}

// Variant declares a union member with an explicit discriminator tag.
// Pass an empty tag to rely on auto-assignment or best-effort matching.
func Variant[T any](tag string) UnionVariant {
	return UnionVariant{Type: reflect.TypeFor[T](), Tag: tag}
}

var (
	unionMu       sync.RWMutex
	unionRegistry = make(map[reflect.Type]*union)
)

// RegisterUnion declares the variant set for an interface type I. Variants
// are tried in declared order when input carries no discriminator tag.
// Registration is process-wide and meant for init time; it panics when I is
// not an interface type, since that is a schema-definition bug.
func RegisterUnion[I any](variants ...UnionVariant) {
	t := reflect.TypeFor[I]()
	if t.Kind() != reflect.Interface {
		panic("wizard: RegisterUnion requires an interface type, got " + t.String())
	}
	unionMu.Lock()
	unionRegistry[t] = &union{typ: t, variants: variants}
	unionMu.Unlock()
}

func lookupUnion(t reflect.Type) (*union, bool) {
	unionMu.RLock()
	u, ok := unionRegistry[t]
	unionMu.RUnlock()
	return u, ok
}

// unionEntry is one resolved variant: its tag (if any) and its compiled
// conversion closures.
type unionEntry struct {
	typ reflect.Type
	tag string
	enc encoderFunc
	dec decoderFunc
}

// unionTable is the immutable per-union tag table, resolved exactly once
// when the owning plan is compiled and never mutated afterwards.
type unionTable struct {
	name    string
	tagKey  string
	entries []unionEntry // declared order, for best-effort matching
	byTag   map[string]*unionEntry
	byType  map[reflect.Type]*unionEntry
	tags    []string // declared order, for error listings
}

// resolveUnion compiles every variant and fixes the tag table. When
// auto-assignment is on, untagged record variants receive their type name
// as tag.
func (b *builder) resolveUnion(u *union) (*unionTable, error) {
	tbl := &unionTable{
		name: u.typ.String(),
		// Capacity is fixed up front: byTag and byType hold pointers into
		// entries, so the slice must never reallocate.
		entries: make([]unionEntry, 0, len(u.variants)),
		tagKey:  b.cfg.UnionTagKey,
		byTag:   make(map[string]*unionEntry, len(u.variants)),
		byType:  make(map[reflect.Type]*unionEntry, len(u.variants)),
	}
	for _, v := range u.variants {
		sh, err := classify(v.Type, annotations{})
		if err != nil {
			return nil, err
		}
		enc, err := b.encoderFor(sh)
		if err != nil {
			return nil, err
		}
		dec, err := b.decoderFor(sh)
		if err != nil {
			return nil, err
		}
		ent := unionEntry{typ: v.Type, tag: v.Tag, enc: enc, dec: dec}
		if ent.tag == "" && b.cfg.AutoAssignTags && sh.Kind == shapeRecord {
			ent.tag = recordName(v.Type)
			emitAutoTag(context.Background(), tbl.name, v.Type.String(), ent.tag)
		}
		tbl.entries = append(tbl.entries, ent)
		last := &tbl.entries[len(tbl.entries)-1]
		tbl.byType[v.Type] = last
		if ent.tag != "" {
			tbl.byTag[ent.tag] = last
			tbl.tags = append(tbl.tags, ent.tag)
		}
	}
	return tbl, nil
}

// recordName is the schema name used for auto-assigned tags.
func recordName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// decode dispatches tree input to a variant: by discriminator tag when the
// input carries one, otherwise best-effort in declared order.
func (tbl *unionTable) decode(d *decodeState, in any, out reflect.Value) error {
	if in == nil {
		out.SetZero()
		return nil
	}

	if m, ok := asStringMap(in); ok {
		if rawTag, has := m[tbl.tagKey]; has {
			tag, err := asString(rawTag)
			if err != nil {
				tag = valueRepr(rawTag)
			}
			ent, ok := tbl.byTag[tag]
			if !ok {
				return &UnknownUnionMemberError{
					Err:       ErrUnknownUnionMember,
					Union:     tbl.name,
					Tag:       tag,
					ValidTags: tbl.tags,
					Value:     valueRepr(in),
				}
			}
			// The discriminator is transport metadata, not record data.
			body := make(map[string]any, len(m)-1)
			for k, v := range m {
				if k != tbl.tagKey {
					body[k] = v
				}
			}
			nv := reflect.New(ent.typ).Elem()
			if err := ent.dec(d, body, nv); err != nil {
				return err
			}
			out.Set(nv)
			return nil
		}
	}

	// Untagged input: try each candidate in declared order, suppressing
	// failures, ending in exhaustion.
	for i := range tbl.entries {
		ent := &tbl.entries[i]
		nv := reflect.New(ent.typ).Elem()
		if err := ent.dec(d, in, nv); err == nil {
			out.Set(nv)
			return nil
		}
	}
	return &UnknownUnionMemberError{
		Err:       ErrUnknownUnionMember,
		Union:     tbl.name,
		ValidTags: tbl.tags,
		Value:     valueRepr(in),
	}
}

// encode converts the held variant and injects its discriminator tag when
// the variant is tagged and the output is a mapping.
func (tbl *unionTable) encode(e *encodeState, v reflect.Value) (any, error) {
	if v.IsNil() {
		return nil, nil
	}
	concrete := v.Elem()
	ent, ok := tbl.byType[concrete.Type()]
	if !ok && concrete.Kind() == reflect.Pointer {
		if inner, found := tbl.byType[concrete.Type().Elem()]; found {
			ent, ok = inner, true
			concrete = concrete.Elem()
		}
	}
	if !ok {
		return nil, &UnknownUnionMemberError{
			Err:       ErrUnknownUnionMember,
			Union:     tbl.name,
			ValidTags: tbl.tags,
			Value:     concrete.Type().String(),
		}
	}
	tree, err := ent.enc(e, concrete)
	if err != nil {
		return nil, err
	}
	if ent.tag != "" {
		if m, ok := tree.(map[string]any); ok {
			m[tbl.tagKey] = ent.tag
		}
	}
	return tree, nil
}
