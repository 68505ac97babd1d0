package wizard

import (
	"context"
	"encoding"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// decoderFunc converts part of a generic tree into a record value. Closures
// are compiled once per shape during plan build and reused for every
// conversion.
type decoderFunc func(d *decodeState, in any, out reflect.Value) error

// decodeState carries per-call context through a conversion; diagnostics
// emitted mid-conversion use it.
type decodeState struct {
	ctx context.Context
}

// decoderFor builds the deserialize-direction closure for a shape.
func (b *builder) decoderFor(sh *typeShape) (decoderFunc, error) {
	cfg := b.cfg
	switch sh.Kind {
	case shapeBool, shapeInt, shapeUint, shapeFloat, shapeComplex, shapeString:
		kind := sh.Kind
		return func(_ *decodeState, in any, out reflect.Value) error {
			return scalarDecode(kind, in, out)
		}, nil

	case shapeBytes:
		return func(_ *decodeState, in any, out reflect.Value) error {
			raw, err := asBytes(in)
			if err != nil {
				return err
			}
			out.SetBytes(raw)
			return nil
		}, nil

	case shapeOptional:
		elemType := sh.Type.Elem()
		if scalarShape(sh.Elem.Kind) {
			// A nil tree value yields a nil pointer without ever
			// invoking the element rule.
			kind := sh.Elem.Kind
			return func(_ *decodeState, in any, out reflect.Value) error {
				if in == nil {
					out.SetZero()
					return nil
				}
				out.Set(reflect.New(elemType))
				return scalarDecode(kind, in, out.Elem())
			}, nil
		}
		elemDec, err := b.decoderFor(sh.Elem)
		if err != nil {
			return nil, err
		}
		return func(d *decodeState, in any, out reflect.Value) error {
			if in == nil {
				out.SetZero()
				return nil
			}
			out.Set(reflect.New(elemType))
			return elemDec(d, in, out.Elem())
		}, nil

	case shapeSequence:
		elemDec, err := b.decoderFor(sh.Elem)
		if err != nil {
			return nil, err
		}
		sliceType := sh.Type
		return func(d *decodeState, in any, out reflect.Value) error {
			if in == nil {
				out.SetZero()
				return nil
			}
			seq, ok := asSlice(in)
			if !ok {
				return fmt.Errorf("expected sequence for %s, got %T", sliceType, in)
			}
			dst := reflect.MakeSlice(sliceType, len(seq), len(seq))
			for i, item := range seq {
				if err := elemDec(d, item, dst.Index(i)); err != nil {
					return err
				}
			}
			out.Set(dst)
			return nil
		}, nil

	case shapeTupleFixed:
		elemDec, err := b.decoderFor(sh.Elem)
		if err != nil {
			return nil, err
		}
		arity := sh.Arity
		name := sh.Name
		return func(d *decodeState, in any, out reflect.Value) error {
			seq, ok := asSlice(in)
			if !ok {
				return fmt.Errorf("expected sequence for %s, got %T", name, in)
			}
			if len(seq) != arity {
				idx := len(seq)
				if idx > arity {
					idx = arity
				}
				return newArityError(name, idx, arity, len(seq))
			}
			for i, item := range seq {
				if err := elemDec(d, item, out.Index(i)); err != nil {
					return err
				}
			}
			return nil
		}, nil

	case shapeMapping:
		valDec, err := b.decoderFor(sh.Elem)
		if err != nil {
			return nil, err
		}
		keySh := sh.Key
		mapType := sh.Type
		return func(d *decodeState, in any, out reflect.Value) error {
			if in == nil {
				out.SetZero()
				return nil
			}
			m, ok := asStringMap(in)
			if !ok {
				return fmt.Errorf("expected mapping for %s, got %T", mapType, in)
			}
			dst := reflect.MakeMapWithSize(mapType, len(m))
			for k, item := range m {
				kv := reflect.New(mapType.Key()).Elem()
				if err := keyFromString(keySh, k, kv); err != nil {
					return err
				}
				ev := reflect.New(mapType.Elem()).Elem()
				if err := valDec(d, item, ev); err != nil {
					return err
				}
				dst.SetMapIndex(kv, ev)
			}
			out.Set(dst)
			return nil
		}, nil

	case shapeRecord:
		p, err := b.planFor(sh.Type)
		if err != nil {
			return nil, err
		}
		return func(d *decodeState, in any, out reflect.Value) error {
			return p.dec(d, in, out)
		}, nil

	case shapeUnion:
		tbl, err := b.resolveUnion(sh.union)
		if err != nil {
			return nil, err
		}
		return tbl.decode, nil

	case shapeEnum:
		es := sh.enum
		return func(_ *decodeState, in any, out reflect.Value) error {
			return es.decode(in, out)
		}, nil

	case shapeTime:
		ann := sh.Ann
		return func(_ *decodeState, in any, out reflect.Value) error {
			t, err := decodeTemporal(cfg, ann, in)
			if err != nil {
				return err
			}
			out.Set(reflect.ValueOf(t))
			return nil
		}, nil

	case shapeDuration:
		return func(_ *decodeState, in any, out reflect.Value) error {
			dur, err := asDuration(in)
			if err != nil {
				return err
			}
			out.SetInt(int64(dur))
			return nil
		}, nil

	case shapeUUID:
		return func(_ *decodeState, in any, out reflect.Value) error {
			u, err := decodeUUID(in)
			if err != nil {
				return err
			}
			out.Set(reflect.ValueOf(u))
			return nil
		}, nil

	case shapeDecimal:
		return func(_ *decodeState, in any, out reflect.Value) error {
			s, err := asString(in)
			if err != nil {
				return err
			}
			dec, err := decimal.NewFromString(strings.TrimSpace(s))
			if err != nil {
				return fmt.Errorf("cannot parse %q as decimal: %w", s, err)
			}
			out.Set(reflect.ValueOf(dec))
			return nil
		}, nil

	case shapeText:
		return func(_ *decodeState, in any, out reflect.Value) error {
			s, err := asString(in)
			if err != nil {
				return err
			}
			return out.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s))
		}, nil

	case shapeOverride:
		return func(_ *decodeState, in any, out reflect.Value) error {
			return out.Addr().Interface().(TreeUnmarshaler).UnmarshalTree(in)
		}, nil

	case shapeCustom:
		cc := sh.custom
		return func(_ *decodeState, in any, out reflect.Value) error {
			return cc.dec(in, out)
		}, nil

	case shapeAny:
		return func(_ *decodeState, in any, out reflect.Value) error {
			if in == nil {
				out.SetZero()
				return nil
			}
			out.Set(reflect.ValueOf(in))
			return nil
		}, nil
	}
	return nil, newUnsupportedTypeError(sh.Type, "no deserialize rule for shape "+sh.Kind.String())
}

// scalarDecode coerces a tree scalar into an atomic target, checking
// overflow against the concrete target type.
func scalarDecode(kind shapeKind, in any, out reflect.Value) error {
	switch kind {
	case shapeBool:
		v, err := asBool(in)
		if err != nil {
			return err
		}
		out.SetBool(v)
	case shapeInt:
		n, err := asInt64(in)
		if err != nil {
			return err
		}
		if out.OverflowInt(n) {
			return fmt.Errorf("value %d overflows %s", n, out.Type())
		}
		out.SetInt(n)
	case shapeUint:
		n, err := asUint64(in)
		if err != nil {
			return err
		}
		if out.OverflowUint(n) {
			return fmt.Errorf("value %d overflows %s", n, out.Type())
		}
		out.SetUint(n)
	case shapeFloat:
		f, err := asFloat64(in)
		if err != nil {
			return err
		}
		out.SetFloat(f)
	case shapeComplex:
		c, err := asComplex128(in)
		if err != nil {
			return err
		}
		out.SetComplex(c)
	case shapeString:
		s, err := asString(in)
		if err != nil {
			return err
		}
		out.SetString(s)
	default:
		return fmt.Errorf("not a scalar shape: %s", kind)
	}
	return nil
}

// keyFromString coerces a mapping key back from its string form.
func keyFromString(sh *typeShape, k string, out reflect.Value) error {
	switch sh.Kind {
	case shapeEnum:
		return sh.enum.decode(k, out)
	case shapeUUID:
		u, err := uuid.Parse(k)
		if err != nil {
			return err
		}
		out.Set(reflect.ValueOf(u))
		return nil
	}
	return scalarDecode(sh.Kind, k, out)
}

// decodeUUID accepts canonical text or a raw 16-byte value.
func decodeUUID(in any) (uuid.UUID, error) {
	switch v := in.(type) {
	case string:
		return uuid.Parse(v)
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.Parse(string(v))
	}
	return uuid.Nil, fmt.Errorf("cannot coerce %T to uuid", in)
}

// structDecoder assembles the schema-level deserialize routine: alias and
// path resolution, defaults, required checks, the schema-wide error
// reclassifier, and catch-all collection by set-difference against the
// claimed key set.
func structDecoder(s *schema) decoderFunc {
	cfg := s.cfg
	return func(d *decodeState, in any, out reflect.Value) error {
		if in == nil {
			return newMissingSourceError(s.name)
		}
		m, ok := asStringMap(in)
		if !ok {
			return &ParseError{
				Err:    ErrParse,
				Schema: s.name,
				Fields: s.fieldNames(),
				Value:  valueRepr(in),
				Cause:  fmt.Errorf("expected mapping, got %T", in),
			}
		}

		used := make(map[string]struct{}, len(m))
		var missing []string
		for _, f := range s.fields {
			if f.catchAll {
				continue
			}
			raw, claimed, found := f.lookup(m)
			if !found {
				switch {
				case f.defaultFn != nil:
					if err := applyDefaultFactory(f, out.FieldByIndex(f.index)); err != nil {
						return wrapFieldError(err, s, f.name, nil)
					}
				case f.hasDefault:
					out.FieldByIndex(f.index).Set(f.defaultVal)
				case f.required:
					missing = append(missing, f.name)
				}
				continue
			}
			used[claimed] = struct{}{}
			if err := f.dec(d, raw, out.FieldByIndex(f.index)); err != nil {
				return wrapFieldError(err, s, f.name, raw)
			}
		}
		if len(missing) > 0 {
			return newMissingFieldsError(s.name, missing)
		}

		var extras map[string]any
		for k, v := range m {
			if _, known := s.knownKeys[k]; known {
				continue
			}
			if _, claimed := used[k]; claimed {
				continue
			}
			if extras == nil {
				extras = make(map[string]any)
			}
			extras[k] = v
		}
		if len(extras) == 0 {
			return nil
		}
		if s.catchAll != nil {
			out.FieldByIndex(s.catchAll.index).Set(reflect.ValueOf(extras))
			return nil
		}
		switch cfg.UnknownKeys {
		case UnknownKeyWarn:
			keys := make([]string, 0, len(extras))
			for k := range extras {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			emitUnknownKeys(d.ctx, s.name, keys)
		case UnknownKeyRaise:
			keys := make([]string, 0, len(extras))
			for k := range extras {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			return &ParseError{
				Err:    ErrParse,
				Schema: s.name,
				Fields: s.fieldNames(),
				Value:  valueRepr(extras),
				Cause:  fmt.Errorf("unknown keys: %s", strings.Join(keys, ", ")),
			}
		}
		return nil
	}
}

// applyDefaultFactory runs a registered default factory and assigns its
// result, converting when the produced type is merely convertible.
func applyDefaultFactory(f *field, out reflect.Value) error {
	produced := f.defaultFn()
	if produced == nil {
		out.SetZero()
		return nil
	}
	dv := reflect.ValueOf(produced)
	if dv.Type().AssignableTo(f.typ) {
		out.Set(dv)
		return nil
	}
	if dv.Type().ConvertibleTo(f.typ) {
		out.Set(dv.Convert(f.typ))
		return nil
	}
	return fmt.Errorf("default factory for %s produced %T, want %s", f.name, produced, f.typ)
}
