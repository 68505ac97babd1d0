package wizard

import (
	"encoding"
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// encoderFunc converts one record value (or part of one) into a generic
// tree. Closures are compiled once per shape during plan build and reused
// for every conversion.
type encoderFunc func(e *encodeState, v reflect.Value) (any, error)

// encodeState carries the per-call dump flags through a conversion.
type encodeState struct {
	skipDefaults bool
	exclude      []string
}

// DumpOption adjusts a single record-to-tree conversion.
type DumpOption func(*encodeState)

// SkipDefaults overrides the configured skip-defaults policy for one call.
func SkipDefaults(v bool) DumpOption {
	return func(e *encodeState) { e.skipDefaults = v }
}

// Exclude drops the named top-level output keys for one call.
func Exclude(keys ...string) DumpOption {
	return func(e *encodeState) { e.exclude = append(e.exclude, keys...) }
}

// encoderFor builds the serialize-direction closure for a shape.
func (b *builder) encoderFor(sh *typeShape) (encoderFunc, error) {
	cfg := b.cfg
	switch sh.Kind {
	case shapeBool, shapeInt, shapeUint, shapeFloat, shapeComplex, shapeString:
		kind := sh.Kind
		return func(_ *encodeState, v reflect.Value) (any, error) {
			return scalarEncode(kind, v)
		}, nil

	case shapeBytes:
		return func(_ *encodeState, v reflect.Value) (any, error) {
			return base64.StdEncoding.EncodeToString(v.Bytes()), nil
		}, nil

	case shapeOptional:
		if scalarShape(sh.Elem.Kind) {
			// Optional-of-scalar skips the nested closure call entirely.
			kind := sh.Elem.Kind
			return func(_ *encodeState, v reflect.Value) (any, error) {
				if v.IsNil() {
					return nil, nil
				}
				return scalarEncode(kind, v.Elem())
			}, nil
		}
		elemEnc, err := b.encoderFor(sh.Elem)
		if err != nil {
			return nil, err
		}
		return func(e *encodeState, v reflect.Value) (any, error) {
			if v.IsNil() {
				return nil, nil
			}
			return elemEnc(e, v.Elem())
		}, nil

	case shapeSequence:
		elemEnc, err := b.encoderFor(sh.Elem)
		if err != nil {
			return nil, err
		}
		return func(e *encodeState, v reflect.Value) (any, error) {
			if v.IsNil() {
				return nil, nil
			}
			out := make([]any, v.Len())
			for i := 0; i < v.Len(); i++ {
				ev, err := elemEnc(e, v.Index(i))
				if err != nil {
					return nil, err
				}
				out[i] = ev
			}
			return out, nil
		}, nil

	case shapeTupleFixed:
		elemEnc, err := b.encoderFor(sh.Elem)
		if err != nil {
			return nil, err
		}
		arity := sh.Arity
		return func(e *encodeState, v reflect.Value) (any, error) {
			out := make([]any, arity)
			for i := 0; i < arity; i++ {
				ev, err := elemEnc(e, v.Index(i))
				if err != nil {
					return nil, err
				}
				out[i] = ev
			}
			return out, nil
		}, nil

	case shapeMapping:
		valEnc, err := b.encoderFor(sh.Elem)
		if err != nil {
			return nil, err
		}
		keySh := sh.Key
		return func(e *encodeState, v reflect.Value) (any, error) {
			if v.IsNil() {
				return nil, nil
			}
			out := make(map[string]any, v.Len())
			iter := v.MapRange()
			for iter.Next() {
				ks, err := keyToString(keySh, iter.Key())
				if err != nil {
					return nil, err
				}
				ev, err := valEnc(e, iter.Value())
				if err != nil {
					return nil, err
				}
				out[ks] = ev
			}
			return out, nil
		}, nil

	case shapeRecord:
		p, err := b.planFor(sh.Type)
		if err != nil {
			return nil, err
		}
		// Late binding through the plan pointer lets recursive and
		// mutually-referential schemas call each other before their
		// bodies are complete.
		return func(e *encodeState, v reflect.Value) (any, error) {
			return p.enc(e, v)
		}, nil

	case shapeUnion:
		tbl, err := b.resolveUnion(sh.union)
		if err != nil {
			return nil, err
		}
		return tbl.encode, nil

	case shapeEnum:
		es := sh.enum
		return func(_ *encodeState, v reflect.Value) (any, error) {
			return es.encode(v), nil
		}, nil

	case shapeTime:
		ann := sh.Ann
		return func(_ *encodeState, v reflect.Value) (any, error) {
			return encodeTemporal(cfg, ann, v.Interface().(time.Time)), nil
		}, nil

	case shapeDuration:
		ann := sh.Ann
		return func(_ *encodeState, v reflect.Value) (any, error) {
			return encodeDuration(cfg, ann, time.Duration(v.Int())), nil
		}, nil

	case shapeUUID:
		return func(_ *encodeState, v reflect.Value) (any, error) {
			return v.Interface().(uuid.UUID).String(), nil
		}, nil

	case shapeDecimal:
		return func(_ *encodeState, v reflect.Value) (any, error) {
			return v.Interface().(decimal.Decimal).String(), nil
		}, nil

	case shapeText:
		return func(_ *encodeState, v reflect.Value) (any, error) {
			raw, err := v.Interface().(encoding.TextMarshaler).MarshalText()
			if err != nil {
				return nil, err
			}
			return string(raw), nil
		}, nil

	case shapeOverride:
		return func(_ *encodeState, v reflect.Value) (any, error) {
			return v.Interface().(TreeMarshaler).MarshalTree()
		}, nil

	case shapeCustom:
		cc := sh.custom
		return func(_ *encodeState, v reflect.Value) (any, error) {
			return cc.enc(v)
		}, nil

	case shapeAny:
		return func(_ *encodeState, v reflect.Value) (any, error) {
			if v.IsNil() {
				return nil, nil
			}
			return v.Interface(), nil
		}, nil
	}
	return nil, newUnsupportedTypeError(sh.Type, "no serialize rule for shape "+sh.Kind.String())
}

// scalarEncode renders an atomic scalar value.
func scalarEncode(kind shapeKind, v reflect.Value) (any, error) {
	switch kind {
	case shapeBool:
		return v.Bool(), nil
	case shapeInt:
		return v.Int(), nil
	case shapeUint:
		return v.Uint(), nil
	case shapeFloat:
		return v.Float(), nil
	case shapeComplex:
		return strconv.FormatComplex(v.Complex(), 'g', -1, 128), nil
	case shapeString:
		return v.String(), nil
	}
	return nil, fmt.Errorf("not a scalar shape: %s", kind)
}

// keyToString renders a mapping key.
func keyToString(sh *typeShape, v reflect.Value) (string, error) {
	switch sh.Kind {
	case shapeString:
		return v.String(), nil
	case shapeInt:
		return strconv.FormatInt(v.Int(), 10), nil
	case shapeUint:
		return strconv.FormatUint(v.Uint(), 10), nil
	case shapeFloat:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64), nil
	case shapeBool:
		return strconv.FormatBool(v.Bool()), nil
	case shapeUUID:
		return v.Interface().(uuid.UUID).String(), nil
	case shapeEnum:
		return asString(sh.enum.encode(v))
	}
	return "", fmt.Errorf("unsupported mapping key shape %s", sh.Kind)
}

// structEncoder assembles the schema-level serialize routine: declared
// order, skip predicates, default omission, path placement, catch-all
// merge-back.
func structEncoder(s *schema) encoderFunc {
	return func(e *encodeState, v reflect.Value) (any, error) {
		out := make(map[string]any, len(s.fields))
		for _, f := range s.fields {
			if f.catchAll {
				continue
			}
			fv := v.FieldByIndex(f.index)
			if f.skipFn != nil && f.skipFn(fv.Interface()) {
				continue
			}
			if f.omitEmpty && fv.IsZero() {
				continue
			}
			if (e.skipDefaults || f.skipDefault) && f.hasDefault &&
				reflect.DeepEqual(fv.Interface(), f.defaultVal.Interface()) {
				continue
			}
			val, err := f.enc(e, fv)
			if err != nil {
				return nil, wrapFieldError(err, s, f.name, fv.Interface())
			}
			if len(f.path) > 0 {
				setPath(out, f.path, val)
			} else {
				out[f.key] = val
			}
		}
		if s.catchAll != nil {
			cv := v.FieldByIndex(s.catchAll.index)
			if extras, ok := cv.Interface().(map[string]any); ok {
				for k, ev := range extras {
					if _, claimed := out[k]; !claimed {
						out[k] = ev
					}
				}
			}
		}
		return out, nil
	}
}
