package wizard

import (
	"encoding"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// shapeKind is the closed structural category set the classifier maps
// declared types onto. Each conversion rule in the two dispatcher halves is
// keyed by one kind.
type shapeKind int

const (
	shapeInvalid shapeKind = iota
	shapeBool
	shapeInt
	shapeUint
	shapeFloat
	shapeComplex
	shapeString
	shapeBytes
	shapeOptional
	shapeSequence
	shapeTupleFixed
	shapeMapping
	shapeRecord
	shapeEnum
	shapeUnion
	shapeAny
	shapeTime
	shapeDuration
	shapeUUID
	shapeDecimal
	shapeText
	shapeOverride
	shapeCustom
)

var shapeKindNames = map[shapeKind]string{
	shapeInvalid:    "invalid",
	shapeBool:       "bool",
	shapeInt:        "int",
	shapeUint:       "uint",
	shapeFloat:      "float",
	shapeComplex:    "complex",
	shapeString:     "string",
	shapeBytes:      "bytes",
	shapeOptional:   "optional",
	shapeSequence:   "sequence",
	shapeTupleFixed: "tuple",
	shapeMapping:    "mapping",
	shapeRecord:     "record",
	shapeEnum:       "enum",
	shapeUnion:      "union",
	shapeAny:        "any",
	shapeTime:       "time",
	shapeDuration:   "duration",
	shapeUUID:       "uuid",
	shapeDecimal:    "decimal",
	shapeText:       "text",
	shapeOverride:   "override",
	shapeCustom:     "custom",
}

func (k shapeKind) String() string {
	if s, ok := shapeKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// annotations carries field-level metadata the classifier attaches to a
// shape: temporal layout patterns, a fixed location for zone-less layouts,
// and the per-field epoch-output flag.
type annotations struct {
	layouts []string
	loc     *time.Location
	unix    bool
}

// typeShape is the classifier's output: the resolved structural category of
// a declared type with its typed arguments. Shapes exist only during plan
// compilation and are not retained afterwards.
type typeShape struct {
	Kind  shapeKind
	Type  reflect.Type
	Name  string
	Elem  *typeShape // optional / sequence / tuple element, mapping value
	Key   *typeShape // mapping key
	Arity int        // tuple length
	Ann   annotations

	enum   *enumSet
	union  *union
	custom *customCodec
}

// Exact types recognized as scalar wrappers.
var (
	timeType      = reflect.TypeOf(time.Time{})
	durationType  = reflect.TypeOf(time.Duration(0))
	uuidType      = reflect.TypeOf(uuid.UUID{})
	decimalType   = reflect.TypeOf(decimal.Decimal{})
	byteSliceType = reflect.TypeOf([]byte(nil))
)

// Exact types for the atomic scalar set. Named scalar types deliberately
// miss here and fall through to the enum/text/union steps, then to the
// nearest-kind fallback.
var atomicShapes = map[reflect.Type]shapeKind{
	reflect.TypeOf(false):         shapeBool,
	reflect.TypeOf(int(0)):        shapeInt,
	reflect.TypeOf(int8(0)):       shapeInt,
	reflect.TypeOf(int16(0)):      shapeInt,
	reflect.TypeOf(int32(0)):      shapeInt,
	reflect.TypeOf(int64(0)):      shapeInt,
	reflect.TypeOf(uint(0)):       shapeUint,
	reflect.TypeOf(uint8(0)):      shapeUint,
	reflect.TypeOf(uint16(0)):     shapeUint,
	reflect.TypeOf(uint32(0)):     shapeUint,
	reflect.TypeOf(uint64(0)):     shapeUint,
	reflect.TypeOf(float32(0)):    shapeFloat,
	reflect.TypeOf(float64(0)):    shapeFloat,
	reflect.TypeOf(complex64(0)):  shapeComplex,
	reflect.TypeOf(complex128(0)): shapeComplex,
	reflect.TypeOf(""):            shapeString,
}

var (
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	treeMarshalerType   = reflect.TypeFor[TreeMarshaler]()
	treeUnmarshalerType = reflect.TypeFor[TreeUnmarshaler]()
)

// classify resolves a declared type (plus field annotations) into a shape.
// The match order is significant: wrapper types and registrations take
// precedence over structural kinds, and named scalar types only reach the
// kind fallback after every registry came up empty.
func classify(t reflect.Type, ann annotations) (*typeShape, error) {
	if t == nil {
		return nil, newUnsupportedTypeError(t, "nil type")
	}

	// Codec registrations win over every structural rule, including the
	// pointer unwrap below, so a codec on *T is honored rather than the
	// pointer being treated as an optional T.
	if cc, ok := lookupCodec(t); ok {
		return &typeShape{Kind: shapeCustom, Type: t, Name: t.String(), custom: cc, Ann: ann}, nil
	}

	// Pointers model optionals. Annotations travel inward so a format= tag
	// on *time.Time reaches the temporal rule.
	if t.Kind() == reflect.Pointer {
		elem, err := classify(t.Elem(), ann)
		if err != nil {
			return nil, err
		}
		return &typeShape{Kind: shapeOptional, Type: t, Name: t.String(), Elem: elem, Ann: ann}, nil
	}

	if t.Implements(treeMarshalerType) && reflect.PointerTo(t).Implements(treeUnmarshalerType) {
		return &typeShape{Kind: shapeOverride, Type: t, Name: t.String(), Ann: ann}, nil
	}

	switch t {
	case timeType:
		return &typeShape{Kind: shapeTime, Type: t, Name: t.String(), Ann: ann}, nil
	case durationType:
		return &typeShape{Kind: shapeDuration, Type: t, Name: t.String(), Ann: ann}, nil
	case uuidType:
		return &typeShape{Kind: shapeUUID, Type: t, Name: t.String(), Ann: ann}, nil
	case decimalType:
		return &typeShape{Kind: shapeDecimal, Type: t, Name: t.String(), Ann: ann}, nil
	case byteSliceType:
		return &typeShape{Kind: shapeBytes, Type: t, Name: t.String(), Ann: ann}, nil
	}

	if kind, ok := atomicShapes[t]; ok {
		return &typeShape{Kind: kind, Type: t, Name: t.String(), Ann: ann}, nil
	}

	if es, ok := lookupEnum(t); ok {
		return &typeShape{Kind: shapeEnum, Type: t, Name: t.String(), enum: es, Ann: ann}, nil
	}

	if t.Implements(textMarshalerType) && reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return &typeShape{Kind: shapeText, Type: t, Name: t.String(), Ann: ann}, nil
	}

	switch t.Kind() {
	case reflect.Interface:
		if u, ok := lookupUnion(t); ok {
			return &typeShape{Kind: shapeUnion, Type: t, Name: t.String(), union: u, Ann: ann}, nil
		}
		if t.NumMethod() == 0 {
			return &typeShape{Kind: shapeAny, Type: t, Name: t.String(), Ann: ann}, nil
		}
		return nil, newUnsupportedTypeError(t, "register the interface's variants with RegisterUnion")

	case reflect.Array:
		elem, err := classify(t.Elem(), ann)
		if err != nil {
			return nil, err
		}
		return &typeShape{
			Kind:  shapeTupleFixed,
			Type:  t,
			Name:  t.String(),
			Elem:  elem,
			Arity: t.Len(),
			Ann:   ann,
		}, nil

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			// Named byte slices encode as base64 text like []byte.
			return &typeShape{Kind: shapeBytes, Type: t, Name: t.String(), Ann: ann}, nil
		}
		elem, err := classify(t.Elem(), ann)
		if err != nil {
			return nil, err
		}
		return &typeShape{Kind: shapeSequence, Type: t, Name: t.String(), Elem: elem, Ann: ann}, nil

	case reflect.Map:
		key, err := classify(t.Key(), annotations{})
		if err != nil {
			return nil, err
		}
		if !scalarKeyShape(key.Kind) {
			return nil, newUnsupportedTypeError(t, "map keys must be scalar")
		}
		elem, err := classify(t.Elem(), ann)
		if err != nil {
			return nil, err
		}
		return &typeShape{Kind: shapeMapping, Type: t, Name: t.String(), Key: key, Elem: elem, Ann: ann}, nil

	case reflect.Struct:
		return &typeShape{Kind: shapeRecord, Type: t, Name: t.Name(), Ann: ann}, nil
	}

	// Nearest-kind fallback for named scalar types with no registration.
	if kind := kindShape(t.Kind()); kind != shapeInvalid {
		return &typeShape{Kind: kind, Type: t, Name: t.String(), Ann: ann}, nil
	}

	return nil, newUnsupportedTypeError(t, "no conversion rule matches; register a codec with RegisterCodec")
}

// kindShape maps a scalar reflect.Kind to its shape.
func kindShape(k reflect.Kind) shapeKind {
	switch k {
	case reflect.Bool:
		return shapeBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return shapeInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return shapeUint
	case reflect.Float32, reflect.Float64:
		return shapeFloat
	case reflect.Complex64, reflect.Complex128:
		return shapeComplex
	case reflect.String:
		return shapeString
	}
	return shapeInvalid
}

// scalarKeyShape reports whether a shape may serve as a mapping key.
func scalarKeyShape(k shapeKind) bool {
	switch k {
	case shapeBool, shapeInt, shapeUint, shapeFloat, shapeString, shapeEnum, shapeUUID:
		return true
	}
	return false
}

// scalarShape reports whether a shape is an atomic scalar, used for the
// optional-of-scalar short circuit.
func scalarShape(k shapeKind) bool {
	switch k {
	case shapeBool, shapeInt, shapeUint, shapeFloat, shapeComplex, shapeString:
		return true
	}
	return false
}

// customCodec is a registered per-type conversion hook pair.
type customCodec struct {
	typ reflect.Type
	enc func(v reflect.Value) (any, error)
	dec func(in any, out reflect.Value) error
}

var (
	codecMu       sync.RWMutex
	codecRegistry = make(map[reflect.Type]*customCodec)
)

// RegisterCodec installs a custom scalar conversion for type T, bypassing
// the classifier's structural rules. Registration is process-wide and meant
// for init time; plans compiled before registration keep their old rule.
func RegisterCodec[T any](enc func(T) (any, error), dec func(any) (T, error)) {
	t := reflect.TypeFor[T]()
	cc := &customCodec{
		typ: t,
		enc: func(v reflect.Value) (any, error) {
			return enc(v.Interface().(T))
		},
		dec: func(in any, out reflect.Value) error {
			v, err := dec(in)
			if err != nil {
				return err
			}
			out.Set(reflect.ValueOf(v))
			return nil
		},
	}
	codecMu.Lock()
	codecRegistry[t] = cc
	codecMu.Unlock()
}

func lookupCodec(t reflect.Type) (*customCodec, bool) {
	codecMu.RLock()
	cc, ok := codecRegistry[t]
	codecMu.RUnlock()
	return cc, ok
}
