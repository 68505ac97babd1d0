package wizard

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// enumSet is the declared value set for an enumeration type.
type enumSet struct {
	typ     reflect.Type
	values  []reflect.Value // declared order
	display []string        // rendered values for error messages
}

var (
	enumMu       sync.RWMutex
	enumRegistry = make(map[reflect.Type]*enumSet)
)

// RegisterEnum declares the value set for an enumeration type. Loading a
// value outside the set fails; dumping emits the underlying scalar value.
// Registration is process-wide and meant for init time.
func RegisterEnum[T comparable](values ...T) {
	t := reflect.TypeFor[T]()
	es := &enumSet{typ: t}
	for _, v := range values {
		es.values = append(es.values, reflect.ValueOf(v))
		es.display = append(es.display, fmt.Sprintf("%v", v))
	}
	enumMu.Lock()
	enumRegistry[t] = es
	enumMu.Unlock()
}

func lookupEnum(t reflect.Type) (*enumSet, bool) {
	enumMu.RLock()
	es, ok := enumRegistry[t]
	enumMu.RUnlock()
	return es, ok
}

// decode coerces a tree scalar through the enum's underlying kind, then
// checks membership against the declared set.
func (es *enumSet) decode(in any, out reflect.Value) error {
	switch kindShape(es.typ.Kind()) {
	case shapeString:
		s, err := asString(in)
		if err != nil {
			return err
		}
		out.SetString(s)
	case shapeInt:
		n, err := asInt64(in)
		if err != nil {
			return err
		}
		if out.OverflowInt(n) {
			return fmt.Errorf("value %d overflows %s", n, es.typ)
		}
		out.SetInt(n)
	case shapeUint:
		n, err := asUint64(in)
		if err != nil {
			return err
		}
		if out.OverflowUint(n) {
			return fmt.Errorf("value %d overflows %s", n, es.typ)
		}
		out.SetUint(n)
	case shapeFloat:
		f, err := asFloat64(in)
		if err != nil {
			return err
		}
		out.SetFloat(f)
	default:
		return fmt.Errorf("enum type %s has unsupported underlying kind %s", es.typ, es.typ.Kind())
	}

	for _, v := range es.values {
		if out.Equal(v) {
			return nil
		}
	}
	return fmt.Errorf("value %v not in declared set for %s (valid: %s)",
		out.Interface(), es.typ, strings.Join(es.display, ", "))
}

// encode emits the enum's underlying scalar value.
func (es *enumSet) encode(v reflect.Value) any {
	switch kindShape(es.typ.Kind()) {
	case shapeString:
		return v.String()
	case shapeInt:
		return v.Int()
	case shapeUint:
		return v.Uint()
	case shapeFloat:
		return v.Float()
	}
	return v.Interface()
}
