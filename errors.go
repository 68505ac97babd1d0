package wizard

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrUnsupportedType indicates the classifier found no conversion rule
	// for a declared field type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrMissingFields indicates required fields, keys, or tuple positions
	// were absent from the input.
	ErrMissingFields = errors.New("missing required fields")

	// ErrUnknownUnionMember indicates no union variant matched the input.
	ErrUnknownUnionMember = errors.New("unknown union member")

	// ErrTemporalParse indicates a temporal value matched none of the
	// declared layouts.
	ErrTemporalParse = errors.New("temporal parse failed")

	// ErrMissingSource indicates the input itself was absent where a record
	// was expected.
	ErrMissingSource = errors.New("missing source object")

	// ErrParse wraps any other failure raised mid-conversion.
	ErrParse = errors.New("parse failed")

	// ErrInvalidTag indicates a struct tag has an invalid format or value.
	ErrInvalidTag = errors.New("invalid tag")
)

// reprConfig renders raw input values in error messages. SortKeys keeps map
// output stable so error text is deterministic.
var reprConfig = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	MaxDepth:                4,
}

const maxReprLen = 160

// valueRepr formats a raw input value for inclusion in an error message.
func valueRepr(v any) string {
	if v == nil {
		return "nil"
	}
	s := reprConfig.Sprintf("%#v", v)
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxReprLen {
		s = s[:maxReprLen] + "..."
	}
	return s
}

// contextual is implemented by the error family so the schema-wide handler
// can attach schema/field context without clobbering inner context.
type contextual interface {
	fillContext(schema, field string)
}

// UnsupportedTypeError reports a declared type the classifier has no rule
// for. These surface at plan-build time; they are schema-definition bugs,
// not runtime data failures.
type UnsupportedTypeError struct {
	Err    error        // ErrUnsupportedType
	Type   reflect.Type // offending declared type
	Hint   string       // remediation hint
	Schema string       // owning schema type name
	Field  string       // owning field name
}

func (e *UnsupportedTypeError) Error() string {
	msg := fmt.Sprintf("%s %v", e.Err.Error(), e.Type)
	if e.Schema != "" {
		msg += fmt.Sprintf(" (schema %s, field %s)", e.Schema, e.Field)
	}
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	return msg
}

func (e *UnsupportedTypeError) Unwrap() error { return e.Err }

func (e *UnsupportedTypeError) fillContext(schema, field string) {
	if e.Schema == "" {
		e.Schema = schema
		e.Field = field
	}
}

// MissingFieldsError reports absent required fields, keys, or tuple
// positions. For tuple arity failures Index, Expected and Actual are set;
// for missing record fields the Fields list names every absent field.
type MissingFieldsError struct {
	Err      error    // ErrMissingFields
	Schema   string   // schema or tuple type name
	Field    string   // owning field, when nested
	Fields   []string // names of the missing fields
	Index    int      // first missing tuple position, -1 when not a tuple
	Expected int      // expected tuple length
	Actual   int      // actual input length
}

func (e *MissingFieldsError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s in %s: index %d (expected length %d, got %d)",
			e.Err.Error(), e.Schema, e.Index, e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s in %s: %s", e.Err.Error(), e.Schema, strings.Join(e.Fields, ", "))
}

func (e *MissingFieldsError) Unwrap() error { return e.Err }

func (e *MissingFieldsError) fillContext(schema, field string) {
	if e.Schema == "" {
		e.Schema = schema
	}
	if e.Field == "" {
		e.Field = field
	}
}

// UnknownUnionMemberError reports input that matched no declared union
// variant. ValidTags lists every tag the union accepts when it is tagged.
type UnknownUnionMemberError struct {
	Err       error // ErrUnknownUnionMember
	Schema    string
	Field     string
	Union     string   // union interface type name
	Tag       string   // unrecognized tag, if the input carried one
	ValidTags []string // tags the union accepts
	Value     string   // raw input representation
}

func (e *UnknownUnionMemberError) Error() string {
	var msg string
	if e.Tag != "" {
		msg = fmt.Sprintf("%s: tag %q not recognized for %s", e.Err.Error(), e.Tag, e.Union)
	} else {
		msg = fmt.Sprintf("%s: value not in any of the declared types for %s", e.Err.Error(), e.Union)
	}
	if len(e.ValidTags) > 0 {
		msg += fmt.Sprintf(" (valid tags: %s)", strings.Join(e.ValidTags, ", "))
	}
	if e.Value != "" {
		msg += fmt.Sprintf(", input: %s", e.Value)
	}
	return msg
}

func (e *UnknownUnionMemberError) Unwrap() error { return e.Err }

func (e *UnknownUnionMemberError) fillContext(schema, field string) {
	if e.Schema == "" {
		e.Schema = schema
		e.Field = field
	}
}

// TemporalParseError reports a temporal value that matched none of the
// declared layouts. Layouts lists every layout tried, in order.
type TemporalParseError struct {
	Err     error // ErrTemporalParse
	Schema  string
	Field   string
	Value   string   // raw input representation
	Layouts []string // layouts tried, in order
}

func (e *TemporalParseError) Error() string {
	msg := fmt.Sprintf("%s for %s (layouts tried: %s)",
		e.Err.Error(), e.Value, strings.Join(e.Layouts, ", "))
	if e.Schema != "" {
		msg += fmt.Sprintf(" (schema %s, field %s)", e.Schema, e.Field)
	}
	return msg
}

func (e *TemporalParseError) Unwrap() error { return e.Err }

func (e *TemporalParseError) fillContext(schema, field string) {
	if e.Schema == "" {
		e.Schema = schema
		e.Field = field
	}
}

// MissingSourceError reports nil input where a record was expected.
type MissingSourceError struct {
	Err    error // ErrMissingSource
	Schema string
	Field  string
}

func (e *MissingSourceError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s for schema %s (field %s)", e.Err.Error(), e.Schema, e.Field)
	}
	return fmt.Sprintf("%s for schema %s", e.Err.Error(), e.Schema)
}

func (e *MissingSourceError) Unwrap() error { return e.Err }

func (e *MissingSourceError) fillContext(schema, field string) {
	if e.Schema == "" {
		e.Schema = schema
	}
	if e.Field == "" {
		e.Field = field
	}
}

// ParseError reclassifies any other failure raised while a compiled routine
// runs. It always identifies the schema, the declared field list, the
// offending field and the raw input that failed.
type ParseError struct {
	Err    error    // ErrParse
	Schema string   // schema type name
	Fields []string // declared field names of the schema
	Field  string   // offending field
	Value  string   // raw input representation
	Cause  error    // original error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s: schema %s, field %s", e.Err.Error(), e.Schema, e.Field)
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	if e.Value != "" {
		msg += fmt.Sprintf(" (input: %s)", e.Value)
	}
	return msg
}

// Unwrap exposes both the sentinel and the original failure, so errors.Is
// and errors.As reach the cause through the reclassified wrapper.
func (e *ParseError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func (e *ParseError) fillContext(schema, field string) {
	if e.Schema == "" {
		e.Schema = schema
		e.Field = field
	}
}

// newUnsupportedTypeError creates an UnsupportedTypeError with a hint.
func newUnsupportedTypeError(t reflect.Type, hint string) error {
	return &UnsupportedTypeError{Err: ErrUnsupportedType, Type: t, Hint: hint}
}

// newMissingFieldsError creates a MissingFieldsError for absent record fields.
func newMissingFieldsError(schema string, fields []string) error {
	return &MissingFieldsError{Err: ErrMissingFields, Schema: schema, Fields: fields, Index: -1}
}

// newArityError creates a MissingFieldsError for a tuple length mismatch.
func newArityError(schema string, index, expected, actual int) error {
	return &MissingFieldsError{
		Err:      ErrMissingFields,
		Schema:   schema,
		Index:    index,
		Expected: expected,
		Actual:   actual,
	}
}

// newTemporalParseError creates a TemporalParseError listing tried layouts.
func newTemporalParseError(value any, layouts []string) error {
	return &TemporalParseError{Err: ErrTemporalParse, Value: valueRepr(value), Layouts: layouts}
}

// newMissingSourceError creates a MissingSourceError for a schema.
func newMissingSourceError(schema string) error {
	return &MissingSourceError{Err: ErrMissingSource, Schema: schema}
}

// wrapFieldError applies the schema-wide reclassification policy: errors
// already in the structured family pass through, gaining schema/field
// context only if unset (innermost failure wins); anything else becomes a
// ParseError.
func wrapFieldError(err error, s *schema, field string, raw any) error {
	var c contextual
	if errors.As(err, &c) {
		c.fillContext(s.name, field)
		return err
	}
	return &ParseError{
		Err:    ErrParse,
		Schema: s.name,
		Fields: s.fieldNames(),
		Field:  field,
		Value:  valueRepr(raw),
		Cause:  err,
	}
}
