package wizard

import (
	"context"
	"strings"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for conversion events.
var (
	SignalPlanCompiled      = capitan.NewSignal("wizard.plan.compiled", "Schema plan compiled and cached")
	SignalMarshalStart      = capitan.NewSignal("wizard.marshal.start", "Record to tree conversion beginning")
	SignalMarshalComplete   = capitan.NewSignal("wizard.marshal.complete", "Record to tree conversion finished")
	SignalUnmarshalStart    = capitan.NewSignal("wizard.unmarshal.start", "Tree to record conversion beginning")
	SignalUnmarshalComplete = capitan.NewSignal("wizard.unmarshal.complete", "Tree to record conversion finished")
	SignalUnknownKeys       = capitan.NewSignal("wizard.unknown.keys", "Input keys matched no declared field")
	SignalAutoTag           = capitan.NewSignal("wizard.union.autotag", "Union variant tag auto-assigned")
)

// Keys for typed event data.
var (
	KeyTypeName    = capitan.NewStringKey("type_name")
	KeyContentType = capitan.NewStringKey("content_type")
	KeyFieldCount  = capitan.NewIntKey("field_count")
	KeySize        = capitan.NewIntKey("size")
	KeyDuration    = capitan.NewDurationKey("duration")
	KeyError       = capitan.NewErrorKey("error")
	KeyUnknownKeys = capitan.NewStringKey("unknown_keys")
	KeyUnionName   = capitan.NewStringKey("union")
	KeyTag         = capitan.NewStringKey("tag")
)

// emitPlanCompiled emits an event when a schema plan is compiled.
func emitPlanCompiled(ctx context.Context, typeName string, fields int, elapsed time.Duration) {
	capitan.Emit(ctx, SignalPlanCompiled,
		KeyTypeName.Field(typeName),
		KeyFieldCount.Field(fields),
		KeyDuration.Field(elapsed),
	)
}

// emitMarshalStart emits an event when a record-to-tree conversion begins.
func emitMarshalStart(ctx context.Context, typeName string) {
	capitan.Emit(ctx, SignalMarshalStart, KeyTypeName.Field(typeName))
}

// emitMarshalComplete emits an event when a record-to-tree conversion finishes.
func emitMarshalComplete(ctx context.Context, typeName string, elapsed time.Duration, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyDuration.Field(elapsed),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalMarshalComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalMarshalComplete, fields...)
	}
}

// emitUnmarshalStart emits an event when a tree-to-record conversion begins.
func emitUnmarshalStart(ctx context.Context, typeName string) {
	capitan.Emit(ctx, SignalUnmarshalStart, KeyTypeName.Field(typeName))
}

// emitUnmarshalComplete emits an event when a tree-to-record conversion finishes.
func emitUnmarshalComplete(ctx context.Context, typeName string, elapsed time.Duration, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyDuration.Field(elapsed),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalUnmarshalComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalUnmarshalComplete, fields...)
	}
}

// emitUnknownKeys emits a warning for input keys no declared field claimed.
func emitUnknownKeys(ctx context.Context, typeName string, keys []string) {
	capitan.Emit(ctx, SignalUnknownKeys,
		KeyTypeName.Field(typeName),
		KeyUnknownKeys.Field(strings.Join(keys, ",")),
	)
}

// emitAutoTag emits a notice when a union variant's tag is synthesized.
func emitAutoTag(ctx context.Context, union, typeName, tag string) {
	capitan.Emit(ctx, SignalAutoTag,
		KeyUnionName.Field(union),
		KeyTypeName.Field(typeName),
		KeyTag.Field(tag),
	)
}
