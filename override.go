package wizard

// Override interfaces allow types to bypass plan-based conversion.
// When a type implements one of these interfaces, the classifier selects the
// interface method instead of compiling a shape rule for it.
//
// This provides two benefits:
// 1. Performance: hand-written conversion for hot paths
// 2. Custom logic: representations that can't be expressed via tags

// TreeMarshaler bypasses the serialize-direction dispatcher.
// MarshalTree must return a generic tree (maps, slices, scalars).
type TreeMarshaler interface {
	MarshalTree() (any, error)
}

// TreeUnmarshaler bypasses the deserialize-direction dispatcher.
// UnmarshalTree receives the raw subtree for the value. Implement on a
// pointer receiver.
type TreeUnmarshaler interface {
	UnmarshalTree(tree any) error
}
