package data

// Access is the flavor of a Reference.
type Access uint8

const (
	AccessNone Access = iota

	AccessRead
	AccessWrite
)

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	default:
		return "none"
	}
}

// TypeID is the interned identifier a Registry assigns to a data type.
type TypeID uint32

// cell is the shared storage behind every handle of one value.
type cell interface {
	assign(src cell) bool
	load() any
}

type box[T any] struct {
	v T
}

func (b *box[T]) assign(src cell) bool {
	s, ok := src.(*box[T])
	if !ok {
		return false
	}

	b.v = s.v

	return true
}

func (b *box[T]) load() any { return b.v }

// Reference is a type-erased handle to one shared, typed value.
// The zero Reference is invalid.
type Reference struct {
	access   Access
	typeName string
	typeID   TypeID
	cell     cell
}

// IsValid reports whether the reference points at a value.
func (r Reference) IsValid() bool { return r.cell != nil }

// Access returns the handle's flavor.
func (r Reference) Access() Access { return r.access }

// TypeName returns the declared data type name.
func (r Reference) TypeName() string { return r.typeName }

// TypeID returns the interned type identifier.
func (r Reference) TypeID() TypeID { return r.typeID }

// Is reports whether the reference carries the given type name and id.
func (r Reference) Is(typeName string, id TypeID) bool {
	return r.typeName == typeName && r.typeID == id
}

// AsRead returns a read-only handle to the same value.
func (r Reference) AsRead() Reference {
	if r.cell == nil {
		return r
	}

	r.access = AccessRead

	return r
}

// SameValue reports whether both handles share one cell.
func (r Reference) SameValue(other Reference) bool {
	return r.cell != nil && r.cell == other.cell
}

// Value returns the current value as an interface.
func (r Reference) Value() any {
	if r.cell == nil {
		return nil
	}

	return r.cell.load()
}

// Assign copies the value of src into r. Both references must hold the same
// Go type and r must be writable.
func (r Reference) Assign(src Reference) bool {
	if r.access != AccessWrite || r.cell == nil || src.cell == nil {
		return false
	}

	return r.cell.assign(src.cell)
}

// ReadRef is a typed read-only view of a Reference.
type ReadRef[T any] struct {
	ref Reference
	p   *T
}

// Get returns the current value.
func (r ReadRef[T]) Get() T {
	if r.p == nil {
		var zero T

		return zero
	}

	return *r.p
}

// IsValid reports whether the view points at a value.
func (r ReadRef[T]) IsValid() bool { return r.p != nil }

// Ref returns the erased read reference.
func (r ReadRef[T]) Ref() Reference { return r.ref }

// WriteRef is a typed read-write view of a Reference.
type WriteRef[T any] struct {
	ref Reference
	p   *T
}

// Get returns the current value.
func (w WriteRef[T]) Get() T {
	if w.p == nil {
		var zero T

		return zero
	}

	return *w.p
}

// Set replaces the value observed by every handle.
func (w WriteRef[T]) Set(v T) {
	if w.p != nil {
		*w.p = v
	}
}

// Ptr exposes the shared storage for in-place updates.
func (w WriteRef[T]) Ptr() *T { return w.p }

// IsValid reports whether the view points at a value.
func (w WriteRef[T]) IsValid() bool { return w.p != nil }

// Ref returns the erased write reference.
func (w WriteRef[T]) Ref() Reference { return w.ref }

// AsRead narrows the view to read-only.
func (w WriteRef[T]) AsRead() ReadRef[T] {
	return ReadRef[T]{ref: w.ref.AsRead(), p: w.p}
}

// Read returns a typed read view of ref if it holds a T.
func Read[T any](ref Reference) (ReadRef[T], bool) {
	b, ok := ref.cell.(*box[T])
	if !ok || b == nil {
		return ReadRef[T]{}, false
	}

	return ReadRef[T]{ref: ref.AsRead(), p: &b.v}, true
}

// Write returns a typed write view of ref if it is writable and holds a T.
func Write[T any](ref Reference) (WriteRef[T], bool) {
	if ref.access != AccessWrite {
		return WriteRef[T]{}, false
	}

	b, ok := ref.cell.(*box[T])
	if !ok || b == nil {
		return WriteRef[T]{}, false
	}

	return WriteRef[T]{ref: ref, p: &b.v}, true
}

func newReference[T any](info *TypeInfo, v T) Reference {
	return Reference{
		access:   AccessWrite,
		typeName: info.Name,
		typeID:   info.ID,
		cell:     &box[T]{v: v},
	}
}
