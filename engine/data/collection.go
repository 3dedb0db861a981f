package data

import (
	"iter"
	"sort"
)

// Collection maps vertex names to references. It is how operators declare
// their inputs and outputs and how the builder hands resolved inputs to a
// factory. A nil *Collection behaves as an empty one for lookups.
type Collection struct {
	refs map[string]Reference
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{refs: make(map[string]Reference)}
}

// AddRead stores ref under name as a read reference.
func (c *Collection) AddRead(name string, ref Reference) bool {
	if !ref.IsValid() {
		return false
	}

	c.ensure()

	c.refs[name] = ref.AsRead()

	return true
}

// AddWrite stores ref under name. ref must be writable.
func (c *Collection) AddWrite(name string, ref Reference) bool {
	if !ref.IsValid() || ref.Access() != AccessWrite {
		return false
	}

	c.ensure()

	c.refs[name] = ref

	return true
}

// Add stores ref under name keeping its flavor.
func (c *Collection) Add(name string, ref Reference) bool {
	if ref.Access() == AccessWrite {
		return c.AddWrite(name, ref)
	}

	return c.AddRead(name, ref)
}

// Remove deletes name.
func (c *Collection) Remove(name string) {
	if c == nil {
		return
	}

	delete(c.refs, name)
}

// ContainsRead reports whether name holds a reference of typeName.
// Write references satisfy read lookups.
func (c *Collection) ContainsRead(name, typeName string) bool {
	ref, ok := c.get(name)

	return ok && ref.TypeName() == typeName
}

// ContainsWrite reports whether name holds a writable reference of typeName.
func (c *Collection) ContainsWrite(name, typeName string) bool {
	ref, ok := c.get(name)

	return ok && ref.Access() == AccessWrite && ref.TypeName() == typeName
}

// Read returns a read reference stored under name.
func (c *Collection) Read(name string) (Reference, bool) {
	ref, ok := c.get(name)
	if !ok {
		return Reference{}, false
	}

	return ref.AsRead(), true
}

// Write returns the writable reference stored under name.
func (c *Collection) Write(name string) (Reference, bool) {
	ref, ok := c.get(name)
	if !ok || ref.Access() != AccessWrite {
		return Reference{}, false
	}

	return ref, true
}

// Get returns the reference stored under name with its original flavor.
func (c *Collection) Get(name string) (Reference, bool) {
	return c.get(name)
}

// AddReadFrom copies the reference src holds under srcName into c under
// dstName as a read reference, provided it has typeName.
func (c *Collection) AddReadFrom(src *Collection, srcName, dstName, typeName string) bool {
	if !src.ContainsRead(srcName, typeName) {
		return false
	}

	ref, _ := src.Read(srcName)

	return c.AddRead(dstName, ref)
}

// AddWriteFrom copies the writable reference src holds under srcName into
// c under dstName, provided it has typeName.
func (c *Collection) AddWriteFrom(src *Collection, srcName, dstName, typeName string) bool {
	if !src.ContainsWrite(srcName, typeName) {
		return false
	}

	ref, _ := src.Write(srcName)

	return c.AddWrite(dstName, ref)
}

// Len returns the number of stored references.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}

	return len(c.refs)
}

// Names returns the stored names in sorted order.
func (c *Collection) Names() []string {
	if c == nil {
		return nil
	}

	names := make([]string, 0, len(c.refs))

	for name := range c.refs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// All yields every stored reference in map order. Unlike Names it neither
// allocates nor sorts, so it is the form used on the render path.
func (c *Collection) All() iter.Seq2[string, Reference] {
	return func(yield func(string, Reference) bool) {
		if c == nil {
			return
		}

		for name, ref := range c.refs {
			if !yield(name, ref) {
				return
			}
		}
	}
}

// Clone returns a collection sharing the same references.
func (c *Collection) Clone() *Collection {
	out := NewCollection()

	if c == nil {
		return out
	}

	for name, ref := range c.refs {
		out.refs[name] = ref
	}

	return out
}

func (c *Collection) get(name string) (Reference, bool) {
	if c == nil {
		return Reference{}, false
	}

	ref, ok := c.refs[name]

	return ref, ok
}

func (c *Collection) ensure() {
	if c.refs == nil {
		c.refs = make(map[string]Reference)
	}
}

// GetRead returns a typed read view of the reference stored under name.
func GetRead[T any](c *Collection, name string) (ReadRef[T], bool) {
	ref, ok := c.get(name)
	if !ok {
		return ReadRef[T]{}, false
	}

	return Read[T](ref)
}

// GetWrite returns a typed write view of the writable reference stored
// under name.
func GetWrite[T any](c *Collection, name string) (WriteRef[T], bool) {
	ref, ok := c.get(name)
	if !ok {
		return WriteRef[T]{}, false
	}

	return Write[T](ref)
}

// BindRead replaces *dst with the reference c holds under name, if any and
// if it holds a T. It is the building block of operator input rebinding.
func BindRead[T any](c *Collection, name string, dst *ReadRef[T]) bool {
	r, ok := GetRead[T](c, name)
	if !ok {
		return false
	}

	*dst = r

	return true
}
