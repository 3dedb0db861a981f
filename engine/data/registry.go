package data

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/cwbudde/algo-opgraph/engine/core"
)

// Built-in data type names.
const (
	TypeBool   = "Bool"
	TypeInt32  = "Int32"
	TypeFloat  = "Float"
	TypeString = "String"
	TypeAudio  = "Audio"
)

var (
	// ErrUnknownType is returned for type names absent from a Registry.
	ErrUnknownType = errors.New("unknown data type")
	// ErrTypeMismatch is returned when a Go type does not match the registered type.
	ErrTypeMismatch = errors.New("data type mismatch")

	errDuplicateType = errors.New("duplicate data type")
)

// Type describes how to construct values of one data type. Construction
// tries, in order: Args (the literal alone), SettingsArgs (settings and the
// literal), Settings (settings only) and Default. The literal-taking
// constructors are only consulted when the literal is not none.
type Type[T any] struct {
	Name           string
	DefaultLiteral Literal

	Args         func(lit Literal) (T, error)
	SettingsArgs func(settings core.OperatorSettings, lit Literal) (T, error)
	Settings     func(settings core.OperatorSettings) T
	Default      func() T
}

// TypeInfo is the erased registration of a data type.
type TypeInfo struct {
	Name           string
	ID             TypeID
	GoType         reflect.Type
	DefaultLiteral Literal

	create func(settings core.OperatorSettings, lit Literal) (Reference, error)
}

// New constructs a fresh write reference of this type.
func (t *TypeInfo) New(settings core.OperatorSettings, lit Literal) (Reference, error) {
	return t.create(settings, lit)
}

// Registry maps data type names to their constructors. It is filled once
// at startup and only queried afterwards; it is not safe for concurrent
// registration.
type Registry struct {
	types map[string]*TypeInfo
	next  TypeID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*TypeInfo)}
}

// Register adds a data type and interns its TypeID.
func Register[T any](r *Registry, t Type[T]) (*TypeInfo, error) {
	if t.Name == "" {
		return nil, errors.New("data: empty type name")
	}

	if _, exists := r.types[t.Name]; exists {
		return nil, fmt.Errorf("data: %w: %s", errDuplicateType, t.Name)
	}

	r.next++
	info := &TypeInfo{
		Name:           t.Name,
		ID:             r.next,
		GoType:         reflect.TypeFor[T](),
		DefaultLiteral: t.DefaultLiteral,
	}
	info.create = func(settings core.OperatorSettings, lit Literal) (Reference, error) {
		v, err := construct(t, settings, lit)
		if err != nil {
			return Reference{}, fmt.Errorf("data: construct %s from %s literal: %w", t.Name, lit.Kind(), err)
		}

		return newReference(info, v), nil
	}
	r.types[t.Name] = info

	return info, nil
}

// MustRegister is like Register but panics on error.
func MustRegister[T any](r *Registry, t Type[T]) *TypeInfo {
	info, err := Register(r, t)
	if err != nil {
		panic(err.Error())
	}

	return info
}

func construct[T any](t Type[T], settings core.OperatorSettings, lit Literal) (T, error) {
	if !lit.IsNone() {
		if t.Args != nil {
			return t.Args(lit)
		}

		if t.SettingsArgs != nil {
			return t.SettingsArgs(settings, lit)
		}

		var zero T

		return zero, fmt.Errorf("%w: type takes no literal", ErrInvalidLiteral)
	}

	if t.Settings != nil {
		return t.Settings(settings), nil
	}

	if t.Default != nil {
		return t.Default(), nil
	}

	var zero T

	return zero, nil
}

// Lookup returns the registration for name.
func (r *Registry) Lookup(name string) (*TypeInfo, bool) {
	if r == nil {
		return nil, false
	}

	info, ok := r.types[name]

	return info, ok
}

// Names returns the registered type names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))

	for name := range r.types {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Create constructs a new write reference of the named type.
func (r *Registry) Create(typeName string, settings core.OperatorSettings, lit Literal) (Reference, error) {
	info, ok := r.Lookup(typeName)
	if !ok {
		return Reference{}, fmt.Errorf("data: %w: %s", ErrUnknownType, typeName)
	}

	return info.New(settings, lit)
}

// CreateDefault constructs a value from the type's default literal.
func (r *Registry) CreateDefault(typeName string, settings core.OperatorSettings) (Reference, error) {
	info, ok := r.Lookup(typeName)
	if !ok {
		return Reference{}, fmt.Errorf("data: %w: %s", ErrUnknownType, typeName)
	}

	return info.New(settings, info.DefaultLiteral)
}

// CreateWrite constructs a new value of the named type and returns a typed
// write view. It fails if the registered Go type is not T.
func CreateWrite[T any](r *Registry, typeName string, settings core.OperatorSettings, lit Literal) (WriteRef[T], error) {
	ref, err := r.Create(typeName, settings, lit)
	if err != nil {
		return WriteRef[T]{}, err
	}

	w, ok := Write[T](ref)
	if !ok {
		return WriteRef[T]{}, fmt.Errorf("data: %w: %s is not %v", ErrTypeMismatch, typeName, reflect.TypeFor[T]())
	}

	return w, nil
}

// NewBuiltinRegistry returns a registry holding Bool, Int32, Float, String
// and Audio.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()

	MustRegister(r, Type[bool]{
		Name:           TypeBool,
		DefaultLiteral: BoolLiteral(false),
		Args: func(lit Literal) (bool, error) {
			v, ok := lit.AsBool()
			if !ok {
				return false, ErrInvalidLiteral
			}

			return v, nil
		},
	})
	MustRegister(r, Type[int32]{
		Name:           TypeInt32,
		DefaultLiteral: Int32Literal(0),
		Args: func(lit Literal) (int32, error) {
			v, ok := lit.AsInt32()
			if !ok {
				return 0, ErrInvalidLiteral
			}

			return v, nil
		},
	})
	MustRegister(r, Type[float64]{
		Name:           TypeFloat,
		DefaultLiteral: FloatLiteral(0),
		Args: func(lit Literal) (float64, error) {
			v, ok := lit.AsFloat()
			if !ok {
				return 0, ErrInvalidLiteral
			}

			return v, nil
		},
	})
	MustRegister(r, Type[string]{
		Name:           TypeString,
		DefaultLiteral: StringLiteral(""),
		Args: func(lit Literal) (string, error) {
			v, ok := lit.AsString()
			if !ok {
				return "", ErrInvalidLiteral
			}

			return v, nil
		},
	})
	MustRegister(r, Type[*Buffer]{
		Name: TypeAudio,
		SettingsArgs: func(settings core.OperatorSettings, lit Literal) (*Buffer, error) {
			// A numeric literal fills the block with a DC value.
			v, ok := lit.AsFloat()
			if !ok {
				return nil, ErrInvalidLiteral
			}

			b := NewBuffer(settings.BlockSize)
			b.Fill(v)

			return b, nil
		},
		Settings: func(settings core.OperatorSettings) *Buffer {
			return NewBuffer(settings.BlockSize)
		},
	})

	return r
}
