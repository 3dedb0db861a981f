package nodes

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"

	"github.com/cwbudde/algo-opgraph/engine/data"
)

// Constructor creates a node of one class from untyped parameters.
type Constructor func(name string, params map[string]any) (*Node, error)

// Registry maps class names to constructors.
type Registry struct {
	classes map[string]Constructor
}

var (
	// ErrUnknownClass is returned for class names absent from a Registry.
	ErrUnknownClass = errors.New("unknown node class")

	errDuplicateClass = errors.New("duplicate node class")
)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]Constructor)}
}

// Register adds a constructor for the given class.
func (r *Registry) Register(class string, c Constructor) error {
	if class == "" {
		return errors.New("empty node class")
	}

	if c == nil {
		return errors.New("nil constructor")
	}

	if _, exists := r.classes[class]; exists {
		return fmt.Errorf("%w: %s", errDuplicateClass, class)
	}

	r.classes[class] = c

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(class string, c Constructor) {
	err := r.Register(class, c)
	if err != nil {
		panic("nodes registry: " + err.Error())
	}
}

// Lookup returns the constructor for the given class, or nil.
func (r *Registry) Lookup(class string) Constructor {
	return r.classes[class]
}

// Classes returns the registered class names in sorted order.
func (r *Registry) Classes() []string {
	names := make([]string, 0, len(r.classes))

	for name := range r.classes {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// New creates a node of class named name.
func (r *Registry) New(class, name string, params map[string]any) (*Node, error) {
	c := r.Lookup(class)
	if c == nil {
		return nil, fmt.Errorf("nodes: %w: %q", ErrUnknownClass, class)
	}

	n, err := c(name, params)
	if err != nil {
		return nil, fmt.Errorf("nodes: configure %s %q: %w", class, name, err)
	}

	return n, nil
}

// DecodeParams decodes params into out, which must be a pointer to a
// struct with mapstructure tags. Numeric strings and mixed numeric types
// are converted; unknown keys are an error.
func DecodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}

	return dec.Decode(params)
}

type valueParams struct {
	Type    string `mapstructure:"type"`
	Default any    `mapstructure:"default"`
	Value   any    `mapstructure:"value"`
}

func (p valueParams) literal(v any) (data.Literal, error) {
	if v == nil {
		return data.NoneLiteral(), nil
	}

	return data.LiteralFrom(v)
}

// DefaultRegistry returns a Registry holding every built-in class.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister(ClassInput, func(name string, params map[string]any) (*Node, error) {
		var p valueParams

		err := DecodeParams(params, &p)
		if err != nil {
			return nil, err
		}

		if p.Type == "" {
			return nil, errors.New("missing type")
		}

		def, err := p.literal(p.Default)
		if err != nil {
			return nil, err
		}

		return NewInput(name, p.Type, def), nil
	})
	r.MustRegister(ClassOutput, func(name string, params map[string]any) (*Node, error) {
		var p valueParams

		err := DecodeParams(params, &p)
		if err != nil {
			return nil, err
		}

		if p.Type == "" {
			return nil, errors.New("missing type")
		}

		return NewOutput(name, p.Type), nil
	})
	r.MustRegister(ClassLiteral, func(name string, params map[string]any) (*Node, error) {
		var p valueParams

		err := DecodeParams(params, &p)
		if err != nil {
			return nil, err
		}

		if p.Type == "" {
			return nil, errors.New("missing type")
		}

		v, err := p.literal(p.Value)
		if err != nil {
			return nil, err
		}

		return NewLiteral(name, p.Type, v), nil
	})

	r.MustRegister(ClassSine, func(name string, params map[string]any) (*Node, error) {
		p := DefaultSineParams()

		err := DecodeParams(params, &p)
		if err != nil {
			return nil, err
		}

		return NewSine(name, p), nil
	})
	r.MustRegister(ClassGain, func(name string, params map[string]any) (*Node, error) {
		p := struct {
			Gain float64 `mapstructure:"gain"`
		}{Gain: 1}

		err := DecodeParams(params, &p)
		if err != nil {
			return nil, err
		}

		return NewGain(name, p.Gain), nil
	})
	r.MustRegister(ClassMixer, func(name string, params map[string]any) (*Node, error) {
		p := MixerParams{Inputs: 2}

		err := DecodeParams(params, &p)
		if err != nil {
			return nil, err
		}

		return NewMixer(name, p)
	})
	r.MustRegister(ClassMultiply, noParams(NewMultiply))
	r.MustRegister(ClassLowpass, func(name string, params map[string]any) (*Node, error) {
		p := DefaultLowpassParams()

		err := DecodeParams(params, &p)
		if err != nil {
			return nil, err
		}

		return NewLowpass(name, p), nil
	})
	r.MustRegister(ClassSpectralPeak, noParams(NewSpectralPeak))
	r.MustRegister(ClassAddFloat, noParams(NewAddFloat))
	r.MustRegister(ClassIntToFloat, noParams(NewIntToFloat))

	return r
}

func noParams(create func(name string) *Node) Constructor {
	return func(name string, params map[string]any) (*Node, error) {
		if len(params) > 0 {
			return nil, errors.New("class takes no parameters")
		}

		return create(name), nil
	}
}
