// Package vertex describes the named, typed input and output slots of a
// node. A node's Interface is static: it is what the linter and builder
// check edges against before any operator exists.
package vertex

import (
	"fmt"
	"sort"

	"github.com/cwbudde/algo-opgraph/engine/data"
)

// Input is a named input slot. Default is the literal the node's factory
// uses when nothing is connected.
type Input struct {
	Name     string
	TypeName string
	Default  data.Literal
	Tooltip  string
}

// Output is a named output slot.
type Output struct {
	Name     string
	TypeName string
	Tooltip  string
}

// Interface is the set of a node's input and output vertices. Names are
// unique within each side. Enumeration keeps declaration order.
type Interface struct {
	inputs  []Input
	outputs []Output
}

// NewInterface builds an Interface. Duplicate names within one side are an
// error.
func NewInterface(inputs []Input, outputs []Output) (Interface, error) {
	seen := make(map[string]struct{}, len(inputs))

	for _, in := range inputs {
		if in.Name == "" {
			return Interface{}, fmt.Errorf("vertex: empty input name")
		}

		if _, dup := seen[in.Name]; dup {
			return Interface{}, fmt.Errorf("vertex: duplicate input %q", in.Name)
		}

		seen[in.Name] = struct{}{}
	}

	seen = make(map[string]struct{}, len(outputs))

	for _, out := range outputs {
		if out.Name == "" {
			return Interface{}, fmt.Errorf("vertex: empty output name")
		}

		if _, dup := seen[out.Name]; dup {
			return Interface{}, fmt.Errorf("vertex: duplicate output %q", out.Name)
		}

		seen[out.Name] = struct{}{}
	}

	return Interface{
		inputs:  append([]Input(nil), inputs...),
		outputs: append([]Output(nil), outputs...),
	}, nil
}

// MustInterface is like NewInterface but panics on error. Meant for static
// node declarations.
func MustInterface(inputs []Input, outputs []Output) Interface {
	iface, err := NewInterface(inputs, outputs)
	if err != nil {
		panic(err.Error())
	}

	return iface
}

// Inputs returns the input vertices in declaration order.
func (i Interface) Inputs() []Input { return append([]Input(nil), i.inputs...) }

// Outputs returns the output vertices in declaration order.
func (i Interface) Outputs() []Output { return append([]Output(nil), i.outputs...) }

// Input looks up an input vertex by name.
func (i Interface) Input(name string) (Input, bool) {
	for _, in := range i.inputs {
		if in.Name == name {
			return in, true
		}
	}

	return Input{}, false
}

// Output looks up an output vertex by name.
func (i Interface) Output(name string) (Output, bool) {
	for _, out := range i.outputs {
		if out.Name == name {
			return out, true
		}
	}

	return Output{}, false
}

// ContainsInput reports whether an input with name and type exists.
func (i Interface) ContainsInput(name, typeName string) bool {
	in, ok := i.Input(name)

	return ok && in.TypeName == typeName
}

// ContainsOutput reports whether an output with name and type exists.
func (i Interface) ContainsOutput(name, typeName string) bool {
	out, ok := i.Output(name)

	return ok && out.TypeName == typeName
}

// Equal reports whether both interfaces hold exactly the same vertex names
// and types, regardless of order.
func (i Interface) Equal(other Interface) bool {
	if len(i.inputs) != len(other.inputs) || len(i.outputs) != len(other.outputs) {
		return false
	}

	for _, in := range i.inputs {
		if !other.ContainsInput(in.Name, in.TypeName) {
			return false
		}
	}

	for _, out := range i.outputs {
		if !other.ContainsOutput(out.Name, out.TypeName) {
			return false
		}
	}

	return true
}

// InputNames returns the input names sorted, for diagnostics.
func (i Interface) InputNames() []string {
	names := make([]string, len(i.inputs))

	for k, in := range i.inputs {
		names[k] = in.Name
	}

	sort.Strings(names)

	return names
}

// OutputNames returns the output names sorted, for diagnostics.
func (i Interface) OutputNames() []string {
	names := make([]string, len(i.outputs))

	for k, out := range i.outputs {
		names[k] = out.Name
	}

	sort.Strings(names)

	return names
}
