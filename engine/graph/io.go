package graph

import "github.com/cwbudde/algo-opgraph/engine/data"

// IO holds an operator's vertex collections and the typed views its inputs
// are read through. Embedding IO gives an operator the BindInputs, Inputs
// and Outputs methods of the Operator interface. The zero value is ready
// to use.
type IO struct {
	inputs  *data.Collection
	outputs *data.Collection
	binders map[string]func(data.Reference) bool
}

// BindInput registers the typed view dst for input vertex name and points
// it at initial. Later BindInputs calls retarget dst.
func BindInput[T any](io *IO, name string, dst *data.ReadRef[T], initial data.ReadRef[T]) {
	io.init()

	*dst = initial

	io.inputs.AddRead(name, initial.Ref())

	io.binders[name] = func(ref data.Reference) bool {
		r, ok := data.Read[T](ref)
		if !ok {
			return false
		}

		*dst = r

		return true
	}
}

// SetInput exposes ref under input vertex name without a typed view. The
// reference keeps its access flavor, which lets input shims expose a
// writable reference.
func (io *IO) SetInput(name string, ref data.Reference) {
	io.init()
	io.inputs.Add(name, ref)
}

// SetOutput exposes ref under output vertex name.
func (io *IO) SetOutput(name string, ref data.Reference) {
	io.init()
	io.outputs.Add(name, ref)
}

// BindInputs retargets every registered input present in inputs. Names
// without a binder and references of the wrong type are ignored.
func (io *IO) BindInputs(inputs *data.Collection) {
	io.init()

	for name, ref := range inputs.All() {
		bind, ok := io.binders[name]
		if !ok {
			continue
		}

		if bind(ref) {
			io.inputs.AddRead(name, ref)
		}
	}
}

// Inputs returns the input collection.
func (io *IO) Inputs() *data.Collection {
	io.init()

	return io.inputs
}

// Outputs returns the output collection.
func (io *IO) Outputs() *data.Collection {
	io.init()

	return io.outputs
}

func (io *IO) init() {
	if io.inputs == nil {
		io.inputs = data.NewCollection()
	}

	if io.outputs == nil {
		io.outputs = data.NewCollection()
	}

	if io.binders == nil {
		io.binders = make(map[string]func(data.Reference) bool)
	}
}
