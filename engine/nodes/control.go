package nodes

import (
	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/vertex"
)

// Control-rate class names.
const (
	ClassAddFloat   = "AddFloat"
	ClassIntToFloat = "IntToFloat"
)

// NewAddFloat creates a node whose Sum output is A + B.
func NewAddFloat(name string) *Node {
	iface := vertex.MustInterface(
		[]vertex.Input{
			{Name: "A", TypeName: data.TypeFloat, Default: data.FloatLiteral(0)},
			{Name: "B", TypeName: data.TypeFloat, Default: data.FloatLiteral(0)},
		},
		[]vertex.Output{{Name: "Sum", TypeName: data.TypeFloat}},
	)

	return newNode(name, ClassAddFloat, iface, graph.FactoryFunc(
		func(params graph.BuildParams, errs *graph.BuildErrors) graph.Operator {
			op := &addFloatOperator{}
			a, okA := graph.InputOrDefault[float64](params, "A", errs)
			b, okB := graph.InputOrDefault[float64](params, "B", errs)

			sum, okSum := graph.NewOutput[float64](params, "Sum", data.NoneLiteral(), errs)
			if !okA || !okB || !okSum {
				return nil
			}

			graph.BindInput(&op.IO, "A", &op.a, a)
			graph.BindInput(&op.IO, "B", &op.b, b)

			op.sum = sum
			op.SetOutput("Sum", sum.Ref())

			return op
		}))
}

type addFloatOperator struct {
	graph.IO
	a, b data.ReadRef[float64]
	sum  data.WriteRef[float64]
}

func (o *addFloatOperator) Execute() {
	o.sum.Set(o.a.Get() + o.b.Get())
}

// NewIntToFloat creates a node converting its Int32 input to a Float.
func NewIntToFloat(name string) *Node {
	iface := vertex.MustInterface(
		[]vertex.Input{{Name: "In", TypeName: data.TypeInt32, Default: data.Int32Literal(0)}},
		[]vertex.Output{{Name: "Out", TypeName: data.TypeFloat}},
	)

	return newNode(name, ClassIntToFloat, iface, graph.FactoryFunc(
		func(params graph.BuildParams, errs *graph.BuildErrors) graph.Operator {
			op := &intToFloatOperator{}
			in, okIn := graph.InputOrDefault[int32](params, "In", errs)

			out, okOut := graph.NewOutput[float64](params, "Out", data.NoneLiteral(), errs)
			if !okIn || !okOut {
				return nil
			}

			graph.BindInput(&op.IO, "In", &op.in, in)

			op.out = out
			op.SetOutput("Out", out.Ref())

			return op
		}))
}

type intToFloatOperator struct {
	graph.IO
	in  data.ReadRef[int32]
	out data.WriteRef[float64]
}

func (o *intToFloatOperator) Execute() {
	o.out.Set(float64(o.in.Get()))
}
