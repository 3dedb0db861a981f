package document

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// hclDocument is the HCL layout of a Document:
//
//	name = "demo"
//
//	node "osc" {
//	  class  = "Sine"
//	  params = { frequency = 220 }
//	}
//
//	edge {
//	  from = "osc.Out"
//	  to   = "gain.In"
//	}
//
//	input "Level" {
//	  type    = "Float"
//	  default = 0.5
//	  to      = ["gain.Gain"]
//	}
//
//	output "Audio" {
//	  type = "Audio"
//	  from = "gain.Out"
//	}
type hclDocument struct {
	Name    string      `hcl:"name,optional"`
	Nodes   []hclNode   `hcl:"node,block"`
	Edges   []hclEdge   `hcl:"edge,block"`
	Inputs  []hclInput  `hcl:"input,block"`
	Outputs []hclOutput `hcl:"output,block"`
}

type hclNode struct {
	Name   string    `hcl:"name,label"`
	Class  string    `hcl:"class"`
	Params cty.Value `hcl:"params,optional"`
}

type hclEdge struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

type hclInput struct {
	Name    string    `hcl:"name,label"`
	Type    string    `hcl:"type"`
	Default cty.Value `hcl:"default,optional"`
	To      []string  `hcl:"to"`
}

type hclOutput struct {
	Name string `hcl:"name,label"`
	Type string `hcl:"type"`
	From string `hcl:"from"`
}

func parseHCL(src []byte, filename string) (*Document, error) {
	parser := hclparse.NewParser()

	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("document: parse hcl %s: %w", filename, diags)
	}

	var raw hclDocument
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("document: decode hcl %s: %w", filename, diags)
	}

	doc := &Document{Name: raw.Name}

	for _, n := range raw.Nodes {
		params, err := ctyToNative(n.Params)
		if err != nil {
			return nil, fmt.Errorf("document: node %q params: %w", n.Name, err)
		}

		node := Node{Name: n.Name, Class: n.Class}

		if params != nil {
			m, ok := params.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("document: node %q params must be an object", n.Name)
			}

			node.Params = m
		}

		doc.Nodes = append(doc.Nodes, node)
	}

	for _, e := range raw.Edges {
		doc.Edges = append(doc.Edges, Edge(e))
	}

	for _, in := range raw.Inputs {
		def, err := ctyToNative(in.Default)
		if err != nil {
			return nil, fmt.Errorf("document: input %q default: %w", in.Name, err)
		}

		doc.Inputs = append(doc.Inputs, Input{Name: in.Name, Type: in.Type, Default: def, To: in.To})
	}

	for _, out := range raw.Outputs {
		doc.Outputs = append(doc.Outputs, Output(out))
	}

	return doc, nil
}

// ctyToNative converts an HCL value to plain Go values. Whole numbers
// become int64 so they can feed Int32 vertices.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()

	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			var i int64
			if err := gocty.FromCtyValue(v, &i); err == nil {
				return i, nil
			}
		}

		var f float64

		err := gocty.FromCtyValue(v, &f)
		if err != nil {
			return nil, fmt.Errorf("convert number: %w", err)
		}

		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())

		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()

			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}

			out = append(out, native)
		}

		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)

		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()

			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", key.AsString(), err)
			}

			out[key.AsString()] = native
		}

		return out, nil

	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
