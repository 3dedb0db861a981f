// Package document loads graphs from YAML, JSON and HCL files.
//
// A document names node instances and their classes, the edges between
// their vertices, and the graph inputs and outputs. Endpoints are written
// "node.vertex". Build turns a document into a graph.Graph through a
// nodes.Registry; node IDs are derived from names, so the same document
// always yields the same IDs and two versions of a document can be
// diffed and replayed against a running graph.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a document encoding.
type Format int

const (
	FormatYAML Format = iota

	FormatJSON
	FormatHCL
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	case FormatHCL:
		return "hcl"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ErrUnknownFormat is returned for file extensions without a decoder.
var ErrUnknownFormat = errors.New("unknown document format")

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return 0, fmt.Errorf("document: %w: %q", ErrUnknownFormat, path)
	}
}

// Document is the decoded form of a graph file.
type Document struct {
	Name    string   `yaml:"name" json:"name"`
	Nodes   []Node   `yaml:"nodes" json:"nodes"`
	Edges   []Edge   `yaml:"edges" json:"edges"`
	Inputs  []Input  `yaml:"inputs" json:"inputs"`
	Outputs []Output `yaml:"outputs" json:"outputs"`
}

// Node is one node instance.
type Node struct {
	Name   string         `yaml:"name" json:"name"`
	Class  string         `yaml:"class" json:"class"`
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// Edge connects From ("node.vertex", an output) to To ("node.vertex", an
// input).
type Edge struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

func (e Edge) String() string { return e.From + " -> " + e.To }

// Input is a graph input feeding one or more node inputs.
type Input struct {
	Name    string   `yaml:"name" json:"name"`
	Type    string   `yaml:"type" json:"type"`
	Default any      `yaml:"default,omitempty" json:"default,omitempty"`
	To      []string `yaml:"to" json:"to"`
}

// Output is a graph output read from one node output.
type Output struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
	From string `yaml:"from" json:"from"`
}

// Parse decodes a document. Unknown fields are an error.
func Parse(src []byte, format Format) (*Document, error) {
	var doc Document

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(src))
		dec.KnownFields(true)

		err := dec.Decode(&doc)
		if err != nil {
			return nil, fmt.Errorf("document: decode yaml: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(src))
		dec.DisallowUnknownFields()

		err := dec.Decode(&doc)
		if err != nil {
			return nil, fmt.Errorf("document: decode json: %w", err)
		}
	case FormatHCL:
		d, err := parseHCL(src, "document.hcl")
		if err != nil {
			return nil, err
		}

		doc = *d
	default:
		return nil, fmt.Errorf("document: %w: %s", ErrUnknownFormat, format)
	}
	return &doc, nil
}

// LoadFile reads and decodes the document at path. A document without a
// name is named after the file.
func LoadFile(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}

	var doc *Document

	if format == FormatHCL {
		doc, err = parseHCL(src, path)
	} else {
		doc, err = Parse(src, format)
	}

	if err != nil {
		return nil, err
	}

	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return doc, nil
}

// splitEndpoint splits "node.vertex" at the last dot.
func splitEndpoint(s string) (node, vertexName string, err error) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return "", "", fmt.Errorf("document: %w: %q", ErrBadEndpoint, s)
	}

	return s[:i], s[i+1:], nil
}
