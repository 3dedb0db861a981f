// Package nodes provides the built-in node classes: the structural Input,
// Output and Literal nodes the engine itself relies on, and a small set of
// signal-processing nodes operating on Float control values and Audio
// blocks.
//
// Classes are instantiated by name through a Registry, which decodes
// untyped parameter maps (as read from graph documents) into each class's
// parameter struct.
package nodes
