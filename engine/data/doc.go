// Package data provides the values operators share: type-erased data
// references with read and write flavors, typed views over them, named
// reference collections, construction literals, and the registry of data
// types an engine instance knows how to build.
//
// A [Reference] points at a single shared cell. Every handle created from
// the same origin observes the same value; the cell lives as long as the
// longest-living handle. Converting a write reference to a read reference
// never copies the value.
//
// Typed access goes through [ReadRef] and [WriteRef]:
//
//	w, err := data.CreateWrite[float64](types, data.TypeFloat, settings, data.FloatLiteral(440))
//	c := data.NewCollection()
//	c.AddWrite("Frequency", w.Ref())
//	r, ok := data.GetRead[float64](c, "Frequency")
//
// Lookups under an absent name or the wrong declared type report false;
// they never panic.
package data
