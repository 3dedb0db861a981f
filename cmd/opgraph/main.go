// Command opgraph checks, inspects, renders and live-edits operator graph
// documents.
//
// Usage:
//
//	opgraph [--config FILE] <command> [flags] DOCUMENT...
//
// Examples:
//
//	opgraph lint graphs/*.yaml
//	opgraph order synth.hcl
//	opgraph graph --overlay synth.yaml > synth.mmd
//	opgraph render --duration 2s -o tone.wav tone.yaml
//	opgraph watch --metrics-addr :9090 synth.yaml
package main

import (
	"fmt"
	"os"
)

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "opgraph:", err)
		os.Exit(1)
	}
}
