// Package main provides the entry point for the doughub CLI.
//
// doughub extracts structured question records from saved HTML pages of
// medical question banks and validates them stage by stage against a
// fixture corpus and a golden set.
//
// Usage:
//
//	doughub validate
//	doughub validate --manifest testdata/fixtures.yaml sample_mksap
//	doughub digest --write
//
// See --help for all available options.
package main

// main is the entry point for doughub.
func main() {
	Execute()
}
