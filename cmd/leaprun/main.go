// Command leaprun loads a leap-year guest module, wires get_current_year to
// the host clock and reports whether a year is a leap year.
//
//	leaprun path/to/file.wasm [--year 2024] [--config wasmhost.yaml] [-i]
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
