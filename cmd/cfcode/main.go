// Command cfcode decodes and encodes CF variables described in YAML and keeps raw variables in
// a block store.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
