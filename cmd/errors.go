package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// printError writes a command failure to stderr. Cancellation gets a short
// notice; everything else gets the error message, with the hint to rerun
// verbosely unless --verbose is already set.
func printError(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "cancelled")
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if !flagVerbose {
		fmt.Fprintln(os.Stderr, "Rerun with --verbose for details.")
	}
}
