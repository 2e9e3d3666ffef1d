// Package main provides the gridbase CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/petrel-data/gridbase/pkg/types"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "gridbase:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode classifies an error: user-correctable conditions exit 1, system
// failures exit 2.
func exitCode(err error) int {
	for _, sentinel := range []error{
		types.ErrNotFound,
		types.ErrInvalidID,
		types.ErrInvalidName,
		types.ErrDuplicateName,
		types.ErrTypeMismatch,
		types.ErrInvalidPatch,
		types.ErrCountOutOfRange,
		types.ErrDefaultViewProtected,
		types.ErrLastTable,
		types.ErrVersionConflict,
	} {
		if errors.Is(err, sentinel) {
			return exitUserError
		}
	}
	return exitSysError
}
