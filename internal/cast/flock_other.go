//go:build !unix

package cast

import "os"

// flockExclusive is a no-op outside unix: Windows callers rely on
// temp-then-rename alone for atomicity.
func flockExclusive(f *os.File) error {
	return nil
}
