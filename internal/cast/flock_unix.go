//go:build unix

package cast

import (
	"os"

	"golang.org/x/sys/unix"
)

// flockExclusive takes an advisory exclusive lock on f's descriptor,
// blocking until it's free. Held until the process exits or f is closed;
// Write releases it implicitly by closing the temp file before rename.
func flockExclusive(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX)
}
