//go:build !windows

package lifecycle

import (
	"os"
	"syscall"
)

// SIGHUP arrives when the host closes the terminal.
func TerminationSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}
}
