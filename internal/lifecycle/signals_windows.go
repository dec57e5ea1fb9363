//go:build windows

package lifecycle

import (
	"os"
	"syscall"
)

// SIGTERM is delivered for console close, logoff and shutdown events.
func TerminationSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
