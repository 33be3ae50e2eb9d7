//go:build unix

package probe

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isConnRefusedOrUnreachable(err error) bool {
	return errors.Is(err, unix.ECONNREFUSED) ||
		errors.Is(err, unix.EHOSTUNREACH) ||
		errors.Is(err, unix.ENETUNREACH)
}
