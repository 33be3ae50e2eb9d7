//go:build !unix

package probe

import "strings"

func isConnRefusedOrUnreachable(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "refused") || strings.Contains(msg, "unreachable")
}
