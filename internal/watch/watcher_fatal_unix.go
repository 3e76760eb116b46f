// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"errors"
	"syscall"
)

// exhausted reports whether err means inotify stopped delivering events, with
// a hint for the user.
func exhausted(err error) (string, bool) {
	switch {
	case errors.Is(err, syscall.ENOSPC):
		return "raise fs.inotify.max_user_watches", true
	case errors.Is(err, syscall.EMFILE):
		return "raise the open file limit (ulimit -n)", true
	case errors.Is(err, syscall.ENFILE):
		return "the system file table is full", true
	}
	return "", false
}
