// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import (
	"errors"
	"syscall"
)

// Win32 error codes that leave ReadDirectoryChangesW unusable.
const (
	errnoTooManyOpenFiles = syscall.Errno(4)
	errnoInvalidHandle    = syscall.Errno(6)
	errnoNotEnoughMemory  = syscall.Errno(8)
)

// exhausted reports whether err means the directory watches stopped
// delivering events, with a hint for the user.
func exhausted(err error) (string, bool) {
	switch {
	case errors.Is(err, errnoTooManyOpenFiles):
		return "too many open handles", true
	case errors.Is(err, errnoInvalidHandle):
		return "a package root was deleted or unmounted", true
	case errors.Is(err, errnoNotEnoughMemory):
		return "not enough memory for change notifications", true
	}
	return "", false
}
