// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers include file operations (MustWriteFile, MustMkdirAll,
// MustRemoveAll) and a game directory fixture (NewGame) with local packages
// and a player configuration.
package testutil
