// SPDX-License-Identifier: MPL-2.0

// Package app ties discovery, resolution, toggling and the game's player
// configuration into one session. The CLI opens a Session, mutates the active
// list through it, and saves or shuts it down.
package app
