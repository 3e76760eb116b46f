// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for modsmith.
//
// Every command that touches packages opens an app.Session, works through it
// and leaves persistence to the session's Save, Shutdown or preset methods.
package cmd
