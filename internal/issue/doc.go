// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and Markdown help pages for the
// problems users commonly hit: a missing game directory, a broken config,
// dependency cycles, conflicts and the like.
package issue
