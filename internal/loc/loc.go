// SPDX-License-Identifier: MPL-2.0

// Package loc holds the user-facing message catalog for resolver diagnostics.
package loc

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. Arguments are positional and documented per key.
const (
	// KeyMissingDependency takes (dependency name, dependency steam id).
	KeyMissingDependency = "mod-unfind-mod"
	// KeyOverrideID takes (adder name, adder id, overridden identifier).
	KeyOverrideID = "mod-override-id"
	// KeyConflict takes (conflicting package name).
	KeyConflict = "mod-conflict"
)

// Func translates a message key with positional arguments.
type Func func(key string, args ...any) string

var english = map[string]string{
	KeyMissingDependency: "Required mod %s (%s) is not active",
	KeyOverrideID:        "Overrides %[3]s, which is added by %[1]s (%[2]s)",
	KeyConflict:          "Conflicts with active mod %s",
}

// New returns a translator for tag. Only English strings ship today; other
// tags fall back to them.
func New(tag language.Tag) Func {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, msg := range english {
		// SetString only fails for malformed tags; language.English is constant.
		_ = b.SetString(language.English, key, msg)
	}
	p := message.NewPrinter(tag, message.Catalog(b))
	return func(key string, args ...any) string {
		return p.Sprintf(key, args...)
	}
}

// English is the default translator.
func English() Func {
	return New(language.English)
}
