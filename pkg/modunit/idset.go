// SPDX-License-Identifier: MPL-2.0

package modunit

import (
	"maps"
	"slices"
)

// IDSet is a set of content identifiers such as "item.crowbar".
type IDSet map[string]struct{}

// NewIDSet returns a set holding ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id. It must not be called on a nil set.
func (s IDSet) Add(id string) { s[id] = struct{}{} }

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Merge adds every id of other to s.
func (s IDSet) Merge(other IDSet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Sorted returns the ids in lexical order.
func (s IDSet) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

// Clone copies the set. A nil set clones to an empty one.
func (s IDSet) Clone() IDSet {
	if s == nil {
		return IDSet{}
	}
	return maps.Clone(s)
}
