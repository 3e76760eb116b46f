// SPDX-License-Identifier: MPL-2.0

// Package discovery finds mod packages under the configured roots and builds
// their model.
//
// Every immediate, non-hidden subdirectory of a root is a candidate. Candidates
// are parsed by a bounded worker pool: the cache is consulted first, and a miss
// triggers a full build that reads the identity and metadata descriptors and
// then fans out over the package's XML content to extract identifiers and
// detect toggle markers. Packages that share a name are reduced to one copy.
//
// File organization:
//   - diagnostic.go: Diagnostic and Severity
//   - discovery.go: Scanner, candidate enumeration and de-duplication
//   - build.go: per-package build and content fan-out
package discovery
