// SPDX-License-Identifier: MPL-2.0

package discovery

const (
	// SeverityWarning indicates a recoverable discovery warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal discovery error diagnostic.
	SeverityError Severity = "error"

	// CodeIdentityMissing marks a candidate directory without filelist.xml.
	CodeIdentityMissing = "identity_missing"
	// CodeIdentityInvalid marks an unreadable or malformed filelist.xml.
	CodeIdentityInvalid = "identity_invalid"
	// CodeCorePackage marks a skipped core package.
	CodeCorePackage = "core_package_skipped"
	// CodeMetadataInvalid marks an unreadable or malformed metadata file.
	CodeMetadataInvalid = "metadata_invalid"
	// CodeDependencyKind marks a dependency declaration with an unknown kind.
	CodeDependencyKind = "dependency_kind_unsupported"
	// CodeDuplicateName marks a package dropped in favor of a same-named copy.
	CodeDuplicateName = "duplicate_name"
	// CodeDuplicateID marks a package dropped because its id is already taken.
	CodeDuplicateID = "duplicate_id"
	// CodeRootUnreadable marks a root directory that exists but cannot be listed.
	CodeRootUnreadable = "root_unreadable"
	// CodeCacheFlush marks a failed cache write at the end of a scan.
	CodeCacheFlush = "cache_flush_failed"
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// Diagnostic represents a structured discovery diagnostic that is returned
	// to callers (rather than written to stderr) for consistent rendering policy.
	Diagnostic struct {
		// Severity is the diagnostic level (warning or error).
		Severity Severity
		// Code is a machine-readable identifier (e.g., "identity_missing").
		Code string
		// Message is the human-readable description.
		Message string
		// Path is the directory or file associated with this diagnostic (optional).
		Path string
		// Cause is the underlying error (optional, for programmatic inspection).
		Cause error
	}
)
