// Package version exposes build metadata for the memfit binary.
package version

// Build metadata, overridden at link time via -ldflags.
var (
	// Version is the semantic version of the binary.
	Version = "dev"

	// Commit is the Git hash the binary was built from.
	Commit = "<unknown>"

	// Date is the build timestamp.
	Date = "<unknown>"
)
