// Package emoji provides symbol constants for CLI output.
// These symbols create a consistent visual language across all commands.
package emoji

// Symbol constants for CLI output.
const (
	// Success represents successful completion or an up-to-date file.
	Success = "✓"

	// Error represents failures.
	Error = "✗"

	// Warning represents non-fatal problems such as unknown project names.
	Warning = "!"

	// Optional represents skipped work.
	Optional = "-"

	// Unknown represents unrecognized states.
	Unknown = "?"

	// Info represents informational messages.
	Info = "i"

	// Created marks a file that was (or would be) written for the first time.
	Created = "+"

	// Updated marks a file whose content changed (or would change).
	Updated = "~"
)

// ForStatus returns the symbol for a result status name.
func ForStatus(status string) string {
	switch status {
	case "created":
		return Created
	case "updated":
		return Updated
	case "unchanged":
		return Success
	case "skipped":
		return Optional
	case "error":
		return Error
	default:
		return Unknown
	}
}
