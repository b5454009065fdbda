package errors

import (
	"math"
	"strings"
	"unicode"
)

// ValidateUtilization checks that a target core utilization lies in (0, 1].
func ValidateUtilization(u float64) error {
	if math.IsNaN(u) || u <= 0 || u > 1 {
		return New(ErrCodeInvalidConfig, "utilization %v outside (0, 1]", u)
	}
	return nil
}

// ValidateLabel validates a cell or net name as it appears in Bookshelf files.
// Names are single whitespace-free tokens.
//
// Validation rules:
//   - Label cannot be empty
//   - Maximum length of 256 characters
//   - No whitespace or control characters
//   - Cannot start with '#' (comment marker)
func ValidateLabel(label string) error {
	if label == "" {
		return New(ErrCodeInvalidInput, "label cannot be empty")
	}

	if len(label) > 256 {
		return New(ErrCodeInvalidInput, "label too long (max 256 characters)")
	}

	for _, r := range label {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "label %q contains whitespace or control characters", label)
		}
	}

	if strings.HasPrefix(label, "#") {
		return New(ErrCodeInvalidInput, "label %q starts with a comment marker", label)
	}

	return nil
}

// ValidatePath validates a relative file path received from a remote caller.
// It prevents path traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}
