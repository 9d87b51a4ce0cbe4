package errors

import (
	"strings"
	"unicode"
)

// maxIDLength bounds node and port identifiers.
const maxIDLength = 256

// ValidateNodeID validates an explicitly supplied node identifier.
//
// Node ids take part in link keys ("node:port>node:port") and in the
// adjacency index keys ("node:port"), so they may not contain ':' or '>'.
// The validation rules are:
//   - No empty ids
//   - No control characters or null bytes
//   - No ':' or '>' separators
//   - Maximum length of 256 characters
func ValidateNodeID(id string) error {
	return validateID("node", id)
}

// ValidatePortID validates a port identifier with the same rules as
// [ValidateNodeID].
func ValidatePortID(id string) error {
	return validateID("port", id)
}

func validateID(kind, id string) error {
	if id == "" {
		return New(ErrCodeInvalidID, "%s id cannot be empty", kind)
	}

	if len(id) > maxIDLength {
		return New(ErrCodeInvalidID, "%s id too long (max %d characters)", kind, maxIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidID, "%s id contains invalid control characters", kind)
		}
	}

	if i := strings.IndexAny(id, ":>"); i >= 0 {
		return New(ErrCodeInvalidID, "%s id contains reserved separator %q", kind, id[i:i+1])
	}

	return nil
}

// ValidatePath validates a document path given on the command line or to
// the HTTP facade.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateGrid validates grid cell dimensions used by snapping and auto layout.
func ValidateGrid(cellWidth, cellHeight float64) error {
	if !(cellWidth > 0) || !(cellHeight > 0) {
		return New(ErrCodeInvalidGrid, "cell size must be positive, got %gx%g", cellWidth, cellHeight)
	}
	return nil
}
