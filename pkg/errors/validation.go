package errors

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	maxNodeIDLength = 512
	maxQueryLength  = 256
)

// ValidateNodeID validates a node identifier received from a user or client.
//
// Node IDs are opaque strings (for example "ingest:load_orders" or
// "table:stg_orders"), so validation only rejects what can never be a
// valid ID:
//   - Empty IDs
//   - IDs longer than 512 characters
//   - Control characters and null bytes
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "node id cannot be empty")
	}

	if len(id) > maxNodeIDLength {
		return New(ErrCodeInvalidInput, "node id too long (max %d characters)", maxNodeIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "node id contains invalid control characters")
		}
	}

	return nil
}

// modeNameRegex matches view mode names such as "dag", "table" or "metric".
var modeNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)

// ValidateModeName validates a view mode name.
// Mode names are lowercase tokens used as payload keys and URL segments.
func ValidateModeName(mode string) error {
	if mode == "" {
		return New(ErrCodeInvalidMode, "mode cannot be empty")
	}
	if !modeNameRegex.MatchString(mode) {
		return New(ErrCodeInvalidMode, "invalid mode name: %q", mode)
	}
	return nil
}

// ValidateQuery validates a free-text search query.
// Short queries are not an error here; the matcher treats them as "no results".
func ValidateQuery(q string) error {
	if len(q) > maxQueryLength {
		return New(ErrCodeInvalidInput, "query too long (max %d characters)", maxQueryLength)
	}
	for _, r := range q {
		if r == '\x00' || (unicode.IsControl(r) && r != '\t') {
			return New(ErrCodeInvalidInput, "query contains invalid characters")
		}
	}
	return nil
}

// ValidatePath validates a relative path inside a definitions directory.
// It prevents path traversal and ensures reasonable path length.
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
		if r == '\x00' || unicode.IsControl(r) {
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
