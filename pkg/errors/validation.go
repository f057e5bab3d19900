package errors

import (
	"strings"
	"unicode"
)

// ValidateHash validates a content hash token from a manifest.
// Hashes are opaque identifiers, so validation is intentionally loose:
// it only rejects values that cannot possibly be valid tokens.
//
//   - No empty hashes
//   - No control characters or whitespace
//   - Maximum length of 128 characters
func ValidateHash(hash string) error {
	if hash == "" {
		return New(ErrCodeInvalidSchema, "hash cannot be empty")
	}

	if len(hash) > 128 {
		return New(ErrCodeInvalidSchema, "hash too long (max 128 characters)")
	}

	for _, r := range hash {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidSchema, "hash contains invalid characters: %q", hash)
		}
	}

	return nil
}

// ValidatePackageName validates a package name from a manifest entry.
// It rejects names that could be used for path traversal or injection
// when the name is later embedded in store keys or file paths.
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidSchema, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidSchema, "package name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidSchema, "package name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidSchema, "package name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateManifestFilename validates a manifest filename for safety.
// It ensures the filename is a simple basename without path components.
func ValidateManifestFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidManifest, "manifest filename cannot be empty")
	}

	// Must be a simple filename, not a path
	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidManifest, "manifest filename cannot contain path separators")
	}

	if strings.HasPrefix(filename, ".") {
		return New(ErrCodeInvalidManifest, "manifest filename cannot be a hidden file")
	}

	return nil
}
