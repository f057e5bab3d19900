package errors

import (
	"strings"
	"testing"
)

func TestValidateHash(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid base32", "2mpmcgzfhjzi5gyvunzfrmsxpl3abcde", false},
		{"valid short", "abc", false},
		{"valid with dash", "hash-of-x", false},
		{"valid 128 chars", strings.Repeat("a", 128), false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 129), true},
		{"embedded space", "hash with space", true},
		{"tab", "hash\twith\ttab", true},
		{"newline", "hash\n", true},
		{"null byte", "hash\x00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHash(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateHash(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidSchema) {
				t.Errorf("ValidateHash(%q) error code = %v, want INVALID_SCHEMA", tt.input, GetCode(err))
			}
		})
	}
}

func TestValidatePackageName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "openmpi", false},
		{"valid with dash", "py-numpy", false},
		{"valid with underscore", "netlib_lapack", false},
		{"valid with dot", "intel.mkl", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 300), true},
		{"path traversal ..", "foo/../bar", true},
		{"path traversal //", "foo//bar", true},
		{"null byte", "foo\x00bar", true},
		{"backslash", "foo\\bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackageName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePackageName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateManifestFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid manifest", "site-manifest.json", false},
		{"valid plain", "manifest.json", false},

		{"empty", "", true},
		{"with path /", "path/to/manifest.json", true},
		{"with path \\", "path\\to\\manifest.json", true},
		{"hidden file", ".manifest.json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateManifestFilename(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateManifestFilename(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
