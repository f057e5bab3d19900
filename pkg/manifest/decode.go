package manifest

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkgdepot/depot/pkg/errors"
)

// Decode parses a whole manifest document from r and validates each record.
//
// Structural JSON failures return INVALID_MANIFEST. Entries missing their
// identity fields (name, hash) return INVALID_SCHEMA; compiler descriptors
// missing name or version return INVALID_COMPILER. Unknown fields are
// ignored for forward compatibility.
//
// Validation is all-or-nothing: a single bad record fails the whole decode
// rather than silently dropping it, since a graph with missing nodes is
// worse than a hard failure.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "read manifest")
	}
	return DecodeBytes(data)
}

// DecodeBytes parses a manifest document held in memory. See Decode.
func DecodeBytes(data []byte) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "decode manifest")
	}

	for i := range doc.Specs {
		if err := validateEntry(&doc.Specs[i]); err != nil {
			return nil, err
		}
	}
	for i := range doc.Compilers {
		if err := ValidateCompiler(&doc.Compilers[i]); err != nil {
			return nil, err
		}
	}

	return &doc, nil
}

// DecodeEntry parses and validates a single package entry, matching the
// wire shape of one element of the "specs" collection.
func DecodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, errors.Wrap(errors.ErrCodeInvalidSchema, err, "decode entry")
	}
	if err := validateEntry(&e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// validateEntry checks required identity fields and normalizes nil
// collections to empty ones so encode emits {} rather than null.
func validateEntry(e *Entry) error {
	if err := errors.ValidatePackageName(e.Name); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSchema, err, "entry %q", e.Name)
	}
	if err := errors.ValidateHash(e.Hash); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSchema, err, "entry %q", e.Name)
	}

	for name, dep := range e.Dependencies {
		if dep.Hash == "" {
			return errors.New(errors.ErrCodeInvalidSchema,
				"entry %q: dependency %q has no hash", e.Name, name)
		}
	}

	if e.Dependencies == nil {
		e.Dependencies = map[string]Dependency{}
	}
	if e.Parameters == nil {
		e.Parameters = map[string]Param{}
	}
	return nil
}

// ValidateCompiler checks a compiler descriptor's identity fields.
// A partially-populated executables map is valid: roles that are absent are
// simply not recorded during normalization.
func ValidateCompiler(c *Compiler) error {
	if c.Name == "" {
		return errors.New(errors.ErrCodeInvalidCompiler, "compiler descriptor missing name")
	}
	if c.Version == "" {
		return errors.New(errors.ErrCodeInvalidCompiler, "compiler %q missing version", c.Name)
	}
	if c.Executables == nil {
		c.Executables = map[string]string{}
	}
	return nil
}
