// Package manifest defines the wire format for externally-built package
// manifests and their decoding into typed records.
//
// A manifest is a JSON document produced by a third party (for example a
// vendor toolchain on an HPC system) describing packages that were installed
// outside the package manager's own build pipeline. It contains two
// top-level collections:
//
//   - "specs": package entries with content hashes, install prefixes,
//     build parameters, and hash-keyed dependency references
//   - "compilers": compiler descriptors with per-role executable paths
//
// The types in this package are the wire contract: encoding a decoded
// document reproduces the original structure field-for-field for every
// modeled field. Unknown fields are ignored on decode for forward
// compatibility, and unknown parameter keys pass through opaquely.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkgdepot/depot/pkg/errors"
)

// Document is the top-level manifest structure.
type Document struct {
	Specs     []Entry    `json:"specs"`
	Compilers []Compiler `json:"compilers"`
}

// Entry describes one externally-installed package.
type Entry struct {
	Name         string                `json:"name"`
	Hash         string                `json:"hash"`
	Prefix       string                `json:"prefix"`
	Version      string                `json:"version"`
	Arch         Arch                  `json:"arch"`
	Compiler     CompilerRef           `json:"compiler"`
	Dependencies map[string]Dependency `json:"dependencies"`
	Parameters   map[string]Param      `json:"parameters"`
}

// Arch describes the platform an entry was built for.
type Arch struct {
	Platform   string `json:"platform"`
	PlatformOS string `json:"platform_os"`
	Target     Target `json:"target"`
}

// Target is the microarchitecture name, nested to match the wire format.
type Target struct {
	Name string `json:"name"`
}

// CompilerRef identifies the compiler an entry was built with.
// Entries reference compilers by name and version only; the full
// descriptor lives in the document's "compilers" collection.
type CompilerRef struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Dependency is a hash-keyed reference to another package plus the set of
// edge-type tags classifying the relationship (link, build, run).
type Dependency struct {
	Hash string   `json:"hash"`
	Type []string `json:"type"`
}

// Compiler is a raw compiler descriptor as it appears in the manifest.
// Executable roles ("cc", "cxx", "fc") may be partially populated.
type Compiler struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Prefix      string            `json:"prefix,omitempty"`
	Arch        CompilerArch      `json:"arch"`
	Executables map[string]string `json:"executables"`
}

// CompilerArch is the flat architecture record used by compiler descriptors.
// Unlike entry architectures it carries no platform and no nested target.
type CompilerArch struct {
	OS     string `json:"os"`
	Target string `json:"target"`
}

// Executable role keys recognized in compiler descriptors.
const (
	RoleCC  = "cc"  // C compiler
	RoleCXX = "cxx" // C++ compiler
	RoleFC  = "fc"  // Fortran compiler
)

// Encode serializes a document back to its wire format with two-space
// indentation. Encode is the structural inverse of Decode for every
// modeled field.
func Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode manifest")
	}
	return buf.Bytes(), nil
}

// EncodeEntry serializes a single entry, matching the wire shape of one
// element of the "specs" collection.
func EncodeEntry(e Entry) ([]byte, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode entry %q", e.Name)
	}
	return data, nil
}

// AsDependency returns the dependency-map key and value another entry would
// use to reference e with the given edge-type tags.
func (e Entry) AsDependency(deptypes ...string) (string, Dependency) {
	return e.Name, Dependency{Hash: e.Hash, Type: deptypes}
}

// String returns a short human-readable form used in logs and errors.
func (e Entry) String() string {
	return fmt.Sprintf("%s@%s/%s", e.Name, e.Version, e.Hash)
}
