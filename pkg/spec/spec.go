// Package spec holds the package manager's internal representation of
// installed packages and implements the reconstruction of dependency graphs
// from manifest entries.
//
// A manifest is a flat list of records linked only by opaque content
// hashes. BuildGraph turns that list into a self-consistent graph of Spec
// nodes in two phases: nodes first, edges after, so dependency references
// may point forward or backward within the same manifest and may also
// target packages already present in the persistent store.
package spec

import (
	"fmt"
	"slices"

	"github.com/pkgdepot/depot/pkg/manifest"
)

// Arch is the flattened architecture of a spec node.
type Arch struct {
	Platform string `json:"platform"`
	OS       string `json:"os"`
	Target   string `json:"target"`
}

func (a Arch) String() string {
	return fmt.Sprintf("%s-%s-%s", a.Platform, a.OS, a.Target)
}

// Spec is the resolved, linked form of a manifest entry: identical scalar
// attributes plus dependency edges replaced by direct references to other
// Spec nodes. Once merged into the store, a Spec is owned by the store and
// must not be mutated by the ingestion pipeline.
type Spec struct {
	Name     string
	Hash     string
	Prefix   string
	Version  string
	Arch     Arch
	Compiler manifest.CompilerRef

	// Parameters carries build options verbatim, including keys unknown
	// to any local package definition.
	Parameters map[string]manifest.Param

	// Dependencies are direct edges to other spec nodes, each tagged with
	// its edge-type set.
	Dependencies []Edge
}

// Edge is a direct dependency reference tagged with its edge types.
// Types is sorted and duplicate-free.
type Edge struct {
	To    *Spec
	Types []string
}

// HasType reports whether the edge carries the given edge-type tag.
func (e Edge) HasType(t string) bool {
	return slices.Contains(e.Types, t)
}

// String returns the canonical short form used in logs and errors.
func (s *Spec) String() string {
	return fmt.Sprintf("%s@%s/%s", s.Name, s.Version, s.Hash)
}

// Dep returns the direct dependency with the given package name.
func (s *Spec) Dep(name string) (*Spec, bool) {
	for _, e := range s.Dependencies {
		if e.To.Name == name {
			return e.To, true
		}
	}
	return nil, false
}

// FromEntry constructs a bare spec node from a manifest entry.
// Dependency edges are attached separately by BuildGraph.
func FromEntry(e manifest.Entry) *Spec {
	params := make(map[string]manifest.Param, len(e.Parameters))
	for k, v := range e.Parameters {
		params[k] = v
	}
	return &Spec{
		Name:    e.Name,
		Hash:    e.Hash,
		Prefix:  e.Prefix,
		Version: e.Version,
		Arch: Arch{
			Platform: e.Arch.Platform,
			OS:       e.Arch.PlatformOS,
			Target:   e.Arch.Target.Name,
		},
		Compiler:   e.Compiler,
		Parameters: params,
	}
}

// normalizeTypes returns a sorted, duplicate-free copy of edge-type tags.
func normalizeTypes(types []string) []string {
	if len(types) == 0 {
		return nil
	}
	out := slices.Clone(types)
	slices.Sort(out)
	return slices.Compact(out)
}
