package spec

import (
	"github.com/pkgdepot/depot/pkg/errors"
	"github.com/pkgdepot/depot/pkg/manifest"
)

// Record is the flat, serializable form of a Spec used by store backends.
// Dependency edges are stored as hash references rather than pointers; use
// LinkRecords to rebuild a linked graph.
type Record struct {
	Name         string                    `json:"name"`
	Hash         string                    `json:"hash"`
	Prefix       string                    `json:"prefix,omitempty"`
	Version      string                    `json:"version"`
	Arch         Arch                      `json:"arch"`
	Compiler     manifest.CompilerRef      `json:"compiler"`
	Parameters   map[string]manifest.Param `json:"parameters,omitempty"`
	Dependencies []DependencyRecord        `json:"dependencies,omitempty"`
}

// DependencyRecord is one stored dependency edge.
type DependencyRecord struct {
	Name  string   `json:"name"`
	Hash  string   `json:"hash"`
	Types []string `json:"types,omitempty"`
}

// Record flattens a spec into its storable form.
func (s *Spec) Record() Record {
	rec := Record{
		Name:       s.Name,
		Hash:       s.Hash,
		Prefix:     s.Prefix,
		Version:    s.Version,
		Arch:       s.Arch,
		Compiler:   s.Compiler,
		Parameters: s.Parameters,
	}
	for _, e := range s.Dependencies {
		rec.Dependencies = append(rec.Dependencies, DependencyRecord{
			Name:  e.To.Name,
			Hash:  e.To.Hash,
			Types: e.Types,
		})
	}
	return rec
}

// LinkRecords rebuilds linked spec nodes from a set of stored records.
// Every dependency hash must be present in the set; a missing target is an
// UNRESOLVED_DEPENDENCY error, which indicates store corruption since merged
// graphs are always closed under dependencies.
func LinkRecords(records map[string]Record) (map[string]*Spec, error) {
	specs := make(map[string]*Spec, len(records))
	for hash, rec := range records {
		specs[hash] = &Spec{
			Name:       rec.Name,
			Hash:       rec.Hash,
			Prefix:     rec.Prefix,
			Version:    rec.Version,
			Arch:       rec.Arch,
			Compiler:   rec.Compiler,
			Parameters: rec.Parameters,
		}
	}
	for hash, rec := range records {
		node := specs[hash]
		for _, dep := range rec.Dependencies {
			target, ok := specs[dep.Hash]
			if !ok {
				return nil, errors.New(errors.ErrCodeUnresolvedDependency,
					"stored spec %q references unknown hash %q", rec.Name, dep.Hash)
			}
			node.Dependencies = append(node.Dependencies, Edge{To: target, Types: dep.Types})
		}
	}
	return specs, nil
}
