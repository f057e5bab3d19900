package spec

import (
	"context"
	"slices"

	"github.com/pkgdepot/depot/pkg/errors"
	"github.com/pkgdepot/depot/pkg/manifest"
)

// Resolver looks up already-merged specs by content hash. It is the
// fallback for dependency references that do not resolve within the
// manifest itself: references to packages previously merged into the
// persistent store are valid.
//
// QueryByHash returns a NOT_FOUND error when no spec with the given hash
// exists.
type Resolver interface {
	QueryByHash(ctx context.Context, hash string) (*Spec, error)
}

// BuildGraph assembles manifest entries into a hash-keyed mapping of fully
// linked spec nodes.
//
// The build runs in two phases. Phase 1 constructs a bare node per entry
// and fails with DUPLICATE_HASH if two entries share a hash. Phase 2
// resolves every dependency reference against the now-complete phase 1
// mapping, falling back to the resolver for hashes that live in the
// persistent store. The input list therefore needs no topological ordering.
//
// A reference that resolves neither locally nor via the resolver fails the
// whole build with UNRESOLVED_DEPENDENCY naming the missing hash: partial
// graphs with dangling edges are never returned.
func BuildGraph(ctx context.Context, entries []manifest.Entry, db Resolver) (map[string]*Spec, error) {
	// Phase 1: bare nodes, keyed by hash.
	nodes := make(map[string]*Spec, len(entries))
	for _, e := range entries {
		if dup, exists := nodes[e.Hash]; exists {
			return nil, errors.New(errors.ErrCodeDuplicateHash,
				"entries %q and %q share hash %q", dup.Name, e.Name, e.Hash)
		}
		nodes[e.Hash] = FromEntry(e)
	}

	// Phase 2: resolve references and attach edges. Dependency names are
	// visited in sorted order so edge order is deterministic.
	for _, e := range entries {
		node := nodes[e.Hash]
		for _, depName := range sortedKeys(e.Dependencies) {
			dep := e.Dependencies[depName]
			target, err := resolve(ctx, nodes, db, dep.Hash)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeUnresolvedDependency, err,
					"entry %q: dependency %q (hash %q) not found in manifest or store",
					e.Name, depName, dep.Hash)
			}
			node.Dependencies = append(node.Dependencies, Edge{
				To:    target,
				Types: normalizeTypes(dep.Type),
			})
		}
	}

	return nodes, nil
}

// resolve finds the spec for a dependency hash, preferring manifest-local
// nodes over the persistent store.
func resolve(ctx context.Context, nodes map[string]*Spec, db Resolver, hash string) (*Spec, error) {
	if target, ok := nodes[hash]; ok {
		return target, nil
	}
	if db == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "no store configured")
	}
	return db.QueryByHash(ctx, hash)
}

func sortedKeys(m map[string]manifest.Dependency) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
