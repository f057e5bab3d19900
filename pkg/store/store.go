// Package store provides the persistent package database that ingested
// specs and compiler specs are merged into.
//
// The Store interface is deliberately narrow: query by content hash, query
// by package name, list compilers, and a transactional Merge. Backends are
// provided for in-process maps (tests, development), a JSON document file
// (single-machine CLI use), Redis, and MongoDB.
//
// # Merge semantics
//
// Merge is atomic per backend contract (either all new records become
// visible or none do) and idempotent at the hash level: merging a batch
// whose specs already exist is a no-op for those specs, never an error and
// never a duplicate insertion. This allows the same manifest to be
// re-ingested safely on repeated tool invocations.
package store

import (
	"context"

	"github.com/pkgdepot/depot/pkg/errors"
	"github.com/pkgdepot/depot/pkg/spec"
)

// Batch is one merge unit: the complete output of a manifest ingestion.
type Batch struct {
	Specs     []*spec.Spec
	Compilers []spec.Compiler
}

// MergeStats reports what a merge changed.
type MergeStats struct {
	SpecsAdded       int `json:"specs_added"`
	SpecsSkipped     int `json:"specs_skipped"`
	CompilersAdded   int `json:"compilers_added"`
	CompilersSkipped int `json:"compilers_skipped"`
}

// Store is the persistent package database.
//
// QueryByHash returns a NOT_FOUND error when no spec with the given hash
// exists. QueryByName returns an empty slice (not an error) when no spec
// carries the name. Returned specs are fully linked: their dependency
// closure is loaded along with them.
type Store interface {
	QueryByHash(ctx context.Context, hash string) (*spec.Spec, error)
	QueryByName(ctx context.Context, name string) ([]*spec.Spec, error)
	Compilers(ctx context.Context) ([]spec.Compiler, error)
	Merge(ctx context.Context, batch *Batch) (*MergeStats, error)
	Close() error
}

// NotFound constructs the canonical missing-hash error shared by backends.
func NotFound(hash string) error {
	return errors.New(errors.ErrCodeNotFound, "no spec with hash %q", hash)
}

// recordGetter fetches one stored record by hash. The bool result is false
// when the record does not exist.
type recordGetter func(ctx context.Context, hash string) (spec.Record, bool, error)

// fetchClosure loads the record with the given hash plus its full
// dependency closure, returning the records keyed by hash.
func fetchClosure(ctx context.Context, hash string, get recordGetter) (map[string]spec.Record, error) {
	records := make(map[string]spec.Record)
	queue := []string{hash}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if _, ok := records[h]; ok {
			continue
		}
		rec, ok, err := get(ctx, h)
		if err != nil {
			return nil, err
		}
		if !ok {
			if h == hash {
				return nil, NotFound(hash)
			}
			return nil, errors.New(errors.ErrCodeStore,
				"stored spec closure of %q is missing hash %q", hash, h)
		}
		records[h] = rec
		for _, dep := range rec.Dependencies {
			queue = append(queue, dep.Hash)
		}
	}
	return records, nil
}

// loadSpec fetches and links the spec with the given hash.
func loadSpec(ctx context.Context, hash string, get recordGetter) (*spec.Spec, error) {
	records, err := fetchClosure(ctx, hash, get)
	if err != nil {
		return nil, err
	}
	specs, err := spec.LinkRecords(records)
	if err != nil {
		return nil, err
	}
	return specs[hash], nil
}
