// Package ingest implements the manifest-to-database pipeline: decode a
// manifest document, normalize its compiler descriptors, reconstruct the
// dependency graph of its entries, and merge everything into the package
// database in one transactional batch.
//
// The pipeline is synchronous and single-threaded per invocation; a
// manifest is bounded in size and decoded whole. No step is retried
// internally — malformed input will not become valid by retrying. Any
// failure before the merge leaves the store untouched.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/pkgdepot/depot/pkg/errors"
	"github.com/pkgdepot/depot/pkg/manifest"
	"github.com/pkgdepot/depot/pkg/spec"
	"github.com/pkgdepot/depot/pkg/store"
)

// Ingestor runs manifest ingestions against one store.
type Ingestor struct {
	store  store.Store
	logger *log.Logger
}

// New creates an ingestor. A nil logger falls back to the default logger.
func New(st store.Store, logger *log.Logger) *Ingestor {
	if logger == nil {
		logger = log.Default()
	}
	return &Ingestor{store: st, logger: logger}
}

// Result summarizes one completed ingestion.
type Result struct {
	RunID     string           `json:"run_id"`
	Specs     int              `json:"specs"`     // entries in the manifest
	Compilers int              `json:"compilers"` // deduplicated compiler specs
	Merge     store.MergeStats `json:"merge"`
	Duration  time.Duration    `json:"duration"`
}

func (r *Result) String() string {
	return fmt.Sprintf("run %s: %d specs (%d new, %d existing), %d compilers (%d new)",
		r.RunID, r.Specs, r.Merge.SpecsAdded, r.Merge.SpecsSkipped,
		r.Compilers, r.Merge.CompilersAdded)
}

// Run ingests one manifest document from r.
//
// Stages run in strict sequence: decode, compiler normalization, graph
// build against the store's current view, merge. The merge is a single
// store call, atomic and idempotent at the hash level, so re-running the
// same manifest is a no-op for entries that already exist.
func (in *Ingestor) Run(ctx context.Context, r io.Reader) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := in.logger.With("run", runID)

	doc, err := manifest.Decode(r)
	if err != nil {
		return nil, err
	}
	logger.Debug("manifest decoded",
		"specs", len(doc.Specs), "compilers", len(doc.Compilers))

	compilers, err := spec.NormalizeCompilers(doc.Compilers)
	if err != nil {
		return nil, err
	}
	logger.Debug("compilers normalized", "count", len(compilers))

	graph, err := spec.BuildGraph(ctx, doc.Specs, in.store)
	if err != nil {
		return nil, err
	}
	logger.Debug("graph built", "nodes", len(graph))

	batch := &store.Batch{Compilers: compilers}
	// Batch order follows the manifest so merge results are reproducible.
	for _, e := range doc.Specs {
		batch.Specs = append(batch.Specs, graph[e.Hash])
	}

	stats, err := in.store.Merge(ctx, batch)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "merge manifest into store")
	}

	res := &Result{
		RunID:     runID,
		Specs:     len(doc.Specs),
		Compilers: len(compilers),
		Merge:     *stats,
		Duration:  time.Since(start),
	}
	logger.Info("manifest merged",
		"specs_added", stats.SpecsAdded,
		"specs_skipped", stats.SpecsSkipped,
		"compilers_added", stats.CompilersAdded,
		"elapsed", res.Duration.Round(time.Millisecond))
	return res, nil
}

// RunFile ingests the manifest document at path.
func (in *Ingestor) RunFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open manifest %s", path)
	}
	defer f.Close()
	return in.Run(ctx, f)
}

// DryRun decodes, normalizes, and links a manifest against the store's
// current view without merging anything. It surfaces exactly the failures
// a real ingestion would (schema errors, duplicate hashes, unresolved
// dependencies) while guaranteeing no state change.
func (in *Ingestor) DryRun(ctx context.Context, r io.Reader) (*Result, error) {
	start := time.Now()

	doc, err := manifest.Decode(r)
	if err != nil {
		return nil, err
	}
	compilers, err := spec.NormalizeCompilers(doc.Compilers)
	if err != nil {
		return nil, err
	}
	if _, err := spec.BuildGraph(ctx, doc.Specs, in.store); err != nil {
		return nil, err
	}

	return &Result{
		RunID:     uuid.NewString(),
		Specs:     len(doc.Specs),
		Compilers: len(compilers),
		Duration:  time.Since(start),
	}, nil
}

// DryRunFile runs DryRun on the manifest document at path.
func (in *Ingestor) DryRunFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open manifest %s", path)
	}
	defer f.Close()
	return in.DryRun(ctx, f)
}
