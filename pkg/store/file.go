package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/pkgdepot/depot/pkg/errors"
	"github.com/pkgdepot/depot/pkg/spec"
)

// FileStore persists the package database as a single JSON document.
// The whole document is loaded at open and rewritten on merge via a
// temp-file rename, so a merge is visible entirely or not at all.
//
// FileStore is safe for concurrent use within one process. Cross-process
// locking is not provided; concurrent writers from separate processes can
// lose updates.
type FileStore struct {
	mu   sync.RWMutex
	path string
	doc  fileDoc
}

// fileDoc is the on-disk document shape.
type fileDoc struct {
	Specs     map[string]spec.Record `json:"specs"`
	Compilers []spec.Compiler        `json:"compilers"`
}

// NewFileStore opens (or creates) the database document at path.
// Parent directories are created as needed.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "create store directory")
	}

	fs := &FileStore{
		path: path,
		doc:  fileDoc{Specs: map[string]spec.Record{}},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "open store %s", path)
	}
	if err := json.Unmarshal(data, &fs.doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "corrupt store document %s", path)
	}
	if fs.doc.Specs == nil {
		fs.doc.Specs = map[string]spec.Record{}
	}
	return fs, nil
}

// QueryByHash returns the linked spec with the given hash.
func (f *FileStore) QueryByHash(ctx context.Context, hash string) (*spec.Spec, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return loadSpec(ctx, hash, f.get)
}

// QueryByName returns all linked specs carrying the given package name.
func (f *FileStore) QueryByName(ctx context.Context, name string) ([]*spec.Spec, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	hashes := make([]string, 0)
	for hash, rec := range f.doc.Specs {
		if rec.Name == name {
			hashes = append(hashes, hash)
		}
	}
	slices.Sort(hashes)

	var out []*spec.Spec
	for _, hash := range hashes {
		s, err := loadSpec(ctx, hash, f.get)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Compilers returns all merged compiler specs.
func (f *FileStore) Compilers(ctx context.Context) ([]spec.Compiler, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.doc.Compilers), nil
}

// Merge adds new records and rewrites the document atomically.
// If the write fails, the in-memory view is rolled back so the store
// matches what is on disk.
func (f *FileStore) Merge(ctx context.Context, batch *Batch) (*MergeStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := &MergeStats{}
	added := make([]string, 0, len(batch.Specs))
	for _, s := range batch.Specs {
		if _, exists := f.doc.Specs[s.Hash]; exists {
			stats.SpecsSkipped++
			continue
		}
		f.doc.Specs[s.Hash] = s.Record()
		added = append(added, s.Hash)
		stats.SpecsAdded++
	}

	compilerLen := len(f.doc.Compilers)
	existing := make(map[string]bool, compilerLen)
	for _, c := range f.doc.Compilers {
		existing[c.Key()] = true
	}
	for _, c := range batch.Compilers {
		if existing[c.Key()] {
			stats.CompilersSkipped++
			continue
		}
		f.doc.Compilers = append(f.doc.Compilers, c)
		existing[c.Key()] = true
		stats.CompilersAdded++
	}

	if err := f.save(); err != nil {
		for _, hash := range added {
			delete(f.doc.Specs, hash)
		}
		f.doc.Compilers = f.doc.Compilers[:compilerLen]
		return nil, err
	}
	return stats, nil
}

// Close is a no-op; every merge is flushed when it happens.
func (f *FileStore) Close() error { return nil }

// save writes the document to a temp file and renames it into place.
func (f *FileStore) save() error {
	data, err := json.MarshalIndent(f.doc, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "encode store document")
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".depot-*.json")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "create temp store file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeStore, err, "write store document")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeStore, err, "close store document")
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeStore, err, "replace store document")
	}
	return nil
}

// get implements recordGetter. Callers must hold at least a read lock.
func (f *FileStore) get(ctx context.Context, hash string) (spec.Record, bool, error) {
	rec, ok := f.doc.Specs[hash]
	return rec, ok, nil
}
