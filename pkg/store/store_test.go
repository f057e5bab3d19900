package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkgdepot/depot/pkg/errors"
	"github.com/pkgdepot/depot/pkg/manifest"
	"github.com/pkgdepot/depot/pkg/spec"
)

// testBatch builds a two-spec batch (openmpi depending on hwloc) plus one
// compiler spec.
func testBatch() *Batch {
	hwloc := &spec.Spec{
		Name:    "hwloc",
		Hash:    "hwlocfakehashaaa",
		Version: "2.0.3",
		Arch:    spec.Arch{Platform: "linux", OS: "centos8", Target: "haswell"},
	}
	openmpi := &spec.Spec{
		Name:    "openmpi",
		Hash:    "openmpifakehasha",
		Version: "4.1.0",
		Arch:    spec.Arch{Platform: "linux", OS: "centos8", Target: "haswell"},
		Parameters: map[string]manifest.Param{
			"fabrics": manifest.Strings("psm"),
		},
		Dependencies: []spec.Edge{{To: hwloc, Types: []string{"link"}}},
	}
	gcc := spec.Compiler{
		Name: "gcc", Version: "10.2.0", OS: "centos8", Target: "x86_64",
		Paths: spec.ToolPaths{CC: "/usr/bin/gcc"},
	}
	return &Batch{Specs: []*spec.Spec{openmpi, hwloc}, Compilers: []spec.Compiler{gcc}}
}

// storeFactories returns constructors for the backends testable without
// external services.
func storeFactories(t *testing.T) map[string]func() Store {
	t.Helper()
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"file": func() Store {
			fs, err := NewFileStore(filepath.Join(t.TempDir(), "db.json"))
			if err != nil {
				t.Fatalf("NewFileStore() error = %v", err)
			}
			return fs
		},
	}
}

func TestStoreMergeAndQuery(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := newStore()
			defer st.Close()

			stats, err := st.Merge(ctx, testBatch())
			if err != nil {
				t.Fatalf("Merge() error = %v", err)
			}
			if stats.SpecsAdded != 2 || stats.CompilersAdded != 1 {
				t.Errorf("stats = %+v, want 2 specs and 1 compiler added", stats)
			}

			got, err := st.QueryByHash(ctx, "openmpifakehasha")
			if err != nil {
				t.Fatalf("QueryByHash() error = %v", err)
			}
			if got.Name != "openmpi" {
				t.Errorf("Name = %q, want openmpi", got.Name)
			}
			dep, ok := got.Dep("hwloc")
			if !ok || dep.Hash != "hwlocfakehashaaa" {
				t.Errorf("dependency closure not loaded: %+v", got.Dependencies)
			}
			if _, ok := got.Parameters["fabrics"]; !ok {
				t.Error("parameters lost in storage")
			}

			byName, err := st.QueryByName(ctx, "openmpi")
			if err != nil {
				t.Fatalf("QueryByName() error = %v", err)
			}
			if len(byName) != 1 || byName[0].Hash != "openmpifakehasha" {
				t.Errorf("QueryByName(openmpi) = %v, want one spec with hash openmpifakehasha", byName)
			}

			compilers, err := st.Compilers(ctx)
			if err != nil {
				t.Fatalf("Compilers() error = %v", err)
			}
			if len(compilers) != 1 || compilers[0].Key() != "gcc@10.2.0-centos8-x86_64" {
				t.Errorf("Compilers() = %v, want the merged gcc spec", compilers)
			}
		})
	}
}

func TestStoreMergeIdempotent(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := newStore()
			defer st.Close()

			if _, err := st.Merge(ctx, testBatch()); err != nil {
				t.Fatalf("first Merge() error = %v", err)
			}
			stats, err := st.Merge(ctx, testBatch())
			if err != nil {
				t.Fatalf("second Merge() error = %v", err)
			}
			if stats.SpecsAdded != 0 || stats.SpecsSkipped != 2 {
				t.Errorf("second merge stats = %+v, want all specs skipped", stats)
			}
			if stats.CompilersAdded != 0 || stats.CompilersSkipped != 1 {
				t.Errorf("second merge stats = %+v, want compiler skipped", stats)
			}

			specs, err := st.QueryByName(ctx, "openmpi")
			if err != nil {
				t.Fatalf("QueryByName() error = %v", err)
			}
			if len(specs) != 1 {
				t.Errorf("got %d openmpi specs after double merge, want 1", len(specs))
			}
		})
	}
}

func TestStoreQueryMissing(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := newStore()
			defer st.Close()

			if _, err := st.QueryByHash(ctx, "nosuchhash"); !errors.Is(err, errors.ErrCodeNotFound) {
				t.Errorf("QueryByHash(missing) error = %v, want NOT_FOUND", err)
			}

			specs, err := st.QueryByName(ctx, "nosuchname")
			if err != nil {
				t.Fatalf("QueryByName(missing) error = %v", err)
			}
			if len(specs) != 0 {
				t.Errorf("QueryByName(missing) = %v, want empty", specs)
			}
		})
	}
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.json")

	st, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if _, err := st.Merge(ctx, testBatch()); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	st.Close()

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.QueryByHash(ctx, "openmpifakehasha")
	if err != nil {
		t.Fatalf("QueryByHash() after reopen error = %v", err)
	}
	if _, ok := got.Dep("hwloc"); !ok {
		t.Error("dependency edges lost across reopen")
	}

	compilers, err := reopened.Compilers(ctx)
	if err != nil || len(compilers) != 1 {
		t.Errorf("Compilers() after reopen = %v, %v; want one compiler", compilers, err)
	}
}

func TestFileStoreRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileStore(path); !errors.Is(err, errors.ErrCodeStore) {
		t.Errorf("NewFileStore(corrupt) error = %v, want STORE_ERROR", err)
	}
}
