package ingest

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/pkgdepot/depot/pkg/errors"
	"github.com/pkgdepot/depot/pkg/store"
)

const openmpiManifest = `{
  "specs": [
    {
      "name": "openmpi",
      "hash": "openmpifakehasha",
      "prefix": "/path/to/openmpi-4.1.0",
      "version": "4.1.0",
      "arch": {
        "platform": "linux",
        "platform_os": "centos8",
        "target": {"name": "haswell"}
      },
      "compiler": {"name": "gcc", "version": "10.2.0.2112"},
      "dependencies": {
        "hwloc": {
          "hash": "hwlocfakehashaaa",
          "type": ["build", "link"]
        }
      },
      "parameters": {
        "internal-hwloc": false,
        "fabrics": ["psm"],
        "missing_variant": true
      }
    },
    {
      "name": "hwloc",
      "hash": "hwlocfakehashaaa",
      "prefix": "/path/to/hwloc-2.0.3",
      "version": "2.0.3",
      "arch": {
        "platform": "linux",
        "platform_os": "centos8",
        "target": {"name": "haswell"}
      },
      "compiler": {"name": "gcc", "version": "10.2.0.2112"},
      "dependencies": {},
      "parameters": {}
    }
  ],
  "compilers": [
    {
      "name": "gcc",
      "version": "10.2.0.2112",
      "arch": {"os": "centos8", "target": "x86_64"},
      "executables": {
        "cc": "/path/to/compilers/cc",
        "cxx": "/path/to/compilers/cxx",
        "fc": "/path/to/compilers/fc"
      }
    }
  ]
}`

func newTestIngestor() (*Ingestor, *store.MemoryStore) {
	st := store.NewMemoryStore()
	logger := log.New(io.Discard)
	return New(st, logger), st
}

func TestRunMergesManifest(t *testing.T) {
	ctx := context.Background()
	in, st := newTestIngestor()

	res, err := in.Run(ctx, strings.NewReader(openmpiManifest))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Specs != 2 || res.Merge.SpecsAdded != 2 {
		t.Errorf("result = %+v, want 2 specs added", res)
	}
	if res.Compilers != 1 || res.Merge.CompilersAdded != 1 {
		t.Errorf("result = %+v, want 1 compiler added", res)
	}
	if res.RunID == "" {
		t.Error("result has no run ID")
	}

	specs, err := st.QueryByName(ctx, "openmpi")
	if err != nil {
		t.Fatalf("QueryByName() error = %v", err)
	}
	if len(specs) != 1 || specs[0].Hash != "openmpifakehasha" {
		t.Fatalf("QueryByName(openmpi) = %v, want the merged openmpi spec", specs)
	}
	dep, ok := specs[0].Dep("hwloc")
	if !ok || dep.Hash != "hwlocfakehashaaa" {
		t.Errorf("openmpi dependency = %v, %v; want hwloc edge", dep, ok)
	}
	if !specs[0].Dependencies[0].HasType("link") {
		t.Error("hwloc edge lost its link type")
	}

	compilers, err := st.Compilers(ctx)
	if err != nil || len(compilers) != 1 {
		t.Fatalf("Compilers() = %v, %v; want one compiler", compilers, err)
	}
	if compilers[0].Paths.CXX != "/path/to/compilers/cxx" {
		t.Errorf("compiler CXX = %q, want manifest executable path", compilers[0].Paths.CXX)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	in, _ := newTestIngestor()

	if _, err := in.Run(ctx, strings.NewReader(openmpiManifest)); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	res, err := in.Run(ctx, strings.NewReader(openmpiManifest))
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if res.Merge.SpecsAdded != 0 || res.Merge.SpecsSkipped != 2 {
		t.Errorf("second run merge = %+v, want everything skipped", res.Merge)
	}
	if res.Merge.CompilersAdded != 0 || res.Merge.CompilersSkipped != 1 {
		t.Errorf("second run merge = %+v, want compiler skipped", res.Merge)
	}
}

func TestRunResolvesAgainstExistingStore(t *testing.T) {
	ctx := context.Background()
	in, st := newTestIngestor()

	if _, err := in.Run(ctx, strings.NewReader(openmpiManifest)); err != nil {
		t.Fatalf("seed Run() error = %v", err)
	}

	// A later manifest depends on hwloc without shipping its entry; the
	// store's copy satisfies the reference.
	followup := `{
	  "specs": [
	    {
	      "name": "mpileaks",
	      "hash": "mpileaksfakehash",
	      "prefix": "/path/to/mpileaks-1.0",
	      "version": "1.0",
	      "arch": {
	        "platform": "linux",
	        "platform_os": "centos8",
	        "target": {"name": "haswell"}
	      },
	      "compiler": {"name": "gcc", "version": "10.2.0.2112"},
	      "dependencies": {
	        "hwloc": {"hash": "hwlocfakehashaaa", "type": ["link"]}
	      },
	      "parameters": {}
	    }
	  ],
	  "compilers": []
	}`
	if _, err := in.Run(ctx, strings.NewReader(followup)); err != nil {
		t.Fatalf("followup Run() error = %v", err)
	}

	got, err := st.QueryByHash(ctx, "mpileaksfakehash")
	if err != nil {
		t.Fatalf("QueryByHash() error = %v", err)
	}
	if _, ok := got.Dep("hwloc"); !ok {
		t.Error("mpileaks dependency on stored hwloc not linked")
	}
}

func TestRunFailuresLeaveStoreUntouched(t *testing.T) {
	duplicate := `{
	  "specs": [
	    {"name": "a", "hash": "samehash", "prefix": "/a", "version": "1",
	     "arch": {"platform": "linux", "platform_os": "centos8", "target": {"name": "haswell"}},
	     "compiler": {"name": "gcc", "version": "10"},
	     "dependencies": {}, "parameters": {}},
	    {"name": "b", "hash": "samehash", "prefix": "/b", "version": "1",
	     "arch": {"platform": "linux", "platform_os": "centos8", "target": {"name": "haswell"}},
	     "compiler": {"name": "gcc", "version": "10"},
	     "dependencies": {}, "parameters": {}}
	  ],
	  "compilers": []
	}`
	dangling := `{
	  "specs": [
	    {"name": "a", "hash": "ahash", "prefix": "/a", "version": "1",
	     "arch": {"platform": "linux", "platform_os": "centos8", "target": {"name": "haswell"}},
	     "compiler": {"name": "gcc", "version": "10"},
	     "dependencies": {"ghost": {"hash": "nosuchhash", "type": ["link"]}},
	     "parameters": {}}
	  ],
	  "compilers": []
	}`

	tests := []struct {
		name     string
		doc      string
		wantCode errors.Code
	}{
		{"duplicate hash", duplicate, errors.ErrCodeDuplicateHash},
		{"unresolved dependency", dangling, errors.ErrCodeUnresolvedDependency},
		{"malformed document", "{not json", errors.ErrCodeInvalidManifest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			in, st := newTestIngestor()

			_, err := in.Run(ctx, strings.NewReader(tt.doc))
			if !errors.Is(err, tt.wantCode) {
				t.Fatalf("Run() error = %v, want code %s", err, tt.wantCode)
			}

			// Nothing may have been merged.
			for _, name := range []string{"a", "b"} {
				specs, qerr := st.QueryByName(ctx, name)
				if qerr != nil {
					t.Fatalf("QueryByName(%s) error = %v", name, qerr)
				}
				if len(specs) != 0 {
					t.Errorf("store contains %q after failed ingestion", name)
				}
			}
		})
	}
}

func TestDryRunDoesNotMerge(t *testing.T) {
	ctx := context.Background()
	in, st := newTestIngestor()

	res, err := in.DryRun(ctx, strings.NewReader(openmpiManifest))
	if err != nil {
		t.Fatalf("DryRun() error = %v", err)
	}
	if res.Specs != 2 || res.Compilers != 1 {
		t.Errorf("result = %+v, want 2 specs and 1 compiler counted", res)
	}
	if res.Merge.SpecsAdded != 0 {
		t.Errorf("dry run reported merged specs: %+v", res.Merge)
	}

	if _, err := st.QueryByHash(ctx, "openmpifakehasha"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("dry run wrote to the store: QueryByHash error = %v", err)
	}
}

func TestRunFileMissingManifest(t *testing.T) {
	in, _ := newTestIngestor()
	if _, err := in.RunFile(context.Background(), "/nonexistent/manifest.json"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("RunFile(missing) error = %v, want INVALID_INPUT", err)
	}
}
