package spec

import (
	"encoding/json"
	"testing"

	"github.com/pkgdepot/depot/pkg/errors"
	"github.com/pkgdepot/depot/pkg/manifest"
)

const exampleCompilerJSON = `{
  "name": "gcc",
  "prefix": "/path/to/compiler/",
  "version": "7.5.0",
  "arch": {
    "os": "centos8",
    "target": "x86_64"
  },
  "executables": {
    "cc": "/path/to/compiler/cc",
    "cxx": "/path/to/compiler/cxx",
    "fc": "/path/to/compiler/fc"
  }
}`

func decodeCompiler(t *testing.T, raw string) manifest.Compiler {
	t.Helper()
	var c manifest.Compiler
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("decode compiler fixture: %v", err)
	}
	return c
}

func TestCompilerFromEntry(t *testing.T) {
	c, err := CompilerFromEntry(decodeCompiler(t, exampleCompilerJSON))
	if err != nil {
		t.Fatalf("CompilerFromEntry() error = %v", err)
	}

	if c.Name != "gcc" || c.Version != "7.5.0" {
		t.Errorf("identity = %s@%s, want gcc@7.5.0", c.Name, c.Version)
	}
	if c.OS != "centos8" || c.Target != "x86_64" {
		t.Errorf("arch = %s-%s, want centos8-x86_64", c.OS, c.Target)
	}
	if c.Paths.CC != "/path/to/compiler/cc" ||
		c.Paths.CXX != "/path/to/compiler/cxx" ||
		c.Paths.FC != "/path/to/compiler/fc" {
		t.Errorf("paths = %+v, want all three roles populated", c.Paths)
	}
	if got, want := c.Key(), "gcc@7.5.0-centos8-x86_64"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}

func TestCompilerFromEntryMissingExecutables(t *testing.T) {
	tests := []struct {
		name  string
		roles map[string]string
		want  ToolPaths
	}{
		{
			name:  "only cc",
			roles: map[string]string{"cc": "/opt/cc"},
			want:  ToolPaths{CC: "/opt/cc"},
		},
		{
			name:  "cc and fc",
			roles: map[string]string{"cc": "/opt/cc", "fc": "/opt/fc"},
			want:  ToolPaths{CC: "/opt/cc", FC: "/opt/fc"},
		},
		{
			name:  "no executables at all",
			roles: nil,
			want:  ToolPaths{},
		},
		{
			name:  "unknown role ignored",
			roles: map[string]string{"cc": "/opt/cc", "rustc": "/opt/rustc"},
			want:  ToolPaths{CC: "/opt/cc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := manifest.Compiler{
				Name:        "gcc",
				Version:     "10.2.0",
				Arch:        manifest.CompilerArch{OS: "centos8", Target: "x86_64"},
				Executables: tt.roles,
			}
			c, err := CompilerFromEntry(raw)
			if err != nil {
				t.Fatalf("CompilerFromEntry() error = %v", err)
			}
			if c.Paths != tt.want {
				t.Errorf("Paths = %+v, want %+v", c.Paths, tt.want)
			}
		})
	}
}

func TestCompilerFromEntryMissingIdentity(t *testing.T) {
	tests := []struct {
		name string
		raw  manifest.Compiler
	}{
		{"missing name", manifest.Compiler{Version: "10.2.0"}},
		{"missing version", manifest.Compiler{Name: "gcc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompilerFromEntry(tt.raw)
			if !errors.Is(err, errors.ErrCodeInvalidCompiler) {
				t.Errorf("CompilerFromEntry() error = %v, want INVALID_COMPILER", err)
			}
		})
	}
}

func TestNormalizeCompilersDeduplicates(t *testing.T) {
	entries := []manifest.Compiler{
		{Name: "gcc", Version: "10.2.0", Arch: manifest.CompilerArch{OS: "centos8", Target: "x86_64"}},
		{Name: "gcc", Version: "10.2.0", Arch: manifest.CompilerArch{OS: "centos8", Target: "haswell"}},
		{Name: "clang", Version: "12.0.0"},
	}

	out, err := NormalizeCompilers(entries)
	if err != nil {
		t.Fatalf("NormalizeCompilers() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d compilers, want 2 (deduplicated by name+version)", len(out))
	}
	// First descriptor for a name+version wins.
	if out[0].Target != "x86_64" {
		t.Errorf("first gcc target = %q, want x86_64", out[0].Target)
	}
}
