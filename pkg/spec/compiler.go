package spec

import (
	"fmt"

	"github.com/pkgdepot/depot/pkg/manifest"
)

// ToolPaths holds the per-role executable paths of a normalized compiler.
// Roles absent from the raw descriptor stay empty.
type ToolPaths struct {
	CC  string `json:"cc,omitempty"`
	CXX string `json:"cxx,omitempty"`
	FC  string `json:"fc,omitempty"`
}

// Compiler is the internal compiler spec, keyed by (name, version, os,
// target).
type Compiler struct {
	Name    string    `json:"name"`
	Version string    `json:"version"`
	OS      string    `json:"os"`
	Target  string    `json:"target"`
	Prefix  string    `json:"prefix,omitempty"`
	Paths   ToolPaths `json:"paths"`
}

// Key returns the unique identity of the compiler spec.
func (c Compiler) Key() string {
	return fmt.Sprintf("%s@%s-%s-%s", c.Name, c.Version, c.OS, c.Target)
}

func (c Compiler) String() string {
	return fmt.Sprintf("%s@%s", c.Name, c.Version)
}

// CompilerFromEntry normalizes a raw compiler descriptor into the internal
// compiler spec. A partially-populated executables mapping is fine: only the
// roles present are recorded. Missing name or version is an INVALID_COMPILER
// error, as those are the minimum identity fields.
func CompilerFromEntry(c manifest.Compiler) (Compiler, error) {
	if err := manifest.ValidateCompiler(&c); err != nil {
		return Compiler{}, err
	}

	out := Compiler{
		Name:    c.Name,
		Version: c.Version,
		OS:      c.Arch.OS,
		Target:  c.Arch.Target,
		Prefix:  c.Prefix,
	}
	for role, path := range c.Executables {
		switch role {
		case manifest.RoleCC:
			out.Paths.CC = path
		case manifest.RoleCXX:
			out.Paths.CXX = path
		case manifest.RoleFC:
			out.Paths.FC = path
		default:
			// Unknown roles are ignored for forward compatibility.
		}
	}
	return out, nil
}

// NormalizeCompilers converts all raw compiler descriptors of a manifest,
// deduplicated by name and version. The first descriptor for a given
// name+version wins; later duplicates are dropped.
func NormalizeCompilers(entries []manifest.Compiler) ([]Compiler, error) {
	seen := make(map[string]bool, len(entries))
	out := make([]Compiler, 0, len(entries))
	for _, raw := range entries {
		c, err := CompilerFromEntry(raw)
		if err != nil {
			return nil, err
		}
		id := c.Name + "@" + c.Version
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, c)
	}
	return out, nil
}
