package recipe

import "path/filepath"

// Tree names where an artifact is collected from.
type Tree string

const (
	SourceTree  Tree = "source"
	InstallTree Tree = "install"
)

// Artifact declares a set of files copied into the package.
//
// Pattern is slash-separated and relative to the tree; "*" matches within
// one path element and "**" matches any number of elements. Matched files
// keep their path below the pattern's literal prefix and land under Dest.
type Artifact struct {
	Category string
	From     Tree
	Pattern  string
	Dest     string
	Required bool
	// When restricts the artifact to some configurations. Nil means always.
	When func(c Configuration, p Platform) bool
}

// Naming describes how library files are named on a platform.
type Naming struct {
	Prefix   string
	Suffixes []string
}

// NamingFor returns the library naming convention of p. Windows has no
// prefix, so static libraries already called "libfoo.lib" keep the "lib".
func NamingFor(p Platform) Naming {
	switch p.OS {
	case Windows:
		return Naming{Suffixes: []string{".lib", ".dll.a"}}
	case Macos:
		return Naming{Prefix: "lib", Suffixes: []string{".a", ".dylib"}}
	default:
		return Naming{Prefix: "lib", Suffixes: []string{".a", ".so"}}
	}
}

// Package describes how a finished build becomes a package.
type Package struct {
	Artifacts []Artifact
	// Exclude lists package-relative paths removed from the final tree.
	Exclude []string
	// Naming overrides the library naming convention of a platform.
	// Nil means NamingFor.
	Naming func(p Platform) Naming
	// DebugPostfix is appended to library names in Debug builds.
	DebugPostfix string
	// NormalizeDebug reports whether debug libraries are copied back to
	// their unpostfixed name on p.
	NormalizeDebug func(p Platform) bool
	// Info adds recipe-specific metadata once libraries are collected.
	Info func(c Configuration, p Platform, info *Info)
}

// NamingOn returns the library naming convention pk uses on p.
func (pk Package) NamingOn(p Platform) Naming {
	if pk.Naming != nil {
		return pk.Naming(p)
	}
	return NamingFor(p)
}

// Info is the mutable metadata a recipe fills in for consumers.
type Info struct {
	// Root is the absolute package directory.
	Root        string
	Libraries   []string
	Defines     []string
	CMakeName   string
	Env         map[string]string
	PathEnv     map[string][]string
	BinDirs     []string
	LibDirs     []string
	IncludeDirs []string
}

// Path joins elem onto the package root.
func (i *Info) Path(elem ...string) string {
	return filepath.Clean(filepath.Join(append([]string{i.Root}, elem...)...))
}

// SetEnv exports name=value to consumers.
func (i *Info) SetEnv(name, value string) {
	if i.Env == nil {
		i.Env = make(map[string]string)
	}
	i.Env[name] = value
}

// AppendPath appends dir to the search path variable name.
func (i *Info) AppendPath(name, dir string) {
	if i.PathEnv == nil {
		i.PathEnv = make(map[string][]string)
	}
	i.PathEnv[name] = append(i.PathEnv[name], dir)
}
