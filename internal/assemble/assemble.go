// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package assemble turns a successful build into a package: a canonical
// tree of artifacts plus the metadata consumers link against.
//
// Workspace layout:
//
//	workspace/
//	  packages/
//	    <name>@<version>-<id>.lock
//	    <name>@<version>-<id>.tmp-<uuid>/   # staging, renamed on success
//	    <name>@<version>-<id>/
//	      llbuild.json                      # Metadata, written last
//	      include/ lib/ bin/ licenses/ ...
package assemble

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/goplus/llbuild/internal/execute"
	"github.com/goplus/llbuild/internal/lockedfile"
	"github.com/goplus/llbuild/internal/plan"
	"github.com/goplus/llbuild/recipe"
)

// Assembler writes packages into <Workspace>/packages.
type Assembler struct {
	Workspace string
	Logger    hclog.Logger
}

// Dir returns the package directory of pl.
func Dir(workspace string, pl *plan.Plan) string {
	return filepath.Join(workspace, "packages", pl.Dirname())
}

// Assemble collects the artifacts of res into its package directory and
// returns the package metadata. A failed result is refused: no package and
// no metadata come out of a failed build.
func (a *Assembler) Assemble(res *execute.Result) (*Metadata, error) {
	if res.Plan == nil {
		return nil, &Error{Package: res.Recipe, Op: "check result", Err: errors.New("result carries no plan")}
	}
	pl := res.Plan
	name := pl.Dirname()
	if !res.Succeeded() {
		return nil, &Error{Package: name, Op: "check result", Err: fmt.Errorf("build %s did not succeed", res.ID)}
	}
	logger := a.logger().With("package", name)

	workspace, err := filepath.Abs(a.Workspace)
	if err != nil {
		return nil, &Error{Package: name, Op: "resolve workspace", Err: err}
	}
	final := Dir(workspace, pl)
	unlock, err := lockedfile.MutexAt(final + ".lock").Lock()
	if err != nil {
		return nil, &Error{Package: name, Op: "lock", Err: err}
	}
	defer unlock()

	staging := final + ".tmp-" + uuid.NewString()
	defer os.RemoveAll(staging)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, &Error{Package: name, Op: "create staging dir", Err: err}
	}

	pkg := pl.Recipe.Package
	for _, art := range pkg.Artifacts {
		if art.When != nil && !art.When(pl.Configuration, pl.Platform) {
			logger.Debug("artifact not applicable", "category", art.Category)
			continue
		}
		root := res.ArtifactDir
		if art.From == recipe.SourceTree {
			root = res.SourceDir
		}
		n, err := copyArtifact(root, staging, art)
		if err != nil {
			return nil, &Error{Package: name, Op: "copy " + art.Category, Err: err}
		}
		if n == 0 {
			if art.Required {
				return nil, &MissingRequiredArtifactError{Category: art.Category, Pattern: art.Pattern}
			}
			logger.Info("optional artifact absent, skipped", "category", art.Category, "pattern", art.Pattern)
			continue
		}
		logger.Debug("collected artifact", "category", art.Category, "files", n)
	}

	for _, ex := range pkg.Exclude {
		if err := os.RemoveAll(filepath.Join(staging, filepath.FromSlash(ex))); err != nil {
			return nil, &Error{Package: name, Op: "exclude " + ex, Err: err}
		}
	}

	naming := pkg.NamingOn(pl.Platform)
	libDir := filepath.Join(staging, "lib")
	if pl.Platform.BuildType == recipe.Debug && pkg.NormalizeDebug != nil && pkg.NormalizeDebug(pl.Platform) {
		renamed, err := normalizeDebug(libDir, pkg.DebugPostfix, naming)
		if err != nil {
			return nil, &Error{Package: name, Op: "normalize debug libraries", Err: err}
		}
		if len(renamed) > 0 {
			logger.Debug("normalized debug libraries", "libs", renamed)
		}
	}
	libs, err := collectLibs(libDir, naming)
	if err != nil {
		return nil, &Error{Package: name, Op: "collect libraries", Err: err}
	}

	info := recipe.Info{Root: final, Libraries: libs}
	for _, d := range []struct {
		dir string
		to  *[]string
	}{
		{"include", &info.IncludeDirs},
		{"lib", &info.LibDirs},
		{"bin", &info.BinDirs},
	} {
		if isDir(filepath.Join(staging, d.dir)) {
			*d.to = append(*d.to, info.Path(d.dir))
		}
	}
	if pkg.Info != nil {
		pkg.Info(pl.Configuration, pl.Platform, &info)
	}

	m := &Metadata{
		Name:          pl.Recipe.Name,
		Version:       pl.Recipe.Version,
		BuildID:       res.ID,
		PlanID:        pl.ID(),
		Configuration: pl.Configuration.Values(),
		Platform:      pl.Platform,
		Root:          final,
		Libraries:     info.Libraries,
		IncludeDirs:   info.IncludeDirs,
		LibDirs:       info.LibDirs,
		BinDirs:       info.BinDirs,
		Defines:       info.Defines,
		CMakeName:     info.CMakeName,
		Env:           info.Env,
		PathEnv:       info.PathEnv,
	}
	if err := writeMetadata(staging, m); err != nil {
		return nil, &Error{Package: name, Op: "write metadata", Err: err}
	}
	if err := os.RemoveAll(final); err != nil {
		return nil, &Error{Package: name, Op: "replace package", Err: err}
	}
	if err := os.Rename(staging, final); err != nil {
		return nil, &Error{Package: name, Op: "replace package", Err: err}
	}
	logger.Info("package assembled", "root", final, "libs", m.Libraries)
	return m, nil
}

// copyArtifact copies the files of art below root into the package and
// returns how many it copied.
func copyArtifact(root, pkgDir string, art recipe.Artifact) (int, error) {
	if root == "" {
		return 0, nil
	}
	files, err := glob(root, art.Pattern)
	if err != nil {
		return 0, err
	}
	prefix := literalPrefix(art.Pattern)
	for _, f := range files {
		rel := f
		if prefix != "" {
			rel, err = filepath.Rel(filepath.FromSlash(prefix), filepath.FromSlash(f))
			if err != nil {
				return 0, err
			}
		}
		dst := filepath.Join(pkgDir, filepath.FromSlash(art.Dest), rel)
		if err := copyFile(filepath.Join(root, filepath.FromSlash(f)), dst); err != nil {
			return 0, err
		}
	}
	return len(files), nil
}

// copyFile copies src to dst, recreating symlinks rather than following
// them.
func copyFile(src, dst string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if fi.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		os.Remove(dst)
		return os.Symlink(target, dst)
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func (a *Assembler) logger() hclog.Logger {
	if a.Logger == nil {
		return hclog.NewNullLogger()
	}
	return a.Logger
}
