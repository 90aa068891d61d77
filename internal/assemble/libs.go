// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assemble

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goplus/llbuild/recipe"
)

// collectLibs returns the library names found directly in libDir: file
// names carrying one of the platform's suffixes, prefix and suffix
// stripped, deduplicated and sorted reverse-lexicographically.
func collectLibs(libDir string, n recipe.Naming) ([]string, error) {
	entries, err := os.ReadDir(libDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var libs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := libName(e.Name(), n)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		libs = append(libs, name)
	}
	sortLibs(libs)
	return libs, nil
}

// sortLibs sorts libs reverse-lexicographically in place.
func sortLibs(libs []string) {
	slices.Sort(libs)
	slices.Reverse(libs)
}

func libName(file string, n recipe.Naming) (string, bool) {
	if !strings.HasPrefix(file, n.Prefix) {
		return "", false
	}
	for _, suffix := range n.Suffixes {
		if base, ok := strings.CutSuffix(file, suffix); ok && len(base) > len(n.Prefix) {
			return base[len(n.Prefix):], true
		}
	}
	return "", false
}

// normalizeDebug renames debug-postfixed libraries in libDir to their
// canonical names: "<prefix><base><postfix><suffix>[.<version>]" becomes
// "<prefix><base><suffix>[.<version>]". Symlink targets are renamed the
// same way so version links stay intact. Only the top level of libDir is
// touched; CMake package files keep the names they were installed with.
func normalizeDebug(libDir, postfix string, n recipe.Naming) ([]string, error) {
	if postfix == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(libDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var renamed []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		canon, ok := stripPostfix(e.Name(), postfix, n)
		if !ok {
			continue
		}
		from, to := filepath.Join(libDir, e.Name()), filepath.Join(libDir, canon)
		if e.Type()&fs.ModeSymlink != 0 {
			target, err := os.Readlink(from)
			if err != nil {
				return nil, err
			}
			if t, ok := stripPostfix(filepath.Base(target), postfix, n); ok {
				target = filepath.Join(filepath.Dir(target), t)
			}
			os.Remove(to)
			if err := os.Symlink(target, to); err != nil {
				return nil, err
			}
			if err := os.Remove(from); err != nil {
				return nil, err
			}
		} else if err := os.Rename(from, to); err != nil {
			return nil, err
		}
		renamed = append(renamed, canon)
	}
	return renamed, nil
}

func stripPostfix(file, postfix string, n recipe.Naming) (string, bool) {
	if !strings.HasPrefix(file, n.Prefix) {
		return "", false
	}
	for _, suffix := range n.Suffixes {
		marker := postfix + suffix
		i := strings.LastIndex(file, marker)
		if i <= len(n.Prefix) {
			continue
		}
		rest := file[i+len(marker):]
		if rest != "" && !strings.HasPrefix(rest, ".") {
			continue
		}
		return file[:i] + file[i+len(postfix):], true
	}
	return "", false
}
