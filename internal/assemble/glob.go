// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assemble

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// match reports whether the slash-separated name matches pattern. A "**"
// element matches zero or more path elements; other elements follow
// path.Match.
func match(pattern, name string) bool {
	return matchElems(strings.Split(pattern, "/"), strings.Split(name, "/"))
}

func matchElems(pat, name []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			rest := pat[1:]
			if len(rest) == 0 {
				return len(name) > 0
			}
			for i := 0; i <= len(name); i++ {
				if matchElems(rest, name[i:]) {
					return true
				}
			}
			return false
		}
		if len(name) == 0 {
			return false
		}
		if ok, err := path.Match(pat[0], name[0]); err != nil || !ok {
			return false
		}
		pat, name = pat[1:], name[1:]
	}
	return len(name) == 0
}

// literalPrefix returns the leading directory elements of pattern that
// hold no wildcard. Matched files keep their path below it.
func literalPrefix(pattern string) string {
	elems := strings.Split(pattern, "/")
	var n int
	for n < len(elems)-1 && !strings.ContainsAny(elems[n], `*?[\`) {
		n++
	}
	return strings.Join(elems[:n], "/")
}

// glob returns the slash-separated paths below root matching pattern,
// sorted. Directories are never returned; symlinks are, unresolved.
func glob(root, pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, `*?[\`) {
		fi, err := os.Lstat(filepath.Join(root, filepath.FromSlash(pattern)))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, nil
		case err != nil:
			return nil, err
		case fi.IsDir():
			return nil, nil
		}
		return []string{path.Clean(pattern)}, nil
	}
	start := filepath.Join(root, filepath.FromSlash(literalPrefix(pattern)))
	var out []string
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == start && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if match(pattern, rel) {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
