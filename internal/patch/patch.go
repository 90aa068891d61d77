// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package patch applies exact find/replace patches to a source tree. A
// patch whose snippet is missing, or ambiguous, fails loudly instead of
// silently doing nothing.
package patch

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goplus/llbuild/recipe"
)

// MismatchError reports a patch whose Old snippet does not occur exactly
// once in its file.
type MismatchError struct {
	File  string
	Count int
}

func (e *MismatchError) Error() string {
	if e.Count == 0 {
		return fmt.Sprintf("patch %s: expected snippet not found", e.File)
	}
	return fmt.Sprintf("patch %s: expected snippet found %d times, want exactly once", e.File, e.Count)
}

// Check verifies that every patch would apply to the tree at root, without
// writing anything. Patches are simulated in order, so a later patch may
// depend on an earlier one exactly as with Apply.
func Check(root string, patches []recipe.Patch) error {
	files := make(map[string][]byte)
	for _, p := range patches {
		data, ok := files[p.File]
		if !ok {
			var err error
			if data, err = os.ReadFile(filepath.Join(root, filepath.FromSlash(p.File))); err != nil {
				return fmt.Errorf("patch %s: %w", p.File, err)
			}
		}
		if n := bytes.Count(data, []byte(p.Old)); n != 1 {
			return &MismatchError{File: p.File, Count: n}
		}
		files[p.File] = bytes.Replace(data, []byte(p.Old), []byte(p.New), 1)
	}
	return nil
}

// Apply applies patches in order to the tree at root. Patches are checked
// as they go, so a later patch may depend on an earlier one; a failure
// leaves earlier files patched. Run Check first for all or nothing.
func Apply(root string, patches []recipe.Patch) error {
	for _, p := range patches {
		if err := apply(root, p); err != nil {
			return err
		}
	}
	return nil
}

func apply(root string, p recipe.Patch) error {
	path := filepath.Join(root, filepath.FromSlash(p.File))
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("patch %s: %w", p.File, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("patch %s: %w", p.File, err)
	}
	if n := bytes.Count(data, []byte(p.Old)); n != 1 {
		return &MismatchError{File: p.File, Count: n}
	}
	data = bytes.Replace(data, []byte(p.Old), []byte(p.New), 1)
	return writeFile(path, data, fi.Mode().Perm())
}

// writeFile replaces path via a temporary sibling so readers never see a
// half-written file.
func writeFile(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
