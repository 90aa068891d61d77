// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package acquire materializes pinned recipe sources in the workspace.
//
// Workspace layout:
//
//	workspace/
//	  sources/
//	    <key>.lock                  # inter-process lock for <key>
//	    <key>/                      # checked out and patched tree
//	      .llbuild-source.json      # marker, written last
//	    <key>.tmp-<uuid>/           # staging tree, renamed to <key> on success
//
// A tree is only valid once it sits at its final name, and the rename is
// the last step, so an interrupted acquisition never leaves a valid tree.
package acquire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/goplus/llbuild/internal/lockedfile"
	"github.com/goplus/llbuild/internal/patch"
	"github.com/goplus/llbuild/internal/vcs"
	"github.com/goplus/llbuild/recipe"
)

// MarkerFile is the name of the marker written into every acquired tree.
const MarkerFile = ".llbuild-source.json"

// Marker records what an acquired tree holds.
type Marker struct {
	Key     string    `json:"key"`
	URL     string    `json:"url"`
	Tag     string    `json:"tag"`
	Commit  string    `json:"commit"`
	Patches []string  `json:"patches,omitempty"`
	Time    time.Time `json:"time"`
}

// Acquirer fetches recipe sources into <Workspace>/sources.
type Acquirer struct {
	Workspace string
	VCS       vcs.VCS
	Logger    hclog.Logger
}

// New returns an Acquirer using git for workspace.
func New(workspace string, v vcs.VCS, logger hclog.Logger) *Acquirer {
	if v == nil {
		v = vcs.NewGitVCS()
	}
	return &Acquirer{Workspace: workspace, VCS: v, Logger: logger}
}

// Path returns the local path the source of r materializes at.
func (a *Acquirer) Path(r *recipe.Recipe) string {
	return filepath.Join(a.Workspace, "sources", r.Key())
}

// Acquire returns the local path of r's pinned source, fetching it if it
// is not yet present. An existing tree is verified without any network
// access.
func (a *Acquirer) Acquire(ctx context.Context, r *recipe.Recipe) (string, error) {
	logger := a.logger().With("recipe", r.String())
	dir := a.Path(r)
	source := r.Source.URL + "@" + r.Source.Tag

	unlock, err := lockedfile.MutexAt(dir + ".lock").Lock()
	if err != nil {
		return "", &Error{Source: source, Op: "lock", Err: err}
	}
	defer unlock()

	if _, err := os.Stat(dir); err == nil {
		if err := a.verify(ctx, r, dir); err != nil {
			return "", &Error{Source: source, Op: "integrity check failed", Err: err}
		}
		logger.Debug("source already present", "path", dir)
		return dir, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", &Error{Source: source, Op: "stat", Err: err}
	}

	logger.Info("fetching source", "url", r.Source.URL, "tag", r.Source.Tag)
	if err := a.fetch(ctx, r, dir); err != nil {
		op, cause := split(err)
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(cause, ctxErr) {
			cause = fmt.Errorf("%w: %v", ctxErr, cause)
		}
		return "", &Error{Source: source, Op: op, Err: cause}
	}
	logger.Debug("source acquired", "path", dir)
	return dir, nil
}

// fetch clones r into a staging tree and renames it to dir.
func (a *Acquirer) fetch(ctx context.Context, r *recipe.Recipe, dir string) error {
	staging := dir + ".tmp-" + uuid.NewString()
	defer os.RemoveAll(staging)

	if err := a.VCS.Sync(ctx, r.Source.URL, r.Source.Tag, staging); err != nil {
		if ctx.Err() == nil {
			err = a.explainMissing(ctx, r, err)
		}
		return &stepError{op: "fetch", err: err}
	}
	if r.Source.Submodules {
		if err := a.VCS.Submodules(ctx, staging); err != nil {
			return &stepError{op: "submodules", err: err}
		}
	}
	commit, err := a.VCS.Head(ctx, staging)
	if err != nil {
		return &stepError{op: "inspect", err: err}
	}
	if err := patch.Check(staging, r.Patches); err != nil {
		return &stepError{op: "patch", err: err}
	}
	if err := patch.Apply(staging, r.Patches); err != nil {
		return &stepError{op: "patch", err: err}
	}

	m := Marker{
		Key:    r.Key(),
		URL:    r.Source.URL,
		Tag:    r.Source.Tag,
		Commit: commit,
		Time:   time.Now().UTC(),
	}
	for _, p := range r.Patches {
		m.Patches = append(m.Patches, p.File)
	}
	if err := writeMarker(staging, &m); err != nil {
		return &stepError{op: "write marker", err: err}
	}
	if err := ctx.Err(); err != nil {
		return &stepError{op: "fetch", err: err}
	}
	if err := os.Rename(staging, dir); err != nil {
		return &stepError{op: "rename", err: err}
	}
	return nil
}

// explainMissing turns a failed sync into "revision not found" when the
// remote is reachable but does not carry the tag.
func (a *Acquirer) explainMissing(ctx context.Context, r *recipe.Recipe, syncErr error) error {
	tags, err := a.VCS.Tags(ctx, r.Source.URL)
	if err != nil || slices.Contains(tags, r.Source.Tag) {
		return syncErr
	}
	return fmt.Errorf("revision %s not found: %w", r.Source.Tag, syncErr)
}

// verify checks that dir holds the tree r describes.
func (a *Acquirer) verify(ctx context.Context, r *recipe.Recipe, dir string) error {
	m, err := ReadMarker(dir)
	if err != nil {
		return err
	}
	if m.Key != r.Key() || m.URL != r.Source.URL || m.Tag != r.Source.Tag {
		return fmt.Errorf("marker records %s@%s (key %s)", m.URL, m.Tag, m.Key)
	}
	head, err := a.VCS.Head(ctx, dir)
	if err != nil {
		return err
	}
	if head != m.Commit {
		return fmt.Errorf("checked out %s, marker records %s", head, m.Commit)
	}
	return nil
}

func (a *Acquirer) logger() hclog.Logger {
	if a.Logger == nil {
		return hclog.NewNullLogger()
	}
	return a.Logger
}

// ReadMarker reads the marker of the tree at dir.
func ReadMarker(dir string) (*Marker, error) {
	data, err := os.ReadFile(filepath.Join(dir, MarkerFile))
	if err != nil {
		return nil, err
	}
	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", MarkerFile, err)
	}
	return &m, nil
}

func writeMarker(dir string, m *Marker) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, MarkerFile), data, 0o644)
}

type stepError struct {
	op  string
	err error
}

func (e *stepError) Error() string { return e.op + ": " + e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

// split separates the failed step from its cause.
func split(err error) (string, error) {
	var se *stepError
	if errors.As(err, &se) {
		return se.op, se.err
	}
	return "fetch", err
}
