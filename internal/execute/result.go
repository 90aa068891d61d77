// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package execute

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goplus/llbuild/internal/plan"
	"github.com/goplus/llbuild/recipe"
)

const resultFile = "result.json"

// Status is the outcome of one build.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Phase is one independently failable step of a build.
type Phase string

const (
	PhaseConfigure Phase = "configure"
	PhaseCompile   Phase = "compile"
)

// Result is the terminal outcome of one Execute call.
type Result struct {
	ID            string            `json:"id"`
	Recipe        string            `json:"recipe"`
	PlanID        string            `json:"plan_id"`
	Configuration map[string]string `json:"configuration"`
	Platform      recipe.Platform   `json:"platform"`

	SourceDir string `json:"source_dir"`
	WorkDir   string `json:"work_dir"`
	// ArtifactDir is the install tree; empty unless the build succeeded.
	ArtifactDir string `json:"artifact_dir,omitempty"`
	LogPath     string `json:"log_path"`

	Status      Status   `json:"status"`
	FailedPhase Phase    `json:"failed_phase,omitempty"`
	ExitCode    int      `json:"exit_code"`
	Tail        []string `json:"tail,omitempty"`

	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	// Plan is the plan the build ran. It is not persisted.
	Plan *plan.Plan `json:"-"`
}

// Succeeded reports whether the build produced an artifact tree.
func (r *Result) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// Err returns a *BuildFailure for a failed result and nil otherwise.
func (r *Result) Err() error {
	if r.Succeeded() {
		return nil
	}
	return &BuildFailure{Result: r}
}

func (r *Result) save() error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(r.WorkDir, resultFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadResult reads the result recorded for pl in the workspace. It returns
// an error wrapping os.ErrNotExist if pl was never built.
func LoadResult(workspace string, pl *plan.Plan) (*Result, error) {
	dir := WorkDir(workspace, pl)
	data, err := os.ReadFile(filepath.Join(dir, resultFile))
	if err != nil {
		return nil, fmt.Errorf("no build recorded for %s: %w", pl.Dirname(), err)
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse %s: %w", resultFile, err)
	}
	if r.PlanID != pl.ID() {
		return nil, fmt.Errorf("%s records plan %s, want %s", resultFile, r.PlanID, pl.ID())
	}
	r.Plan = pl
	return &r, nil
}
