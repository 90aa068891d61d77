// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package execute runs the configure and compile phases of a planned build
// with CMake.
//
// Workspace layout:
//
//	workspace/
//	  builds/
//	    <name>@<version>-<id>.lock      # one build per configuration at a time
//	    <name>@<version>-<id>/
//	      build/                        # cmake binary dir
//	      install.tmp-<uuid>/           # install prefix while building
//	      install/                      # artifact tree of the last success
//	      logs/<build-id>.log           # full output of each build
//	      result.json                   # last Result
package execute

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/goplus/llbuild/internal/lockedfile"
	"github.com/goplus/llbuild/internal/plan"
	"github.com/goplus/llbuild/recipe"
	"github.com/goplus/llbuild/x/cmake"
)

// DefaultTailLines is the number of output lines kept on a failed Result.
const DefaultTailLines = 50

// Executor runs builds inside a workspace.
type Executor struct {
	Workspace string
	// CMake is the cmake executable; empty means "cmake" from PATH.
	CMake     string
	Generator string
	// Jobs is the build parallelism; 0 leaves it to the generator.
	Jobs      int
	TailLines int
	// Prefixes are install trees of prebuilt dependencies made visible to
	// the build.
	Prefixes []string
	// Env is the environment builds start from; nil inherits the process
	// environment.
	Env []string
	// Observer receives the build output as it is produced.
	Observer io.Writer
	Logger   hclog.Logger
}

// WorkDir returns the private working directory of pl.
func WorkDir(workspace string, pl *plan.Plan) string {
	return filepath.Join(workspace, "builds", pl.Dirname())
}

// Execute builds the source tree at srcDir according to pl. onPhase, if
// not nil, is called after each phase that succeeds.
//
// An ordinary build failure is reported as a failed Result with a nil
// error. Errors are returned only when the build could not run, as
// *InfrastructureError, or when ctx is done.
func (e *Executor) Execute(ctx context.Context, srcDir string, pl *plan.Plan, onPhase func(Phase)) (*Result, error) {
	logger := e.logger().With("recipe", pl.Recipe.String(), "plan", pl.ID())

	program, cmakeSrc, err := e.check(srcDir, pl)
	if err != nil {
		return nil, err
	}

	workDir := WorkDir(e.Workspace, pl)
	unlock, err := lockedfile.MutexAt(workDir + ".lock").Lock()
	if err != nil {
		return nil, &InfrastructureError{Op: "lock work dir", Err: err}
	}
	defer unlock()

	res := &Result{
		ID:            uuid.NewString(),
		Recipe:        pl.Recipe.String(),
		PlanID:        pl.ID(),
		Configuration: pl.Configuration.Values(),
		Platform:      pl.Platform,
		SourceDir:     srcDir,
		WorkDir:       workDir,
		Started:       time.Now().UTC(),
		Plan:          pl,
	}
	res.LogPath = filepath.Join(workDir, "logs", res.ID+".log")

	// A stale result must not outlive an interrupted rebuild.
	if err := os.Remove(filepath.Join(workDir, resultFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, &InfrastructureError{Op: "reset work dir", Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(res.LogPath), 0o755); err != nil {
		return nil, &InfrastructureError{Op: "create work dir", Err: err}
	}
	logFile, err := os.Create(res.LogPath)
	if err != nil {
		return nil, &InfrastructureError{Op: "create log", Err: err}
	}
	defer logFile.Close()

	staging := filepath.Join(workDir, "install.tmp-"+uuid.NewString())
	defer os.RemoveAll(staging)

	tail := newTailWriter(e.tailLines())
	out := io.Writer(io.MultiWriter(logFile, tail))
	if e.Observer != nil {
		out = io.MultiWriter(logFile, tail, e.Observer)
	}

	c := cmake.New(cmakeSrc, filepath.Join(workDir, "build"), staging)
	c.Program(program)
	c.Generator(e.Generator)
	c.BuildType(string(pl.Platform.BuildType))
	c.Environ(e.Env)
	c.Output(out)
	for _, prefix := range e.Prefixes {
		c.Use(prefix)
	}
	for _, p := range pl.Params {
		c.DefineTyped(p.Key, string(p.Type), p.Value)
	}

	logger.Debug("configure", "source", cmakeSrc, "params", len(pl.Params))
	if err := c.Configure(ctx); err != nil {
		return e.finish(ctx, res, tail, PhaseConfigure, err)
	}
	if onPhase != nil {
		onPhase(PhaseConfigure)
	}

	logger.Debug("compile", "jobs", e.Jobs)
	var buildArgs []string
	if e.Jobs > 0 {
		buildArgs = append(buildArgs, "--parallel", strconv.Itoa(e.Jobs))
	}
	if err := c.Build(ctx, buildArgs...); err != nil {
		return e.finish(ctx, res, tail, PhaseCompile, err)
	}
	if err := c.Install(ctx); err != nil {
		return e.finish(ctx, res, tail, PhaseCompile, err)
	}

	installDir := filepath.Join(workDir, "install")
	if err := os.RemoveAll(installDir); err != nil {
		return nil, &InfrastructureError{Op: "replace install tree", Err: err}
	}
	if err := os.Rename(staging, installDir); err != nil {
		return nil, &InfrastructureError{Op: "replace install tree", Err: err}
	}
	res.ArtifactDir = installDir
	res.Status = StatusSucceeded
	res.Finished = time.Now().UTC()
	if err := res.save(); err != nil {
		return nil, &InfrastructureError{Op: "write result", Err: err}
	}
	if onPhase != nil {
		onPhase(PhaseCompile)
	}
	logger.Info("build succeeded", "artifacts", installDir, "elapsed", res.Finished.Sub(res.Started))
	return res, nil
}

// finish turns a failed phase into a failed Result, or into an error when
// the failure was not the build's own.
func (e *Executor) finish(ctx context.Context, res *Result, tail *tailWriter, phase Phase, err error) (*Result, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s phase interrupted: %w", phase, ctxErr)
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return nil, &InfrastructureError{Op: string(phase), Err: err}
	}
	res.Status = StatusFailed
	res.FailedPhase = phase
	res.ExitCode = exitErr.ExitCode()
	res.Tail = tail.Lines()
	res.Finished = time.Now().UTC()
	if err := res.save(); err != nil {
		return nil, &InfrastructureError{Op: "write result", Err: err}
	}
	e.logger().Error("build failed", "recipe", res.Recipe, "phase", phase, "exit", res.ExitCode, "log", res.LogPath)
	return res, nil
}

// check resolves the cmake program and the cmake source directory.
func (e *Executor) check(srcDir string, pl *plan.Plan) (string, string, error) {
	if host := hostOS(); host != "" && pl.Platform.HostOS() != host {
		return "", "", &InfrastructureError{
			Op:  "check platform",
			Err: fmt.Errorf("cannot build for a %s host on %s", pl.Platform.HostOS(), host),
		}
	}
	name := e.CMake
	if name == "" {
		name = "cmake"
	}
	program, err := exec.LookPath(name)
	if err != nil {
		return "", "", &InfrastructureError{Op: "find cmake", Err: err}
	}
	cmakeSrc := filepath.Join(srcDir, filepath.FromSlash(pl.Recipe.SourceSubdir))
	if _, err := os.Stat(filepath.Join(cmakeSrc, "CMakeLists.txt")); err != nil {
		return "", "", &InfrastructureError{Op: "read source", Err: err}
	}
	return program, cmakeSrc, nil
}

func (e *Executor) tailLines() int {
	if e.TailLines > 0 {
		return e.TailLines
	}
	return DefaultTailLines
}

func (e *Executor) logger() hclog.Logger {
	if e.Logger == nil {
		return hclog.NewNullLogger()
	}
	return e.Logger
}

// hostOS maps the running OS onto platform OS names. It returns "" for
// systems without a platform name.
func hostOS() string {
	switch runtime.GOOS {
	case "linux":
		return recipe.Linux
	case "windows":
		return recipe.Windows
	case "darwin":
		return recipe.Macos
	case "freebsd":
		return recipe.FreeBSD
	}
	return ""
}
