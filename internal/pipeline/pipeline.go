// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline drives a recipe through planning, acquisition, build
// and assembly, and runs several configurations side by side.
package pipeline

import (
	"context"
	"errors"
	"runtime"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/goplus/llbuild/internal/assemble"
	"github.com/goplus/llbuild/internal/execute"
	"github.com/goplus/llbuild/internal/plan"
	"github.com/goplus/llbuild/recipe"
)

// Acquirer materializes a recipe's source tree.
type Acquirer interface {
	Acquire(ctx context.Context, r *recipe.Recipe) (string, error)
}

// Executor builds a source tree according to a plan.
type Executor interface {
	Execute(ctx context.Context, srcDir string, pl *plan.Plan, onPhase func(execute.Phase)) (*execute.Result, error)
}

// Assembler packages a successful build.
type Assembler interface {
	Assemble(res *execute.Result) (*assemble.Metadata, error)
}

// Request asks for one configuration of a recipe.
type Request struct {
	Recipe    *recipe.Recipe
	Overrides map[string]string
	Platform  recipe.Platform
}

// Outcome is what one run produced. Metadata is set only when State is
// Assembled.
type Outcome struct {
	Request  Request
	State    State
	History  []State
	Plan     *plan.Plan
	Source   string
	Result   *execute.Result
	Metadata *assemble.Metadata
	Err      error
}

// Pipeline wires the four stages together.
type Pipeline struct {
	Acquirer  Acquirer
	Executor  Executor
	Assembler Assembler
	Logger    hclog.Logger
	// Limit bounds concurrent runs in RunAll; 0 means GOMAXPROCS.
	Limit int
}

// Run takes req through every stage. Planning comes first, so an invalid
// configuration is rejected before anything is fetched or built.
//
// A failed build is returned as an Outcome in state Failed together with
// an *execute.BuildFailure.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Outcome, error) {
	logger := p.logger().With("recipe", req.Recipe.String())
	out := &Outcome{Request: req}
	tr := NewTracker(func(s State) { logger.Debug("state", "state", s) })
	defer func() {
		out.State = tr.State()
		out.History = tr.History()
	}()

	fail := func(err error) (*Outcome, error) {
		tr.Fail()
		out.Err = err
		logger.Error("pipeline failed", "state", tr.State(), "error", err)
		return out, err
	}

	pl, err := plan.Resolve(req.Recipe, req.Overrides, req.Platform)
	if err != nil {
		return fail(err)
	}
	out.Plan = pl
	logger = logger.With("plan", pl.ID())
	if err := tr.Advance(Planned); err != nil {
		return fail(err)
	}

	src, err := p.Acquirer.Acquire(ctx, req.Recipe)
	if err != nil {
		return fail(err)
	}
	out.Source = src
	if err := tr.Advance(Acquired); err != nil {
		return fail(err)
	}

	var phaseErr error
	res, err := p.Executor.Execute(ctx, src, pl, func(ph execute.Phase) {
		next := Configured
		if ph == execute.PhaseCompile {
			next = Built
		}
		if err := tr.Advance(next); err != nil && phaseErr == nil {
			phaseErr = err
		}
	})
	if err != nil {
		return fail(err)
	}
	out.Result = res
	if phaseErr != nil {
		return fail(phaseErr)
	}
	if !res.Succeeded() {
		return fail(res.Err())
	}
	if tr.State() != Built {
		return fail(&StateError{From: tr.State(), To: Assembled})
	}

	m, err := p.Assembler.Assemble(res)
	if err != nil {
		return fail(err)
	}
	if err := tr.Advance(Assembled); err != nil {
		return fail(err)
	}
	out.Metadata = m
	return out, nil
}

// RunAll runs reqs concurrently, each in its own build and package
// directories. A failing run does not cancel the others. Outcomes are in
// request order; the returned error joins every run's error.
func (p *Pipeline) RunAll(ctx context.Context, reqs []Request) ([]*Outcome, error) {
	outcomes := make([]*Outcome, len(reqs))
	errs := make([]error, len(reqs))

	var eg errgroup.Group
	limit := p.Limit
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	eg.SetLimit(limit)
	for i, req := range reqs {
		eg.Go(func() error {
			outcomes[i], errs[i] = p.Run(ctx, req)
			return nil
		})
	}
	eg.Wait()
	return outcomes, errors.Join(errs...)
}

func (p *Pipeline) logger() hclog.Logger {
	if p.Logger == nil {
		return hclog.NewNullLogger()
	}
	return p.Logger
}
