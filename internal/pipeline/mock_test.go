package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/goplus/llbuild/internal/execute"
	"github.com/goplus/llbuild/internal/plan"
	"github.com/goplus/llbuild/recipe"
)

// mockAcquirer returns a prepared source tree.
type mockAcquirer struct {
	dir string
	err error
}

func (m *mockAcquirer) Acquire(ctx context.Context, r *recipe.Recipe) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.dir, nil
}

// mockExecutor fakes builds: it installs the given files into a private
// directory per plan, or fails in the given phase.
type mockExecutor struct {
	root      string
	installed []string
	failIn    execute.Phase
	failWhen  func(pl *plan.Plan) bool

	mu    sync.Mutex
	calls int
}

func (m *mockExecutor) Execute(ctx context.Context, srcDir string, pl *plan.Plan, onPhase func(execute.Phase)) (*execute.Result, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	res := &execute.Result{
		ID:        "build-" + pl.ID(),
		Recipe:    pl.Recipe.String(),
		PlanID:    pl.ID(),
		SourceDir: srcDir,
		WorkDir:   filepath.Join(m.root, pl.Dirname()),
		Plan:      pl,
	}
	failIn := m.failIn
	if m.failWhen != nil && !m.failWhen(pl) {
		failIn = ""
	}
	if failIn == execute.PhaseConfigure {
		res.Status, res.FailedPhase, res.ExitCode = execute.StatusFailed, failIn, 1
		return res, nil
	}
	onPhase(execute.PhaseConfigure)
	if failIn == execute.PhaseCompile {
		res.Status, res.FailedPhase, res.ExitCode = execute.StatusFailed, failIn, 2
		res.Tail = []string{"error: boom"}
		return res, nil
	}
	res.ArtifactDir = filepath.Join(res.WorkDir, "install")
	for _, f := range m.installed {
		path := filepath.Join(res.ArtifactDir, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, []byte(f), 0o644); err != nil {
			return nil, err
		}
	}
	res.Status = execute.StatusSucceeded
	onPhase(execute.PhaseCompile)
	return res, nil
}

func (m *mockExecutor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var errNoNetwork = errors.New("network unreachable")
