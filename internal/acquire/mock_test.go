package acquire

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// mockVCS implements vcs.VCS by copying files into the target directory.
type mockVCS struct {
	mu     sync.Mutex
	files  map[string]string
	tags   []string
	commit string
	syncs  int

	syncFunc func(ctx context.Context, remote, ref, dir string) error
}

func newMockVCS(files map[string]string) *mockVCS {
	return &mockVCS{files: files, tags: []string{"v3.9.1"}, commit: "0123abcd"}
}

func (m *mockVCS) Sync(ctx context.Context, remote, ref, dir string) error {
	m.mu.Lock()
	m.syncs++
	m.mu.Unlock()
	if m.syncFunc != nil {
		return m.syncFunc(ctx, remote, ref, dir)
	}
	found := false
	for _, t := range m.tags {
		found = found || t == ref
	}
	if !found {
		return errors.New("couldn't find remote ref " + ref)
	}
	for name, content := range m.files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockVCS) Submodules(ctx context.Context, dir string) error { return nil }

func (m *mockVCS) Head(ctx context.Context, dir string) (string, error) {
	if _, err := os.Stat(dir); err != nil {
		return "", err
	}
	return m.commit, nil
}

func (m *mockVCS) Tags(ctx context.Context, remote string) ([]string, error) {
	return m.tags, nil
}

func (m *mockVCS) syncCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncs
}
