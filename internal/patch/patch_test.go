package patch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goplus/llbuild/recipe"
)

const installCMake = `# install rules
set(_protobuf_libraries libprotobuf-lite libprotobuf)
foreach(_library ${_protobuf_libraries})
endforeach()
`

var dropLite = recipe.Patch{
	File: "cmake/install.cmake",
	Old:  "set(_protobuf_libraries libprotobuf-lite libprotobuf)",
	New:  "set(_protobuf_libraries libprotobuf)",
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestApply(t *testing.T) {
	root := writeTree(t, map[string]string{"cmake/install.cmake": installCMake})
	if err := Check(root, []recipe.Patch{dropLite}); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if err := Apply(root, []recipe.Patch{dropLite}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "cmake", "install.cmake"))
	if err != nil {
		t.Fatal(err)
	}
	want := `# install rules
set(_protobuf_libraries libprotobuf)
foreach(_library ${_protobuf_libraries})
endforeach()
`
	if string(data) != want {
		t.Errorf("patched file =\n%s\nwant\n%s", data, want)
	}
	entries, _ := os.ReadDir(filepath.Join(root, "cmake"))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}

	// A second application no longer finds the snippet.
	var mismatch *MismatchError
	if err := Apply(root, []recipe.Patch{dropLite}); !errors.As(err, &mismatch) || mismatch.Count != 0 {
		t.Errorf("re-Apply = %v, want MismatchError{Count: 0}", err)
	}
}

func TestApplyAmbiguous(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "x\nx\n"})
	err := Apply(root, []recipe.Patch{{File: "a.txt", Old: "x", New: "y"}})
	var mismatch *MismatchError
	if !errors.As(err, &mismatch) || mismatch.Count != 2 {
		t.Fatalf("Apply = %v, want MismatchError{Count: 2}", err)
	}
	data, _ := os.ReadFile(filepath.Join(root, "a.txt"))
	if string(data) != "x\nx\n" {
		t.Errorf("file modified despite mismatch: %q", data)
	}
}

func TestApplyMissingFile(t *testing.T) {
	root := t.TempDir()
	err := Apply(root, []recipe.Patch{dropLite})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Apply = %v, want ErrNotExist", err)
	}
	if err := Check(root, []recipe.Patch{dropLite}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Check = %v, want ErrNotExist", err)
	}
}

func TestApplyChained(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "one"})
	chain := []recipe.Patch{
		{File: "a.txt", Old: "one", New: "two"},
		{File: "a.txt", Old: "two", New: "three"},
	}
	if err := Check(root, chain); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if data, _ := os.ReadFile(filepath.Join(root, "a.txt")); string(data) != "one" {
		t.Fatalf("Check wrote a.txt: %q", data)
	}
	err := Apply(root, chain)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if data, _ := os.ReadFile(filepath.Join(root, "a.txt")); string(data) != "three" {
		t.Errorf("a.txt = %q, want three", data)
	}
}

func TestCheckWritesNothing(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "one", "b.txt": "two"})
	patches := []recipe.Patch{
		{File: "a.txt", Old: "one", New: "uno"},
		{File: "b.txt", Old: "three", New: "tres"},
	}
	var mismatch *MismatchError
	if err := Check(root, patches); !errors.As(err, &mismatch) || mismatch.File != "b.txt" {
		t.Fatalf("Check = %v, want MismatchError for b.txt", err)
	}
	if data, _ := os.ReadFile(filepath.Join(root, "a.txt")); string(data) != "one" {
		t.Errorf("a.txt = %q, want it untouched", data)
	}
}
