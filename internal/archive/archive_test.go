package archive

import (
	"archive/tar"
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func packageTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"llbuild.json":          "{}",
		"include/google/a.h":    "int a;",
		"lib/libprotobuf.a":     "archive",
		"bin/protoc":            "#!/bin/sh\n",
		"licenses/LICENSE":      "BSD",
		"lib/cmake/x/cfg.cmake": "set()",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		mode := os.FileMode(0o644)
		if filepath.Dir(name) == "bin" {
			mode = 0o755
		}
		if err := os.WriteFile(path, []byte(content), mode); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

var wantNames = []string{
	"bin/protoc",
	"include/google/a.h",
	"lib/cmake/x/cfg.cmake",
	"lib/libprotobuf.a",
	"licenses/LICENSE",
	"llbuild.json",
}

func TestWriteZip(t *testing.T) {
	src := packageTree(t)
	dest := filepath.Join(t.TempDir(), "out", "pkg.zip")
	if err := Write(src, dest); err != nil {
		t.Fatalf("Write: %v", err)
	}
	r, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
		if f.Name == "include/google/a.h" {
			rc, _ := f.Open()
			data, _ := io.ReadAll(rc)
			rc.Close()
			if string(data) != "int a;" {
				t.Errorf("a.h = %q", data)
			}
		}
	}
	sort.Strings(names)
	if !reflect.DeepEqual(names, wantNames) {
		t.Errorf("zip entries = %v, want %v", names, wantNames)
	}
}

func TestWriteTarZst(t *testing.T) {
	src := packageTree(t)
	dest := filepath.Join(t.TempDir(), "pkg.tar.zst")
	if err := Write(src, dest); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f, err := os.Open(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	tr := tar.NewReader(zr)
	var names []string
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, h.Name)
		if h.Name == "bin/protoc" && h.FileInfo().Mode().Perm()&0o100 == 0 {
			t.Errorf("protoc lost its executable bit: %v", h.FileInfo().Mode())
		}
	}
	if !reflect.DeepEqual(names, wantNames) {
		t.Errorf("tar entries = %v, want %v", names, wantNames)
	}
}

func TestWriteDir(t *testing.T) {
	src := packageTree(t)
	dest := filepath.Join(t.TempDir(), "pkg")
	if err := Write(src, dest); err != nil {
		t.Fatalf("Write: %v", err)
	}
	for _, name := range wantNames {
		if _, err := os.Stat(filepath.Join(dest, filepath.FromSlash(name))); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if err := Write(src, dest); err == nil {
		t.Error("Write over an existing directory succeeded")
	}
}

func TestWriteNoPartialArchive(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "pkg.zip")
	if err := Write(filepath.Join(dir, "missing"), dest); err == nil {
		t.Fatal("Write of a missing tree succeeded")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("leftovers after failed write: %v", entries)
	}
}

func TestDeploy(t *testing.T) {
	src := packageTree(t)
	dest := t.TempDir()
	got, err := Deploy(src, dest)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if want := []string{filepath.Join(dest, "protoc")}; !reflect.DeepEqual(got, want) {
		t.Errorf("Deploy = %v, want %v", got, want)
	}
	if got, err := Deploy(t.TempDir(), dest); err != nil || got != nil {
		t.Errorf("Deploy without bin = %v, %v", got, err)
	}
}
