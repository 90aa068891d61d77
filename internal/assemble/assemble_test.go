package assemble

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/goplus/llbuild/internal/execute"
	"github.com/goplus/llbuild/internal/plan"
	"github.com/goplus/llbuild/recipe"
	"github.com/goplus/llbuild/recipes/protobuf"
)

func linux(bt recipe.BuildType) recipe.Platform {
	return recipe.Platform{
		OS:              recipe.Linux,
		Arch:            "x86_64",
		Compiler:        recipe.GCC,
		CompilerVersion: "11",
		Runtime:         recipe.RuntimeDynamic,
		BuildType:       bt,
	}
}

func writeFiles(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, name := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// buildResult fakes a successful protobuf build on p with the given
// installed files.
func buildResult(t *testing.T, p recipe.Platform, overrides map[string]string, installed ...string) *execute.Result {
	t.Helper()
	pl, err := plan.Resolve(protobuf.New(), overrides, p)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	src, install := t.TempDir(), t.TempDir()
	writeFiles(t, src, "LICENSE", "cmake/CMakeLists.txt", "cmake/install.cmake")
	writeFiles(t, install, installed...)
	return &execute.Result{
		ID:          "build-1",
		Recipe:      pl.Recipe.String(),
		PlanID:      pl.ID(),
		SourceDir:   src,
		ArtifactDir: install,
		Status:      execute.StatusSucceeded,
		Plan:        pl,
	}
}

var protobufInstall = []string{
	"include/google/protobuf/message.h",
	"lib/libprotobuf.a",
	"lib/libprotobuf-lite.a",
	"lib/libprotoc.a",
	"lib/pkgconfig/protobuf.pc",
	"lib/cmake/protobuf/protobuf-config.cmake",
	"bin/protoc",
}

func TestAssembleLinux(t *testing.T) {
	ws := t.TempDir()
	res := buildResult(t, linux(recipe.Release), map[string]string{"shared": "false", "with_zlib": "false"}, protobufInstall...)
	m, err := (&Assembler{Workspace: ws}).Assemble(res)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	root := Dir(ws, res.Plan)
	if m.Root != root {
		t.Errorf("Root = %s, want %s", m.Root, root)
	}
	if want := []string{"protoc", "protobuf-lite", "protobuf", "pthread"}; !reflect.DeepEqual(m.Libraries, want) {
		t.Errorf("Libraries = %v, want %v", m.Libraries, want)
	}
	for _, f := range []string{
		"licenses/LICENSE",
		"cmake/CMakeLists.txt",
		"include/google/protobuf/message.h",
		"lib/libprotobuf.a",
		"lib/cmake/protobuf/protobuf-config.cmake",
		"bin/protoc",
		MetadataFile,
	} {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(f))); err != nil {
			t.Errorf("package missing %s: %v", f, err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "lib", "pkgconfig")); !errors.Is(err, os.ErrNotExist) {
		t.Error("pkgconfig was not excluded")
	}

	bin := filepath.Join(root, "bin")
	if got := m.Env["PROTOC_BIN"]; got != filepath.Join(bin, "protoc") {
		t.Errorf("PROTOC_BIN = %s", got)
	}
	if got := m.PathEnv["PATH"]; len(got) != 1 || got[0] != bin {
		t.Errorf("PATH = %v", got)
	}
	if !reflect.DeepEqual(m.BinDirs, []string{bin}) ||
		!reflect.DeepEqual(m.IncludeDirs, []string{filepath.Join(root, "include")}) ||
		!reflect.DeepEqual(m.LibDirs, []string{filepath.Join(root, "lib")}) {
		t.Errorf("dirs = %v %v %v", m.IncludeDirs, m.LibDirs, m.BinDirs)
	}
	if m.CMakeName != "Protobuf" || len(m.Defines) != 0 {
		t.Errorf("CMakeName = %q, Defines = %v", m.CMakeName, m.Defines)
	}

	read, err := ReadMetadata(root)
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if !reflect.DeepEqual(read, m) {
		t.Errorf("ReadMetadata = %+v, want %+v", read, m)
	}

	entries, _ := os.ReadDir(filepath.Join(ws, "packages"))
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("staging dir %s left behind", e.Name())
		}
	}
}

func TestAssembleLibrarySort(t *testing.T) {
	res := buildResult(t, linux(recipe.Release), nil,
		"include/a.h", "lib/libprotobuf.a", "lib/libprotobuf.so", "lib/libprotoc.a", "bin/protoc")
	m, err := (&Assembler{Workspace: t.TempDir()}).Assemble(res)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if want := []string{"protoc", "protobuf", "pthread"}; !reflect.DeepEqual(m.Libraries, want) {
		t.Errorf("Libraries = %v, want %v", m.Libraries, want)
	}
}

func TestAssembleRecipeNaming(t *testing.T) {
	res := buildResult(t, linux(recipe.Release), nil,
		"include/a.h", "lib/libprotobuf.lib", "lib/libprotoc.a", "bin/protoc")
	res.Plan.Recipe.Package.Naming = func(recipe.Platform) recipe.Naming {
		return recipe.Naming{Prefix: "lib", Suffixes: []string{".a", ".lib"}}
	}
	m, err := (&Assembler{Workspace: t.TempDir()}).Assemble(res)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if want := []string{"protoc", "protobuf", "pthread"}; !reflect.DeepEqual(m.Libraries, want) {
		t.Errorf("Libraries = %v, want %v", m.Libraries, want)
	}
}

func TestAssembleMissingRequired(t *testing.T) {
	ws := t.TempDir()
	res := buildResult(t, linux(recipe.Release), nil, "include/a.h", "bin/protoc")
	_, err := (&Assembler{Workspace: ws}).Assemble(res)
	var missing *MissingRequiredArtifactError
	if !errors.As(err, &missing) {
		t.Fatalf("Assemble = %v, want *MissingRequiredArtifactError", err)
	}
	if missing.Category != "library" || missing.Pattern != "lib/*protobuf*" {
		t.Errorf("missing = %+v", missing)
	}
	if _, err := os.Stat(Dir(ws, res.Plan)); !errors.Is(err, os.ErrNotExist) {
		t.Error("failed assembly left a package")
	}
}

func TestAssembleOptionalAbsent(t *testing.T) {
	// lite builds no protoc; the protoc artifact does not apply and the
	// optional binaries artifact is skipped.
	res := buildResult(t, linux(recipe.Release), map[string]string{"lite": "true"},
		"include/a.h", "lib/libprotobuf-lite.a")
	m, err := (&Assembler{Workspace: t.TempDir()}).Assemble(res)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(m.BinDirs) != 0 {
		t.Errorf("BinDirs = %v, want none", m.BinDirs)
	}
	if want := []string{"protobuf-lite", "pthread"}; !reflect.DeepEqual(m.Libraries, want) {
		t.Errorf("Libraries = %v, want %v", m.Libraries, want)
	}
}

func TestAssembleFailedBuild(t *testing.T) {
	ws := t.TempDir()
	res := buildResult(t, linux(recipe.Release), nil, protobufInstall...)
	res.Status = execute.StatusFailed
	res.FailedPhase = execute.PhaseCompile

	m, err := (&Assembler{Workspace: ws}).Assemble(res)
	var aerr *Error
	if !errors.As(err, &aerr) || m != nil {
		t.Fatalf("Assemble = %v, %v, want *Error and no metadata", m, err)
	}
	if _, err := os.Stat(Dir(ws, res.Plan)); !errors.Is(err, os.ErrNotExist) {
		t.Error("failed build produced a package")
	}
}

func TestAssembleDebugNormalized(t *testing.T) {
	res := buildResult(t, linux(recipe.Debug), nil,
		"include/a.h",
		"lib/libprotobufd.a",
		"lib/libprotocd.a",
		"lib/libprotobufd.so.3.9.1.0",
		"lib/cmake/protobuf/protobuf-targets-debug.cmake",
		"bin/protoc",
	)
	if err := os.Symlink("libprotobufd.so.3.9.1.0", filepath.Join(res.ArtifactDir, "lib", "libprotobufd.so")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	m, err := (&Assembler{Workspace: t.TempDir()}).Assemble(res)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if want := []string{"protoc", "protobuf", "pthread"}; !reflect.DeepEqual(m.Libraries, want) {
		t.Errorf("Libraries = %v, want %v", m.Libraries, want)
	}
	lib := filepath.Join(m.Root, "lib")
	for _, f := range []string{"libprotobuf.a", "libprotoc.a", "libprotobuf.so.3.9.1.0"} {
		if _, err := os.Stat(filepath.Join(lib, f)); err != nil {
			t.Errorf("missing normalized %s: %v", f, err)
		}
	}
	for _, f := range []string{"libprotobufd.a", "libprotocd.a", "libprotobufd.so"} {
		if _, err := os.Lstat(filepath.Join(lib, f)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("postfixed %s still present", f)
		}
	}
	target, err := os.Readlink(filepath.Join(lib, "libprotobuf.so"))
	if err != nil || target != "libprotobuf.so.3.9.1.0" {
		t.Errorf("libprotobuf.so -> %q, %v", target, err)
	}
	// CMake package files are copied as installed.
	data, err := os.ReadFile(filepath.Join(lib, "cmake", "protobuf", "protobuf-targets-debug.cmake"))
	if err != nil || string(data) != "lib/cmake/protobuf/protobuf-targets-debug.cmake" {
		t.Errorf("protobuf-targets-debug.cmake = %q, %v", data, err)
	}
}

func TestAssembleDebugKeptOnMacos(t *testing.T) {
	p := recipe.Platform{
		OS:        recipe.Macos,
		Arch:      "armv8",
		Compiler:  recipe.AppleClang,
		Runtime:   recipe.RuntimeDynamic,
		BuildType: recipe.Debug,
	}
	res := buildResult(t, p, nil, "include/a.h", "lib/libprotobufd.a", "lib/libprotocd.a", "bin/protoc")
	m, err := (&Assembler{Workspace: t.TempDir()}).Assemble(res)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if want := []string{"protocd", "protobufd"}; !reflect.DeepEqual(m.Libraries, want) {
		t.Errorf("Libraries = %v, want %v", m.Libraries, want)
	}
}

func TestAssembleReplacesPackage(t *testing.T) {
	ws := t.TempDir()
	a := &Assembler{Workspace: ws}
	res := buildResult(t, linux(recipe.Release), nil, protobufInstall...)
	if _, err := a.Assemble(res); err != nil {
		t.Fatal(err)
	}
	os.Remove(filepath.Join(res.ArtifactDir, "lib", "libprotobuf-lite.a"))
	res.ID = "build-2"
	m, err := a.Assemble(res)
	if err != nil {
		t.Fatal(err)
	}
	if m.BuildID != "build-2" {
		t.Errorf("BuildID = %s", m.BuildID)
	}
	if _, err := os.Stat(filepath.Join(m.Root, "lib", "libprotobuf-lite.a")); !errors.Is(err, os.ErrNotExist) {
		t.Error("stale file from the previous package survived")
	}
}
