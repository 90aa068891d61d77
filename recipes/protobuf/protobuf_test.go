package protobuf

import (
	"slices"
	"strings"
	"testing"

	"github.com/goplus/llbuild/recipe"
)

func linux() recipe.Platform {
	return recipe.Platform{
		OS: recipe.Linux, Arch: "x86_64", Compiler: recipe.GCC, CompilerVersion: "11",
		Runtime: recipe.RuntimeDynamic, BuildType: recipe.Release,
	}
}

func msvc(version string, rt recipe.Runtime) recipe.Platform {
	return recipe.Platform{
		OS: recipe.Windows, Arch: "x86_64", Compiler: recipe.VisualStudio, CompilerVersion: version,
		Runtime: rt, BuildType: recipe.Release,
	}
}

func TestRecipeValid(t *testing.T) {
	r := New()
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if r.Source.Tag != Version || !r.Source.Submodules {
		t.Errorf("Source = %+v", r.Source)
	}
	var names []string
	for _, o := range r.Options {
		names = append(names, o.Name)
	}
	if got, want := strings.Join(names, " "), "shared with_zlib fPIC lite"; got != want {
		t.Errorf("options = %q, want %q", got, want)
	}
}

func TestFPICPrunedOnMSVC(t *testing.T) {
	o, ok := New().Option("fPIC")
	if !ok {
		t.Fatal("fPIC not declared")
	}
	if !o.PrunedOn(msvc("16", recipe.RuntimeDynamic)) {
		t.Error("fPIC kept on Visual Studio")
	}
	if o.PrunedOn(linux()) {
		t.Error("fPIC pruned on Linux")
	}
	mingw := msvc("16", recipe.RuntimeDynamic)
	mingw.Compiler = recipe.GCC
	if o.PrunedOn(mingw) {
		t.Error("fPIC pruned on Windows gcc")
	}
}

func TestRules(t *testing.T) {
	shared := recipe.NewConfiguration(map[string]string{"shared": recipe.True})
	static := recipe.NewConfiguration(map[string]string{"shared": recipe.False})

	if err := checkMSVCVersion(static, msvc("12", recipe.RuntimeDynamic)); err == nil {
		t.Error("Visual Studio 12 accepted")
	}
	if err := checkMSVCVersion(static, msvc("14", recipe.RuntimeDynamic)); err != nil {
		t.Errorf("Visual Studio 14 rejected: %v", err)
	}
	if err := checkMSVCVersion(static, linux()); err != nil {
		t.Errorf("gcc rejected by msvc rule: %v", err)
	}

	staticRT := linux()
	staticRT.Runtime = recipe.RuntimeStatic
	if err := checkSharedRuntime(shared, staticRT); err == nil {
		t.Error("shared with static runtime accepted")
	}
	if err := checkSharedRuntime(static, staticRT); err != nil {
		t.Errorf("static with static runtime rejected: %v", err)
	}
}

func TestInfo(t *testing.T) {
	tests := []struct {
		name     string
		platform recipe.Platform
		shared   bool
		wantLibs []string
		defines  []string
		protoc   string
	}{
		{"linux gcc", linux(), false, []string{"protoc", "protobuf", "pthread"}, nil, "protoc"},
		{"linux clang x86", func() recipe.Platform {
			p := linux()
			p.Compiler, p.Arch = recipe.Clang, "x86"
			return p
		}(), false, []string{"protoc", "protobuf", "pthread", "atomic"}, nil, "protoc"},
		{"linux armv8", func() recipe.Platform {
			p := linux()
			p.Arch = "armv8"
			return p
		}(), false, []string{"protoc", "protobuf", "pthread", "atomic"}, nil, "protoc"},
		{"windows shared", msvc("16", recipe.RuntimeDynamic), true, []string{"protoc", "protobuf"}, []string{"PROTOBUF_USE_DLLS"}, "protoc.exe"},
		{"macos", recipe.Platform{OS: recipe.Macos, Arch: "armv8", Compiler: recipe.AppleClang}, false, []string{"protoc", "protobuf"}, nil, "protoc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := recipe.NewConfiguration(map[string]string{"shared": recipe.False})
			if tt.shared {
				c = recipe.NewConfiguration(map[string]string{"shared": recipe.True})
			}
			in := &recipe.Info{Root: "/pkg", Libraries: []string{"protoc", "protobuf"}}
			info(c, tt.platform, in)
			if !slices.Equal(in.Libraries, tt.wantLibs) {
				t.Errorf("Libraries = %v, want %v", in.Libraries, tt.wantLibs)
			}
			if !slices.Equal(in.Defines, tt.defines) {
				t.Errorf("Defines = %v, want %v", in.Defines, tt.defines)
			}
			if got := in.Env["PROTOC_BIN"]; !strings.HasSuffix(got, tt.protoc) {
				t.Errorf("PROTOC_BIN = %q, want suffix %q", got, tt.protoc)
			}
			if len(in.PathEnv["PATH"]) != 1 {
				t.Errorf("PATH = %v", in.PathEnv["PATH"])
			}
			if in.CMakeName != "Protobuf" {
				t.Errorf("CMakeName = %q", in.CMakeName)
			}
		})
	}
}

func TestMSVCRuntimeRename(t *testing.T) {
	var p recipe.Param
	for _, x := range New().Params {
		if x.Key == "protobuf_MSVC_STATIC_RUNTIME" {
			p = x
		}
	}
	if len(p.Renames) != 1 {
		t.Fatalf("protobuf_MSVC_STATIC_RUNTIME renames = %v", p.Renames)
	}
	rn := p.Renames[0]
	if got := rn.Convert("ON"); got != "MultiThreaded$<$<CONFIG:Debug>:Debug>" {
		t.Errorf("Convert(ON) = %q", got)
	}
	if got := rn.Convert("OFF"); !strings.HasSuffix(got, "DLL") {
		t.Errorf("Convert(OFF) = %q", got)
	}
	if _, ok := p.Value(recipe.Configuration{}, linux()); ok {
		t.Error("static runtime param emitted for gcc")
	}
}
