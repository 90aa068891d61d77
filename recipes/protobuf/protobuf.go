// Package protobuf is the recipe for Google's Protocol Buffers.
package protobuf

import (
	"errors"
	"fmt"

	"github.com/goplus/llbuild/recipe"
)

// Version is the packaged protobuf release.
const Version = "v3.9.1"

// New returns the protobuf recipe.
func New() *recipe.Recipe {
	return &recipe.Recipe{
		Name:        "protobuf",
		Version:     Version,
		Description: "Protocol Buffers - Google's data interchange format",
		Homepage:    "https://github.com/protocolbuffers/protobuf",
		License:     "BSD-3-Clause",
		Topics:      []string{"protobuf", "protocol-buffers", "protocol-compiler", "serialization", "rpc"},
		Source: recipe.Source{
			URL:        "https://github.com/protocolbuffers/protobuf.git",
			Tag:        Version,
			Submodules: true,
		},
		Options: []recipe.Option{
			recipe.BoolOption("shared", false),
			recipe.BoolOption("with_zlib", false),
			withPrune(recipe.BoolOption("fPIC", true), isMSVC),
			recipe.BoolOption("lite", false),
		},
		Rules: []recipe.Rule{
			{Name: "msvc-minimum", Check: checkMSVCVersion},
			{Name: "shared-static-runtime", Check: checkSharedRuntime},
		},
		Params:       params(),
		SourceSubdir: "cmake",
		Patches: []recipe.Patch{{
			File:   "cmake/install.cmake",
			Old:    "set(_protobuf_libraries libprotobuf-lite libprotobuf)",
			New:    "set(_protobuf_libraries libprotobuf)",
			Reason: "keep libprotobuf-lite out of the installed package",
		}},
		Package: pkg(),
	}
}

func withPrune(o recipe.Option, prune func(recipe.Platform) bool) recipe.Option {
	o.Prune = prune
	return o
}

func isMSVC(p recipe.Platform) bool {
	return p.OS == recipe.Windows && p.Compiler == recipe.VisualStudio
}

func checkMSVCVersion(_ recipe.Configuration, p recipe.Platform) error {
	if !isMSVC(p) {
		return nil
	}
	if !recipe.AtLeast(p.CompilerVersion, "14") {
		return errors.New("On Windows Protobuf can only be built with Visual Studio 2015 or higher.")
	}
	return nil
}

func checkSharedRuntime(c recipe.Configuration, p recipe.Platform) error {
	if c.Bool("shared") && p.Runtime == recipe.RuntimeStatic {
		return fmt.Errorf("shared linkage is incompatible with the static %s runtime", p.Compiler)
	}
	return nil
}

// msvcRuntime spells the static-runtime choice as a CMAKE_MSVC_RUNTIME_LIBRARY value.
func msvcRuntime(static string) string {
	if static == "ON" {
		return "MultiThreaded$<$<CONFIG:Debug>:Debug>"
	}
	return "MultiThreaded$<$<CONFIG:Debug>:Debug>DLL"
}

func params() []recipe.Param {
	return []recipe.Param{
		{Key: "protobuf_BUILD_TESTS", Type: recipe.BoolParam, Value: constant("OFF")},
		{Key: "protobuf_WITH_ZLIB", Type: recipe.BoolParam, Option: "with_zlib"},
		{Key: "protobuf_BUILD_PROTOC_BINARIES", Type: recipe.BoolParam, Option: "lite", Invert: true},
		{Key: "protobuf_BUILD_PROTOBUF_LITE", Type: recipe.BoolParam, Option: "lite"},
		{Key: "BUILD_SHARED_LIBS", Type: recipe.BoolParam, Option: "shared"},
		{Key: "CMAKE_POSITION_INDEPENDENT_CODE", Type: recipe.BoolParam, Option: "fPIC"},
		{
			Key:  "protobuf_MSVC_STATIC_RUNTIME",
			Type: recipe.BoolParam,
			Value: func(_ recipe.Configuration, p recipe.Platform) (string, bool) {
				if p.Compiler != recipe.VisualStudio {
					return "", false
				}
				if p.Runtime == recipe.RuntimeStatic {
					return "ON", true
				}
				return "OFF", true
			},
			Renames: []recipe.Rename{{
				Since:   "3.15",
				Key:     "CMAKE_MSVC_RUNTIME_LIBRARY",
				Type:    recipe.StringParam,
				Convert: msvcRuntime,
			}},
		},
	}
}

func constant(v string) func(recipe.Configuration, recipe.Platform) (string, bool) {
	return func(recipe.Configuration, recipe.Platform) (string, bool) { return v, true }
}

func notLite(c recipe.Configuration, _ recipe.Platform) bool {
	return !c.Bool("lite")
}

func pkg() recipe.Package {
	return recipe.Package{
		Artifacts: []recipe.Artifact{
			{Category: "license", From: recipe.SourceTree, Pattern: "LICENSE", Dest: "licenses", Required: true},
			{Category: "cmake", From: recipe.SourceTree, Pattern: "cmake/**", Dest: "cmake"},
			{Category: "headers", From: recipe.InstallTree, Pattern: "include/**", Dest: "include", Required: true},
			{Category: "library", From: recipe.InstallTree, Pattern: "lib/*protobuf*", Dest: "lib", Required: true},
			{Category: "libraries", From: recipe.InstallTree, Pattern: "lib/**", Dest: "lib"},
			{Category: "protoc", From: recipe.InstallTree, Pattern: "bin/protoc*", Dest: "bin", Required: true, When: notLite},
			{Category: "binaries", From: recipe.InstallTree, Pattern: "bin/**", Dest: "bin"},
		},
		Exclude:      []string{"lib/pkgconfig"},
		DebugPostfix: "d",
		// Only Linux debug builds get their postfixed libraries copied back
		// to the canonical name; elsewhere consumers link the "d" names.
		// The installed lib/cmake/protobuf/protobuf-targets-debug.cmake is
		// not rewritten and still names libprotobufd, so on Linux Debug
		// consumers should link Libraries rather than find_package(CONFIG).
		NormalizeDebug: func(p recipe.Platform) bool { return p.OS == recipe.Linux },
		Info:           info,
	}
}

func info(c recipe.Configuration, p recipe.Platform, info *recipe.Info) {
	bin := info.Path("bin")
	info.AppendPath("PATH", bin)
	info.SetEnv("PROTOC_BIN", info.Path("bin", "protoc"+p.ExeSuffix()))

	if p.OS == recipe.Linux {
		info.Libraries = append(info.Libraries, "pthread")
		if (p.Compiler == recipe.Clang && p.Arch == "x86") || p.IsARM() {
			info.Libraries = append(info.Libraries, "atomic")
		}
	}
	if p.OS == recipe.Windows && c.Bool("shared") {
		info.Defines = append(info.Defines, "PROTOBUF_USE_DLLS")
	}
	info.CMakeName = "Protobuf"
}
