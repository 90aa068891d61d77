package recipe

import (
	"errors"
	"fmt"
	"strings"
)

// Operating systems, as spelled in platform descriptors.
const (
	Linux   = "Linux"
	Windows = "Windows"
	Macos   = "Macos"
	FreeBSD = "FreeBSD"
)

// Compilers, as spelled in platform descriptors.
const (
	GCC          = "gcc"
	Clang        = "clang"
	AppleClang   = "apple-clang"
	VisualStudio = "Visual Studio"
)

// Runtime selects how the C/C++ runtime is linked.
type Runtime string

const (
	RuntimeDynamic Runtime = "dynamic"
	RuntimeStatic  Runtime = "static"
)

// BuildType is the CMAKE_BUILD_TYPE of a build.
type BuildType string

const (
	Release BuildType = "Release"
	Debug   BuildType = "Debug"
)

// Platform describes the target of one build. It is passed explicitly to
// every stage; nothing downstream consults the host environment instead.
type Platform struct {
	OS              string    `toml:"os" json:"os" yaml:"os"`
	OSBuild         string    `toml:"os_build" json:"osBuild" yaml:"osBuild"`
	Arch            string    `toml:"arch" json:"arch" yaml:"arch"`
	Compiler        string    `toml:"compiler" json:"compiler" yaml:"compiler"`
	CompilerVersion string    `toml:"compiler_version" json:"compilerVersion,omitempty" yaml:"compilerVersion,omitempty"`
	Runtime         Runtime   `toml:"runtime" json:"runtime" yaml:"runtime"`
	BuildType       BuildType `toml:"build_type" json:"buildType" yaml:"buildType"`
	CMakeVersion    string    `toml:"cmake_version" json:"cmakeVersion,omitempty" yaml:"cmakeVersion,omitempty"`
}

// Validate reports whether p is complete enough to plan against.
func (p Platform) Validate() error {
	var errs []error
	if p.OS == "" {
		errs = append(errs, errors.New("os is empty"))
	}
	if p.Arch == "" {
		errs = append(errs, errors.New("arch is empty"))
	}
	if p.Compiler == "" {
		errs = append(errs, errors.New("compiler is empty"))
	}
	switch p.Runtime {
	case RuntimeDynamic, RuntimeStatic:
	default:
		errs = append(errs, fmt.Errorf("unknown runtime %q", p.Runtime))
	}
	switch p.BuildType {
	case Release, Debug:
	default:
		errs = append(errs, fmt.Errorf("unknown build type %q", p.BuildType))
	}
	if p.CMakeVersion != "" && !validVersion(p.CMakeVersion) {
		errs = append(errs, fmt.Errorf("invalid cmake version %q", p.CMakeVersion))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid platform: %w", err)
	}
	return nil
}

// HostOS returns the OS the build runs on, defaulting to the target OS.
func (p Platform) HostOS() string {
	if p.OSBuild != "" {
		return p.OSBuild
	}
	return p.OS
}

// ExeSuffix returns the executable suffix of the build host.
func (p Platform) ExeSuffix() string {
	if p.HostOS() == Windows {
		return ".exe"
	}
	return ""
}

// IsARM reports whether the target architecture is an ARM variant.
func (p Platform) IsARM() bool {
	return strings.Contains(p.Arch, "arm")
}

// String returns a stable, path-safe description of p.
func (p Platform) String() string {
	compiler := strings.ReplaceAll(p.Compiler, " ", "")
	parts := []string{p.OS, p.Arch, compiler}
	if p.CompilerVersion != "" {
		parts = append(parts, p.CompilerVersion)
	}
	parts = append(parts, string(p.Runtime), string(p.BuildType))
	if p.CMakeVersion != "" {
		parts = append(parts, "cmake"+p.CMakeVersion)
	}
	if p.OSBuild != "" && p.OSBuild != p.OS {
		parts = append(parts, "on"+p.OSBuild)
	}
	return strings.Join(parts, "-")
}
