// Package cmake wraps the cmake configure/build/install workflow.
package cmake

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
)

type defineValue struct {
	value    string
	typeName string
}

// CMake drives CMake-based builds. It never touches the process
// environment: variables set through Env and Use only reach the cmake
// child processes.
type CMake struct {
	program    string
	sourceDir  string
	buildDir   string
	installDir string
	generator  string
	buildType  string
	toolchain  string
	defines    map[string]defineValue
	baseEnv    []string
	env        map[string]string
	stdout     io.Writer
	stderr     io.Writer
}

// New returns a ready-to-use CMake.
func New(sourceDir, buildDir, installDir string) *CMake {
	return &CMake{
		program:    "cmake",
		sourceDir:  sourceDir,
		buildDir:   buildDir,
		installDir: installDir,
		defines:    make(map[string]defineValue),
		env:        make(map[string]string),
		stdout:     io.Discard,
		stderr:     io.Discard,
	}
}

// Program overrides the cmake executable.
func (c *CMake) Program(path string) { c.program = path }

// Source overrides the source directory.
func (c *CMake) Source(dir string) { c.sourceDir = dir }

// Generator sets the CMake generator (e.g. "Ninja", "Unix Makefiles").
func (c *CMake) Generator(name string) { c.generator = name }

// BuildType sets CMAKE_BUILD_TYPE (e.g. "Release", "Debug").
func (c *CMake) BuildType(name string) { c.buildType = name }

// Toolchain sets CMAKE_TOOLCHAIN_FILE.
func (c *CMake) Toolchain(path string) { c.toolchain = path }

// Output sends the output of cmake to w. Stdout and stderr share w.
func (c *CMake) Output(w io.Writer) {
	c.stdout = w
	c.stderr = w
}

// Environ sets the environment cmake starts from; nil means inherit.
func (c *CMake) Environ(env []string) { c.baseEnv = env }

// Env sets key=value for the cmake child processes.
func (c *CMake) Env(key, value string) { c.env[key] = value }

// Define adds a -D<key>:STRING=<value> definition.
func (c *CMake) Define(key, value string) {
	c.defines[key] = defineValue{value: value, typeName: "STRING"}
}

// DefineBool adds a -D<key>:BOOL=ON/OFF definition.
func (c *CMake) DefineBool(key string, value bool) {
	v := "OFF"
	if value {
		v = "ON"
	}
	c.defines[key] = defineValue{value: v, typeName: "BOOL"}
}

// DefineTyped adds a -D<key>:<typeName>=<value> definition.
func (c *CMake) DefineTyped(key, typeName, value string) {
	c.defines[key] = defineValue{value: value, typeName: typeName}
}

// Use points CMake and compilers at headers, libraries and pkg-config
// files of a non-system dependency installed at root.
func (c *CMake) Use(root string) {
	includeDir := filepath.Join(root, "include")
	libDir := filepath.Join(root, "lib")
	pkgconfigDir := filepath.Join(libDir, "pkgconfig")

	if isDir(pkgconfigDir) {
		c.prependPath("PKG_CONFIG_PATH", pkgconfigDir)
	}
	c.prependPath("CMAKE_PREFIX_PATH", root)
	if isDir(includeDir) {
		c.prependPath("CMAKE_INCLUDE_PATH", includeDir)
	}
	if isDir(libDir) {
		c.prependPath("CMAKE_LIBRARY_PATH", libDir)
	}

	if hostOS == "windows" {
		if isDir(includeDir) {
			c.prependPath("INCLUDE", includeDir)
		}
		if isDir(libDir) {
			c.prependPath("LIB", libDir)
		}
	} else {
		if isDir(includeDir) {
			c.appendFlag("CPPFLAGS", "-I"+includeDir)
		}
		if isDir(libDir) {
			c.appendFlag("LDFLAGS", "-L"+libDir)
		}
	}
}

// Configure runs "cmake -S <source> -B <build>" with all configured options.
// Extra args are appended at the end.
func (c *CMake) Configure(ctx context.Context, args ...string) error {
	if err := os.MkdirAll(c.buildDir, 0o755); err != nil {
		return err
	}
	return c.run(ctx, c.configureArgs(args))
}

func (c *CMake) configureArgs(args []string) []string {
	cmakeArgs := []string{"-S", c.sourceDir, "-B", c.buildDir}
	if c.generator != "" {
		cmakeArgs = append(cmakeArgs, "-G", c.generator)
	}
	if c.installDir != "" {
		c.Define("CMAKE_INSTALL_PREFIX", c.installDir)
	}
	if c.toolchain != "" {
		c.Define("CMAKE_TOOLCHAIN_FILE", c.toolchain)
	}
	if c.buildType != "" {
		c.Define("CMAKE_BUILD_TYPE", c.buildType)
	}
	cmakeArgs = append(cmakeArgs, c.definesArgs()...)
	return append(cmakeArgs, args...)
}

// Build runs "cmake --build <build>" with optional extra arguments.
func (c *CMake) Build(ctx context.Context, args ...string) error {
	cmakeArgs := []string{"--build", c.buildDir}
	if c.buildType != "" {
		cmakeArgs = append(cmakeArgs, "--config", c.buildType)
	}
	cmakeArgs = append(cmakeArgs, args...)
	return c.run(ctx, cmakeArgs)
}

// Install runs "cmake --install <build>" with optional extra arguments.
func (c *CMake) Install(ctx context.Context, args ...string) error {
	cmakeArgs := []string{"--install", c.buildDir}
	if c.buildType != "" {
		cmakeArgs = append(cmakeArgs, "--config", c.buildType)
	}
	if c.installDir != "" {
		cmakeArgs = append(cmakeArgs, "--prefix", c.installDir)
	}
	cmakeArgs = append(cmakeArgs, args...)
	return c.run(ctx, cmakeArgs)
}

// OutputDir returns installDir if set, otherwise buildDir.
func (c *CMake) OutputDir() string {
	if c.installDir != "" {
		return c.installDir
	}
	return c.buildDir
}

// run starts cmake and waits for it. A non-zero exit surfaces as a wrapped
// *exec.ExitError; any other error means cmake could not run at all.
func (c *CMake) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, c.program, args...)
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr
	cmd.Env = c.environ()
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("cmake %s: %w", args[0], err)
	}
	return nil
}

func (c *CMake) definesArgs() []string {
	if len(c.defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.defines))
	for k := range c.defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		d := c.defines[k]
		args = append(args, "-D"+k+":"+d.typeName+"="+d.value)
	}
	return args
}

// environ merges the explicit variables over the base environment.
func (c *CMake) environ() []string {
	base := c.baseEnv
	if base == nil {
		base = os.Environ()
	}
	if len(c.env) == 0 {
		return base
	}
	envMap := make(map[string]string, len(base)+len(c.env))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range c.env {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

// lookup returns the effective value of key for the child processes.
func (c *CMake) lookup(key string) string {
	if v, ok := c.env[key]; ok {
		return v
	}
	base := c.baseEnv
	if base == nil {
		base = os.Environ()
	}
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v
		}
	}
	return ""
}

// prependPath prepends value to a PATH-style variable.
func (c *CMake) prependPath(key, value string) {
	sep := ":"
	if hostOS == "windows" {
		sep = ";"
	}
	if cur := c.lookup(key); cur != "" {
		value += sep + cur
	}
	c.env[key] = value
}

// appendFlag appends a space-separated flag to a variable.
func (c *CMake) appendFlag(key, flag string) {
	if cur := c.lookup(key); cur != "" {
		flag = cur + " " + flag
	}
	c.env[key] = flag
}

var hostOS = runtime.GOOS

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

var versionRE = regexp.MustCompile(`cmake\d* version (\d+)\.(\d+)(?:\.(\d+))?`)

// Version runs "<program> --version" and returns "major.minor.patch".
func Version(ctx context.Context, program string) (string, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, program, "--version")
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return parseVersion(out.String())
}

func parseVersion(s string) (string, error) {
	m := versionRE.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("unrecognized cmake version output: %q", strings.TrimSpace(s))
	}
	patch := 0
	if m[3] != "" {
		patch, _ = strconv.Atoi(m[3])
	}
	return fmt.Sprintf("%s.%s.%d", m[1], m[2], patch), nil
}
