package internal

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/goplus/llbuild/internal/acquire"
	"github.com/goplus/llbuild/internal/assemble"
	"github.com/goplus/llbuild/internal/config"
	"github.com/goplus/llbuild/internal/execute"
	"github.com/goplus/llbuild/internal/logging"
	"github.com/goplus/llbuild/internal/pipeline"
	"github.com/goplus/llbuild/internal/plan"
	"github.com/goplus/llbuild/internal/vcs"
	"github.com/goplus/llbuild/recipe"
	"github.com/goplus/llbuild/recipes"
	"github.com/goplus/llbuild/x/cmake"
)

// session is the state shared by all subcommands of one invocation.
type session struct {
	cfg    config.Config
	logger hclog.Logger
	stdout io.Writer
}

func newSession(cmd *cobra.Command) (*session, error) {
	path, explicit := configPath, configPath != ""
	if !explicit {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := config.Load(path, explicit)
	if err != nil {
		return nil, err
	}
	if workspaceFlag != "" {
		cfg.Workspace = workspaceFlag
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	logger, err := logging.New(cmd.ErrOrStderr(), logging.Options{Level: cfg.LogLevel})
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration", "file", path, "workspace", cfg.Workspace)
	return &session{cfg: cfg, logger: logger, stdout: cmd.OutOrStdout()}, nil
}

// parseRecipeArg parses "name" or "name@version".
func parseRecipeArg(arg string) (name, version string) {
	if i := strings.LastIndexByte(arg, '@'); i >= 0 {
		return arg[:i], arg[i+1:]
	}
	return arg, ""
}

// lookupRecipe resolves a recipe name.
var lookupRecipe = recipes.Lookup

// loadRecipe looks up the recipe named by arg. A version, when given, must
// be the one the recipe packages.
func loadRecipe(arg string) (*recipe.Recipe, error) {
	name, version := parseRecipeArg(arg)
	r, err := lookupRecipe(name)
	if err != nil {
		return nil, err
	}
	if version != "" && version != r.Version && "v"+version != r.Version {
		return nil, fmt.Errorf("recipe %s packages version %s, not %s", name, r.Version, version)
	}
	return r, nil
}

// hostPlatform describes the machine llbuild runs on.
func hostPlatform() recipe.Platform {
	p := recipe.Platform{
		Arch:      hostArch(runtime.GOARCH),
		Compiler:  recipe.GCC,
		Runtime:   recipe.RuntimeDynamic,
		BuildType: recipe.Release,
	}
	switch runtime.GOOS {
	case "linux":
		p.OS = recipe.Linux
	case "windows":
		p.OS, p.Compiler = recipe.Windows, recipe.VisualStudio
	case "darwin":
		p.OS, p.Compiler = recipe.Macos, recipe.AppleClang
	case "freebsd":
		p.OS, p.Compiler = recipe.FreeBSD, recipe.Clang
	}
	return p
}

func hostArch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "386":
		return "x86"
	case "arm64":
		return "armv8"
	case "arm":
		return "armv7"
	}
	return goarch
}

// platform returns the target platform: the host, replaced by --platform
// when given, then adjusted by the individual flags.
func (s *session) platform(ctx context.Context) (recipe.Platform, error) {
	p := hostPlatform()
	if platformFile != "" {
		var err error
		if p, err = config.LoadPlatform(platformFile); err != nil {
			return recipe.Platform{}, err
		}
	}
	for _, f := range []struct {
		flag string
		to   *string
	}{
		{osFlag, &p.OS},
		{archFlag, &p.Arch},
		{compilerFlag, &p.Compiler},
		{compilerVersionFlag, &p.CompilerVersion},
		{cmakeVersionFlag, &p.CMakeVersion},
	} {
		if f.flag != "" {
			*f.to = f.flag
		}
	}
	if runtimeFlag != "" {
		p.Runtime = recipe.Runtime(runtimeFlag)
	}
	if buildTypeFlag != "" {
		p.BuildType = recipe.BuildType(buildTypeFlag)
	}
	if p.CMakeVersion == "" {
		program := s.cfg.CMake
		if program == "" {
			program = "cmake"
		}
		if v, err := cmake.Version(ctx, program); err == nil {
			p.CMakeVersion = v
		} else {
			s.logger.Debug("cmake version not detected", "error", err)
		}
	}
	return p, nil
}

// overrides merges --options and --option, the flags winning.
func (s *session) overrides() (map[string]string, error) {
	out := make(map[string]string)
	if optionsFile != "" {
		file, err := config.LoadOverrides(optionsFile)
		if err != nil {
			return nil, err
		}
		for k, v := range file {
			out[k] = v
		}
	}
	for _, kv := range optionFlags {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid option %q, want name=value", kv)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

// request gathers recipe, overrides and platform for one run.
func (s *session) request(ctx context.Context, arg string) (pipeline.Request, error) {
	r, err := loadRecipe(arg)
	if err != nil {
		return pipeline.Request{}, err
	}
	overrides, err := s.overrides()
	if err != nil {
		return pipeline.Request{}, err
	}
	p, err := s.platform(ctx)
	if err != nil {
		return pipeline.Request{}, err
	}
	return pipeline.Request{Recipe: r, Overrides: overrides, Platform: p}, nil
}

// resolve plans req, logging the outcome.
func (s *session) resolve(req pipeline.Request) (*plan.Plan, error) {
	pl, err := plan.Resolve(req.Recipe, req.Overrides, req.Platform)
	if err != nil {
		return nil, err
	}
	s.logger.Named("plan").Debug("planned", "recipe", req.Recipe.String(), "plan", pl.ID(), "config", pl.Configuration.String())
	return pl, nil
}

func (s *session) acquirer() *acquire.Acquirer {
	return acquire.New(s.cfg.Workspace, vcs.NewGitVCS(vcs.WithGitPath(s.cfg.Git)), s.logger.Named("acquire"))
}

func (s *session) executor(observer io.Writer) *execute.Executor {
	return &execute.Executor{
		Workspace: s.cfg.Workspace,
		CMake:     s.cfg.CMake,
		Generator: s.cfg.Generator,
		Jobs:      s.cfg.Jobs,
		TailLines: s.cfg.TailLines,
		Prefixes:  s.cfg.Prefixes,
		Observer:  observer,
		Logger:    s.logger.Named("execute"),
	}
}

func (s *session) assembler() *assemble.Assembler {
	return &assemble.Assembler{Workspace: s.cfg.Workspace, Logger: s.logger.Named("assemble")}
}

func (s *session) pipeline(observer io.Writer) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Acquirer:  s.acquirer(),
		Executor:  s.executor(observer),
		Assembler: s.assembler(),
		Logger:    s.logger.Named("pipeline"),
	}
}

// observer returns where build output goes: stderr when verbose, nowhere
// otherwise.
func observer(cmd *cobra.Command, verbose bool) io.Writer {
	if verbose {
		return cmd.ErrOrStderr()
	}
	return nil
}

// printTail reports the last lines of a failed build.
func printTail(w io.Writer, res *execute.Result) {
	if res == nil || res.Succeeded() {
		return
	}
	fmt.Fprintf(w, "build failed in %s phase (exit status %d); last output:\n", res.FailedPhase, res.ExitCode)
	for _, line := range res.Tail {
		fmt.Fprintln(w, "  "+line)
	}
	fmt.Fprintln(w, "full log:", res.LogPath)
}
