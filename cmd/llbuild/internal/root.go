package internal

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "llbuild",
	Short: "llbuild builds native packages from recipes",
	Long: `llbuild builds native packages from recipes. It fetches the pinned
source of a recipe, plans a validated configuration for a platform, drives
CMake and assembles the result into a package with consumer metadata.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath          string
	workspaceFlag       string
	logLevelFlag        string
	platformFile        string
	optionsFile         string
	optionFlags         []string
	osFlag              string
	archFlag            string
	compilerFlag        string
	compilerVersionFlag string
	runtimeFlag         string
	buildTypeFlag       string
	cmakeVersionFlag    string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Configuration file (default <user config dir>/llbuild/config.toml)")
	pf.StringVar(&workspaceFlag, "workspace", "", "Workspace directory")
	pf.StringVar(&logLevelFlag, "log-level", "", "Log level: trace|debug|info|warn|error")
	pf.StringVar(&platformFile, "platform", "", "Platform descriptor file (TOML)")
	pf.StringVar(&optionsFile, "options", "", "Option overrides file (TOML)")
	pf.StringArrayVarP(&optionFlags, "option", "O", nil, "Option override name=value (repeatable)")
	pf.StringVar(&osFlag, "os", "", "Target OS (Linux, Windows, Macos, FreeBSD)")
	pf.StringVar(&archFlag, "arch", "", "Target architecture")
	pf.StringVar(&compilerFlag, "compiler", "", "Compiler (gcc, clang, apple-clang, \"Visual Studio\")")
	pf.StringVar(&compilerVersionFlag, "compiler-version", "", "Compiler version")
	pf.StringVar(&runtimeFlag, "runtime", "", "C/C++ runtime linkage: dynamic|static")
	pf.StringVar(&buildTypeFlag, "build-type", "", "Build type: Release|Debug")
	pf.StringVar(&cmakeVersionFlag, "cmake-version", "", "CMake version (default: detected)")
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "llbuild:", err)
		return exitCode(err)
	}
	return 0
}
