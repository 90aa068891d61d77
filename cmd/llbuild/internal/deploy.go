package internal

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goplus/llbuild/internal/archive"
)

var deployVerbose bool

var deployCmd = &cobra.Command{
	Use:   "deploy recipe[@version] dir",
	Short: "Make a package and copy its executables into dir",
	Long: `Deploy runs the full pipeline like "llbuild make" and then copies the
executables of the assembled package, flattened, into dir.`,
	Args: cobra.ExactArgs(2),
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().BoolVarP(&deployVerbose, "verbose", "v", false, "Stream build output to stderr")
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	req, err := s.request(ctx, args[0])
	if err != nil {
		return err
	}
	out, err := s.pipeline(observer(cmd, deployVerbose)).Run(ctx, req)
	if err != nil {
		printTail(cmd.ErrOrStderr(), out.Result)
		return err
	}
	files, err := archive.Deploy(out.Metadata.Root, args[1])
	if err != nil {
		return fmt.Errorf("failed to deploy %s: %w", out.Plan.Dirname(), err)
	}
	if len(files) == 0 {
		return errors.New("package has no executables")
	}
	for _, f := range files {
		fmt.Fprintln(s.stdout, f)
	}
	return nil
}
