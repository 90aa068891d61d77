package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

var buildVerbose bool

var buildCmd = &cobra.Command{
	Use:   "build recipe[@version]",
	Short: "Plan, fetch and build one configuration of a recipe",
	Long: `Build plans the configuration, fetches the source and runs the CMake
configure and compile phases. The install tree is left in the workspace for
"llbuild assemble".`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVarP(&buildVerbose, "verbose", "v", false, "Stream build output to stderr")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	req, err := s.request(ctx, args[0])
	if err != nil {
		return err
	}
	pl, err := s.resolve(req)
	if err != nil {
		return err
	}
	src, err := s.acquirer().Acquire(ctx, req.Recipe)
	if err != nil {
		return err
	}
	res, err := s.executor(observer(cmd, buildVerbose)).Execute(ctx, src, pl, nil)
	if err != nil {
		return err
	}
	if !res.Succeeded() {
		printTail(cmd.ErrOrStderr(), res)
		return res.Err()
	}
	fmt.Fprintf(s.stdout, "built %s (%s)\n", pl.Dirname(), res.ID)
	fmt.Fprintln(s.stdout, res.ArtifactDir)
	return nil
}
