package internal

import (
	"github.com/spf13/cobra"

	"github.com/goplus/llbuild/internal/assemble"
	"github.com/goplus/llbuild/internal/execute"
)

var assembleFormat string

var assembleCmd = &cobra.Command{
	Use:   "assemble recipe[@version]",
	Short: "Package the last build of a configuration",
	Long: `Assemble collects the artifacts of the last build of the planned
configuration into a package and prints its metadata. The build must have
succeeded.`,
	Args: cobra.ExactArgs(1),
	RunE: runAssemble,
}

func init() {
	assembleCmd.Flags().StringVar(&assembleFormat, "format", "json", "Metadata format: json|yaml")
	rootCmd.AddCommand(assembleCmd)
}

func runAssemble(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	req, err := s.request(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	pl, err := s.resolve(req)
	if err != nil {
		return err
	}
	res, err := execute.LoadResult(s.cfg.Workspace, pl)
	if err != nil {
		return err
	}
	m, err := s.assembler().Assemble(res)
	if err != nil {
		return err
	}
	return m.Encode(s.stdout, assemble.Format(assembleFormat))
}
