package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan recipe[@version]",
	Short: "Print the resolved configuration and build parameters",
	Long: `Plan resolves the recipe's options against the overrides and the target
platform, runs the recipe's validation rules and prints the configuration
and the CMake parameters a build would use. Nothing is fetched or built.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
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
	fmt.Fprint(s.stdout, pl)
	return nil
}
