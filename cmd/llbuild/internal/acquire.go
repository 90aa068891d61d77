package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

var acquireCmd = &cobra.Command{
	Use:   "acquire recipe[@version]",
	Short: "Fetch the pinned source of a recipe and print its path",
	Args:  cobra.ExactArgs(1),
	RunE:  runAcquire,
}

func init() {
	rootCmd.AddCommand(acquireCmd)
}

func runAcquire(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	r, err := loadRecipe(args[0])
	if err != nil {
		return err
	}
	dir, err := s.acquirer().Acquire(cmd.Context(), r)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.stdout, dir)
	return nil
}
