package internal

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goplus/llbuild/recipes"
)

var recipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "List built-in recipes",
	Args:  cobra.NoArgs,
	RunE:  runRecipes,
}

func init() {
	rootCmd.AddCommand(recipesCmd)
}

func runRecipes(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, name := range recipes.Names() {
		r, err := recipes.Lookup(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Version, r.Description)
		for _, o := range r.Options {
			fmt.Fprintf(w, "\t  %s\t%v (default %s)\n", o.Name, o.Values, o.Default)
		}
	}
	return w.Flush()
}
