package internal

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/goplus/llbuild/internal/archive"
	"github.com/goplus/llbuild/internal/assemble"
)

var (
	makeVerbose bool
	makeOutput  string
	makeFormat  string
)

var makeCmd = &cobra.Command{
	Use:   "make recipe[@version]",
	Short: "Run the full pipeline and print the package metadata",
	Long: `Make plans, fetches, builds and assembles one configuration of a
recipe. With -o the package is also written out as a .zip, a .tar.zst or a
directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runMake,
}

func init() {
	makeCmd.Flags().BoolVarP(&makeVerbose, "verbose", "v", false, "Stream build output to stderr")
	makeCmd.Flags().StringVarP(&makeOutput, "output", "o", "", "Output path (directory, .zip or .tar.zst)")
	makeCmd.Flags().StringVar(&makeFormat, "format", "json", "Metadata format: json|yaml")
	rootCmd.AddCommand(makeCmd)
}

func runMake(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	req, err := s.request(ctx, args[0])
	if err != nil {
		return err
	}
	out, err := s.pipeline(observer(cmd, makeVerbose)).Run(ctx, req)
	if err != nil {
		printTail(cmd.ErrOrStderr(), out.Result)
		return err
	}
	if err := out.Metadata.Encode(s.stdout, assemble.Format(makeFormat)); err != nil {
		return err
	}
	if makeOutput != "" {
		dest, err := filepath.Abs(makeOutput)
		if err != nil {
			return fmt.Errorf("failed to resolve output path: %w", err)
		}
		if err := archive.Write(out.Metadata.Root, dest); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		s.logger.Info("package written", "path", dest)
	}
	return nil
}
