package internal

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goplus/llbuild/internal/pipeline"
)

var (
	matrixAxes     []string
	matrixParallel int
)

var matrixCmd = &cobra.Command{
	Use:   "matrix recipe[@version] --axis name=v1,v2 ...",
	Short: "Build several configurations of a recipe concurrently",
	Long: `Matrix runs the full pipeline for every combination of the given option
values. Configurations share the fetched source but build and assemble in
their own directories; a failing configuration does not stop the others.`,
	Args: cobra.ExactArgs(1),
	RunE: runMatrix,
}

func init() {
	matrixCmd.Flags().StringArrayVar(&matrixAxes, "axis", nil, "Option and the values to build it with, name=v1,v2 (repeatable)")
	matrixCmd.Flags().IntVarP(&matrixParallel, "parallel", "p", 0, "Maximum concurrent builds (default GOMAXPROCS)")
	rootCmd.AddCommand(matrixCmd)
}

func runMatrix(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	base, err := s.request(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	axes, err := parseAxes(matrixAxes)
	if err != nil {
		return err
	}
	var reqs []pipeline.Request
	for _, combo := range combinations(base.Overrides, axes) {
		req := base
		req.Overrides = combo
		reqs = append(reqs, req)
	}

	p := s.pipeline(nil)
	p.Limit = matrixParallel
	outs, err := p.RunAll(cmd.Context(), reqs)

	w := tabwriter.NewWriter(s.stdout, 0, 4, 2, ' ', 0)
	for _, out := range outs {
		detail := ""
		switch {
		case out.Metadata != nil:
			detail = out.Metadata.Root
		case out.Err != nil:
			detail = out.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", formatOverrides(out.Request.Overrides), out.State, detail)
	}
	if ferr := w.Flush(); err == nil {
		err = ferr
	}
	return err
}

type axis struct {
	name   string
	values []string
}

// parseAxes parses "name=v1,v2" flags.
func parseAxes(flags []string) ([]axis, error) {
	var axes []axis
	seen := make(map[string]bool)
	for _, f := range flags {
		name, list, ok := strings.Cut(f, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || list == "" {
			return nil, fmt.Errorf("invalid axis %q, want name=v1,v2", f)
		}
		if seen[name] {
			return nil, fmt.Errorf("axis %s given twice", name)
		}
		seen[name] = true
		a := axis{name: name}
		for _, v := range strings.Split(list, ",") {
			a.values = append(a.values, strings.TrimSpace(v))
		}
		axes = append(axes, a)
	}
	return axes, nil
}

// combinations returns base extended with every combination of axis
// values, the last axis varying fastest.
func combinations(base map[string]string, axes []axis) []map[string]string {
	out := []map[string]string{maps.Clone(base)}
	for _, a := range axes {
		var next []map[string]string
		for _, m := range out {
			for _, v := range a.values {
				c := maps.Clone(m)
				if c == nil {
					c = make(map[string]string)
				}
				c[a.name] = v
				next = append(next, c)
			}
		}
		out = next
	}
	return out
}

func formatOverrides(m map[string]string) string {
	if len(m) == 0 {
		return "(defaults)"
	}
	var parts []string
	for _, k := range slices.Sorted(maps.Keys(m)) {
		parts = append(parts, k+"="+m[k])
	}
	return strings.Join(parts, ",")
}
