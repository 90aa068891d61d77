package assemble

import (
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestSortLibs(t *testing.T) {
	libs := []string{"protobuf", "protoc"}
	sortLibs(libs)
	if libs[0] != "protoc" || libs[1] != "protobuf" {
		t.Errorf("sortLibs = %v, want [protoc protobuf]", libs)
	}
}

func TestSortLibsProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("reverse-lexicographic permutation", prop.ForAll(
		func(libs []string) bool {
			got := slices.Clone(libs)
			sortLibs(got)
			for i := 1; i < len(got); i++ {
				if got[i-1] < got[i] {
					return false
				}
			}
			want := slices.Clone(libs)
			slices.Sort(want)
			back := slices.Clone(got)
			slices.Sort(back)
			return slices.Equal(want, back)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("independent of input order", prop.ForAll(
		func(libs []string) bool {
			a, b := slices.Clone(libs), slices.Clone(libs)
			slices.Reverse(b)
			sortLibs(a)
			sortLibs(b)
			return slices.Equal(a, b)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
