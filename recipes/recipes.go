// Package recipes is the registry of recipes built into llbuild.
package recipes

import (
	"fmt"
	"maps"
	"slices"

	"github.com/goplus/llbuild/recipe"
	"github.com/goplus/llbuild/recipes/protobuf"
)

var builtin = map[string]func() *recipe.Recipe{
	"protobuf": protobuf.New,
}

// Lookup returns a fresh, validated copy of the recipe called name.
func Lookup(name string) (*recipe.Recipe, error) {
	newRecipe, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("unknown recipe %q (known: %v)", name, Names())
	}
	r := newRecipe()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Names returns the names of all built-in recipes, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(builtin))
}
