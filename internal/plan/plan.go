// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package plan turns a recipe, caller overrides and a platform descriptor
// into a validated configuration and the flat parameter set handed to the
// build system.
package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/goplus/llbuild/recipe"
)

// Param is one build-system parameter, ready for -D<Key>:<Type>=<Value>.
type Param struct {
	Key   string
	Type  recipe.ParamType
	Value string
}

// Plan is the output of planning: everything the executor needs and
// nothing it has to re-derive.
type Plan struct {
	Recipe        *recipe.Recipe
	Platform      recipe.Platform
	Configuration recipe.Configuration
	// Params is sorted by key.
	Params []Param
	// Pruned lists options dropped for this platform.
	Pruned []string
}

// ID identifies the plan's configuration on its platform. It keys the
// per-configuration build and package directories.
func (p *Plan) ID() string {
	sum := sha256.Sum256([]byte(p.Configuration.String() + "|" + p.Platform.String()))
	return hex.EncodeToString(sum[:])[:12]
}

// Dirname returns "<name>@<version>-<id>", the directory name used for
// this plan's private build and package trees.
func (p *Plan) Dirname() string {
	return fmt.Sprintf("%s@%s-%s", p.Recipe.Name, p.Recipe.Version, p.ID())
}

// Resolve plans one build of r. It has no side effects.
//
// Defaults are merged with overrides (unknown names are rejected), options
// pruned for p are dropped, rules run in declaration order, and finally
// the configuration is translated into build-system parameters.
func Resolve(r *recipe.Recipe, overrides map[string]string, p recipe.Platform) (*Plan, error) {
	if err := p.Validate(); err != nil {
		return nil, &IncompatibleConfigurationError{Recipe: r.Name, Rule: rulePlatform, Reason: err.Error()}
	}

	values, err := merge(r, overrides)
	if err != nil {
		return nil, err
	}

	var pruned []string
	for _, o := range r.Options {
		if o.PrunedOn(p) {
			delete(values, o.Name)
			pruned = append(pruned, o.Name)
		}
	}
	cfg := recipe.NewConfiguration(values)

	for _, rule := range r.Rules {
		if err := rule.Check(cfg, p); err != nil {
			return nil, &IncompatibleConfigurationError{Recipe: r.Name, Rule: rule.Name, Reason: err.Error()}
		}
	}

	return &Plan{
		Recipe:        r,
		Platform:      p,
		Configuration: cfg,
		Params:        translate(r.Params, cfg, p),
		Pruned:        pruned,
	}, nil
}

// merge applies overrides on top of the recipe defaults.
func merge(r *recipe.Recipe, overrides map[string]string) (map[string]string, error) {
	values := make(map[string]string, len(r.Options))
	for _, o := range r.Options {
		values[o.Name] = o.Default
	}

	var unknown []string
	for name := range overrides {
		if _, ok := r.Option(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &UnknownOptionError{Recipe: r.Name, Names: unknown}
	}

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		o, _ := r.Option(name)
		v := normalize(o, overrides[name])
		if !o.Allows(v) {
			return nil, &IncompatibleConfigurationError{
				Recipe: r.Name,
				Rule:   ruleAllowedValues,
				Reason: fmt.Sprintf("option %s: %q is not one of %v", name, overrides[name], o.Values),
			}
		}
		values[name] = v
	}
	return values, nil
}

// normalize accepts the usual spellings of booleans for boolean options.
func normalize(o recipe.Option, v string) string {
	v = strings.TrimSpace(v)
	if !o.IsBool() {
		return v
	}
	switch strings.ToLower(v) {
	case "true", "1", "on", "yes":
		return recipe.True
	case "false", "0", "off", "no":
		return recipe.False
	}
	return v
}

// translate maps cfg onto build-system parameters, applying version-gated
// renames against the platform's CMake version.
func translate(decls []recipe.Param, cfg recipe.Configuration, p recipe.Platform) []Param {
	out := make([]Param, 0, len(decls))
	for _, decl := range decls {
		value, ok := paramValue(decl, cfg, p)
		if !ok {
			continue
		}
		param := Param{Key: decl.Key, Type: decl.Type, Value: value}
		if param.Type == "" {
			param.Type = recipe.StringParam
		}
		if rn, ok := activeRename(decl.Renames, p.CMakeVersion); ok {
			param.Key = rn.Key
			if rn.Type != "" {
				param.Type = rn.Type
			}
			if rn.Convert != nil {
				param.Value = rn.Convert(value)
			}
		}
		out = append(out, param)
	}
	slices.SortFunc(out, func(a, b Param) int { return strings.Compare(a.Key, b.Key) })
	return out
}

func paramValue(decl recipe.Param, cfg recipe.Configuration, p recipe.Platform) (string, bool) {
	if decl.Option == "" {
		return decl.Value(cfg, p)
	}
	v, ok := cfg.Get(decl.Option)
	if !ok {
		return "", false
	}
	if decl.Type == recipe.BoolParam {
		on := v == recipe.True
		if decl.Invert {
			on = !on
		}
		if on {
			return "ON", true
		}
		return "OFF", true
	}
	return v, true
}

// activeRename returns the newest rename whose Since is at or below version.
func activeRename(renames []recipe.Rename, version string) (recipe.Rename, bool) {
	var (
		best  recipe.Rename
		found bool
	)
	for _, rn := range renames {
		if !recipe.AtLeast(version, rn.Since) {
			continue
		}
		if !found || recipe.AtLeast(rn.Since, best.Since) {
			best, found = rn, true
		}
	}
	return best, found
}

// String renders the plan as the lines printed by "llbuild plan".
func (p *Plan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "recipe:   %s\n", p.Recipe)
	fmt.Fprintf(&b, "platform: %s\n", p.Platform)
	fmt.Fprintf(&b, "id:       %s\n", p.ID())
	b.WriteString("options:\n")
	for _, k := range p.Configuration.Keys() {
		v, _ := p.Configuration.Get(k)
		fmt.Fprintf(&b, "  %s=%s\n", k, v)
	}
	for _, k := range p.Pruned {
		fmt.Fprintf(&b, "  %s (pruned)\n", k)
	}
	b.WriteString("params:\n")
	for _, prm := range p.Params {
		fmt.Fprintf(&b, "  -D%s:%s=%s\n", prm.Key, prm.Type, prm.Value)
	}
	return b.String()
}
