// Package recipe defines the declarative description of a buildable native
// package: its identity, where its source lives, the options it accepts and
// how a resolved configuration maps onto build-system parameters.
package recipe

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/mod/semver"
)

// Values of boolean options.
const (
	True  = "true"
	False = "false"
)

// Recipe is the immutable description of one buildable unit.
type Recipe struct {
	Name        string
	Version     string
	Description string
	Homepage    string
	License     string
	Topics      []string

	Source Source

	// Options are the recipe's closed option schema, in declaration order.
	Options []Option
	// Rules are evaluated in order against a merged configuration; the
	// first failing rule rejects it.
	Rules []Rule
	// Params map a configuration onto build-system parameters.
	Params []Param
	// SourceSubdir is the directory, relative to the source root, holding
	// the top-level CMakeLists.txt.
	SourceSubdir string
	// Patches are applied once to the acquired source tree.
	Patches []Patch

	Package Package
}

// Source pins the upstream source of a recipe.
type Source struct {
	URL        string
	Tag        string
	Submodules bool
}

// Key returns the source-cache key of r: a digest over the recipe identity
// and the pinned revision.
func (r *Recipe) Key() string {
	h := sha256.New()
	for _, s := range []string{r.Name, r.Version, r.Source.URL, r.Source.Tag} {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:24]
}

// String returns "name@version".
func (r *Recipe) String() string {
	return r.Name + "@" + r.Version
}

// Option declares one configurable knob and the values it may take.
type Option struct {
	Name    string
	Values  []string
	Default string
	// Prune reports whether the option is meaningless on a platform. Pruned
	// options are dropped from the configuration, not defaulted.
	Prune func(p Platform) bool
}

// BoolOption declares an option taking "true" or "false".
func BoolOption(name string, def bool) Option {
	d := False
	if def {
		d = True
	}
	return Option{Name: name, Values: []string{False, True}, Default: d}
}

// EnumOption declares an option taking one of values.
func EnumOption(name, def string, values ...string) Option {
	return Option{Name: name, Values: values, Default: def}
}

// IsBool reports whether o only takes "true" and "false".
func (o Option) IsBool() bool {
	return len(o.Values) == 2 && slices.Contains(o.Values, True) && slices.Contains(o.Values, False)
}

// Allows reports whether v is one of o's values.
func (o Option) Allows(v string) bool {
	return slices.Contains(o.Values, v)
}

// PrunedOn reports whether o is dropped on p.
func (o Option) PrunedOn(p Platform) bool {
	return o.Prune != nil && o.Prune(p)
}

// Rule is a named predicate over a configuration and its target platform.
// Check returns a human-readable reason when the combination is invalid.
type Rule struct {
	Name  string
	Check func(c Configuration, p Platform) error
}

// ParamType is the CMake cache entry type of a parameter.
type ParamType string

const (
	BoolParam   ParamType = "BOOL"
	StringParam ParamType = "STRING"
)

// Param maps configuration state onto one build-system parameter.
//
// The value comes from Option when set (boolean options become ON/OFF,
// negated when Invert is set) or from Value otherwise. A Param whose option
// was pruned, or whose Value reports false, is omitted.
type Param struct {
	Key     string
	Type    ParamType
	Option  string
	Invert  bool
	Value   func(c Configuration, p Platform) (string, bool)
	Renames []Rename
}

// Rename switches a parameter to another key from CMake version Since
// onward. Convert, when set, translates the value for the new key.
type Rename struct {
	Since   string
	Key     string
	Type    ParamType
	Convert func(value string) string
}

// Patch is an exact find/replace applied to a source file. Old must occur
// exactly once in File.
type Patch struct {
	File   string
	Old    string
	New    string
	Reason string
}

// Option returns the option called name.
func (r *Recipe) Option(name string) (Option, bool) {
	for _, o := range r.Options {
		if o.Name == name {
			return o, true
		}
	}
	return Option{}, false
}

// Validate checks that r is internally consistent.
func (r *Recipe) Validate() error {
	var errs []error
	if r.Name == "" {
		errs = append(errs, errors.New("name is empty"))
	}
	if !semver.IsValid(r.Version) {
		errs = append(errs, fmt.Errorf("version %q is not a semantic version", r.Version))
	}
	if r.Source.URL == "" || r.Source.Tag == "" {
		errs = append(errs, errors.New("source url and tag are required"))
	}
	seen := make(map[string]bool, len(r.Options))
	for _, o := range r.Options {
		if o.Name == "" {
			errs = append(errs, errors.New("option with empty name"))
			continue
		}
		if seen[o.Name] {
			errs = append(errs, fmt.Errorf("option %s declared twice", o.Name))
		}
		seen[o.Name] = true
		if !o.Allows(o.Default) {
			errs = append(errs, fmt.Errorf("option %s: default %q not in %v", o.Name, o.Default, o.Values))
		}
	}
	for _, rule := range r.Rules {
		if rule.Name == "" || rule.Check == nil {
			errs = append(errs, errors.New("rule needs a name and a check"))
		}
	}
	for _, p := range r.Params {
		switch {
		case p.Key == "":
			errs = append(errs, errors.New("param with empty key"))
		case p.Option != "" && !seen[p.Option]:
			errs = append(errs, fmt.Errorf("param %s refers to undeclared option %s", p.Key, p.Option))
		case p.Option == "" && p.Value == nil:
			errs = append(errs, fmt.Errorf("param %s has neither option nor value", p.Key))
		}
		for _, rn := range p.Renames {
			if !validVersion(rn.Since) || rn.Key == "" {
				errs = append(errs, fmt.Errorf("param %s: bad rename %q since %q", p.Key, rn.Key, rn.Since))
			}
		}
	}
	for _, pt := range r.Patches {
		if pt.File == "" || pt.Old == "" || strings.Contains(pt.File, "..") {
			errs = append(errs, fmt.Errorf("invalid patch for %q", pt.File))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("recipe %s: %w", r.Name, err)
	}
	return nil
}
