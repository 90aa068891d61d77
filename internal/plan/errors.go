// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package plan

import (
	"fmt"
	"strings"
)

// UnknownOptionError reports override names the recipe does not declare.
type UnknownOptionError struct {
	Recipe string
	Names  []string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("recipe %s: unknown option(s): %s", e.Recipe, strings.Join(e.Names, ", "))
}

// IncompatibleConfigurationError reports a configuration rejected by a rule.
type IncompatibleConfigurationError struct {
	Recipe string
	Rule   string
	Reason string
}

func (e *IncompatibleConfigurationError) Error() string {
	return fmt.Sprintf("recipe %s: invalid configuration (%s): %s", e.Recipe, e.Rule, e.Reason)
}

// ruleAllowedValues names the built-in check that values are in their
// option's allowed set.
const ruleAllowedValues = "allowed-values"

// rulePlatform names the built-in check that the platform is usable.
const rulePlatform = "platform"
