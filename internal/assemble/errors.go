// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assemble

import "fmt"

// MissingRequiredArtifactError reports a mandatory artifact pattern that
// matched nothing.
type MissingRequiredArtifactError struct {
	Category string
	Pattern  string
}

func (e *MissingRequiredArtifactError) Error() string {
	return fmt.Sprintf("required %s artifact missing: nothing matches %s", e.Category, e.Pattern)
}

// Error reports a package that could not be assembled.
type Error struct {
	Package string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("assemble %s: %s: %v", e.Package, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
