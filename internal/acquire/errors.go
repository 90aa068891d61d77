// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acquire

import "fmt"

// Error reports a source that could not be materialized. Err is the
// underlying cause and may be a *patch.MismatchError.
type Error struct {
	// Source is "<url>@<tag>".
	Source string
	Op     string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("acquire %s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
