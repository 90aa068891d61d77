// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package execute

import "fmt"

// InfrastructureError reports a condition that keeps the build from
// running at all, such as a missing cmake or an unreadable source tree.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("build infrastructure: %s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// BuildFailure is the error form of a failed Result. Execute never returns
// it; callers that stop on a failed build use Result.Err.
type BuildFailure struct {
	Result *Result
}

func (e *BuildFailure) Error() string {
	r := e.Result
	return fmt.Sprintf("build %s failed in %s phase (exit status %d), see %s", r.Recipe, r.FailedPhase, r.ExitCode, r.LogPath)
}
