package internal

import (
	"errors"

	"github.com/goplus/llbuild/internal/acquire"
	"github.com/goplus/llbuild/internal/assemble"
	"github.com/goplus/llbuild/internal/execute"
	"github.com/goplus/llbuild/internal/plan"
)

// Exit codes.
const (
	exitOK             = 0
	exitError          = 1
	exitUnknownOption  = 2
	exitIncompatible   = 3
	exitAcquisition    = 4
	exitInfrastructure = 5
	exitBuildFailure   = 6
	exitMissing        = 7
	exitAssembly       = 8
)

// exitCode maps err onto the exit code of its kind.
func exitCode(err error) int {
	var (
		unknown  *plan.UnknownOptionError
		bad      *plan.IncompatibleConfigurationError
		acq      *acquire.Error
		infra    *execute.InfrastructureError
		failure  *execute.BuildFailure
		missing  *assemble.MissingRequiredArtifactError
		assembly *assemble.Error
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &unknown):
		return exitUnknownOption
	case errors.As(err, &bad):
		return exitIncompatible
	case errors.As(err, &acq):
		return exitAcquisition
	case errors.As(err, &infra):
		return exitInfrastructure
	case errors.As(err, &failure):
		return exitBuildFailure
	case errors.As(err, &missing):
		return exitMissing
	case errors.As(err, &assembly):
		return exitAssembly
	}
	return exitError
}
