//go:build !darwin && !dragonfly && !freebsd && !linux && !netbsd && !openbsd && !windows

package lockedfile

import (
	"errors"
	"os"
)

var errUnsupported = errors.New("file locking is not supported on this platform")

func lock(*os.File) error { return errUnsupported }

func unlockFile(*os.File) error { return errUnsupported }
