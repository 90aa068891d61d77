// Command llbuild builds native packages from recipes: it fetches the
// pinned source, plans a configuration, drives CMake and assembles the
// result into a package with consumer metadata.
package main

import (
	"os"

	"github.com/goplus/llbuild/cmd/llbuild/internal"
)

func main() {
	os.Exit(internal.Execute())
}
