package archive

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Deploy copies the executables of the package at pkgDir into destDir,
// flattening any directory structure below bin/. It returns the deployed
// paths.
func Deploy(pkgDir, destDir string) ([]string, error) {
	binDir := filepath.Join(pkgDir, "bin")
	if _, err := os.Stat(binDir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}
	var deployed []string
	err := walk(binDir, func(path, rel string, info fs.FileInfo) error {
		target := filepath.Join(destDir, filepath.Base(path))
		if info.Mode()&fs.ModeSymlink != 0 {
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			os.Remove(target)
			if err := os.Symlink(filepath.Base(link), target); err != nil {
				return err
			}
		} else {
			out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
			if err != nil {
				return err
			}
			if err := copyContent(out, path); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		}
		deployed = append(deployed, target)
		return nil
	})
	return deployed, err
}
