// Package archive writes assembled packages out of the workspace, as a
// .zip, a .tar.zst or a plain directory.
package archive

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Write writes the tree at srcDir to dest. The format follows dest's
// extension: ".zip", ".tar.zst" (or ".tzst"), anything else a directory.
func Write(srcDir, dest string) error {
	switch {
	case strings.HasSuffix(dest, ".zip"):
		return writeFile(dest, func(w io.Writer) error { return zipDir(srcDir, w) })
	case strings.HasSuffix(dest, ".tar.zst"), strings.HasSuffix(dest, ".tzst"):
		return writeFile(dest, func(w io.Writer) error { return tarZstDir(srcDir, w) })
	}
	return copyDir(srcDir, dest)
}

// writeFile creates dest through a temporary sibling so a failed write
// leaves no truncated archive behind.
func writeFile(dest string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), dest)
}

// zipDir writes the contents of srcDir as a zip archive.
func zipDir(srcDir string, dst io.Writer) error {
	w := zip.NewWriter(dst)
	err := walk(srcDir, func(path, rel string, info fs.FileInfo) error {
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = rel
		if info.Mode()&fs.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			writer, err := w.CreateHeader(header)
			if err != nil {
				return err
			}
			_, err = io.WriteString(writer, target)
			return err
		}
		header.Method = zip.Deflate
		writer, err := w.CreateHeader(header)
		if err != nil {
			return err
		}
		return copyContent(writer, path)
	})
	if err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// tarZstDir writes the contents of srcDir as a zstd-compressed tarball.
func tarZstDir(srcDir string, dst io.Writer) error {
	zw, err := zstd.NewWriter(dst)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(zw)
	err = walk(srcDir, func(path, rel string, info fs.FileInfo) error {
		var link string
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}
		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		header.Name = rel
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if link != "" {
			return nil
		}
		return copyContent(tw, path)
	})
	if err == nil {
		err = tw.Close()
	}
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	return err
}

// copyDir copies srcDir to dest, which must not exist yet.
func copyDir(srcDir, dest string) error {
	if _, err := os.Lstat(dest); err == nil {
		return fmt.Errorf("%s already exists", dest)
	}
	return walk(srcDir, func(path, rel string, info fs.FileInfo) error {
		target := filepath.Join(dest, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		}
		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
		if err != nil {
			return err
		}
		if err := copyContent(out, path); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
}

// walk calls fn for every file and symlink below root, in lexical order,
// with its slash-separated path relative to root.
func walk(root string, fn func(path, rel string, info fs.FileInfo) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return fn(path, filepath.ToSlash(rel), info)
	})
}

func copyContent(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
