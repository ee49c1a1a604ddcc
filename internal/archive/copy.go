package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// copyAtomic copies a single source to dst. Regular files land under a
// .partial name first and are renamed into place.
func copyAtomic(ctx context.Context, src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return copyTree(ctx, src, dst)
	}
	tmp := dst + partialSuffix
	if err := copyFile(ctx, src, tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// copyTree copies a file, symlink or directory tree to dst.
func copyTree(ctx context.Context, src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case info.Mode().IsRegular():
			if err := copyFile(ctx, path, target); err != nil {
				return err
			}
			return os.Chmod(target, info.Mode().Perm())
		default:
			// sockets, devices and pipes are skipped
			return nil
		}
	})
}

// copyFile copies src to dst once. Failures are returned as they are; a
// source that changes while it is being copied is an error.
func copyFile(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	orig, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := copyOnce(src, dst); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	now, err := os.Stat(src)
	if err != nil {
		return err
	}
	if sourceChanged(orig, now) {
		return fmt.Errorf("%s changed during copy", src)
	}
	return nil
}

func sourceChanged(orig, now os.FileInfo) bool {
	if a, b := inodeOf(orig), inodeOf(now); a != 0 && b != 0 && a != b {
		return true
	}
	return now.ModTime().After(orig.ModTime()) || now.Size() != orig.Size()
}

func copyOnce(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
