package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/fehu/internal/checksum"
	"github.com/starford/fehu/internal/models"
)

const tempPrefix = ".fehu-tmp-"

// FS implements Provider on a local directory. Every operation goes through
// an os.Root, so neither ".." segments nor symlinks can reach outside the
// vault.
type FS struct {
	dir  string
	root *os.Root
}

// NewFS opens the vault at dir, which must already exist.
func NewFS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: open root: %w", err)
	}
	return &FS{dir: abs, root: root}, nil
}

// Root returns the absolute vault directory.
func (f *FS) Root() string {
	return f.dir
}

// Close releases the vault directory handle.
func (f *FS) Close() error {
	return f.root.Close()
}

// clean turns a vault-relative path into the form os.Root expects. Absolute
// paths and paths climbing above the vault are refused up front for a
// clearer error than the one os.Root would give.
func clean(rel string) (string, error) {
	if rel == "" {
		return ".", nil
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	c := filepath.Clean(filepath.FromSlash(rel))
	if c == ".." || strings.HasPrefix(c, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: path escapes vault root: %s", rel)
	}
	return c, nil
}

// List walks dir (relative to the vault) and returns metadata for every
// chart file. Hidden files and directories are skipped.
func (f *FS) List(dir string) ([]models.ChartFile, error) {
	base, err := clean(dir)
	if err != nil {
		return nil, err
	}
	var out []models.ChartFile
	err = fs.WalkDir(f.root.FS(), filepath.ToSlash(base), func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p != "." && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsChartFile(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := f.root.ReadFile(filepath.FromSlash(p))
		if err != nil {
			return err
		}
		out = append(out, models.ChartFile{
			Path:      p,
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	p, err := clean(path)
	if err != nil {
		return nil, err
	}
	data, err := f.root.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write replaces the file at path atomically: the content goes to a hidden
// temp file beside it, is synced, then renamed over the target.
func (f *FS) Write(path string, content []byte) error {
	p, err := clean(path)
	if err != nil {
		return err
	}
	if p == "." {
		return fmt.Errorf("storage: write: empty path")
	}
	dir := filepath.Dir(p)
	if err := f.root.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmpName := filepath.Join(dir, tempPrefix+uuid.NewString())
	tmp, err := f.root.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = f.root.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := f.root.Rename(tmpName, p); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	committed = true
	return nil
}

// Delete removes a file from the vault.
func (f *FS) Delete(path string) error {
	p, err := clean(path)
	if err != nil {
		return err
	}
	if err := f.root.Remove(p); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

// Exists reports whether a file is present at path.
func (f *FS) Exists(path string) (bool, error) {
	p, err := clean(path)
	if err != nil {
		return false, err
	}
	_, err = f.root.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("storage: stat %s: %w", path, err)
	}
}
