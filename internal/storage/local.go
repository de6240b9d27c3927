package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage keeps blobs as files under a root directory. It backs
// development runs and holds the staging area for multipart uploads.
type LocalStorage struct {
	rootDir    string
	stagingDir string
}

func NewLocalStorage(rootDir, stagingDir string) *LocalStorage {
	return &LocalStorage{
		rootDir:    rootDir,
		stagingDir: stagingDir,
	}
}

func (s *LocalStorage) Bucket() string {
	return s.rootDir
}

func (s *LocalStorage) Exists(_ context.Context, blob string) (bool, error) {
	path, err := s.blobPath(blob)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return true, nil
}

func (s *LocalStorage) Upload(ctx context.Context, r io.Reader, blob, _ string) (string, error) {
	path, err := s.blobPath(blob)
	if err != nil {
		return "", uploadError(blob, err)
	}

	if err := writeFile(ctx, path, r); err != nil {
		return "", uploadError(blob, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// Stage copies r into the staging directory and returns the local path.
func (s *LocalStorage) Stage(ctx context.Context, r io.Reader, name string) (string, error) {
	if err := os.MkdirAll(s.stagingDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	f, err := os.CreateTemp(s.stagingDir, "upload-*-"+filepath.Base(name))
	if err != nil {
		return "", fmt.Errorf("failed to create staging file: %w", err)
	}
	path := f.Name()
	_ = f.Close()

	if err := writeFile(ctx, path, r); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

func (s *LocalStorage) EnsureDirectories() error {
	if err := os.MkdirAll(s.rootDir, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	if err := os.MkdirAll(s.stagingDir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	return nil
}

func (s *LocalStorage) blobPath(blob string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(blob))
	if blob == "" || clean == string(filepath.Separator) || strings.Contains(blob, "..") {
		return "", fmt.Errorf("invalid blob name %q", blob)
	}
	return filepath.Join(s.rootDir, clean), nil
}

// writeFile copies r to a temp file next to path and renames it into place,
// so a failed copy never leaves a partial file at path.
func writeFile(ctx context.Context, path string, r io.Reader) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".partial-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}
