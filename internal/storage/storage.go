package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rmitchellscott/diamondperls/internal/apperr"
	"github.com/rmitchellscott/diamondperls/internal/config"
)

// FileInfo represents information about a stored file
type FileInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Backend defines the interface for output storage backends
type Backend interface {
	Put(ctx context.Context, key string, reader io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	DeleteAll(ctx context.Context, prefix string) error
	ListWithInfo(ctx context.Context, prefix string) ([]FileInfo, error)
}

// FilesystemBackend implements storage using local filesystem. Keys are
// slash-separated paths below the data directory.
type FilesystemBackend struct {
	dataDir string
}

// NewFilesystemBackend creates a new filesystem storage backend
func NewFilesystemBackend(dataDir string) *FilesystemBackend {
	return &FilesystemBackend{
		dataDir: dataDir,
	}
}

// Root returns the data directory.
func (f *FilesystemBackend) Root() string {
	return f.dataDir
}

// resolve maps key to a path inside the data directory.
func (f *FilesystemBackend) resolve(op, key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", apperr.New(apperr.KindDataFormat, op, key, fmt.Errorf("invalid storage key"))
	}
	return filepath.Join(f.dataDir, clean), nil
}

// Put stores data in the filesystem. The file appears under its final
// name only once fully written.
func (f *FilesystemBackend) Put(ctx context.Context, key string, reader io.Reader) error {
	fullPath, err := f.resolve("store file", key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperr.New(apperr.KindIO, "store file", dir, fmt.Errorf("failed to create directory: %w", err))
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return apperr.New(apperr.KindIO, "store file", fullPath, fmt.Errorf("failed to create file: %w", err))
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return apperr.New(apperr.KindIO, "store file", fullPath, fmt.Errorf("failed to write file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return apperr.New(apperr.KindIO, "store file", fullPath, fmt.Errorf("failed to close file: %w", err))
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return apperr.New(apperr.KindIO, "store file", fullPath, err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		return apperr.New(apperr.KindIO, "store file", fullPath, fmt.Errorf("failed to move file into place: %w", err))
	}

	return nil
}

// Get retrieves data from the filesystem
func (f *FilesystemBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := f.resolve("open file", key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.New(apperr.KindResourceNotFound, "open file", key, err)
		}
		return nil, apperr.New(apperr.KindIO, "open file", key, err)
	}
	if info, err := file.Stat(); err == nil && info.IsDir() {
		file.Close()
		return nil, apperr.New(apperr.KindResourceNotFound, "open file", key, fmt.Errorf("is a directory"))
	}

	return file, nil
}

// Delete removes a file from the filesystem
func (f *FilesystemBackend) Delete(ctx context.Context, key string) error {
	fullPath, err := f.resolve("delete file", key)
	if err != nil {
		return err
	}

	err = os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return apperr.New(apperr.KindIO, "delete file", key, err)
	}

	return nil
}

// DeleteAll removes a key prefix directory and everything below it
func (f *FilesystemBackend) DeleteAll(ctx context.Context, prefix string) error {
	fullPath, err := f.resolve("delete directory", prefix)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(fullPath); err != nil {
		return apperr.New(apperr.KindIO, "delete directory", prefix, err)
	}
	return nil
}

// ListWithInfo lists files below the prefix directory, sorted by key.
// An empty prefix lists the whole backend.
func (f *FilesystemBackend) ListWithInfo(ctx context.Context, prefix string) ([]FileInfo, error) {
	root := f.dataDir
	if prefix != "" {
		p, err := f.resolve("list files", prefix)
		if err != nil {
			return nil, err
		}
		root = p
	}

	var files []FileInfo
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(f.dataDir, path)
		if err != nil {
			return err
		}
		files = append(files, FileInfo{
			Key:     filepath.ToSlash(relPath),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})

	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.New(apperr.KindIO, "list files", prefix, fmt.Errorf("failed to walk directory: %w", err))
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })
	return files, nil
}

// Global storage backend instance
var globalBackend Backend

// GetStorageBackend returns the configured storage backend
func GetStorageBackend() Backend {
	if globalBackend == nil {
		dataDir := config.Get("DATA_DIR", "./data")
		globalBackend = NewFilesystemBackend(dataDir)
	}
	return globalBackend
}
