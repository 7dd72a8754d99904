package fs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/pavel-fokin/pdf-toolbox/internal/files"
)

const (
	deleteAttempts = 3
	deleteBackoff  = 20 * time.Millisecond
)

var _ files.BlobStorage = (*Storage)(nil)

// Storage implements files.BlobStorage on a single flat directory
type Storage struct {
	fs      afero.Fs
	dataDir string
}

// NewStorage creates a new filesystem storage rooted at dataDir
func NewStorage(fs afero.Fs, dataDir string) *Storage {
	return &Storage{
		fs:      fs,
		dataDir: dataDir,
	}
}

// NewOsStorage creates a storage backed by the host filesystem
func NewOsStorage(dataDir string) *Storage {
	return NewStorage(afero.NewOsFs(), dataDir)
}

func (s *Storage) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	return filepath.Join(s.dataDir, name), nil
}

// Write stores content under name. A partially written blob is removed.
func (s *Storage) Write(name string, content io.Reader) (int64, error) {
	filePath, err := s.path(name)
	if err != nil {
		return 0, err
	}

	if err := s.fs.MkdirAll(s.dataDir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create data directory: %w", err)
	}

	file, err := s.fs.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	size, err := io.Copy(file, content)
	if err == nil {
		err = file.Close()
	} else {
		file.Close()
	}
	if err != nil {
		s.fs.Remove(filePath)
		return 0, fmt.Errorf("failed to write file content: %w", err)
	}

	return size, nil
}

// Open returns a reader for the blob content
func (s *Storage) Open(name string) (io.ReadCloser, error) {
	filePath, err := s.path(name)
	if err != nil {
		return nil, err
	}

	file, err := s.fs.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, files.ErrBlobMissing
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Delete removes a blob. A blob that is already gone counts as deleted.
// Other failures are retried a bounded number of times.
func (s *Storage) Delete(name string) error {
	filePath, err := s.path(name)
	if err != nil {
		return err
	}

	for attempt := 1; ; attempt++ {
		err = s.fs.Remove(filePath)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if attempt == deleteAttempts {
			return fmt.Errorf("failed to delete file after %d attempts: %w", attempt, err)
		}
		time.Sleep(time.Duration(attempt) * deleteBackoff)
	}
}

// List returns all blobs in the data directory
func (s *Storage) List() ([]files.Blob, error) {
	infos, err := afero.ReadDir(s.fs, s.dataDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	blobs := make([]files.Blob, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		blobs = append(blobs, files.Blob{
			Name:    info.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return blobs, nil
}

// Exists checks if a blob exists
func (s *Storage) Exists(name string) bool {
	filePath, err := s.path(name)
	if err != nil {
		return false
	}
	_, err = s.fs.Stat(filePath)
	return err == nil
}
