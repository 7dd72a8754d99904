package files

import (
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when no metadata record exists for an id.
	ErrNotFound = errors.New("file not found")
	// ErrBlobMissing is returned when a record exists but its blob does not.
	ErrBlobMissing = errors.New("file not found on disk")
	// ErrNoFile is returned when an upload request carries no file.
	ErrNoFile = errors.New("no file uploaded")
	// ErrTooLarge is returned when an upload exceeds the size limit.
	ErrTooLarge = errors.New("file too large")
	// ErrTypeNotAllowed is returned when the mime type is not in the allow-list.
	ErrTypeNotAllowed = errors.New("file type not supported")
)

// File represents the metadata of an uploaded file
type File struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// Expired reports whether the file is at or past the retention window.
func (f *File) Expired(now time.Time, window time.Duration) bool {
	return !now.Before(f.UploadedAt.Add(window))
}

// MetadataStore defines the interface for storing and retrieving file metadata.
//
// Create assigns the ID and UploadedAt fields. Get returns ErrNotFound for
// unknown ids. Delete is idempotent.
type MetadataStore interface {
	Create(file *File) (*File, error)
	Get(id string) (*File, error)
	Delete(id string) error
	ListExpired(now time.Time, window time.Duration) ([]*File, error)
	List() ([]*File, error)
}

// Blob describes a stored blob as seen by the storage layer.
type Blob struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// BlobStorage defines the interface for the physical file storage.
//
// Open returns ErrBlobMissing when the blob does not exist. Delete treats a
// missing blob as success.
type BlobStorage interface {
	Write(name string, content io.Reader) (int64, error)
	Open(name string) (io.ReadCloser, error)
	Delete(name string) error
	List() ([]Blob, error)
}
