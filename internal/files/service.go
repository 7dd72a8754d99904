package files

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service provides application-level file operations
type Service struct {
	store  MetadataStore
	blobs  BlobStorage
	policy Policy
	logger *zap.Logger
	now    func() time.Time

	// sweepMu serialises sweeps and evictions on access so counts stay accurate.
	sweepMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new file service
func NewService(store MetadataStore, blobs BlobStorage, policy Policy, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:  store,
		blobs:  blobs,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the upload policy in effect.
func (s *Service) Policy() Policy {
	return s.policy
}

// UploadRequest represents a file upload request
type UploadRequest struct {
	Name     string
	MimeType string
	Content  io.Reader
}

// UploadResult represents the result of a file upload
type UploadResult struct {
	ID       string `json:"fileId"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// Validate checks the request against the policy without persisting anything.
// It returns the buffered content and the resolved mime type.
func (s *Service) Validate(req *UploadRequest) ([]byte, string, error) {
	if req == nil || req.Content == nil {
		return nil, "", ErrNoFile
	}

	// Reject declared types early, before reading the body.
	if !isGeneric(req.MimeType) && !s.policy.Allows(req.MimeType) {
		return nil, "", fmt.Errorf("%w: %s", ErrTypeNotAllowed, normalizeType(req.MimeType))
	}

	data, err := io.ReadAll(io.LimitReader(req.Content, s.policy.MaxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.policy.MaxSize {
		return nil, "", fmt.Errorf("%w: limit is %s", ErrTooLarge, humanize.IBytes(uint64(s.policy.MaxSize)))
	}

	mimeType := normalizeType(req.MimeType)
	if isGeneric(mimeType) {
		mimeType = detectType(data)
		if !s.policy.Allows(mimeType) {
			return nil, "", fmt.Errorf("%w: %s", ErrTypeNotAllowed, mimeType)
		}
	}

	return data, mimeType, nil
}

// Upload validates and stores a file, then registers its metadata.
func (s *Service) Upload(req *UploadRequest) (*UploadResult, error) {
	data, mimeType, err := s.Validate(req)
	if err != nil {
		return nil, err
	}

	// The storage name is never derived from the client-supplied name.
	blobName := uuid.NewString()

	size, err := s.blobs.Write(blobName, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	file, err := s.store.Create(&File{
		Filename:     blobName,
		OriginalName: cleanName(req.Name),
		MimeType:     mimeType,
		Size:         size,
	})
	if err != nil {
		if delErr := s.blobs.Delete(blobName); delErr != nil {
			s.logger.Error("Failed to remove blob after metadata error",
				zap.String("filename", blobName), zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to save file metadata: %w", err)
	}

	s.logger.Info("File uploaded",
		zap.String("file_id", file.ID),
		zap.String("filename", file.Filename),
		zap.String("mime_type", file.MimeType),
		zap.String("size", humanize.IBytes(uint64(file.Size))),
	)

	return &UploadResult{
		ID:       file.ID,
		Filename: file.OriginalName,
		MimeType: file.MimeType,
		Size:     file.Size,
	}, nil
}

// Open looks up a file and opens its blob for reading. An expired record is
// evicted on access and reported as ErrNotFound.
func (s *Service) Open(id string) (*File, io.ReadCloser, error) {
	file, err := s.store.Get(id)
	if err != nil {
		return nil, nil, err
	}

	if file.Expired(s.now(), s.policy.Retention) {
		s.evictOnAccess(file.ID)
		return nil, nil, ErrNotFound
	}

	content, err := s.blobs.Open(file.Filename)
	if err != nil {
		if errors.Is(err, ErrBlobMissing) {
			return file, nil, ErrBlobMissing
		}
		return file, nil, fmt.Errorf("failed to open file content: %w", err)
	}

	return file, content, nil
}

// evictOnAccess removes an expired file under the sweep lock so a concurrent
// sweep never counts a file that was already evicted here.
func (s *Service) evictOnAccess(id string) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	file, err := s.store.Get(id)
	if err != nil {
		// Already evicted by a sweep or another reader.
		return
	}
	if err := s.evict(file); err != nil {
		s.logger.Warn("Lazy eviction failed", zap.String("file_id", file.ID), zap.Error(err))
		return
	}
	s.logger.Info("Evicted expired file on access", zap.String("file_id", file.ID))
}

// ReadAll returns the metadata and full content of a file.
func (s *Service) ReadAll(id string) (*File, []byte, error) {
	file, content, err := s.Open(id)
	if err != nil {
		return file, nil, err
	}
	defer content.Close()

	data, err := io.ReadAll(content)
	if err != nil {
		return file, nil, fmt.Errorf("failed to read file content: %w", err)
	}
	return file, data, nil
}

// Sweep removes every expired file and returns how many were removed.
// Per-file failures are logged and skipped.
func (s *Service) Sweep() (int, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	expired, err := s.store.ListExpired(s.now(), s.policy.Retention)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired files: %w", err)
	}

	deleted := 0
	for _, file := range expired {
		if err := s.evict(file); err != nil {
			s.logger.Error("Failed to evict file",
				zap.String("file_id", file.ID),
				zap.String("filename", file.Filename),
				zap.Error(err),
			)
			continue
		}
		deleted++
	}

	return deleted, nil
}

// CollectOrphans removes blobs that have no metadata record and are older
// than the retention window.
func (s *Service) CollectOrphans() (int, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	records, err := s.store.List()
	if err != nil {
		return 0, fmt.Errorf("failed to list files: %w", err)
	}
	known := make(map[string]struct{}, len(records))
	for _, f := range records {
		known[f.Filename] = struct{}{}
	}

	blobs, err := s.blobs.List()
	if err != nil {
		return 0, fmt.Errorf("failed to list blobs: %w", err)
	}

	cutoff := s.now().Add(-s.policy.Retention)
	removed := 0
	for _, b := range blobs {
		if _, ok := known[b.Name]; ok || b.ModTime.After(cutoff) {
			continue
		}
		if err := s.blobs.Delete(b.Name); err != nil {
			s.logger.Error("Failed to remove orphaned blob", zap.String("filename", b.Name), zap.Error(err))
			continue
		}
		removed++
	}

	return removed, nil
}

// evict deletes the blob before the record, so an interrupted eviction leaves
// at worst an orphaned blob.
func (s *Service) evict(file *File) error {
	if err := s.blobs.Delete(file.Filename); err != nil {
		return fmt.Errorf("failed to delete file from storage: %w", err)
	}
	if err := s.store.Delete(file.ID); err != nil {
		return fmt.Errorf("failed to delete file metadata: %w", err)
	}
	return nil
}

// cleanName reduces a client-supplied name to a bare file name safe for a
// Content-Disposition header.
func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" {
		return "file"
	}
	return name
}
