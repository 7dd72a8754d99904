// Package memory holds the in-process metadata backend. Nothing survives a
// restart.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavel-fokin/pdf-toolbox/internal/contact"
	"github.com/pavel-fokin/pdf-toolbox/internal/files"
)

var (
	_ files.MetadataStore = (*Store)(nil)
	_ contact.Repository  = (*Store)(nil)
)

// Store implements files.MetadataStore and contact.Repository with
// mutex-guarded maps.
type Store struct {
	mu       sync.RWMutex
	files    map[string]files.File
	messages map[string]contact.Message
	now      func() time.Time
}

// NewStore creates an empty store. A nil clock defaults to time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		files:    make(map[string]files.File),
		messages: make(map[string]contact.Message),
		now:      now,
	}
}

// Create stores a copy of the file with a fresh ID and upload time.
func (s *Store) Create(file *files.File) (*files.File, error) {
	record := *file
	record.ID = uuid.NewString()
	record.UploadedAt = s.now()

	s.mu.Lock()
	s.files[record.ID] = record
	s.mu.Unlock()

	return &record, nil
}

// Get returns a copy of the record or files.ErrNotFound.
func (s *Store) Get(id string) (*files.File, error) {
	s.mu.RLock()
	record, ok := s.files[id]
	s.mu.RUnlock()

	if !ok {
		return nil, files.ErrNotFound
	}
	return &record, nil
}

// Delete removes the record if present.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	delete(s.files, id)
	s.mu.Unlock()
	return nil
}

// ListExpired returns a snapshot of records uploaded at or before now - window,
// oldest first.
func (s *Store) ListExpired(now time.Time, window time.Duration) ([]*files.File, error) {
	cutoff := now.Add(-window)

	s.mu.RLock()
	var expired []*files.File
	for _, record := range s.files {
		if !record.UploadedAt.After(cutoff) {
			r := record
			expired = append(expired, &r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(expired, func(i, j int) bool {
		return expired[i].UploadedAt.Before(expired[j].UploadedAt)
	})
	return expired, nil
}

// List returns a snapshot of all file records.
func (s *Store) List() ([]*files.File, error) {
	s.mu.RLock()
	list := make([]*files.File, 0, len(s.files))
	for _, record := range s.files {
		r := record
		list = append(list, &r)
	}
	s.mu.RUnlock()
	return list, nil
}

// CreateMessage stores a contact message with a fresh ID and timestamp.
func (s *Store) CreateMessage(msg *contact.Message) (*contact.Message, error) {
	record := *msg
	record.ID = uuid.NewString()
	record.CreatedAt = s.now()

	s.mu.Lock()
	s.messages[record.ID] = record
	s.mu.Unlock()

	return &record, nil
}

// ListMessages returns all contact messages, newest first.
func (s *Store) ListMessages() ([]*contact.Message, error) {
	s.mu.RLock()
	list := make([]*contact.Message, 0, len(s.messages))
	for _, record := range s.messages {
		r := record
		list = append(list, &r)
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}
