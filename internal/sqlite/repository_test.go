package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavel-fokin/pdf-toolbox/internal/contact"
	"github.com/pavel-fokin/pdf-toolbox/internal/files"
)

func newTestRepository(t *testing.T, now func() time.Time) (*Repository, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := NewRepository(dbPath, now)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo, dbPath
}

func TestFileLifecycle(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	repo, _ := newTestRepository(t, func() time.Time { return now })

	created, err := repo.Create(&files.File{
		Filename:     "blob-1",
		OriginalName: "report.pdf",
		MimeType:     "application/pdf",
		Size:         42,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := repo.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "blob-1", got.Filename)
	assert.Equal(t, "report.pdf", got.OriginalName)
	assert.Equal(t, "application/pdf", got.MimeType)
	assert.Equal(t, int64(42), got.Size)
	assert.True(t, now.Equal(got.UploadedAt))

	require.NoError(t, repo.Delete(created.ID))
	require.NoError(t, repo.Delete(created.ID))

	_, err = repo.Get(created.ID)
	assert.ErrorIs(t, err, files.ErrNotFound)
}

func TestListExpired(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	now := base
	repo, _ := newTestRepository(t, func() time.Time { return now })

	old, err := repo.Create(&files.File{Filename: "old", OriginalName: "o", MimeType: "text/plain"})
	require.NoError(t, err)
	now = base.Add(45 * time.Minute)
	_, err = repo.Create(&files.File{Filename: "new", OriginalName: "n", MimeType: "text/plain"})
	require.NoError(t, err)

	expired, err := repo.ListExpired(base.Add(time.Hour), time.Hour)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, old.ID, expired[0].ID)

	all, err := repo.List()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDuplicateFilenameRejected(t *testing.T) {
	repo, _ := newTestRepository(t, nil)

	_, err := repo.Create(&files.File{Filename: "same", OriginalName: "a", MimeType: "text/plain"})
	require.NoError(t, err)
	_, err = repo.Create(&files.File{Filename: "same", OriginalName: "b", MimeType: "text/plain"})
	assert.Error(t, err)
}

func TestPersistsAcrossReopen(t *testing.T) {
	repo, dbPath := newTestRepository(t, nil)

	created, err := repo.Create(&files.File{Filename: "blob", OriginalName: "a.txt", MimeType: "text/plain", Size: 1})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reopened, err := NewRepository(dbPath, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got.OriginalName)
}

func TestContactMessages(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	now := base
	repo, _ := newTestRepository(t, func() time.Time { return now })

	first, err := repo.CreateMessage(&contact.Message{Name: "Ann", Email: "ann@example.com", Subject: "Hi", Message: "First message"})
	require.NoError(t, err)
	now = base.Add(time.Minute)
	second, err := repo.CreateMessage(&contact.Message{Name: "Bob", Email: "bob@example.com", Subject: "Hey", Message: "Second message"})
	require.NoError(t, err)

	msgs, err := repo.ListMessages()
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, second.ID, msgs[0].ID)
	assert.Equal(t, first.ID, msgs[1].ID)
	assert.Equal(t, "ann@example.com", msgs[1].Email)
}
