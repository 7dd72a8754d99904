package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/pavel-fokin/pdf-toolbox/internal/contact"
	"github.com/pavel-fokin/pdf-toolbox/internal/files"
)

var (
	_ files.MetadataStore = (*Repository)(nil)
	_ contact.Repository  = (*Repository)(nil)
)

// Repository implements files.MetadataStore and contact.Repository using SQLite
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new SQLite repository. A nil clock defaults to time.Now.
func NewRepository(dbPath string, now func() time.Time) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serialises writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if now == nil {
		now = time.Now
	}
	repo := &Repository{db: db, now: now}

	if err := repo.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return repo, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// initSchema creates the necessary database tables
func (r *Repository) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL UNIQUE,
		original_name TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		size INTEGER NOT NULL,
		uploaded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_files_uploaded_at ON files(uploaded_at);
	CREATE TABLE IF NOT EXISTS contact_messages (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		subject TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Create stores file metadata
func (r *Repository) Create(file *files.File) (*files.File, error) {
	record := *file
	record.ID = uuid.NewString()
	record.UploadedAt = r.now()

	query := `
	INSERT INTO files (id, filename, original_name, mime_type, size, uploaded_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		record.ID,
		record.Filename,
		record.OriginalName,
		record.MimeType,
		record.Size,
		record.UploadedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}

	return &record, nil
}

// Get retrieves file metadata by ID
func (r *Repository) Get(id string) (*files.File, error) {
	query := `
	SELECT id, filename, original_name, mime_type, size, uploaded_at
	FROM files
	WHERE id = ?
	`

	file, err := scanFile(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, files.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find file: %w", err)
	}
	return file, nil
}

// Delete removes file metadata by ID. Missing rows are not an error.
func (r *Repository) Delete(id string) error {
	if _, err := r.db.Exec(`DELETE FROM files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}
	return nil
}

// ListExpired retrieves file metadata uploaded at or before now - window
func (r *Repository) ListExpired(now time.Time, window time.Duration) ([]*files.File, error) {
	query := `
	SELECT id, filename, original_name, mime_type, size, uploaded_at
	FROM files
	WHERE uploaded_at <= ?
	ORDER BY uploaded_at ASC
	`
	return r.queryFiles(query, now.Add(-window).UnixNano())
}

// List retrieves all file metadata
func (r *Repository) List() ([]*files.File, error) {
	query := `
	SELECT id, filename, original_name, mime_type, size, uploaded_at
	FROM files
	ORDER BY uploaded_at DESC
	`
	return r.queryFiles(query)
}

func (r *Repository) queryFiles(query string, args ...any) ([]*files.File, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var fileList []*files.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		fileList = append(fileList, file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating file rows: %w", err)
	}

	return fileList, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row scanner) (*files.File, error) {
	var file files.File
	var uploadedAt int64
	err := row.Scan(
		&file.ID,
		&file.Filename,
		&file.OriginalName,
		&file.MimeType,
		&file.Size,
		&uploadedAt,
	)
	if err != nil {
		return nil, err
	}
	file.UploadedAt = time.Unix(0, uploadedAt)
	return &file, nil
}

// CreateMessage stores a contact message
func (r *Repository) CreateMessage(msg *contact.Message) (*contact.Message, error) {
	record := *msg
	record.ID = uuid.NewString()
	record.CreatedAt = r.now()

	query := `
	INSERT INTO contact_messages (id, name, email, subject, message, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		record.ID,
		record.Name,
		record.Email,
		record.Subject,
		record.Message,
		record.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create contact message: %w", err)
	}

	return &record, nil
}

// ListMessages retrieves all contact messages, newest first
func (r *Repository) ListMessages() ([]*contact.Message, error) {
	query := `
	SELECT id, name, email, subject, message, created_at
	FROM contact_messages
	ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query contact messages: %w", err)
	}
	defer rows.Close()

	var msgs []*contact.Message
	for rows.Next() {
		var msg contact.Message
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.Name, &msg.Email, &msg.Subject, &msg.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact message row: %w", err)
		}
		msg.CreatedAt = time.Unix(0, createdAt)
		msgs = append(msgs, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contact message rows: %w", err)
	}

	return msgs, nil
}
