package server

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pavel-fokin/pdf-toolbox/internal/contact"
	"github.com/pavel-fokin/pdf-toolbox/internal/files"
	"github.com/pavel-fokin/pdf-toolbox/internal/fs"
	"github.com/pavel-fokin/pdf-toolbox/internal/memory"
	"github.com/pavel-fokin/pdf-toolbox/internal/pdf"
	"github.com/pavel-fokin/pdf-toolbox/internal/sqlite"
)

// App bundles the services behind the HTTP handlers.
type App struct {
	Files     *files.Service
	Contact   *contact.Service
	Processor pdf.Processor

	closers []func() error
}

// Build wires storage, metadata backend and services from cfg.
func Build(cfg *Config, logger *zap.Logger) (*App, error) {
	app := &App{}

	var store files.MetadataStore
	var messages contact.Repository
	switch cfg.MetadataBackend {
	case BackendSQLite:
		repo, err := sqlite.NewRepository(cfg.DBPath, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize repository: %w", err)
		}
		app.closers = append(app.closers, repo.Close)
		store, messages = repo, repo
	default:
		mem := memory.NewStore(nil)
		store, messages = mem, mem
	}

	policy := files.NewPolicy(cfg.MaxSize, cfg.Retention, cfg.AllowedTypes)
	blobs := fs.NewOsStorage(cfg.UploadDir)

	app.Files = files.NewService(store, blobs, policy, logger.Named("files"))
	app.Contact = contact.NewService(messages, logger.Named("contact"))
	app.Processor = pdf.NewEngine()

	logger.Info("Application initialized",
		zap.String("backend", cfg.MetadataBackend),
		zap.String("upload_dir", cfg.UploadDir),
		zap.Duration("retention", policy.Retention),
	)
	return app, nil
}

// Close releases backend resources.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
