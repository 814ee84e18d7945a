package backend

import (
	"context"
	"fmt"

	"matchday/internal/booking"
	applog "matchday/internal/log"
	"matchday/internal/matches/memory"
	"matchday/internal/storage"
)

type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend validates config and opens the selected backend.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case APIBackend:
		return f.createAPIBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite backend: %w", err)
	}

	count, err := repo.CountMatches(ctx)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("count stored matches: %w", err)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		applog.FieldMatchCount, count)

	return &BackendResult{
		Backend: repo,
		Writer:  repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createAPIBackend(_ context.Context, config Config) (*BackendResult, error) {
	client, err := booking.NewClient(booking.Config{
		BaseURL: config.BookingAPIURL,
		Token:   config.BookingAPIToken,
		Timeout: config.BookingAPITimeout,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("booking API client: %w", err)
	}

	f.logger.Info("Initialized booking API backend",
		"url", config.BookingAPIURL,
		"authenticated", config.BookingAPIToken != "")

	return &BackendResult{Backend: client}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("seed memory backend: %w", err)
	}

	seeded, _ := store.ListMatchHistory(ctx)
	f.logger.Info("Initialized memory backend",
		"seed_file", config.SeedFile,
		applog.FieldMatchCount, len(seeded))

	return &BackendResult{
		Backend: store,
		Writer:  store,
	}, nil
}
