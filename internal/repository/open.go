package repository

import (
	"context"
	"fmt"

	"github.com/peerlink/backend/internal/config"
	"github.com/peerlink/backend/internal/domain"
	"github.com/peerlink/backend/internal/fbapp"
	"go.uber.org/zap"
)

// Store bundles the three repositories behind one backend.
type Store interface {
	domain.ProfileRepository
	domain.ConnectionRepository
	domain.ChatRepository
}

// Backend is an opened store with its lifecycle hooks.
type Backend struct {
	Store Store
	Ping  func(ctx context.Context) error
	Close func()
}

// Open selects the store named by cfg.Store.Type. app is only used for
// Firestore and may be nil otherwise.
func Open(ctx context.Context, cfg *config.Config, app *fbapp.App, logger *zap.Logger) (*Backend, error) {
	switch cfg.Store.Type {
	case "memory":
		logger.Warn("Using in-memory store, data is lost on restart")
		return &Backend{
			Store: NewMemoryRepository(),
			Ping:  func(context.Context) error { return nil },
			Close: func() {},
		}, nil

	case "postgres":
		pool, err := NewPool(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("Connected to PostgreSQL")
		return &Backend{
			Store: NewPostgresRepository(pool),
			Ping:  pool.Ping,
			Close: pool.Close,
		}, nil

	case "firestore":
		if app == nil {
			return nil, fmt.Errorf("firestore store requires a firebase app")
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to Firestore")
		return &Backend{
			Store: NewFirestoreRepository(client),
			Ping: func(ctx context.Context) error {
				_, err := client.Collection(profilesCollection).Limit(1).Documents(ctx).GetAll()
				return err
			},
			Close: func() { _ = client.Close() },
		}, nil
	}

	return nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
}
