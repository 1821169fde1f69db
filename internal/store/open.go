package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nikicat/secret-migrate/internal/config"
)

// Open connects to the backend selected by cfg
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case config.BackendSecretService:
		return NewSecretService(ctx, cfg.Algorithm, logger)
	case config.BackendGopass:
		return NewGopassStore(ctx, cfg.GopassPrefix, logger)
	case config.BackendMemory:
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
