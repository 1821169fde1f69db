// Package migrate runs exports and imports against a secret store.
package migrate

import (
	"context"
	"log/slog"

	xerrors "github.com/nikicat/secret-migrate/internal/errors"
	"github.com/nikicat/secret-migrate/internal/record"
	"github.com/nikicat/secret-migrate/internal/store"
)

// Export reads every item of every collection. Collections are unlocked first,
// which may prompt the user. Any store failure aborts the export.
func Export(ctx context.Context, s store.Store, logger *slog.Logger) (record.Keyrings, error) {
	if logger == nil {
		logger = slog.Default()
	}

	handles, err := s.Collections(ctx)
	if err != nil {
		return nil, storeFailed("listing collections", nil, err)
	}
	if err := s.Unlock(ctx, handles); err != nil {
		return nil, storeFailed("unlocking collections", nil, err)
	}

	keyrings := make(record.Keyrings, len(handles))
	for _, h := range handles {
		name, err := s.CollectionName(ctx, h)
		if err != nil {
			return nil, storeFailed("reading collection name", map[string]any{"collection": string(h)}, err)
		}
		recs, err := readCollection(ctx, s, name, h)
		if err != nil {
			return nil, err
		}
		keyrings[name] = recs
		logger.Debug("exported collection", "collection", name, "items", len(recs))
	}
	logger.Info("export finished", "collections", len(keyrings), "items", keyrings.Len())
	return keyrings, nil
}

func readCollection(ctx context.Context, s store.Store, name string, h store.CollectionHandle) ([]*record.Record, error) {
	items, err := s.Items(ctx, h)
	if err != nil {
		return nil, storeFailed("listing items", map[string]any{"collection": name}, err)
	}

	recs := make([]*record.Record, 0, len(items))
	for _, item := range items {
		meta, err := s.ItemMetadata(ctx, item)
		if err != nil {
			return nil, storeFailed("reading item", map[string]any{"collection": name, "item": string(item)}, err)
		}
		secret, err := s.LoadSecret(ctx, item)
		if err != nil {
			return nil, storeFailed("loading secret", map[string]any{"collection": name, "item": string(item)}, err)
		}
		recs = append(recs, record.FromItem(name, s.Owner(), *meta, secret))
	}
	return recs, nil
}

func storeFailed(message string, details map[string]any, err error) error {
	if xe, ok := xerrors.As(err); ok {
		return xe
	}
	return xerrors.Wrap(xerrors.CodeStoreFailed, message, details, err)
}
