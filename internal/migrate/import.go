package migrate

import (
	"context"
	"errors"
	"log/slog"

	xerrors "github.com/nikicat/secret-migrate/internal/errors"
	"github.com/nikicat/secret-migrate/internal/reconcile"
	"github.com/nikicat/secret-migrate/internal/record"
	"github.com/nikicat/secret-migrate/internal/store"
)

// Import reconciles keyrings into the store, one collection at a time in name
// order. Every destination collection must already exist: a missing one aborts
// the import before anything is created.
func Import(ctx context.Context, s store.Store, keyrings record.Keyrings, logger *slog.Logger) ([]*reconcile.Report, error) {
	if logger == nil {
		logger = slog.Default()
	}

	names := keyrings.Names()
	handles := make(map[string]store.CollectionHandle, len(names))
	for _, name := range names {
		h, err := store.FindCollection(ctx, s, name)
		if errors.Is(err, store.ErrNoSuchCollection) {
			return nil, xerrors.Wrap(xerrors.CodeDestinationMissing,
				"no keyring '"+name+"' found, please create this keyring first",
				map[string]any{"collection": name}, err)
		}
		if err != nil {
			return nil, storeFailed("looking up collection", map[string]any{"collection": name}, err)
		}
		handles[name] = h
	}

	rc := reconcile.New(s, logger)
	reports := make([]*reconcile.Report, 0, len(names))
	for _, name := range names {
		h := handles[name]
		if err := s.Unlock(ctx, []store.CollectionHandle{h}); err != nil {
			return reports, storeFailed("unlocking collection", map[string]any{"collection": name}, err)
		}
		existing, err := readCollection(ctx, s, name, h)
		if err != nil {
			return reports, err
		}

		report, err := rc.Reconcile(ctx, name, keyrings[name], existing)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			return reports, err
		}
		logger.Info("imported collection", "collection", name,
			"created", report.Count(reconcile.OutcomeCreated),
			"existing", report.Count(reconcile.OutcomeExists),
			"conflicts", report.Count(reconcile.OutcomeConflict),
			"unsupported", report.Count(reconcile.OutcomeUnsupported))
	}
	return reports, nil
}
