// Package reconcile decides, per incoming record, whether a destination
// collection already holds it, holds a conflicting version, or needs it created.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	xerrors "github.com/nikicat/secret-migrate/internal/errors"
	"github.com/nikicat/secret-migrate/internal/record"
	"github.com/nikicat/secret-migrate/internal/store"
)

// Creator is the part of store.Store the reconciler writes through
type Creator interface {
	CreateItem(ctx context.Context, collection string, itemType store.ItemType, label string, attributes map[string]string, secret string) (store.ItemHandle, error)
}

// Outcome is what happened to one incoming record
type Outcome int

const (
	// OutcomeExists means an identical item, secret included, is already present
	OutcomeExists Outcome = iota + 1
	// OutcomeConflict means items with the same identity but another secret exist
	OutcomeConflict
	// OutcomeUnsupported means the schema has no destination item type
	OutcomeUnsupported
	// OutcomeCreated means a new item was created
	OutcomeCreated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExists:
		return "exists"
	case OutcomeConflict:
		return "conflict"
	case OutcomeUnsupported:
		return "unsupported"
	case OutcomeCreated:
		return "created"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Result is the decision for one incoming record
type Result struct {
	Outcome Outcome
	Record  *record.Record

	// Conflicting holds the existing items that differ only in their secret
	Conflicting []*record.Record

	// Item is the handle of the created item
	Item store.ItemHandle
}

// Report lists the results for one collection in input order
type Report struct {
	Collection string
	Results    []Result
}

// Count returns how many results have the given outcome
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Conflicts returns the conflict results
func (r *Report) Conflicts() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome == OutcomeConflict {
			out = append(out, res)
		}
	}
	return out
}

// Reconciler merges incoming records into a destination without ever
// overwriting or deleting an existing item
type Reconciler struct {
	Store  Creator
	Logger *slog.Logger
}

// New creates a reconciler writing to s
func New(s Creator, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{Store: s, Logger: logger}
}

// Reconcile processes incoming in order against the existing items of collection.
// A failed create aborts the run; everything before it stays created.
func (rc *Reconciler) Reconcile(ctx context.Context, collection string, incoming, existing []*record.Record) (*Report, error) {
	log := rc.Logger.With("collection", collection)
	report := &Report{Collection: collection, Results: make([]Result, 0, len(incoming))}

	// items created by this run join the existing set, so repeats in the input are skipped
	working := make([]*record.Record, len(existing), len(existing)+len(incoming))
	copy(working, existing)

	for _, in := range incoming {
		res, err := rc.reconcileOne(ctx, collection, in, working)
		if err != nil {
			return report, err
		}
		report.Results = append(report.Results, res)

		switch res.Outcome {
		case OutcomeExists:
			log.Info("already present", "label", in.Label)
		case OutcomeConflict:
			log.Warn("conflicting secret, skipping", "label", in.Label, "existing", len(res.Conflicting))
		case OutcomeUnsupported:
			log.Info("cannot handle schema, skipping", "label", in.Label, "schema", in.Attr(record.SchemaAttribute))
		case OutcomeCreated:
			log.Info("created", "label", in.Label, "item", res.Item)
			working = append(working, in.Clone())
		}
	}
	return report, nil
}

func (rc *Reconciler) reconcileOne(ctx context.Context, collection string, in *record.Record, existing []*record.Record) (Result, error) {
	for _, ex := range existing {
		if record.RoughlyEqual(ex, in, false) {
			return Result{Outcome: OutcomeExists, Record: in}, nil
		}
	}

	var conflicting []*record.Record
	for _, ex := range existing {
		if record.RoughlyEqual(ex, in, true) {
			conflicting = append(conflicting, ex)
		}
	}
	if len(conflicting) > 0 {
		return Result{Outcome: OutcomeConflict, Record: in, Conflicting: conflicting}, nil
	}

	itemType, ok := store.ItemTypeForSchema(in.Attr(record.SchemaAttribute))
	if !ok {
		return Result{Outcome: OutcomeUnsupported, Record: in}, nil
	}

	label := in.DisplayName
	if label == "" {
		label = in.Label
	}
	h, err := rc.Store.CreateItem(ctx, collection, itemType, label, in.StringAttributes(), in.Secret)
	if err != nil {
		return Result{}, xerrors.Wrap(xerrors.CodeStoreFailed, "creating item",
			map[string]any{"collection": collection, "label": in.Label}, err)
	}
	return Result{Outcome: OutcomeCreated, Record: in, Item: h}, nil
}
