package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikicat/secret-migrate/internal/record"
)

// ErrNoSuchCollection is returned when a collection does not exist
var ErrNoSuchCollection = errors.New("no such collection")

// ErrLocked is returned when reading from a collection that is still locked
var ErrLocked = errors.New("collection is locked")

// CollectionHandle identifies a collection within one store
type CollectionHandle string

// ItemHandle identifies an item within one store
type ItemHandle string

// ItemMetadata is everything a store reports about an item except its secret
type ItemMetadata = record.Metadata

// ItemType is the destination item kind requested on create
type ItemType int

// Item types understood by destination stores
const (
	ItemGeneric ItemType = iota + 1
	ItemNote
	ItemNetworkPassword
)

var itemTypeSchemas = map[ItemType]record.Schema{
	ItemGeneric:         record.SchemaGeneric,
	ItemNote:            record.SchemaNote,
	ItemNetworkPassword: record.SchemaNetworkPassword,
}

// ItemTypeForSchema maps an xdg:schema value to the item type used to create it
func ItemTypeForSchema(schema string) (ItemType, bool) {
	for t, s := range itemTypeSchemas {
		if string(s) == schema {
			return t, true
		}
	}
	return 0, false
}

// Schema returns the xdg:schema value items of this type carry
func (t ItemType) Schema() record.Schema {
	return itemTypeSchemas[t]
}

func (t ItemType) String() string {
	switch t {
	case ItemGeneric:
		return "Generic"
	case ItemNote:
		return "Note"
	case ItemNetworkPassword:
		return "NetworkPassword"
	}
	return fmt.Sprintf("ItemType(%d)", int(t))
}

// Store is the interface the migration runs against. Every call may block on
// user interaction (an unlock prompt) and may fail with a store-specific error.
type Store interface {
	// Collections returns all collections
	Collections(ctx context.Context) ([]CollectionHandle, error)

	// CollectionName returns the keyring name of a collection
	CollectionName(ctx context.Context, h CollectionHandle) (string, error)

	// Items returns all items in a collection
	Items(ctx context.Context, h CollectionHandle) ([]ItemHandle, error)

	// LoadSecret returns the plaintext secret of an item
	LoadSecret(ctx context.Context, item ItemHandle) (string, error)

	// ItemMetadata returns label, attributes, schema and timestamps of an item
	ItemMetadata(ctx context.Context, item ItemHandle) (*ItemMetadata, error)

	// CreateItem creates a new item in the named collection
	CreateItem(ctx context.Context, collection string, itemType ItemType, label string, attributes map[string]string, secret string) (ItemHandle, error)

	// Unlock unlocks the given collections, prompting the user if needed
	Unlock(ctx context.Context, collections []CollectionHandle) error

	// Owner names the service that owns the items, reported as owner_name
	Owner() string

	// Close releases the connection
	Close() error
}

// FindCollection returns the handle of the collection with the given name
func FindCollection(ctx context.Context, s Store, name string) (CollectionHandle, error) {
	handles, err := s.Collections(ctx)
	if err != nil {
		return "", err
	}
	for _, h := range handles {
		n, err := s.CollectionName(ctx, h)
		if err != nil {
			return "", err
		}
		if n == name {
			return h, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoSuchCollection, name)
}
