package store

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/nikicat/secret-migrate/internal/dbus"
)

// MemoryStore is an in-process Store. Collections start locked, like a keyring
// after login without auto-unlock.
type MemoryStore struct {
	mu          sync.Mutex
	owner       string
	collections []*memCollection
	creates     []CreateCall
	failures    map[string]error
	closed      bool
}

// CreateCall records one CreateItem request
type CreateCall struct {
	Collection string
	Type       ItemType
	Label      string
	Attributes map[string]string
	Secret     string
}

type memCollection struct {
	name   string
	locked bool
	items  []*memItem
}

type memItem struct {
	id     string
	meta   ItemMetadata
	secret string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		owner:    dbtypes.ServiceName,
		failures: make(map[string]error),
	}
}

// AddCollection adds an empty, locked collection
func (s *MemoryStore) AddCollection(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(name) == nil {
		s.collections = append(s.collections, &memCollection{name: name, locked: true})
	}
}

// AddItem seeds an item without recording a create call
func (s *MemoryStore) AddItem(collection string, meta ItemMetadata, secret string) ItemHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.find(collection)
	if c == nil {
		c = &memCollection{name: collection, locked: true}
		s.collections = append(s.collections, c)
	}
	return s.add(c, meta, secret)
}

// FailOn makes the named method (e.g. "CreateItem") return err from now on
func (s *MemoryStore) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

// Creates returns the CreateItem calls made so far
func (s *MemoryStore) Creates() []CreateCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CreateCall(nil), s.creates...)
}

// Closed reports whether Close was called
func (s *MemoryStore) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Collections returns all collections
func (s *MemoryStore) Collections(ctx context.Context) ([]CollectionHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("Collections"); err != nil {
		return nil, err
	}
	result := make([]CollectionHandle, 0, len(s.collections))
	for _, c := range s.collections {
		result = append(result, CollectionHandle(c.name))
	}
	return result, nil
}

// CollectionName returns the collection name
func (s *MemoryStore) CollectionName(ctx context.Context, h CollectionHandle) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(string(h)) == nil {
		return "", fmt.Errorf("%w: %s", ErrNoSuchCollection, h)
	}
	return string(h), nil
}

// Items returns all items in a collection
func (s *MemoryStore) Items(ctx context.Context, h CollectionHandle) ([]ItemHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("Items"); err != nil {
		return nil, err
	}
	c := s.find(string(h))
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchCollection, h)
	}
	result := make([]ItemHandle, 0, len(c.items))
	for _, it := range c.items {
		result = append(result, itemHandle(c.name, it.id))
	}
	return result, nil
}

// LoadSecret returns the secret of an item in an unlocked collection
func (s *MemoryStore) LoadSecret(ctx context.Context, item ItemHandle) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("LoadSecret"); err != nil {
		return "", err
	}
	c, it, err := s.lookup(item)
	if err != nil {
		return "", err
	}
	if c.locked {
		return "", fmt.Errorf("%w: %s", ErrLocked, c.name)
	}
	return it.secret, nil
}

// ItemMetadata returns a copy of an item's metadata
func (s *MemoryStore) ItemMetadata(ctx context.Context, item ItemHandle) (*ItemMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("ItemMetadata"); err != nil {
		return nil, err
	}
	_, it, err := s.lookup(item)
	if err != nil {
		return nil, err
	}
	meta := it.meta
	meta.Attributes = maps.Clone(it.meta.Attributes)
	return &meta, nil
}

// CreateItem creates an item; the collection must exist
func (s *MemoryStore) CreateItem(ctx context.Context, collection string, itemType ItemType, label string, attributes map[string]string, secret string) (ItemHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreateItem"); err != nil {
		return "", err
	}
	c := s.find(collection)
	if c == nil {
		return "", fmt.Errorf("%w: %s", ErrNoSuchCollection, collection)
	}
	if c.locked {
		return "", fmt.Errorf("%w: %s", ErrLocked, collection)
	}

	attrs := maps.Clone(attributes)
	s.creates = append(s.creates, CreateCall{
		Collection: collection,
		Type:       itemType,
		Label:      label,
		Attributes: maps.Clone(attributes),
		Secret:     secret,
	})

	now := time.Now()
	return s.add(c, ItemMetadata{
		Label:      label,
		Attributes: attrs,
		SchemaName: string(itemType.Schema()),
		Created:    now,
		Modified:   now,
	}, secret), nil
}

// Unlock unlocks the given collections
func (s *MemoryStore) Unlock(ctx context.Context, collections []CollectionHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("Unlock"); err != nil {
		return err
	}
	for _, h := range collections {
		c := s.find(string(h))
		if c == nil {
			return fmt.Errorf("%w: %s", ErrNoSuchCollection, h)
		}
		c.locked = false
	}
	return nil
}

// Owner returns the owner name reported for items
func (s *MemoryStore) Owner() string {
	return s.owner
}

// Close marks the store closed
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemoryStore) find(name string) *memCollection {
	for _, c := range s.collections {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (s *MemoryStore) add(c *memCollection, meta ItemMetadata, secret string) ItemHandle {
	it := &memItem{id: uuid.New().String(), meta: meta, secret: secret}
	if it.meta.Attributes == nil {
		it.meta.Attributes = map[string]string{}
	}
	c.items = append(c.items, it)
	return itemHandle(c.name, it.id)
}

func (s *MemoryStore) lookup(item ItemHandle) (*memCollection, *memItem, error) {
	name, id, ok := strings.Cut(string(item), "/")
	if !ok {
		return nil, nil, fmt.Errorf("invalid item handle: %s", item)
	}
	c := s.find(name)
	if c == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoSuchCollection, name)
	}
	for _, it := range c.items {
		if it.id == id {
			return c, it, nil
		}
	}
	return nil, nil, fmt.Errorf("item not found: %s", item)
}

func (s *MemoryStore) failure(method string) error {
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return s.failures[method]
}

func itemHandle(collection, id string) ItemHandle {
	return ItemHandle(collection + "/" + id)
}
