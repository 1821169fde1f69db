package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gopasspw/gopass/pkg/gopass"
	"github.com/gopasspw/gopass/pkg/gopass/api"
	"github.com/gopasspw/gopass/pkg/gopass/secrets"

	dbtypes "github.com/nikicat/secret-migrate/internal/dbus"
	"github.com/nikicat/secret-migrate/internal/record"
)

const (
	metaPrefix     = "_ss_"
	labelKey       = "_ss_label"
	createdKey     = "_ss_created"
	modifiedKey    = "_ss_modified"
	contentTypeKey = "_ss_content_type"
)

// gopassBackend is the part of gopass.Store the migration needs
type gopassBackend interface {
	List(ctx context.Context) ([]string, error)
	Get(ctx context.Context, name, revision string) (gopass.Secret, error)
	Set(ctx context.Context, name string, sec gopass.Byter) error
	Close(ctx context.Context) error
}

// itemData is one decoded gopass entry
type itemData struct {
	Label       string
	Secret      string
	ContentType string
	Attributes  map[string]string
	Created     time.Time
	Modified    time.Time
}

// GopassStore reads and writes the entry layout used by gopass-secret-service:
// <prefix>/<collection>/_meta for collection metadata and <prefix>/<collection>/<uuid>
// per item, with the secret as the password and metadata as key-value pairs.
type GopassStore struct {
	store  gopassBackend
	mapper *Mapper
	log    *slog.Logger

	// entries are decrypted once per run; metadata and secret come from the same read
	mu    sync.Mutex
	cache map[ItemHandle]*itemData
}

// NewGopassStore opens the gopass store configured for the current user
func NewGopassStore(ctx context.Context, prefix string, logger *slog.Logger) (*GopassStore, error) {
	store, err := api.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gopass: %w", err)
	}
	return newGopassStore(store, prefix, logger), nil
}

func newGopassStore(backend gopassBackend, prefix string, logger *slog.Logger) *GopassStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &GopassStore{
		store:  backend,
		mapper: NewMapper(prefix),
		log:    logger,
		cache:  make(map[ItemHandle]*itemData),
	}
}

// Collections returns all collection names under the prefix
func (s *GopassStore) Collections(ctx context.Context) ([]CollectionHandle, error) {
	allPaths, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	collections := make(map[string]bool)
	for _, p := range allPaths {
		if !strings.HasPrefix(p, s.mapper.prefix+"/") {
			continue
		}

		coll, _, err := s.mapper.ParsePath(p)
		if err != nil {
			continue
		}

		// Skip special entries
		if strings.HasPrefix(coll, "_") {
			continue
		}

		collections[coll] = true
	}

	names := make([]string, 0, len(collections))
	for coll := range collections {
		names = append(names, coll)
	}
	sort.Strings(names)

	result := make([]CollectionHandle, len(names))
	for i, n := range names {
		result[i] = CollectionHandle(n)
	}
	return result, nil
}

// CollectionName returns the collection name; gopass handles are names
func (s *GopassStore) CollectionName(ctx context.Context, h CollectionHandle) (string, error) {
	return string(h), nil
}

// Items returns all items in a collection
func (s *GopassStore) Items(ctx context.Context, h CollectionHandle) ([]ItemHandle, error) {
	allPaths, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	collPath := s.mapper.CollectionPath(string(h))
	var items []ItemHandle

	for _, p := range allPaths {
		if !strings.HasPrefix(p, collPath+"/") {
			continue
		}

		coll, itemID, err := s.mapper.ParsePath(p)
		if err != nil || itemID == "" {
			continue
		}

		// Skip metadata entries
		if strings.HasPrefix(itemID, "_") {
			continue
		}

		items = append(items, ItemHandle(s.mapper.ItemPath(coll, itemID)))
	}

	return items, nil
}

// LoadSecret returns the item's password line
func (s *GopassStore) LoadSecret(ctx context.Context, item ItemHandle) (string, error) {
	data, err := s.getItem(ctx, item)
	if err != nil {
		return "", err
	}
	return data.Secret, nil
}

// ItemMetadata returns the item's label, attributes and timestamps
func (s *GopassStore) ItemMetadata(ctx context.Context, item ItemHandle) (*ItemMetadata, error) {
	data, err := s.getItem(ctx, item)
	if err != nil {
		return nil, err
	}
	attrs := make(map[string]string, len(data.Attributes))
	for k, v := range data.Attributes {
		attrs[k] = v
	}
	return &ItemMetadata{
		Label:      data.Label,
		Attributes: attrs,
		SchemaName: attrs[record.SchemaAttribute],
		Created:    data.Created,
		Modified:   data.Modified,
	}, nil
}

func (s *GopassStore) getItem(ctx context.Context, item ItemHandle) (*itemData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if data, ok := s.cache[item]; ok {
		return data, nil
	}

	sec, err := s.store.Get(ctx, string(item), "latest")
	if err != nil {
		return nil, fmt.Errorf("item not found: %s: %w", item, err)
	}

	data := &itemData{
		Secret:      sec.Password(),
		ContentType: "text/plain",
		Attributes:  make(map[string]string),
	}

	for _, key := range sec.Keys() {
		val, ok := sec.Get(key)
		if !ok {
			continue
		}

		switch key {
		case labelKey:
			data.Label = val
		case createdKey:
			if ts, err := time.Parse(time.RFC3339, val); err == nil {
				data.Created = ts
			}
		case modifiedKey:
			if ts, err := time.Parse(time.RFC3339, val); err == nil {
				data.Modified = ts
			}
		case contentTypeKey:
			data.ContentType = val
		default:
			// Regular attribute (skip internal metadata)
			if !strings.HasPrefix(key, metaPrefix) {
				data.Attributes[decodeAttrKey(key)] = val
			}
		}
	}

	s.cache[item] = data
	return data, nil
}

// CreateItem creates a new item in an existing collection
func (s *GopassStore) CreateItem(ctx context.Context, collection string, itemType ItemType, label string, attributes map[string]string, secret string) (ItemHandle, error) {
	exists, err := s.collectionExists(ctx, collection)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrNoSuchCollection, collection)
	}

	now := time.Now()

	sec := secrets.New()
	sec.SetPassword(secret)
	_ = sec.Set(labelKey, label)
	_ = sec.Set(createdKey, now.Format(time.RFC3339))
	_ = sec.Set(modifiedKey, now.Format(time.RFC3339))
	_ = sec.Set(contentTypeKey, "text/plain")

	attrs := make(map[string]string, len(attributes)+1)
	for k, v := range attributes {
		attrs[k] = v
	}
	if _, ok := attrs[record.SchemaAttribute]; !ok {
		attrs[record.SchemaAttribute] = string(itemType.Schema())
	}

	// Add user attributes (sorted for consistency)
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := sec.Set(encodeAttrKey(k), attrs[k]); err != nil {
			return "", fmt.Errorf("setting attribute %s: %w", k, err)
		}
	}

	itemPath := s.mapper.ItemPath(collection, uuid.New().String())
	if err := s.store.Set(ctx, itemPath, sec); err != nil {
		return "", err
	}
	s.log.Debug("created gopass entry", "path", itemPath, "type", itemType)

	return ItemHandle(itemPath), nil
}

func (s *GopassStore) collectionExists(ctx context.Context, name string) (bool, error) {
	handles, err := s.Collections(ctx)
	if err != nil {
		return false, err
	}
	for _, h := range handles {
		if string(h) == name {
			return true, nil
		}
	}
	return false, nil
}

// Unlock is a no-op: gopass decrypts entries on access through its own agent
func (s *GopassStore) Unlock(ctx context.Context, collections []CollectionHandle) error {
	return nil
}

// Owner returns the bus name gopass-secret-service publishes these entries under
func (s *GopassStore) Owner() string {
	return dbtypes.ServiceName
}

// Close closes the store
func (s *GopassStore) Close() error {
	s.mu.Lock()
	s.cache = make(map[ItemHandle]*itemData)
	s.mu.Unlock()
	return s.store.Close(context.Background())
}

// gopass key-value lines split on the first colon, so a colon in an attribute
// key (xdg:schema) is percent-encoded along with '%' itself. Other keys are
// stored verbatim, the way the gopass secret-service daemon writes them.
var attrKeyEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

func encodeAttrKey(k string) string {
	return attrKeyEscaper.Replace(k)
}

func decodeAttrKey(k string) string {
	if !strings.Contains(k, "%") {
		return k
	}
	if d, err := url.PathUnescape(k); err == nil {
		return d
	}
	return k
}
