package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/nikicat/secret-migrate/internal/crypto"
	dbtypes "github.com/nikicat/secret-migrate/internal/dbus"
	"github.com/nikicat/secret-migrate/internal/record"
)

// ErrPromptDismissed is returned when the user dismisses an unlock prompt
var ErrPromptDismissed = errors.New("prompt dismissed")

const propertiesGet = "org.freedesktop.DBus.Properties.Get"

// SecretService is a client of the org.freedesktop.secrets D-Bus service
// (gnome-keyring, KeePassXC, gopass-secret-service, ...)
type SecretService struct {
	conn        *dbus.Conn
	service     dbus.BusObject
	session     crypto.Session
	sessionPath dbus.ObjectPath
	log         *slog.Logger
}

// NewSecretService connects to the session bus and opens a transport session
// with the given algorithm
func NewSecretService(ctx context.Context, algorithm string, logger *slog.Logger) (*SecretService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	session, err := crypto.NewSession(algorithm)
	if err != nil {
		return nil, err
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	s := &SecretService{
		conn:    conn,
		service: conn.Object(dbtypes.ServiceName, dbtypes.ServicePath),
		session: session,
		log:     logger,
	}

	if err := s.openSession(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	logger.Debug("opened secret service session", "algorithm", algorithm, "session", s.sessionPath)
	return s, nil
}

func (s *SecretService) openSession(ctx context.Context) error {
	var input dbus.Variant
	if s.session.Algorithm() == dbtypes.AlgorithmPlain {
		input = dbus.MakeVariant("")
	} else {
		input = dbus.MakeVariant(s.session.Input())
	}

	var output dbus.Variant
	var path dbus.ObjectPath
	err := s.service.CallWithContext(ctx, dbtypes.SecretServiceInterface+".OpenSession", 0,
		s.session.Algorithm(), input).Store(&output, &path)
	if err != nil {
		if dbtypes.ErrorName(err) == dbtypes.ErrServiceUnknown {
			return fmt.Errorf("no %s provider on the session bus: %w", dbtypes.ServiceName, err)
		}
		return fmt.Errorf("failed to open session: %w", err)
	}

	out, _ := output.Value().([]byte)
	if err := s.session.Establish(out); err != nil {
		return fmt.Errorf("failed to establish session: %w", err)
	}
	s.sessionPath = path
	return nil
}

// Collections returns the object paths of all collections
func (s *SecretService) Collections(ctx context.Context) ([]CollectionHandle, error) {
	v, err := s.property(ctx, s.service, dbtypes.PropCollections)
	if err != nil {
		return nil, err
	}
	paths, err := objectPaths(v)
	if err != nil {
		return nil, err
	}
	result := make([]CollectionHandle, len(paths))
	for i, p := range paths {
		result[i] = CollectionHandle(p)
	}
	return result, nil
}

// CollectionName returns the keyring name: the last segment of the collection path
func (s *SecretService) CollectionName(ctx context.Context, h CollectionHandle) (string, error) {
	return dbtypes.ParseCollectionPath(dbus.ObjectPath(h))
}

// Items returns the object paths of all items in a collection
func (s *SecretService) Items(ctx context.Context, h CollectionHandle) ([]ItemHandle, error) {
	obj := s.conn.Object(dbtypes.ServiceName, dbus.ObjectPath(h))
	v, err := s.property(ctx, obj, dbtypes.PropCollectionItem)
	if err != nil {
		if dbtypes.IsNoSuchObject(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoSuchCollection, h)
		}
		return nil, err
	}
	paths, err := objectPaths(v)
	if err != nil {
		return nil, err
	}
	result := make([]ItemHandle, len(paths))
	for i, p := range paths {
		result[i] = ItemHandle(p)
	}
	return result, nil
}

// LoadSecret fetches and decrypts an item's secret
func (s *SecretService) LoadSecret(ctx context.Context, item ItemHandle) (string, error) {
	obj := s.conn.Object(dbtypes.ServiceName, dbus.ObjectPath(item))

	var secret dbtypes.Secret
	err := obj.CallWithContext(ctx, dbtypes.ItemInterface+".GetSecret", 0, s.sessionPath).Store(&secret)
	if err != nil {
		if dbtypes.IsLocked(err) {
			return "", fmt.Errorf("%w: %s", ErrLocked, item)
		}
		return "", fmt.Errorf("failed to get secret of %s: %w", item, err)
	}

	plaintext, err := s.session.Decrypt(secret.Parameters, secret.Value)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt secret of %s: %w", item, err)
	}
	return string(plaintext), nil
}

// ItemMetadata reads an item's label, attributes and timestamps
func (s *SecretService) ItemMetadata(ctx context.Context, item ItemHandle) (*ItemMetadata, error) {
	obj := s.conn.Object(dbtypes.ServiceName, dbus.ObjectPath(item))
	meta := &ItemMetadata{}

	v, err := s.property(ctx, obj, dbtypes.PropItemLabel)
	if err != nil {
		return nil, err
	}
	meta.Label, _ = v.Value().(string)

	v, err = s.property(ctx, obj, dbtypes.PropItemAttributes)
	if err != nil {
		return nil, err
	}
	attrs, ok := v.Value().(map[string]string)
	if !ok {
		return nil, fmt.Errorf("unexpected attributes type %s on %s", v.Signature(), item)
	}
	meta.Attributes = attrs
	meta.SchemaName = attrs[record.SchemaAttribute]

	if v, err = s.property(ctx, obj, dbtypes.PropItemCreated); err == nil {
		meta.Created = unixTime(v)
	}
	if v, err = s.property(ctx, obj, dbtypes.PropItemModified); err == nil {
		meta.Modified = unixTime(v)
	}
	return meta, nil
}

// CreateItem creates an item in the named collection. It never replaces an
// existing item.
func (s *SecretService) CreateItem(ctx context.Context, collection string, itemType ItemType, label string, attributes map[string]string, secret string) (ItemHandle, error) {
	h, err := FindCollection(ctx, s, collection)
	if err != nil {
		return "", err
	}

	attrs := make(map[string]string, len(attributes)+1)
	for k, v := range attributes {
		attrs[k] = v
	}
	schema := string(itemType.Schema())
	if _, ok := attrs[record.SchemaAttribute]; !ok {
		attrs[record.SchemaAttribute] = schema
	}

	params, ciphertext, err := s.session.Encrypt([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt secret: %w", err)
	}

	props := map[string]dbus.Variant{
		dbtypes.PropItemLabel:      dbus.MakeVariant(label),
		dbtypes.PropItemAttributes: dbus.MakeVariant(attrs),
		dbtypes.PropItemType:       dbus.MakeVariant(schema),
	}
	sec := dbtypes.Secret{
		Session:     s.sessionPath,
		Parameters:  params,
		Value:       ciphertext,
		ContentType: dbtypes.ContentTypeText,
	}

	obj := s.conn.Object(dbtypes.ServiceName, dbus.ObjectPath(h))
	var itemPath, promptPath dbus.ObjectPath
	err = obj.CallWithContext(ctx, dbtypes.CollectionInterface+".CreateItem", 0, props, sec, false).Store(&itemPath, &promptPath)
	if err != nil {
		return "", fmt.Errorf("failed to create item in %s: %w", collection, err)
	}

	if promptPath != dbtypes.NoPrompt {
		result, err := s.prompt(ctx, promptPath)
		if err != nil {
			return "", err
		}
		itemPath, _ = result.Value().(dbus.ObjectPath)
	}
	return ItemHandle(itemPath), nil
}

// Unlock unlocks the given collections, running the service's prompt if one is required
func (s *SecretService) Unlock(ctx context.Context, collections []CollectionHandle) error {
	if len(collections) == 0 {
		return nil
	}
	paths := make([]dbus.ObjectPath, len(collections))
	for i, h := range collections {
		paths[i] = dbus.ObjectPath(h)
	}

	var unlocked []dbus.ObjectPath
	var promptPath dbus.ObjectPath
	err := s.service.CallWithContext(ctx, dbtypes.SecretServiceInterface+".Unlock", 0, paths).Store(&unlocked, &promptPath)
	if err != nil {
		return fmt.Errorf("failed to unlock: %w", err)
	}
	s.log.Debug("unlock requested", "objects", len(paths), "unlocked", len(unlocked), "prompt", promptPath)

	if promptPath == dbtypes.NoPrompt {
		return nil
	}
	_, err = s.prompt(ctx, promptPath)
	return err
}

// Owner returns the well-known bus name of the service
func (s *SecretService) Owner() string {
	return dbtypes.ServiceName
}

// Close closes the transport session and the bus connection
func (s *SecretService) Close() error {
	if s.sessionPath != "" {
		obj := s.conn.Object(dbtypes.ServiceName, s.sessionPath)
		if err := obj.Call(dbtypes.SessionInterface+".Close", 0).Err; err != nil {
			s.log.Warn("failed to close session", "session", s.sessionPath, "error", err)
		}
	}
	s.session.Close()
	return s.conn.Close()
}

// prompt runs a Secret Service prompt and waits for its Completed signal.
// Cancelling ctx dismisses the prompt.
func (s *SecretService) prompt(ctx context.Context, path dbus.ObjectPath) (dbus.Variant, error) {
	match := []dbus.MatchOption{
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(dbtypes.PromptInterface),
		dbus.WithMatchMember("Completed"),
	}
	if err := s.conn.AddMatchSignal(match...); err != nil {
		return dbus.Variant{}, fmt.Errorf("failed to watch prompt: %w", err)
	}
	defer s.conn.RemoveMatchSignal(match...)

	signals := make(chan *dbus.Signal, 8)
	s.conn.Signal(signals)
	defer s.conn.RemoveSignal(signals)

	obj := s.conn.Object(dbtypes.ServiceName, path)
	if err := obj.CallWithContext(ctx, dbtypes.PromptInterface+".Prompt", 0, "").Err; err != nil {
		return dbus.Variant{}, fmt.Errorf("failed to show prompt: %w", err)
	}
	s.log.Info("waiting for prompt to complete", "prompt", path)

	for {
		select {
		case <-ctx.Done():
			if err := obj.Call(dbtypes.PromptInterface+".Dismiss", 0).Err; err != nil {
				s.log.Warn("failed to dismiss prompt", "prompt", path, "error", err)
			}
			return dbus.Variant{}, ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return dbus.Variant{}, errors.New("connection closed while waiting for prompt")
			}
			dismissed, result, done := promptCompleted(sig, path)
			if !done {
				continue
			}
			if dismissed {
				return dbus.Variant{}, ErrPromptDismissed
			}
			return result, nil
		}
	}
}

// promptCompleted decodes a Prompt.Completed signal for path
func promptCompleted(sig *dbus.Signal, path dbus.ObjectPath) (dismissed bool, result dbus.Variant, done bool) {
	if sig == nil || sig.Path != path || sig.Name != dbtypes.PromptInterface+".Completed" || len(sig.Body) < 2 {
		return false, dbus.Variant{}, false
	}
	dismissed, _ = sig.Body[0].(bool)
	result, _ = sig.Body[1].(dbus.Variant)
	return dismissed, result, true
}

func (s *SecretService) property(ctx context.Context, obj dbus.BusObject, name string) (dbus.Variant, error) {
	iface, prop := splitProperty(name)
	var v dbus.Variant
	if err := obj.CallWithContext(ctx, propertiesGet, 0, iface, prop).Store(&v); err != nil {
		return dbus.Variant{}, fmt.Errorf("failed to read %s of %s: %w", name, obj.Path(), err)
	}
	return v, nil
}

// splitProperty splits "org.freedesktop.Secret.Item.Label" into interface and property
func splitProperty(name string) (iface, prop string) {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[:i], name[i+1:]
		}
	}
	return "", name
}

func objectPaths(v dbus.Variant) ([]dbus.ObjectPath, error) {
	switch paths := v.Value().(type) {
	case []dbus.ObjectPath:
		return paths, nil
	case []interface{}:
		result := make([]dbus.ObjectPath, 0, len(paths))
		for _, p := range paths {
			op, ok := p.(dbus.ObjectPath)
			if !ok {
				return nil, fmt.Errorf("unexpected element %T in object path list", p)
			}
			result = append(result, op)
		}
		return result, nil
	}
	return nil, fmt.Errorf("expected object path list, got %s", v.Signature())
}

func unixTime(v dbus.Variant) time.Time {
	sec, ok := v.Value().(uint64)
	if !ok || sec == 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), 0)
}
