package store

import (
	"fmt"
	"path"
	"strings"
)

// Mapper maps collections and items to gopass entry paths
type Mapper struct {
	prefix string
}

// NewMapper creates a new path mapper with the given prefix
func NewMapper(prefix string) *Mapper {
	return &Mapper{prefix: strings.Trim(prefix, "/")}
}

// CollectionPath returns the gopass path for a collection
func (m *Mapper) CollectionPath(name string) string {
	return path.Join(m.prefix, name)
}

// ItemPath returns the gopass path for an item
func (m *Mapper) ItemPath(collection, id string) string {
	return path.Join(m.prefix, collection, id)
}

// ParsePath parses a gopass path and returns the collection and item ID
func (m *Mapper) ParsePath(gopassPath string) (collection, itemID string, err error) {
	if !strings.HasPrefix(gopassPath, m.prefix+"/") {
		return "", "", fmt.Errorf("path does not start with prefix: %s", gopassPath)
	}

	rest := strings.TrimPrefix(gopassPath, m.prefix+"/")
	parts := strings.SplitN(rest, "/", 2)

	if len(parts) == 1 {
		return parts[0], "", nil
	}
	return parts[0], parts[1], nil
}
