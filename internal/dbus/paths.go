package dbus

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// CollectionPath returns the D-Bus object path for a collection
func CollectionPath(name string) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("%s/%s", CollectionBasePath, name))
}

// ItemPath returns the D-Bus object path for an item
func ItemPath(collection, itemID string) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("%s/%s/%s", CollectionBasePath, collection, itemID))
}

// ParseCollectionPath extracts the collection name from a D-Bus path.
// Item paths yield the name of the collection that holds them.
func ParseCollectionPath(path dbus.ObjectPath) (string, error) {
	prefix := CollectionBasePath + "/"
	if !strings.HasPrefix(string(path), prefix) {
		return "", fmt.Errorf("invalid collection path: %s", path)
	}
	rest := strings.TrimPrefix(string(path), prefix)
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		return "", fmt.Errorf("invalid collection path: %s", path)
	}
	return parts[0], nil
}

// ParseItemPath extracts the collection name and item ID from a D-Bus path
func ParseItemPath(path dbus.ObjectPath) (collection, itemID string, err error) {
	prefix := CollectionBasePath + "/"
	if !strings.HasPrefix(string(path), prefix) {
		return "", "", fmt.Errorf("invalid item path: %s", path)
	}
	rest := strings.TrimPrefix(string(path), prefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid item path: %s", path)
	}
	return parts[0], parts[1], nil
}

// IsCollectionPath checks if the path is a valid collection path
func IsCollectionPath(path dbus.ObjectPath) bool {
	prefix := CollectionBasePath + "/"
	if !strings.HasPrefix(string(path), prefix) {
		return false
	}
	rest := strings.TrimPrefix(string(path), prefix)
	return rest != "" && !strings.Contains(rest, "/")
}

// IsItemPath checks if the path is a valid item path
func IsItemPath(path dbus.ObjectPath) bool {
	prefix := CollectionBasePath + "/"
	if !strings.HasPrefix(string(path), prefix) {
		return false
	}
	rest := strings.TrimPrefix(string(path), prefix)
	// Should be exactly two segments
	parts := strings.Split(rest, "/")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}
