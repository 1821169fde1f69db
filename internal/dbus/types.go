package dbus

import (
	"github.com/godbus/dbus/v5"
)

// Secret represents a secret as transferred over D-Bus.
// Format: (oayays) - session path, parameters, value, content-type
type Secret struct {
	Session     dbus.ObjectPath
	Parameters  []byte
	Value       []byte
	ContentType string
}

// SecretServiceInterface is the D-Bus interface name for the Secret Service
const SecretServiceInterface = "org.freedesktop.Secret.Service"

// CollectionInterface is the D-Bus interface name for collections
const CollectionInterface = "org.freedesktop.Secret.Collection"

// ItemInterface is the D-Bus interface name for items
const ItemInterface = "org.freedesktop.Secret.Item"

// SessionInterface is the D-Bus interface name for sessions
const SessionInterface = "org.freedesktop.Secret.Session"

// PromptInterface is the D-Bus interface name for prompts
const PromptInterface = "org.freedesktop.Secret.Prompt"

// ServiceName is the well-known D-Bus name for the Secret Service
const ServiceName = "org.freedesktop.secrets"

// ServicePath is the object path for the Secret Service
const ServicePath = dbus.ObjectPath("/org/freedesktop/secrets")

// CollectionBasePath is the base path for collections
const CollectionBasePath = "/org/freedesktop/secrets/collection"

// NoPrompt is the path returned by the service when no prompt is required
const NoPrompt = dbus.ObjectPath("/")

// Property names used by the client
const (
	PropCollections    = SecretServiceInterface + ".Collections"
	PropCollectionItem = CollectionInterface + ".Items"
	PropItemLabel      = ItemInterface + ".Label"
	PropItemAttributes = ItemInterface + ".Attributes"
	PropItemType       = ItemInterface + ".Type"
	PropItemCreated    = ItemInterface + ".Created"
	PropItemModified   = ItemInterface + ".Modified"
)

// Algorithm names
const (
	AlgorithmPlain = "plain"
)

// ContentTypeText is the content type attached to secrets the client stores
const ContentTypeText = "text/plain; charset=utf8"
