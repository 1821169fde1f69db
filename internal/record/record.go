package record

import (
	"fmt"
	"maps"
	"sort"
	"time"
)

// Schema classifies the attribute shape of an item
type Schema string

// Known schemas
const (
	SchemaChrome          Schema = "chrome_libsecret_password_schema"
	SchemaGeneric         Schema = "org.freedesktop.Secret.Generic"
	SchemaNote            Schema = "org.gnome.keyring.Note"
	SchemaNetworkPassword Schema = "org.gnome.keyring.NetworkPassword"
)

// SchemaAttribute is the attribute the Secret Service uses to carry the schema name
const SchemaAttribute = "xdg:schema"

// Top-level field names, as they appear in the JSON exchange format
const (
	KeyDisplayName = "display_name"
	KeyOwnerName   = "owner_name"
	KeyLabel       = "label"
	KeySecret      = "secret"
	KeyModified    = "mtime"
	KeyCreated     = "ctime"
	KeyAttributes  = "attributes"
	KeySchemaName  = "schema_name"
)

// Record is one secret item together with its metadata.
// Records are treated as values: nothing in this module mutates a record after
// it has been built, and comparisons work on copies.
type Record struct {
	// Collection is the keyring the item belongs to (the JSON map key, not a record field)
	Collection string

	DisplayName string
	OwnerName   string
	Label       string

	// Secret is the plaintext credential. Never log it.
	Secret string

	SchemaName Schema

	// Attributes are the schema-specific lookup attributes
	Attributes map[string]any

	Created  time.Time
	Modified time.Time

	// Extra holds unknown top-level fields read from an exchange file
	Extra map[string]any
}

// Metadata is what a secret store reports about an item, secret aside
type Metadata struct {
	Label      string
	Attributes map[string]string
	SchemaName string
	Created    time.Time
	Modified   time.Time
}

// FromItem builds a record from store metadata and the loaded secret
func FromItem(collection, owner string, meta Metadata, secret string) *Record {
	attrs := make(map[string]any, len(meta.Attributes))
	for k, v := range meta.Attributes {
		attrs[k] = v
	}
	schema := meta.SchemaName
	if schema == "" {
		schema = meta.Attributes[SchemaAttribute]
	}
	return &Record{
		Collection:  collection,
		DisplayName: meta.Label,
		OwnerName:   owner,
		Label:       meta.Label,
		Secret:      secret,
		SchemaName:  Schema(schema),
		Attributes:  attrs,
		Created:     meta.Created,
		Modified:    meta.Modified,
	}
}

// Clone returns a deep copy of the record's maps
func (r *Record) Clone() *Record {
	c := *r
	c.Attributes = copyMap(r.Attributes)
	if r.Extra != nil {
		c.Extra = copyMap(r.Extra)
	}
	return &c
}

// Attr returns attribute key as a string, or "" when absent
func (r *Record) Attr(key string) string {
	v, ok := r.Attributes[key]
	if !ok {
		return ""
	}
	return stringify(v)
}

// Fields returns a fresh nested map view of the record keyed by JSON field names.
// The attributes map in the result is a copy.
func (r *Record) Fields() map[string]any {
	f := make(map[string]any, 8+len(r.Extra))
	for k, v := range r.Extra {
		f[k] = v
	}
	f[KeyDisplayName] = r.DisplayName
	f[KeyOwnerName] = r.OwnerName
	f[KeyLabel] = r.Label
	f[KeySecret] = r.Secret
	f[KeyModified] = unixSeconds(r.Modified)
	f[KeyCreated] = unixSeconds(r.Created)
	f[KeyAttributes] = copyMap(r.Attributes)
	f[KeySchemaName] = string(r.SchemaName)
	return f
}

// StringAttributes returns the attributes with every value coerced to a string
func (r *Record) StringAttributes() map[string]string {
	out := make(map[string]string, len(r.Attributes))
	for k, v := range r.Attributes {
		out[k] = stringify(v)
	}
	return out
}

func (r *Record) String() string {
	return fmt.Sprintf("%s/%q (%s)", r.Collection, r.DisplayName, r.SchemaName)
}

// Keyrings maps collection names to their records, in store order
type Keyrings map[string][]*Record

// Add appends r to its collection
func (k Keyrings) Add(r *Record) {
	k[r.Collection] = append(k[r.Collection], r)
}

// Names returns the collection names in sorted order
func (k Keyrings) Names() []string {
	names := make([]string, 0, len(k))
	for name := range k {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the total number of records
func (k Keyrings) Len() int {
	n := 0
	for _, recs := range k {
		n += len(recs)
	}
	return n
}

func unixSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// copyMap copies m, recursing into nested maps
func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	c := maps.Clone(m)
	for k, v := range c {
		if nested, ok := v.(map[string]any); ok {
			c[k] = copyMap(nested)
		}
	}
	return c
}
