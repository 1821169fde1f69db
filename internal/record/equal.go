package record

import (
	"github.com/google/go-cmp/cmp"
)

// gnome-keyring stamps this attribute on every item it creates
const attrDateCreated = "date_created"

// RoughlyEqual reports whether a and b describe the same secret once volatile
// timestamps are dropped. With ignoreSecret the secret value is dropped too,
// which matches items that share an identity but hold different secrets.
// Attribute values compare in their string form, the only form a store keeps.
// Neither record is modified.
func RoughlyEqual(a, b *Record, ignoreSecret bool) bool {
	return cmp.Equal(significant(a, ignoreSecret), significant(b, ignoreSecret))
}

func significant(r *Record, ignoreSecret bool) map[string]any {
	f := r.Fields()
	delete(f, KeyModified)
	delete(f, KeyCreated)
	attrs := r.StringAttributes()
	delete(attrs, attrDateCreated)
	f[KeyAttributes] = attrs
	if ignoreSecret {
		delete(f, KeySecret)
	}
	return f
}
