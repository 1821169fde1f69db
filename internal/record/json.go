package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type wireRecord struct {
	DisplayName string         `json:"display_name"`
	OwnerName   string         `json:"owner_name"`
	Label       string         `json:"label"`
	Secret      string         `json:"secret"`
	Modified    int64          `json:"mtime"`
	Created     int64          `json:"ctime"`
	Attributes  map[string]any `json:"attributes"`
	SchemaName  string         `json:"schema_name"`
}

// MarshalJSON encodes the record in the exchange format, secret included
func (r *Record) MarshalJSON() ([]byte, error) {
	if len(r.Extra) > 0 {
		return json.Marshal(r.Fields())
	}
	attrs := r.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	return json.Marshal(wireRecord{
		DisplayName: r.DisplayName,
		OwnerName:   r.OwnerName,
		Label:       r.Label,
		Secret:      r.Secret,
		Modified:    unixSeconds(r.Modified),
		Created:     unixSeconds(r.Created),
		Attributes:  attrs,
		SchemaName:  string(r.SchemaName),
	})
}

// UnmarshalJSON decodes a record from the exchange format.
// Unknown top-level fields are kept in Extra; numbers are kept as json.Number.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("record must be an object")
	}

	var out Record
	var err error
	str := func(key string) string {
		v, ok := raw[key]
		delete(raw, key)
		if !ok || v == nil || err != nil {
			return ""
		}
		s, isStr := v.(string)
		if !isStr {
			err = fmt.Errorf("record field %q: expected string, got %T", key, v)
		}
		return s
	}
	num := func(key string) int64 {
		v, ok := raw[key]
		delete(raw, key)
		if !ok || v == nil || err != nil {
			return 0
		}
		n, isNum := v.(json.Number)
		if !isNum {
			err = fmt.Errorf("record field %q: expected number, got %T", key, v)
			return 0
		}
		if i, convErr := n.Int64(); convErr == nil {
			return i
		}
		f, convErr := n.Float64()
		if convErr != nil {
			err = fmt.Errorf("record field %q: %w", key, convErr)
		}
		return int64(f)
	}

	out.DisplayName = str(KeyDisplayName)
	out.OwnerName = str(KeyOwnerName)
	out.Label = str(KeyLabel)
	out.Secret = str(KeySecret)
	out.SchemaName = Schema(str(KeySchemaName))
	out.Modified = fromUnix(num(KeyModified))
	out.Created = fromUnix(num(KeyCreated))
	if err != nil {
		return err
	}

	switch attrs := raw[KeyAttributes].(type) {
	case nil:
		out.Attributes = map[string]any{}
	case map[string]any:
		out.Attributes = attrs
	default:
		return fmt.Errorf("record field %q: expected object, got %T", KeyAttributes, attrs)
	}
	delete(raw, KeyAttributes)

	if len(raw) > 0 {
		out.Extra = raw
	}
	out.Collection = r.Collection
	*r = out
	return nil
}
