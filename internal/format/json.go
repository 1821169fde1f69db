// Package format reads and writes the exchange files: the loss-free JSON
// dump, the flattened CSV and the Firefox Password Exporter XML.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	xerrors "github.com/nikicat/secret-migrate/internal/errors"
	"github.com/nikicat/secret-migrate/internal/record"
)

// WriteJSON writes keyrings as {collection: [record...]} with two-space indentation
func WriteJSON(w io.Writer, keyrings record.Keyrings) error {
	doc := make(map[string][]*record.Record, len(keyrings))
	for name, recs := range keyrings {
		if recs == nil {
			recs = []*record.Record{}
		}
		doc[name] = recs
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return xerrors.Wrap(xerrors.CodeInternal, "encoding JSON", nil, err)
	}
	return nil
}

// ReadJSON parses a file written by WriteJSON. Every record gets the
// collection it is listed under.
func ReadJSON(r io.Reader) (record.Keyrings, error) {
	var doc map[string][]*record.Record
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInputMalformed, "parsing JSON", nil, err)
	}
	if doc == nil {
		return nil, xerrors.New(xerrors.CodeInputMalformed, "expected an object of collections", nil)
	}

	keyrings := make(record.Keyrings, len(doc))
	for name, recs := range doc {
		for i, rec := range recs {
			if rec == nil {
				return nil, xerrors.New(xerrors.CodeInputMalformed,
					fmt.Sprintf("record %d of collection %q is null", i, name),
					map[string]any{"collection": name, "index": i})
			}
			rec.Collection = name
		}
		keyrings[name] = recs
	}
	return keyrings, nil
}

// ReadJSONFile reads keyrings from the JSON file at path
func ReadJSONFile(path string) (record.Keyrings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeIOFailed, "opening input file",
			map[string]any{"path": path}, err)
	}
	defer f.Close()
	return ReadJSON(f)
}
