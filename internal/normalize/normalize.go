// Package normalize flattens records of the known schemas into the
// url,type,username,password,hostname,extra,name,folder row used by
// row-oriented export formats.
package normalize

import (
	"strings"

	"github.com/nikicat/secret-migrate/internal/record"
)

// Header is the column order of a Row
var Header = []string{"url", "type", "username", "password", "hostname", "extra", "name", "folder"}

// NoteURL is the placeholder url given to notes and network passwords
const NoteURL = "http://sn"

// Row is a normalized record
type Row struct {
	URL      string
	Type     string
	Username string
	Password string
	Hostname string
	Extra    string
	Name     string
	Folder   string
}

// Strings returns the row's columns in Header order
func (r Row) Strings() []string {
	return []string{r.URL, r.Type, r.Username, r.Password, r.Hostname, r.Extra, r.Name, r.Folder}
}

// rule flattens one schema. ok is false when the record is not eligible.
type rule func(r *record.Record, f map[string]any) (row Row, ok bool)

var rules = map[record.Schema]rule{
	record.SchemaChrome:          chromeRow,
	record.SchemaGeneric:         genericRow,
	record.SchemaNote:            noteRow,
	record.SchemaNetworkPassword: networkPasswordRow,
}

var (
	usernamePaths = []record.Path{
		record.Key(record.KeyAttributes, "username_value"),
		record.Key(record.KeyAttributes, "account"),
	}
)

// Supported reports whether rows can be produced for schema at all
func Supported(schema record.Schema) bool {
	_, ok := rules[schema]
	return ok
}

// Normalize flattens r. It returns false for records that row formats skip:
// unknown schemas, empty secrets and generic secrets without a username.
func Normalize(r *record.Record) (Row, bool) {
	if r.Secret == "" {
		return Row{}, false
	}
	fn, ok := rules[r.SchemaName]
	if !ok {
		return Row{}, false
	}
	row, ok := fn(r, r.Fields())
	if !ok {
		return Row{}, false
	}
	row.Type = string(r.SchemaName)
	row.Password = r.Secret
	return row, true
}

// Rows flattens every eligible record, collections in name order
func Rows(keyrings record.Keyrings) []Row {
	var rows []Row
	for _, name := range keyrings.Names() {
		for _, r := range keyrings[name] {
			if row, ok := Normalize(r); ok {
				rows = append(rows, row)
			}
		}
	}
	return rows
}

func chromeRow(r *record.Record, f map[string]any) (Row, bool) {
	return Row{
		URL:      record.FindFirstField(f, record.Key(record.KeyAttributes, "action_url"), record.Key(record.KeyLabel)),
		Username: record.FindFirstField(f, usernamePaths...),
		Hostname: record.FindFirstField(f, record.Key(record.KeyAttributes, "signon_realm")),
		Extra:    r.DisplayName,
		Name:     r.Label,
	}, true
}

func genericRow(r *record.Record, f map[string]any) (Row, bool) {
	username := record.FindFirstField(f, usernamePaths...)
	if username == "" {
		return Row{}, false
	}
	return Row{
		URL: record.FindFirstField(f,
			record.Key(record.KeyAttributes, "signon_realm"),
			record.Key(record.KeyAttributes, "service"),
			record.Key(record.KeyLabel)),
		Username: username,
		// top-level signon_realm only exists on records captured with that field
		Hostname: record.FindFirstField(f,
			record.Key(record.KeyAttributes, "signon_realm"),
			record.Key("signon_realm")),
		Extra:    r.DisplayName,
		Name:     r.Label,
	}, true
}

func noteRow(r *record.Record, _ map[string]any) (Row, bool) {
	words := strings.Split(r.Label, " ")
	return Row{
		URL:      NoteURL,
		Username: words[len(words)-1],
		Name:     r.Label,
	}, true
}

func networkPasswordRow(r *record.Record, f map[string]any) (Row, bool) {
	return Row{
		URL:      NoteURL,
		Username: record.FindFirstField(f, record.Key(record.KeyAttributes, "user")),
		Hostname: record.FindFirstField(f, record.Key("server")),
		Extra: record.FindFirstField(f,
			record.Key(record.KeyAttributes, "domain"),
			record.Key(record.KeyAttributes, "server")),
		Name: r.Label,
	}, true
}
