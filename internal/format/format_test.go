package format

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "github.com/nikicat/secret-migrate/internal/errors"
	"github.com/nikicat/secret-migrate/internal/normalize"
	"github.com/nikicat/secret-migrate/internal/record"
)

func noteRecord() *record.Record {
	return &record.Record{
		Collection:  "login",
		DisplayName: "my secret note",
		Label:       "my secret note",
		Secret:      "s3cr3t",
		SchemaName:  record.SchemaNote,
		Attributes:  map[string]any{"xdg:schema": "org.gnome.keyring.Note"},
	}
}

func chromeLogin(realm, user string) *record.Record {
	return &record.Record{
		Collection:  "login",
		DisplayName: realm,
		Label:       realm,
		Secret:      "pw&<\"x\">",
		SchemaName:  record.SchemaChrome,
		Attributes: map[string]any{
			"xdg:schema":       "chrome_libsecret_password_schema",
			"signon_realm":     realm,
			"username_value":   user,
			"action_url":       realm + "login",
			"username_element": "email",
			"password_element": "pass",
		},
	}
}

func TestWriteCSVNote(t *testing.T) {
	keyrings := record.Keyrings{}
	keyrings.Add(noteRecord())

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, normalize.Rows(keyrings)))
	assert.Equal(t,
		"url,type,username,password,hostname,extra,name,folder\n"+
			"http://sn,org.gnome.keyring.Note,note,s3cr3t,,,my secret note,\n",
		buf.String())
}

func TestWriteCSVQuoting(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []normalize.Row{{URL: "http://sn", Password: "a,b", Name: "say \"hi\""}}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `http://sn,,,"a,b",,,"say ""hi""",`, lines[1])
}

func TestJSONRoundTrip(t *testing.T) {
	login := chromeLogin("https://example.com/", "bob")
	login.OwnerName = "org.freedesktop.secrets"
	login.Created = time.Unix(1600000000, 0)
	login.Modified = time.Unix(1700000000, 0)

	keyrings := record.Keyrings{"empty": nil}
	keyrings.Add(login)
	keyrings.Add(noteRecord())

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, keyrings))
	assert.Contains(t, buf.String(), "\"empty\": []")
	assert.Contains(t, buf.String(), "\n  \"login\": [\n")

	got, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"empty", "login"}, got.Names())
	assert.Empty(t, got["empty"])
	require.Len(t, got["login"], 2)
	for i, want := range keyrings["login"] {
		assert.Equal(t, "login", got["login"][i].Collection)
		assert.True(t, record.RoughlyEqual(want, got["login"][i], false), "record %d", i)
		assert.Equal(t, want.Created.Unix(), got["login"][i].Created.Unix())
		assert.Equal(t, want.Modified.Unix(), got["login"][i].Modified.Unix())
	}
}

func TestReadJSONInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "{"},
		{"array", "[]"},
		{"null document", "null"},
		{"null record", `{"login": [null]}`},
		{"bad record", `{"login": [{"secret": 1}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tc.input))
			require.Error(t, err)
			assert.True(t, xerrors.HasCode(err, xerrors.CodeInputMalformed), "got %v", err)
		})
	}
}

func TestReadJSONFileMissing(t *testing.T) {
	_, err := ReadJSONFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, xerrors.HasCode(err, xerrors.CodeIOFailed))
}

func TestIsBrowserLogin(t *testing.T) {
	assert.True(t, IsBrowserLogin(&record.Record{DisplayName: "https://example.com/"}))
	assert.True(t, IsBrowserLogin(&record.Record{
		DisplayName: "Chrome Safe Storage",
		Attributes:  map[string]any{"application": "chrome-12345"},
	}))
	assert.False(t, IsBrowserLogin(noteRecord()))
}

func TestChromeToFirefox(t *testing.T) {
	keyrings := record.Keyrings{}
	keyrings.Add(chromeLogin("https://user@example.com:8443/realm", "bob"))
	keyrings.Add(noteRecord())

	doc, err := ChromeToFirefox(keyrings, nil)
	require.NoError(t, err)
	require.Len(t, doc.Entries.Entries, 1)
	assert.Equal(t, FirefoxEntry{
		Host:          "https://user@example.com:8443",
		User:          "bob",
		Password:      "pw&<\"x\">",
		FormSubmitURL: "https://user@example.com:8443/realmlogin",
		HTTPRealm:     "realm",
		UserFieldName: "email",
		PassFieldName: "pass",
	}, doc.Entries.Entries[0])
}

func TestChromeToFirefoxDuplicatesKept(t *testing.T) {
	keyrings := record.Keyrings{}
	keyrings.Add(chromeLogin("https://example.com/", "bob"))
	keyrings.Add(chromeLogin("https://example.com/", "bob"))

	doc, err := ChromeToFirefox(keyrings, nil)
	require.NoError(t, err)
	assert.Len(t, doc.Entries.Entries, 2)
}

func TestChromeToFirefoxMissingAttributes(t *testing.T) {
	broken := chromeLogin("https://broken.example.com/", "eve")
	delete(broken.Attributes, "username_element")
	delete(broken.Attributes, "action_url")

	keyrings := record.Keyrings{}
	keyrings.Add(broken)
	keyrings.Add(chromeLogin("https://example.com/", "bob"))

	doc, err := ChromeToFirefox(keyrings, nil)
	require.Error(t, err)
	assert.True(t, xerrors.HasCode(err, xerrors.CodeInputMalformed))
	assert.Contains(t, err.Error(), "action_url, username_element")
	require.Len(t, doc.Entries.Entries, 1)
	assert.Equal(t, "bob", doc.Entries.Entries[0].User)
}

func TestWriteFirefox(t *testing.T) {
	keyrings := record.Keyrings{}
	keyrings.Add(chromeLogin("https://example.com/", "bob"))
	doc, err := ChromeToFirefox(keyrings, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteFirefox(&buf, doc))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<xml>\n"))
	assert.Contains(t, out, `<entries ext="Password Exporter" extxmlversion="1.1" type="saved" encrypt="false">`)
	assert.Contains(t, out, `host="https://example.com"`)
	assert.NotContains(t, out, `pw&<`)

	var parsed FirefoxDoc
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &parsed))
	require.Len(t, parsed.Entries.Entries, 1)
	assert.Equal(t, "pw&<\"x\">", parsed.Entries.Entries[0].Password)
	assert.Equal(t, "", parsed.Entries.Entries[0].HTTPRealm)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	require.NoError(t, WriteFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "new")
		return err
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, FileMode, info.Mode().Perm())
}

func TestWriteFileEncodeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	boom := errors.New("boom")

	err := WriteFile(path, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	assert.ErrorIs(t, err, boom)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteFileNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xml")
	require.NoError(t, WriteFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "<xml/>")
		return err
	}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, FileMode, info.Mode().Perm())
}

func TestWriteFileEncodeErrorKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	err := WriteFile(path, func(w io.Writer) error { return errors.New("boom") })
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestWriteFileBadDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.csv")
	err := WriteFile(path, func(w io.Writer) error { return nil })
	require.Error(t, err)
	assert.True(t, xerrors.HasCode(err, xerrors.CodeIOFailed))
}
