package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikicat/secret-migrate/internal/config"
	"github.com/nikicat/secret-migrate/internal/errors"
	"github.com/nikicat/secret-migrate/internal/format"
	"github.com/nikicat/secret-migrate/internal/record"
	"github.com/nikicat/secret-migrate/internal/store"
)

// useStore makes every command run against s
func useStore(t *testing.T, s store.Store) {
	prev := openStore
	openStore = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
		return s, nil
	}
	t.Cleanup(func() { openStore = prev })
}

// runCLI runs the command line with an isolated config and returns exit code, stdout and stderr
func runCLI(t *testing.T, args ...string) (int, string, string) {
	for _, k := range []string{"SECRET_MIGRATE_CONFIG", "SECRET_MIGRATE_BACKEND", "SECRET_MIGRATE_ALGORITHM",
		"SECRET_MIGRATE_GOPASS_PREFIX", "SECRET_MIGRATE_LOG_LEVEL", "SECRET_MIGRATE_LOG_FILE"} {
		t.Setenv(k, "")
	}
	args = append(args, "--config", filepath.Join(t.TempDir(), "none.yaml"))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func genericMeta(label, user string) store.ItemMetadata {
	return store.ItemMetadata{
		Label: label,
		Attributes: map[string]string{
			"xdg:schema": "org.freedesktop.Secret.Generic",
			"service":    label,
			"username":   user,
		},
		SchemaName: "org.freedesktop.Secret.Generic",
	}
}

func chromeMeta(realm string, attrs map[string]string) store.ItemMetadata {
	base := map[string]string{
		"xdg:schema":       "chrome_libsecret_password_schema",
		"signon_realm":     realm,
		"username_value":   "bob",
		"action_url":       realm + "login",
		"username_element": "email",
		"password_element": "pass",
	}
	for k, v := range attrs {
		if v == "" {
			delete(base, k)
			continue
		}
		base[k] = v
	}
	return store.ItemMetadata{Label: realm, Attributes: base, SchemaName: "chrome_libsecret_password_schema"}
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no command", nil, "missing command"},
		{"unknown command", []string{"bogus", "file"}, `unknown command "bogus"`},
		{"missing file", []string{"exportjson"}, "exactly one file argument"},
		{"too many files", []string{"import", "a.json", "b.json"}, "exactly one file argument"},
		{"unknown flag", []string{"exportcsv", "out.csv", "--nope"}, "unknown flag"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			useStore(t, store.NewMemoryStore())
			code, _, stderr := runCLI(t, tc.args...)
			assert.Equal(t, int(errors.ExitUsage), code)
			assert.Contains(t, stderr, tc.want)
			assert.Contains(t, stderr, "Usage:")
		})
	}
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "--version")
	assert.Equal(t, int(errors.ExitOK), code)
	assert.Contains(t, stdout, "dev")
}

func TestRun_InvalidConfig(t *testing.T) {
	code, _, stderr := runCLI(t, "exportjson", filepath.Join(t.TempDir(), "out.json"), "--backend", "kwallet")
	assert.Equal(t, int(errors.ExitConfig), code)
	assert.Contains(t, stderr, "SM_CFG_INVALID")
}

func TestRun_StoreUnavailable(t *testing.T) {
	prev := openStore
	openStore = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
		return nil, stderrors.New("no session bus")
	}
	t.Cleanup(func() { openStore = prev })

	code, _, stderr := runCLI(t, "exportjson", filepath.Join(t.TempDir(), "out.json"))
	assert.Equal(t, int(errors.ExitStore), code)
	assert.Contains(t, stderr, "no session bus")
}

func TestRun_ExportJSON(t *testing.T) {
	s := store.NewMemoryStore()
	s.AddItem("login", genericMeta("mail", "alice"), "pw1")
	s.AddItem("work", genericMeta("vpn", "bob"), "pw2")
	useStore(t, s)

	path := filepath.Join(t.TempDir(), "out.json")
	code, stdout, stderr := runCLI(t, "exportjson", path)
	require.Equal(t, int(errors.ExitOK), code, stderr)
	assert.Contains(t, stdout, "Exported 2 secrets from 2 keyrings")
	assert.True(t, s.Closed())

	keyrings, err := format.ReadJSONFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"login", "work"}, keyrings.Names())
	assert.Equal(t, "pw1", keyrings["login"][0].Secret)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRun_ExportCSV(t *testing.T) {
	s := store.NewMemoryStore()
	s.AddItem("login", store.ItemMetadata{
		Label:      "my secret note",
		Attributes: map[string]string{"xdg:schema": "org.gnome.keyring.Note"},
		SchemaName: "org.gnome.keyring.Note",
	}, "s3cr3t")
	s.AddItem("login", store.ItemMetadata{Label: "opaque", SchemaName: "com.example.Unknown"}, "x")
	useStore(t, s)

	path := filepath.Join(t.TempDir(), "out.csv")
	code, stdout, stderr := runCLI(t, "exportcsv", path)
	require.Equal(t, int(errors.ExitOK), code, stderr)
	assert.Contains(t, stdout, "Exported 1 of 2 secrets")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"url,type,username,password,hostname,extra,name,folder\n"+
			"http://sn,org.gnome.keyring.Note,note,s3cr3t,,,my secret note,\n",
		string(data))
}

func TestRun_ChromeToFirefox(t *testing.T) {
	s := store.NewMemoryStore()
	s.AddItem("login", chromeMeta("https://example.com/", nil), "pw")
	s.AddItem("login", chromeMeta("https://broken.example.com/", map[string]string{"password_element": ""}), "pw")
	s.AddItem("login", genericMeta("mail", "alice"), "pw1")
	useStore(t, s)

	path := filepath.Join(t.TempDir(), "out.xml")
	code, stdout, stderr := runCLI(t, "export_chrome_to_firefox", path)
	assert.Equal(t, int(errors.ExitInput), code)
	assert.Contains(t, stdout, "Exported 1 logins")
	assert.Contains(t, stderr, "password_element")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "<entry "))
	assert.Contains(t, string(data), `host="https://example.com"`)
}

func writeExport(t *testing.T, keyrings record.Keyrings) string {
	path := filepath.Join(t.TempDir(), "in.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, format.WriteJSON(f, keyrings))
	return path
}

func TestRun_ImportMissingDestination(t *testing.T) {
	keyrings := record.Keyrings{}
	keyrings.Add(record.FromItem("login", "org.freedesktop.secrets", genericMeta("mail", "alice"), "pw"))
	path := writeExport(t, keyrings)

	s := store.NewMemoryStore()
	useStore(t, s)

	code, _, stderr := runCLI(t, "import", path)
	assert.Equal(t, int(errors.ExitDestination), code)
	assert.Contains(t, stderr, "please create this keyring first")
	assert.Empty(t, s.Creates())
	assert.True(t, s.Closed())
}

func TestRun_ImportConflict(t *testing.T) {
	keyrings := record.Keyrings{}
	keyrings.Add(record.FromItem("login", "org.freedesktop.secrets", genericMeta("mail", "alice"), "incoming-secret"))
	keyrings.Add(record.FromItem("login", "org.freedesktop.secrets", genericMeta("vpn", "bob"), "vpn-secret"))
	path := writeExport(t, keyrings)

	s := store.NewMemoryStore()
	s.AddItem("login", genericMeta("mail", "alice"), "existing-secret")
	useStore(t, s)

	code, stdout, stderr := runCLI(t, "import", path, "--debug")
	require.Equal(t, int(errors.ExitOK), code, stderr)

	assert.Contains(t, stdout, "Existing secrets found for 'mail'")
	assert.Contains(t, stdout, " existing-secret\n")
	assert.Contains(t, stdout, " incoming-secret\n")
	assert.Contains(t, stdout, "Copying secret vpn")
	assert.Contains(t, stdout, "login: 1 created, 0 already present, 1 conflicts, 0 unsupported")

	for _, secret := range []string{"existing-secret", "incoming-secret", "vpn-secret"} {
		assert.NotContains(t, stderr, secret)
	}

	creates := s.Creates()
	require.Len(t, creates, 1)
	assert.Equal(t, "vpn", creates[0].Label)
}

func TestRun_ImportMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"login": [{"label": 5}]}`), 0o600))
	useStore(t, store.NewMemoryStore())

	code, _, _ := runCLI(t, "import", path)
	assert.Equal(t, int(errors.ExitInput), code)
}

func TestRun_ImportMissingFile(t *testing.T) {
	useStore(t, store.NewMemoryStore())
	code, _, _ := runCLI(t, "import", filepath.Join(t.TempDir(), "nope.json"))
	assert.Equal(t, int(errors.ExitIO), code)
}
