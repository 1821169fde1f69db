package format

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	xerrors "github.com/nikicat/secret-migrate/internal/errors"
	"github.com/nikicat/secret-migrate/internal/record"
)

// Attributes every browser login must carry to be converted
const (
	AttrSignonRealm     = "signon_realm"
	AttrUsernameValue   = "username_value"
	AttrActionURL       = "action_url"
	AttrUsernameElement = "username_element"
	AttrPasswordElement = "password_element"
	AttrApplication     = "application"
)

var requiredLoginAttrs = []string{
	AttrSignonRealm,
	AttrUsernameValue,
	AttrActionURL,
	AttrUsernameElement,
	AttrPasswordElement,
}

// FirefoxDoc is the document read by the Firefox "Password Exporter" extension
type FirefoxDoc struct {
	XMLName xml.Name       `xml:"xml"`
	Entries FirefoxEntries `xml:"entries"`
}

// FirefoxEntries is the <entries> element
type FirefoxEntries struct {
	Ext           string         `xml:"ext,attr"`
	ExtXMLVersion string         `xml:"extxmlversion,attr"`
	Type          string         `xml:"type,attr"`
	Encrypt       string         `xml:"encrypt,attr"`
	Entries       []FirefoxEntry `xml:"entry"`
}

// FirefoxEntry is one saved login
type FirefoxEntry struct {
	Host          string `xml:"host,attr"`
	User          string `xml:"user,attr"`
	Password      string `xml:"password,attr"`
	FormSubmitURL string `xml:"formSubmitURL,attr"`
	HTTPRealm     string `xml:"httpRealm,attr"`
	UserFieldName string `xml:"userFieldName,attr"`
	PassFieldName string `xml:"passFieldName,attr"`
}

// NewFirefoxDoc returns an empty unencrypted saved-logins document
func NewFirefoxDoc() *FirefoxDoc {
	return &FirefoxDoc{
		Entries: FirefoxEntries{
			Ext:           "Password Exporter",
			ExtXMLVersion: "1.1",
			Type:          "saved",
			Encrypt:       "false",
		},
	}
}

// IsBrowserLogin reports whether r looks like a login saved by a browser:
// its display name is a URL or its application attribute names Chrome
func IsBrowserLogin(r *record.Record) bool {
	return strings.HasPrefix(r.DisplayName, "http") ||
		strings.HasPrefix(r.Attr(AttrApplication), "chrome")
}

// ChromeToFirefox converts the browser logins in keyrings. Logins missing a
// required attribute are left out and reported in the returned error; the
// document holds every login that converted.
func ChromeToFirefox(keyrings record.Keyrings, logger *slog.Logger) (*FirefoxDoc, error) {
	if logger == nil {
		logger = slog.Default()
	}
	doc := NewFirefoxDoc()
	seen := make(map[[5]string]bool)
	var errs []error

	for _, name := range keyrings.Names() {
		for _, r := range keyrings[name] {
			if !IsBrowserLogin(r) {
				continue
			}

			entry, key, err := firefoxEntry(r)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if seen[key] {
				logger.Warn("duplicate login found",
					"realm", key[0], "username", key[1], "action_url", key[2])
			}
			seen[key] = true
			doc.Entries.Entries = append(doc.Entries.Entries, entry)
		}
	}
	return doc, errors.Join(errs...)
}

func firefoxEntry(r *record.Record) (FirefoxEntry, [5]string, error) {
	var key [5]string
	var missing []string
	for i, attr := range requiredLoginAttrs {
		if _, ok := r.Attributes[attr]; !ok {
			missing = append(missing, attr)
			continue
		}
		key[i] = r.Attr(attr)
	}
	if len(missing) > 0 {
		return FirefoxEntry{}, key, xerrors.New(xerrors.CodeInputMalformed,
			fmt.Sprintf("%s is missing %s", r, strings.Join(missing, ", ")),
			map[string]any{"collection": r.Collection, "label": r.Label, "missing": missing})
	}

	realm, err := url.Parse(key[0])
	if err != nil {
		return FirefoxEntry{}, key, xerrors.Wrap(xerrors.CodeInputMalformed,
			fmt.Sprintf("%s has an invalid signon_realm", r),
			map[string]any{"collection": r.Collection, "label": r.Label}, err)
	}
	host := realm.Host
	if realm.User != nil {
		host = realm.User.String() + "@" + host
	}

	return FirefoxEntry{
		Host:          realm.Scheme + "://" + host,
		User:          key[1],
		Password:      r.Secret,
		FormSubmitURL: key[2],
		HTTPRealm:     strings.TrimLeft(realm.Path, "/"),
		UserFieldName: key[3],
		PassFieldName: key[4],
	}, key, nil
}

// WriteFirefox writes doc as indented XML
func WriteFirefox(w io.Writer, doc *FirefoxDoc) error {
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return xerrors.Wrap(xerrors.CodeInternal, "encoding XML", nil, err)
	}
	out = append(out, '\n')
	if _, err := w.Write(out); err != nil {
		return xerrors.Wrap(xerrors.CodeIOFailed, "writing XML", nil, err)
	}
	return nil
}
