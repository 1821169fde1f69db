package format

import (
	"bytes"
	"io"
	"os"

	"github.com/natefinch/atomic"

	xerrors "github.com/nikicat/secret-migrate/internal/errors"
)

// FileMode is the permission of written export files; they hold cleartext secrets
const FileMode os.FileMode = 0o600

// WriteFile renders the whole document with encode, then replaces path with
// it atomically. An encode error leaves path untouched.
func WriteFile(path string, encode func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		return err
	}
	// atomic.WriteFile gives its temp file the mode of an existing target
	if err := os.Chmod(path, FileMode); err != nil && !os.IsNotExist(err) {
		return xerrors.Wrap(xerrors.CodeIOFailed, "setting output file mode",
			map[string]any{"path": path}, err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return xerrors.Wrap(xerrors.CodeIOFailed, "writing output file",
			map[string]any{"path": path}, err)
	}
	return nil
}
