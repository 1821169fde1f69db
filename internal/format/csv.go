package format

import (
	"encoding/csv"
	"io"

	xerrors "github.com/nikicat/secret-migrate/internal/errors"
	"github.com/nikicat/secret-migrate/internal/normalize"
)

// WriteCSV writes the header and one line per row
func WriteCSV(w io.Writer, rows []normalize.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(normalize.Header); err != nil {
		return xerrors.Wrap(xerrors.CodeInternal, "encoding CSV", nil, err)
	}
	for _, row := range rows {
		if err := cw.Write(row.Strings()); err != nil {
			return xerrors.Wrap(xerrors.CodeInternal, "encoding CSV", nil, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return xerrors.Wrap(xerrors.CodeInternal, "encoding CSV", nil, err)
	}
	return nil
}
