package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nikicat/secret-migrate/internal/errors"
	"github.com/nikicat/secret-migrate/internal/format"
	"github.com/nikicat/secret-migrate/internal/migrate"
	"github.com/nikicat/secret-migrate/internal/normalize"
	"github.com/nikicat/secret-migrate/internal/record"
	"github.com/nikicat/secret-migrate/internal/store"
)

// exactFile accepts exactly one file argument
func exactFile(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return usageError{fmt.Errorf("%s takes exactly one file argument, got %d", cmd.Name(), len(args))}
	}
	return nil
}

// NewExportJSONCommand creates the exportjson command
func NewExportJSONCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "exportjson <file>",
		Short: "Export all keyrings, secrets included, to a JSON file",
		Args:  exactFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			keyrings, err := a.export(cmd)
			if err != nil {
				return err
			}
			if err := format.WriteFile(args[0], func(w io.Writer) error {
				return format.WriteJSON(w, keyrings)
			}); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Exported %d secrets from %d keyrings to %s\n", keyrings.Len(), len(keyrings), args[0])
			return nil
		},
	}
}

// NewExportCSVCommand creates the exportcsv command
func NewExportCSVCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "exportcsv <file>",
		Short: "Export logins, notes and network passwords to a CSV file",
		Args:  exactFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			keyrings, err := a.export(cmd)
			if err != nil {
				return err
			}
			rows := normalize.Rows(keyrings)
			if err := format.WriteFile(args[0], func(w io.Writer) error {
				return format.WriteCSV(w, rows)
			}); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Exported %d of %d secrets to %s\n", len(rows), keyrings.Len(), args[0])
			return nil
		},
	}
}

// NewChromeToFirefoxCommand creates the export_chrome_to_firefox command
func NewChromeToFirefoxCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export_chrome_to_firefox <file>",
		Short: "Export Chrome logins for the Firefox Password Exporter extension",
		Args:  exactFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			keyrings, err := a.export(cmd)
			if err != nil {
				return err
			}
			doc, convErr := format.ChromeToFirefox(keyrings, a.Logger)
			if err := format.WriteFile(args[0], func(w io.Writer) error {
				return format.WriteFirefox(w, doc)
			}); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Exported %d logins to %s\n", len(doc.Entries.Entries), args[0])
			if convErr != nil {
				return errors.Wrap(errors.CodeInputMalformed, "some logins could not be converted", nil, convErr)
			}
			return nil
		},
	}
}

// NewImportCommand creates the import command
func NewImportCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSON export into existing keyrings",
		Long: `Import a file written by exportjson.

Every keyring named in the file must already exist. Items already present are
skipped. Items that exist with a different secret are skipped and both
secrets are printed so they can be reconciled by hand.`,
		Args: exactFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			keyrings, err := format.ReadJSONFile(args[0])
			if err != nil {
				return err
			}
			a.Logger.Info("read import file", "path", args[0], "collections", len(keyrings), "items", keyrings.Len())

			return a.withStore(cmd.Context(), func(s store.Store) error {
				reports, err := migrate.Import(cmd.Context(), s, keyrings, a.Logger)
				printReports(a.stdout, args[0], reports)
				return err
			})
		},
	}
}

func (a *App) export(cmd *cobra.Command) (record.Keyrings, error) {
	var keyrings record.Keyrings
	err := a.withStore(cmd.Context(), func(s store.Store) error {
		var err error
		keyrings, err = migrate.Export(cmd.Context(), s, a.Logger)
		return err
	})
	return keyrings, err
}
