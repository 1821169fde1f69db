package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nikicat/secret-migrate/internal/config"
	"github.com/nikicat/secret-migrate/internal/errors"
	"github.com/nikicat/secret-migrate/internal/log"
	"github.com/nikicat/secret-migrate/internal/store"
)

// Build-time variables
var (
	version = "dev"
	commit  = "none"
)

// openStore connects to the configured backend; tests replace it
var openStore = store.Open

// usageError marks a wrong command line
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// App is the state shared by all commands of one invocation
type App struct {
	Options config.Options
	Config  *config.Config
	Logger  *slog.Logger

	stdout   io.Writer
	closeLog func() error
}

// NewRootCommand creates the root command
func NewRootCommand(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "secret-migrate <command> <file>",
		Short: "Export and import Secret Service keyrings",
		Long: `secret-migrate copies secrets between Secret Service keyrings.

Export all keyrings to JSON on one machine, import the file on another.
Existing items are never overwritten: identical items are skipped and items
whose secret differs are reported for manual resolution.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError{fmt.Errorf("unknown command %q", args[0])}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return usageError{stderrors.New("missing command")}
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("config") && a.Options.ConfigPath == "" {
				return errors.New(errors.CodeCfgInvalid, "config path is empty", nil)
			}
			cfg, err := config.Load(a.Options)
			if err != nil {
				return err
			}
			logger, closeLog, err := log.Open(cfg.LogFile, cfg.LogLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.Config = cfg
			a.Logger = logger
			a.closeLog = closeLog
			logger.Debug("configuration loaded", "config", cfg.ConfigPath, "backend", cfg.Backend, "algorithm", cfg.Algorithm)
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	f := root.PersistentFlags()
	f.StringVarP(&a.Options.ConfigPath, "config", "c", "", "Path to config file (default: ~/.config/secret-migrate/config.yaml)")
	f.StringVarP(&a.Options.Backend, "backend", "b", "", "Secret store: secret-service, gopass or memory (default: secret-service)")
	f.StringVarP(&a.Options.Algorithm, "algorithm", "a", "", "Secret Service session algorithm: plain or dh-ietf1024-sha256-aes128-cbc-pkcs7")
	f.StringVarP(&a.Options.Prefix, "prefix", "p", "", "Prefix of secret-service entries in gopass (default: secret-service)")
	f.StringVar(&a.Options.LogFile, "log-file", "", "Log file path (default: stderr)")
	f.BoolVarP(&a.Options.Verbose, "verbose", "v", false, "Enable verbose logging")
	f.BoolVarP(&a.Options.Debug, "debug", "d", false, "Enable debug logging")

	return root
}

// withStore opens the configured store for the duration of fn
func (a *App) withStore(ctx context.Context, fn func(s store.Store) error) error {
	s, err := openStore(ctx, a.Config, a.Logger)
	if err != nil {
		return errors.Wrap(errors.CodeStoreFailed, "connecting to secret store",
			map[string]any{"backend": a.Config.Backend}, err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			a.Logger.Warn("failed to close secret store", "error", err)
		}
	}()
	return fn(s)
}

// run executes the command line and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &App{stdout: stdout}
	root := NewRootCommand(a)
	root.AddCommand(
		NewExportJSONCommand(a),
		NewExportCSVCommand(a),
		NewImportCommand(a),
		NewChromeToFirefoxCommand(a),
	)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if a.closeLog != nil {
		defer a.closeLog()
	}
	if err == nil {
		return int(errors.ExitOK)
	}

	var ue usageError
	if stderrors.As(err, &ue) {
		if cmd == nil {
			cmd = root
		}
		fmt.Fprintf(stderr, "Error: %v\n\n%s", ue.err, cmd.UsageString())
		return int(errors.ExitUsage)
	}

	xe := errors.AsOrWrap(err)
	fmt.Fprintf(stderr, "Error: %v\n", xe)
	return int(errors.ExitCodeFor(xe.Code))
}
