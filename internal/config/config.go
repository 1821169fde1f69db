package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/nikicat/secret-migrate/internal/crypto"
	xerrors "github.com/nikicat/secret-migrate/internal/errors"
)

// Backends understood by store.Open
const (
	BackendSecretService = "secret-service"
	BackendGopass        = "gopass"
	BackendMemory        = "memory"
)

var (
	backends  = []string{BackendSecretService, BackendGopass, BackendMemory}
	logLevels = []string{"debug", "info", "warn", "error"}
)

// Config holds the configuration for secret-migrate
type Config struct {
	// Backend selects the secret store (secret-service, gopass, memory)
	Backend string `yaml:"backend"`

	// Algorithm is the Secret Service transport algorithm
	Algorithm string `yaml:"algorithm"`

	// GopassPrefix is the prefix of secret-service entries in gopass
	GopassPrefix string `yaml:"gopass_prefix"`

	// LogLevel is the logging level (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogFile is the path to the log file (empty for stderr)
	LogFile string `yaml:"log_file"`

	// ConfigPath is the path to the config file that was considered
	ConfigPath string `yaml:"-"`
}

// Options carries the values given on the command line. Empty fields do not override.
type Options struct {
	ConfigPath string
	Backend    string
	Algorithm  string
	Prefix     string
	LogFile    string
	Verbose    bool
	Debug      bool
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	return &Config{
		Backend:      BackendSecretService,
		Algorithm:    crypto.AlgorithmDHAES,
		GopassPrefix: "secret-service",
		LogLevel:     "warn",
	}
}

// DefaultConfigPath returns ~/.config/secret-migrate/config.yaml
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config/secret-migrate/config.yaml")
}

// Load builds the configuration: defaults, then the config file, then
// SECRET_MIGRATE_* environment variables, then command-line options
func Load(opts Options) (*Config, error) {
	cfg := DefaultConfig()

	switch {
	case opts.ConfigPath != "":
		cfg.ConfigPath = opts.ConfigPath
	case os.Getenv("SECRET_MIGRATE_CONFIG") != "":
		cfg.ConfigPath = os.Getenv("SECRET_MIGRATE_CONFIG")
	default:
		cfg.ConfigPath = DefaultConfigPath()
	}
	cfg.ConfigPath = expandPath(cfg.ConfigPath)

	if err := cfg.loadFromFile(); err != nil {
		// A missing file is fine, an unreadable or invalid one is not
		if !os.IsNotExist(err) {
			return nil, xerrors.Wrap(xerrors.CodeCfgInvalid, "loading config file",
				map[string]any{"path": cfg.ConfigPath}, err)
		}
	}

	cfg.applyEnv()

	if opts.Backend != "" {
		cfg.Backend = opts.Backend
	}
	if opts.Algorithm != "" {
		cfg.Algorithm = opts.Algorithm
	}
	if opts.Prefix != "" {
		cfg.GopassPrefix = opts.Prefix
	}
	if opts.LogFile != "" {
		cfg.LogFile = opts.LogFile
	}
	if opts.Debug {
		cfg.LogLevel = "debug"
	} else if opts.Verbose {
		cfg.LogLevel = "info"
	}

	cfg.LogFile = expandPath(cfg.LogFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every enumerated setting has a known value
func (c *Config) Validate() error {
	if !slices.Contains(backends, c.Backend) {
		return invalid("backend", c.Backend, backends)
	}
	if !slices.Contains(crypto.SupportedAlgorithms(), c.Algorithm) {
		return invalid("algorithm", c.Algorithm, crypto.SupportedAlgorithms())
	}
	if !slices.Contains(logLevels, c.LogLevel) {
		return invalid("log_level", c.LogLevel, logLevels)
	}
	if c.Backend == BackendGopass && c.GopassPrefix == "" {
		return xerrors.New(xerrors.CodeCfgInvalid, "gopass_prefix must not be empty", nil)
	}
	return nil
}

func invalid(key, value string, allowed []string) error {
	return xerrors.New(xerrors.CodeCfgInvalid,
		fmt.Sprintf("invalid %s %q", key, value),
		map[string]any{"allowed": allowed})
}

func (c *Config) loadFromFile() error {
	data, err := os.ReadFile(c.ConfigPath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SECRET_MIGRATE_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("SECRET_MIGRATE_ALGORITHM"); v != "" {
		c.Algorithm = v
	}
	if v := os.Getenv("SECRET_MIGRATE_GOPASS_PREFIX"); v != "" {
		c.GopassPrefix = v
	}
	if v := os.Getenv("SECRET_MIGRATE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("SECRET_MIGRATE_LOG_FILE"); v != "" {
		c.LogFile = v
	}
}

func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
