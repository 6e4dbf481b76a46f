package cmd

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fzft/go-chained-map/db"
	"github.com/fzft/go-chained-map/log"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "CHMAP"

const (
	HasherMaphash = "maphash"
	HasherFNV     = "fnv"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is read from CHMAP_* environment variables.
type Config struct {
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	// HistFile is the REPL history file. Relative paths are resolved against
	// the home directory; an empty value disables history.
	HistFile string `envconfig:"HISTFILE" default:".chmap_history"`
	Prompt   string `envconfig:"PROMPT" default:"chmap> "`
	Hasher   string `envconfig:"HASHER" default:"maphash"`
}

// LoadConfig loads envFile (or ./.env when envFile is empty and the file
// exists) into the environment, then decodes the CHMAP_* variables.
// Variables already set in the environment win over the file.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, errors.Wrapf(err, "load env file %s", envFile)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, errors.Wrap(err, "load .env")
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "process env")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.LogFormat != log.FormatConsole && c.LogFormat != log.FormatJSON {
		return errors.Wrapf(ErrInvalidConfig, "log format %q", c.LogFormat)
	}
	if c.Hasher != HasherMaphash && c.Hasher != HasherFNV {
		return errors.Wrapf(ErrInvalidConfig, "hasher %q", c.Hasher)
	}
	return nil
}

// HistoryPath returns the absolute history file path, or "" when history is
// disabled or the home directory is unknown.
func (c Config) HistoryPath() string {
	if c.HistFile == "" || filepath.IsAbs(c.HistFile) {
		return c.HistFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, c.HistFile)
}

// NewTable returns an empty string table using the configured hasher.
func (c Config) NewTable() *db.HashTable[string, string] {
	var table *db.HashTable[string, string]
	if c.Hasher == HasherFNV {
		table = db.NewHashTableFunc[string, string](db.StringHasher())
	} else {
		table = db.NewHashTable[string, string]()
	}
	table.SetLogger(log.Logger.Named("table"))
	return table
}
