// Package config loads playerdata command settings. Environment variables
// override the config file, which overrides the defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/roach88/playerdata/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g.
// PLAYERDATA_STORAGE_BACKEND=memory.
const EnvPrefix = "PLAYERDATA"

// DefaultIdentifier names the per-application save directory when no
// identifier is configured.
const DefaultIdentifier = "playerdata"

// Backends lists the accepted storage.backend values.
var Backends = []string{"local", "memory", "sqlite", "s3", "minio"}

type Config struct {
	Identifier string         `mapstructure:"identifier"`
	Storage    StorageConfig  `mapstructure:"storage"`
	Log        logging.Config `mapstructure:"log"`
	Output     OutputConfig   `mapstructure:"output"`
}

type StorageConfig struct {
	Backend string       `mapstructure:"backend"`
	Local   LocalConfig  `mapstructure:"local"`
	SQLite  SQLiteConfig `mapstructure:"sqlite"`
	S3      S3Config     `mapstructure:"s3"`
	MinIO   MinIOConfig  `mapstructure:"minio"`
}

type LocalConfig struct {
	Root string `mapstructure:"root"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type S3Config struct {
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type OutputConfig struct {
	Indent int `mapstructure:"indent"`
}

// defaults doubles as the key list viper needs to bind environment
// variables for Unmarshal.
var defaults = map[string]any{
	"identifier":               DefaultIdentifier,
	"storage.backend":          "local",
	"storage.local.root":       "",
	"storage.sqlite.path":      "",
	"storage.s3.bucket":        "",
	"storage.s3.prefix":        "",
	"storage.s3.region":        "",
	"storage.s3.endpoint":      "",
	"storage.minio.endpoint":   "",
	"storage.minio.bucket":     "",
	"storage.minio.prefix":     "",
	"storage.minio.access_key": "",
	"storage.minio.secret_key": "",
	"storage.minio.use_ssl":    false,
	"log.level":                "info",
	"log.format":               "console",
	"log.file.filename":        "",
	"log.file.max_size":        0,
	"log.file.max_backups":     0,
	"log.file.max_age":         0,
	"output.indent":            2,
}

// Load reads the configuration. An empty path skips the file. The file
// type follows its extension (.yaml, .yml, .json, .toml).
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			v.SetConfigType("yaml")
		case ".json":
			v.SetConfigType("json")
		case ".toml":
			v.SetConfigType("toml")
		default:
			return nil, errors.Newf("config file %s: unsupported extension %q", path, ext)
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolve fills in paths derived from the identifier.
func (c *Config) resolve() error {
	if c.Identifier == "" {
		c.Identifier = DefaultIdentifier
	}
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)

	needsDir := c.Storage.Local.Root == "" || c.Storage.SQLite.Path == ""
	if !needsDir {
		return nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return errors.Wrap(err, "locate user config directory")
	}
	dir := filepath.Join(base, c.Identifier)
	if c.Storage.Local.Root == "" {
		c.Storage.Local.Root = dir
	}
	if c.Storage.SQLite.Path == "" {
		c.Storage.SQLite.Path = filepath.Join(dir, "playerdata.db")
	}
	return nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if !lo.Contains(Backends, c.Storage.Backend) {
		return errors.Newf("storage.backend %q: must be one of %v", c.Storage.Backend, Backends)
	}
	if strings.ContainsAny(c.Identifier, `/\`) || c.Identifier == "." || c.Identifier == ".." {
		return errors.Newf("identifier %q must be a single path segment", c.Identifier)
	}
	if c.Output.Indent < 0 {
		return errors.Newf("output.indent %d must not be negative", c.Output.Indent)
	}
	switch c.Storage.Backend {
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required for the s3 backend")
		}
	case "minio":
		if c.Storage.MinIO.Endpoint == "" || c.Storage.MinIO.Bucket == "" {
			return errors.New("storage.minio.endpoint and storage.minio.bucket are required for the minio backend")
		}
	}
	return nil
}
