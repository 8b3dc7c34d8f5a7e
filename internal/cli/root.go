// Package cli implements the playerdata command: format conversion,
// inspection of stored documents and schema validation.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/playerdata"
	"github.com/roach88/playerdata/internal/config"
	"github.com/roach88/playerdata/internal/logging"
	"github.com/roach88/playerdata/storage"
	"github.com/roach88/playerdata/storage/minio"
	"github.com/roach88/playerdata/storage/s3"
	"github.com/roach88/playerdata/storage/sqlite"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// backend replaces the configured backend; set by tests.
	backend storage.Backend
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the playerdata CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "playerdata",
		Short: "Inspect and convert saved player data",
		Long: `Read, write and convert player data documents (JSON, XML and YAML)
in local directories, SQLite databases, S3 buckets or MinIO.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return errors.Newf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (yaml, json or toml)")

	cmd.AddCommand(NewConvertCommand(opts))
	cmd.AddCommand(NewCatCommand(opts))
	cmd.AddCommand(NewLsCommand(opts))
	cmd.AddCommand(NewExistsCommand(opts))
	cmd.AddCommand(NewRmCommand(opts))
	cmd.AddCommand(NewWipeCommand(opts))
	cmd.AddCommand(NewDigestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return lo.Contains(ValidFormats, format)
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// session is the configuration, logger and store shared by one command run.
type session struct {
	cfg   *config.Config
	log   *zap.Logger
	store *playerdata.Store
	close func()
}

// openConfig loads the configuration and logger without touching storage.
func openConfig(opts *RootOptions, errOut io.Writer) (*config.Config, *zap.Logger, func(), error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logCfg := cfg.Log
	if opts.Verbose {
		logCfg.Level = "debug"
	}
	log, cleanup, err := logging.New(logCfg, errOut)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, cleanup, nil
}

func openSession(ctx context.Context, opts *RootOptions, errOut io.Writer) (*session, error) {
	cfg, log, cleanupLog, err := openConfig(opts, errOut)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeConfig, err)
	}

	backend, closeBackend := opts.backend, func() error { return nil }
	if backend == nil {
		backend, closeBackend, err = openBackend(ctx, cfg)
		if err != nil {
			cleanupLog()
			return nil, WrapExitError(ExitCommandError, ErrCodeStorage, err)
		}
	}
	log.Debug("opened store",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("identifier", cfg.Identifier),
	)

	store := playerdata.New(backend,
		playerdata.WithLogger(log),
		playerdata.WithIndent(cfg.Output.Indent),
	)
	return &session{
		cfg:   cfg,
		log:   log,
		store: store,
		close: func() {
			if err := closeBackend(); err != nil {
				log.Warn("close backend", zap.Error(err))
			}
			cleanupLog()
		},
	}, nil
}

// openBackend builds the configured storage backend.
func openBackend(ctx context.Context, cfg *config.Config) (storage.Backend, func() error, error) {
	noop := func() error { return nil }
	sc := cfg.Storage
	switch sc.Backend {
	case "local":
		return storage.NewLocalStore(sc.Local.Root), noop, nil
	case "memory":
		return storage.NewMemoryStore(), noop, nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(sc.SQLite.Path), 0o755); err != nil {
			return nil, nil, errors.Wrap(err, "create sqlite directory")
		}
		s, err := sqlite.Open(sc.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "s3":
		s, err := s3.Dial(ctx, s3.Config{
			Bucket:   sc.S3.Bucket,
			Prefix:   sc.S3.Prefix,
			Region:   sc.S3.Region,
			Endpoint: sc.S3.Endpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case "minio":
		s, err := minio.Dial(ctx, minio.Config{
			Endpoint:  sc.MinIO.Endpoint,
			Bucket:    sc.MinIO.Bucket,
			Prefix:    sc.MinIO.Prefix,
			AccessKey: sc.MinIO.AccessKey,
			SecretKey: sc.MinIO.SecretKey,
			UseSSL:    sc.MinIO.UseSSL,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	}
	return nil, nil, errors.Newf("unknown storage backend %q", sc.Backend)
}
