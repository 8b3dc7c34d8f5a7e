// Package logging builds the zap loggers used by the playerdata command.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultMaxSize = 100 // megabytes

// FileConfig enables a rotating log file. An empty Filename disables it.
type FileConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// Config selects level, encoding and outputs.
type Config struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"` // console | json
	File   FileConfig `mapstructure:"file"`
}

// New builds a logger writing to w and, when configured, to a rotating
// file. The returned cleanup flushes and closes the file.
func New(cfg Config, w io.Writer) (*zap.Logger, func(), error) {
	level := zap.NewAtomicLevel()
	parsed := strings.ToLower(cfg.Level)
	switch parsed {
	case "":
		parsed = "info"
	case "trace":
		parsed = "debug"
	}
	if err := level.UnmarshalText([]byte(parsed)); err != nil {
		return nil, nil, errors.Wrapf(err, "log level %q", cfg.Level)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "", "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, nil, errors.Newf("log format %q: must be console or json", cfg.Format)
	}

	outputs := []zapcore.WriteSyncer{zapcore.AddSync(w)}
	cleanup := func() {}
	if cfg.File.Filename != "" {
		lj, err := fileLog(cfg.File)
		if err != nil {
			return nil, nil, err
		}
		outputs = append(outputs, zapcore.AddSync(lj))
		cleanup = func() { _ = lj.Close() }
	}

	core := zapcore.NewCore(enc, zap.CombineWriteSyncers(outputs...), level)
	lg := zap.New(core, zap.AddCaller())
	return lg, func() {
		_ = lg.Sync()
		cleanup()
	}, nil
}

func fileLog(cfg FileConfig) (*lumberjack.Logger, error) {
	if st, err := os.Stat(cfg.Filename); err == nil && st.IsDir() {
		return nil, errors.Newf("log file %s is a directory", cfg.Filename)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Filename), 0o755); err != nil {
		return nil, errors.Wrap(err, "create log directory")
	}
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	return &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		LocalTime:  true,
	}, nil
}
