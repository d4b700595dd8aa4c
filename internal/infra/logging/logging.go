package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig enables a rotating log file next to stdout.
type FileConfig struct {
	Path       string `env:"APP_LOG_FILE" envDefault:""`
	MaxSizeMB  int    `env:"APP_LOG_MAX_SIZE_MB" envDefault:"50"`
	MaxBackups int    `env:"APP_LOG_MAX_BACKUPS" envDefault:"5"`
}

// SetupJSON sets slog's default logger to use JSON output at the given level.
func SetupJSON(level slog.Level) {
	SetupJSONTo(os.Stdout, level)
}

// SetupJSONWithFile is SetupJSON plus a rotating file sink when fc.Path is set.
// The returned closer flushes and closes the file.
func SetupJSONWithFile(level slog.Level, fc FileConfig) io.Closer {
	if fc.Path == "" {
		SetupJSON(level)

		return io.NopCloser(nil)
	}

	lj := &lumberjack.Logger{
		Filename:   fc.Path,
		MaxSize:    fc.MaxSizeMB,
		MaxBackups: fc.MaxBackups,
		Compress:   true,
	}
	SetupJSONTo(io.MultiWriter(os.Stdout, lj), level)

	return lj
}

func SetupJSONTo(w io.Writer, level slog.Level) {
	logger := slog.New(
		slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}),
	)
	slog.SetDefault(logger)
}
