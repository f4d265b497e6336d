package logger

import (
	"log/slog"
	"os"
	"strings"

	"weibo-insight-go/internal/config"
)

// InitFromConfig installs the process-wide logger: a stdout handler in
// the configured format, wrapped so every record also reaches the event
// history and the live stream.
func InitFromConfig() {
	opts := &slog.HandlerOptions{Level: parseLevel(config.AppConfig.LogLevel)}
	slog.SetDefault(slog.New(NewBroadcastHandler(newBaseHandler(config.AppConfig.LogFormat, opts))))
}

func newBaseHandler(format string, opts *slog.HandlerOptions) slog.Handler {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text":
		return slog.NewTextHandler(os.Stdout, opts)
	default:
		return slog.NewJSONHandler(os.Stdout, opts)
	}
}

// Task returns a logger stamping every record with the task id. The
// broadcast layer promotes the id onto the streamed event, which is what
// the per-task log endpoints filter on.
func Task(taskID string) *slog.Logger {
	return slog.Default().With("task_id", taskID)
}

func Info(msg string, args ...any) {
	slog.Default().Info(msg, args...)
}

func Error(msg string, args ...any) {
	slog.Default().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	slog.Default().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	slog.Default().Debug(msg, args...)
}

func parseLevel(v string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
