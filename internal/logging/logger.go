// Package logging provides file-based debug logging for smartassist.
// The interactive TUI owns the terminal, so logs never go to stdout;
// they are written to a rotating file under the config directory and
// only when debug logging is enabled.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"smartassist/internal/config"
)

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// Initialize configures the process-wide logger from config. With debug
// disabled the logger stays a nop and no file is created.
func Initialize(cfg *config.Config) {
	mu.Lock()
	defer mu.Unlock()

	if !cfg.Logging.Debug {
		root = zap.NewNop()
		return
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.LogPath(),
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		zap.DebugLevel,
	)
	root = zap.New(core)
}

// L returns a child logger for the named subsystem ("api", "stream",
// "chat", "docs", "session").
func L(name string) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.Named(name)
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
