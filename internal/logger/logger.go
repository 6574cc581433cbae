package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls every logger handed out by GetLogger
type Config struct {
	Level  string // trace, debug, info, warn, error
	Format string // text or json
	Output string // stdout, file or both
	Path   string // directory for rotated files
}

// DefaultConfig returns info-level text logging to stdout
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "text",
		Output: "stdout",
		Path:   "./logs",
	}
}

var (
	loggers   = make(map[string]*logrus.Logger)
	loggersMu sync.Mutex
	config    *Config
)

// Init sets the configuration for loggers created afterwards
func Init(cfg *Config) error {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Output == "file" || cfg.Output == "both" {
		if err := os.MkdirAll(cfg.Path, 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
	}
	config = cfg

	// Loggers created before Init keep their pointers but pick up the new settings
	for name, l := range loggers {
		configure(l, name)
	}
	return nil
}

// GetLogger returns the logger with the given name (app, audit, ledger, ...)
func GetLogger(name string) *logrus.Logger {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if config == nil {
		config = DefaultConfig()
	}
	if l, ok := loggers[name]; ok {
		return l
	}

	l := logrus.New()
	configure(l, name)
	loggers[name] = l
	return l
}

// Discard silences a named logger, used by tests
func Discard(name string) {
	GetLogger(name).SetOutput(io.Discard)
}

func configure(l *logrus.Logger, name string) {
	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if config.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}

	var writers []io.Writer
	if config.Output == "file" || config.Output == "both" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(config.Path, name+".log"),
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}
	if config.Output != "file" {
		writers = append(writers, os.Stdout)
	}
	l.SetOutput(io.MultiWriter(writers...))
}
