// Package logging wraps logrus with the daemon's field conventions.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Config controls logger construction.
type Config struct {
	Level  string // trace, debug, info, warn, error
	Format string // text, json
	Output io.Writer
}

// Logger is the daemon's structured logger, tagged with a subsystem name.
type Logger struct {
	*logrus.Entry
}

// New builds a Logger for subsystem, honoring cfg.
func New(subsystem string, cfg Config) *Logger {
	base := logrus.New()
	if cfg.Output != nil {
		base.SetOutput(cfg.Output)
	} else {
		base.SetOutput(os.Stdout)
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	if cfg.Format == "json" {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &Logger{Entry: base.WithField("subsystem", subsystem)}
}

// NewDefault builds a Logger with info/text defaults, for tests and tools.
func NewDefault(subsystem string) *Logger {
	return New(subsystem, Config{Level: "info", Format: "text"})
}

// WithKindKey returns a derived logger tagged with the object's kind_key,
// matching the reconciler's advisory-lock identifier.
func (l *Logger) WithKindKey(kindKey string) *Logger {
	return &Logger{Entry: l.Entry.WithField("kind_key", kindKey)}
}

// WithNamespace returns a derived logger tagged with a namespace name.
func (l *Logger) WithNamespace(namespace string) *Logger {
	return &Logger{Entry: l.Entry.WithField("namespace", namespace)}
}
