// Package logging owns the process-wide structured logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	mu      sync.Mutex
	log     *logrus.Logger
	session = uuid.NewString()
)

// Init initializes the logger with the given configuration.
// An unknown level falls back to info.
//
// Parameters:
//   - level: a logrus level name (debug, info, warn, error)
//   - logFile: optional path of a file to append to; its directory is created when missing
//   - console: write to stderr as well
//
// Returns:
//   - error: an error if the log file could not be opened
func Init(level, logFile string, console bool) error {
	l := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	var writers []io.Writer
	if console {
		writers = append(writers, os.Stderr)
	}
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return err
		}
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return err
		}
		writers = append(writers, file)
	}
	switch len(writers) {
	case 0:
		l.SetOutput(io.Discard)
	case 1:
		l.SetOutput(writers[0])
	default:
		l.SetOutput(io.MultiWriter(writers...))
	}

	mu.Lock()
	log = l
	mu.Unlock()
	return nil
}

// Get returns the logger instance, creating a default one when Init was never called.
func Get() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		log = logrus.New()
	}
	return log
}

// For returns an entry tagged with the component name and the process session id.
func For(component string) *logrus.Entry {
	return Get().WithFields(logrus.Fields{
		"component": component,
		"session":   session,
	})
}

// Session returns the id shared by every log line of this process.
func Session() string {
	return session
}
