// Package logging builds the structured logger shared by the service and CLI.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// TimestampFormat is the timestamp layout used in JSON log lines
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// New returns a JSON logger writing to stdout at the level named by LOG_LEVEL (default info).
func New() *logrus.Logger {
	return NewWithLevel(os.Getenv("LOG_LEVEL"), os.Stdout)
}

// NewWithLevel returns a JSON logger at the given level. Unknown levels fall back to info.
func NewWithLevel(level string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: TimestampFormat,
	})

	if level == "" {
		level = "info"
	}
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)
	return log
}

// Discard returns a logger that drops everything, for tests and quiet CLI runs.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
