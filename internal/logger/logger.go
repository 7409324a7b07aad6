// Package logger builds the logrus loggers shared by the scanner and the judge.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Options configures a logger
type Options struct {
	Level logrus.Level
	// File receives JSON records in append mode; stdout/stderr output is
	// replaced, not duplicated.
	File string
	// JSON switches the terminal output to structured records
	JSON bool
	// Out defaults to stderr
	Out io.Writer
}

// New returns a logrus logger and a close func for any opened file.
func New(opts Options) (*logrus.Logger, func() error, error) {
	log := logrus.New()
	log.SetLevel(opts.Level)

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	if opts.File != "" {
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("could not create log file: %w", err)
		}
		log.SetOutput(file)
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
		return log, file.Close, nil
	}

	log.SetOutput(out)
	if opts.JSON {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}
	return log, func() error { return nil }, nil
}

// ParseLevel maps a level name to a logrus level, defaulting to info
func ParseLevel(name string) logrus.Level {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
