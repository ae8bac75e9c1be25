package cmd

import (
	"io"

	"github.com/sirupsen/logrus"
)

// newLogger builds the diagnostics logger. Results go to the formatter;
// the logger only carries request tracing and warnings.
func newLogger(w io.Writer, verbosity int, noColor bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors:    noColor,
		DisableTimestamp: verbosity < 2,
	})

	switch {
	case verbosity >= 2:
		logger.SetLevel(logrus.DebugLevel)
	case verbosity == 1:
		logger.SetLevel(logrus.InfoLevel)
	default:
		logger.SetLevel(logrus.WarnLevel)
	}
	return logger
}
