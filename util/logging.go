package util

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is shared by every front end. Simulator warnings go to stderr so
// they never mix with the UART output on stdout.
var Logger = newLogger(os.Stderr)

// LoggingEnabled turns on the protocol tracing done through LogF.
var LoggingEnabled = false

func newLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

// SetVerbose switches between warnings only and full debug output.
func SetVerbose(verbose bool) {
	if verbose {
		Logger.SetLevel(logrus.DebugLevel)
		LoggingEnabled = true
	} else {
		Logger.SetLevel(logrus.WarnLevel)
	}
}

func Component(name string) *logrus.Entry {
	return Logger.WithField("component", name)
}

func LogF(format string, args ...interface{}) {
	if !LoggingEnabled {
		return
	}
	Logger.Debugf(format, args...)
}
