// Package logger initializes the structured logrus logger threaded through
// every component constructor, exactly as the teacher's cmd/server/main.go
// expects (structuredLogger.WithFields(...).Info(...)).
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// InitLogger configures the standard logger's formatter and level from the
// LOG_LEVEL environment variable (defaulting to info) and returns it.
func InitLogger() *logrus.Logger {
	l := logrus.StandardLogger()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	return l
}
