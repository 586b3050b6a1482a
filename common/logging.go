package common

import (
	"os"

	"github.com/sirupsen/logrus"
)

// LogLevel reads LOG_LEVEL, defaulting to info.
func LogLevel() logrus.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// NewLogger returns a JSON logger tagging every entry with service.
func NewLogger(service string) *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(LogLevel())
	return logger.WithField("service", service)
}
