package config

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	loggerOnce sync.Once
	logg       *logrus.Logger
)

// Logger returns the shared JSON logger, writing to stderr at info level until
// ConfigureLogger is called.
func Logger() *logrus.Logger {
	loggerOnce.Do(func() {
		logg = NewLogger("info", os.Stderr)
	})
	return logg
}

// ConfigureLogger sets the shared logger's level. Unknown levels keep info.
func ConfigureLogger(level string) {
	l := Logger()
	if lvl, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(lvl)
	}
}

// NewLogger builds a JSON logger at level writing to out.
func NewLogger(level string, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetOutput(out)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

// LogError logs err with the module, function and context it came from.
func LogError(logger logrus.FieldLogger, moduleName, funcName, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
