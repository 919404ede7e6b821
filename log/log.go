// Package log provides logrus loggers for cochlea graphs and schedulers.
package log

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// DebugEnv is the environment variable which enables debug level.
const DebugEnv = "COCHLEA_DEBUG"

var debug bool

// Logger is a global interface for cochlea loggers.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
}

func init() {
	var err error
	debug, err = strconv.ParseBool(os.Getenv(DebugEnv))
	if err != nil {
		debug = false
	}
}

// GetLogger returns a new logger instance.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// Node returns a logger with node fields attached.
func Node(l logrus.FieldLogger, id, name, module string) *logrus.Entry {
	return l.WithFields(logrus.Fields{
		"node":   name,
		"id":     id,
		"module": module,
	})
}
