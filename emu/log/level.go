package log

import (
	"io"

	"gopkg.in/Sirupsen/logrus.v0"
)

type Level = logrus.Level

const (
	PanicLevel = logrus.PanicLevel
	FatalLevel = logrus.FatalLevel
	ErrorLevel = logrus.ErrorLevel
	WarnLevel  = logrus.WarnLevel
	InfoLevel  = logrus.InfoLevel
	DebugLevel = logrus.DebugLevel
)

func init() {
	logrus.SetLevel(logrus.DebugLevel)
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
}

// disabled is set by Disable and silences every module, warnings included.
var disabled bool

// Disable turns off all logging, errors included. It's mostly useful in tests
// and benchmarks.
func Disable() {
	disabled = true
	modDebugMask = 0
}

// SetOutput redirects the underlying logger.
func SetOutput(w io.Writer) {
	logrus.SetOutput(w)
}
