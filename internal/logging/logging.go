// Package logging builds the process-wide structured logger every nucleo
// subsystem threads through its constructor.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a *logrus.Logger at the given level ("debug", "info", "warn",
// "error", "fatal", "trace"), falling back to Info on an unrecognized
// level rather than failing boot over a typo in a config file.
func New(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}
