package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the application logger at the given level. Unknown levels
// fall back to info rather than failing startup.
func New(level string) *logrus.Logger {
	log := logrus.New()

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)

	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	log.SetOutput(os.Stdout)

	return log
}
