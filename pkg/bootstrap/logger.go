package bootstrap

import (
	"log"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// MustCreateLoggers returns the application logger and an adapter of the standard
// logger for http.Server's ErrorLog.
func MustCreateLoggers() (logrus.FieldLogger, *log.Logger) {
	logger := logrus.StandardLogger()

	level, err := logrus.ParseLevel(viper.GetString(ConfigLogLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	if viper.GetBool(ConfigVerbose) {
		level = logrus.DebugLevel
	}

	logger.SetLevel(level)

	switch viper.GetString(ConfigLogFormat) {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	// NOTE: the writer is never closed, but logger is supposed to live until application is closed
	return logger, log.New(logger.Writer(), "", 0)
}
