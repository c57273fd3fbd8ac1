package conf

import "github.com/tphakala/partdetect/internal/logger"

// GetLogger returns the config package logger. It is fetched from the global
// logger on each call because configuration loads before the central logger exists.
func GetLogger() logger.Logger {
	return logger.Global().Module("conf")
}

func errorField(err error) logger.Field {
	return logger.Error(err)
}
