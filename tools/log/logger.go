package log

import "github.com/sirupsen/logrus"

var (
	WarnLevel  = logrus.WarnLevel
	InfoLevel  = logrus.InfoLevel
	DebugLevel = logrus.DebugLevel
	ErrorLevel = logrus.ErrorLevel
	FatalLevel = logrus.FatalLevel
)

// TextFormatter is an alias for the logrus text formatter.
type TextFormatter = logrus.TextFormatter

// Level is an alias for the logrus level type.
type Level = logrus.Level

// CheckErr logs the error at the given level when it is not nil.
func CheckErr(level Level, err error) {
	if err == nil {
		return
	}
	switch level {
	case logrus.InfoLevel:
		logrus.Info(err)
	case logrus.WarnLevel:
		logrus.Warn(err)
	case logrus.ErrorLevel:
		logrus.Error(err)
	case logrus.FatalLevel:
		logrus.Fatal(err)
	default:
		logrus.Debug(err)
	}
}

// SetFormatter sets the logrus formatter.
func SetFormatter(formatter logrus.Formatter) {
	logrus.SetFormatter(formatter)
}

// SetLevel sets the minimum level that gets logged.
func SetLevel(level Level) {
	logrus.SetLevel(level)
}

// WithField adds a field to the log entry.
func WithField(key string, value interface{}) *logrus.Entry {
	return logrus.WithField(key, value)
}

// WithFields adds fields to the log entry.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return logrus.WithFields(fields)
}

// WithError adds the error as a field to the log entry.
func WithError(err error) *logrus.Entry {
	return logrus.WithError(err)
}

func Info(messages ...interface{}) {
	logrus.Info(messages...)
}

func Infof(format string, messages ...interface{}) {
	logrus.Infof(format, messages...)
}

func Warn(messages ...interface{}) {
	logrus.Warn(messages...)
}

func Warnf(format string, messages ...interface{}) {
	logrus.Warnf(format, messages...)
}

func Error(messages ...interface{}) {
	logrus.Error(messages...)
}

func Errorf(format string, messages ...interface{}) {
	logrus.Errorf(format, messages...)
}

func Fatal(messages ...interface{}) {
	logrus.Fatal(messages...)
}

func Debug(messages ...interface{}) {
	logrus.Debug(messages...)
}

func Debugf(format string, messages ...interface{}) {
	logrus.Debugf(format, messages...)
}
