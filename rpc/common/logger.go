package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"log"
	"os"
	"strings"
)

// --------------------------------------------------------------------------
// Line Logger
// --------------------------------------------------------------------------

// lineLogger writes one line per entry: "<date> <time> LEVEL | name | message"
type lineLogger struct {
	name  string
	level logger.LogLevel
	out   *log.Logger
}

func newLineLogger(name string, w io.Writer) *lineLogger {
	return &lineLogger{
		name:  name,
		level: logger.INFO,
		out:   log.New(w, "", log.Ldate|log.Ltime),
	}
}

func (l *lineLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *lineLogger) Debugf(format string, args ...interface{}) {
	l.write(logger.DEBUG, "DEBUG", format, args...)
}

func (l *lineLogger) Infof(format string, args ...interface{}) {
	l.write(logger.INFO, "INFO", format, args...)
}

func (l *lineLogger) Warningf(format string, args ...interface{}) {
	l.write(logger.WARNING, "WARN", format, args...)
}

func (l *lineLogger) Errorf(format string, args ...interface{}) {
	l.write(logger.ERROR, "ERROR", format, args...)
}

// Panicf always panics, the entry is written first if the level allows it
func (l *lineLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.write(logger.CRITICAL, "PANIC", "%s", msg)
	panic(msg)
}

func (l *lineLogger) write(level logger.LogLevel, tag string, format string, args ...interface{}) {
	if l.level < level {
		return
	}
	l.out.Printf("%-5s | %-10s | %s", tag, l.name, fmt.Sprintf(format, args...))
}

// CreateLogger is the logger.Factory used by InitLoggers. Entries go to stdout
func CreateLogger(pkgName string) logger.ILogger {
	return newLineLogger(pkgName, os.Stdout)
}

// --------------------------------------------------------------------------
// Levels
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// loggerNames lists every logger dEcho obtains from logger.GetLogger
var loggerNames = []string{"server", "client", "transport", "cli"}

// InitLoggers routes all dEcho loggers through CreateLogger at the given level
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)
	for _, name := range loggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
