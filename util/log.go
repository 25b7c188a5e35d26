package util

import (
	"io"
	"log"
	"os"
	"strings"
	"sync"

	jww "github.com/spf13/jwalterweatherman"
)

var (
	loggers    = map[string]*Logger{}
	levels     = map[string]jww.Threshold{}
	loggersMux sync.Mutex

	// OutThreshold is the default console log level
	OutThreshold = jww.LevelError
)

// Logger wraps a jww notepad to avoid leaking implementation detail
type Logger struct {
	*jww.Notepad
	name string
}

// NewLogger creates a logger with the given log area and adds it to the registry
func NewLogger(area string) *Logger {
	loggersMux.Lock()
	defer loggersMux.Unlock()

	if logger, ok := loggers[area]; ok {
		return logger
	}

	padded := area
	for len(padded) < 7 {
		padded += " "
	}

	level := logLevelForArea(area)
	notepad := jww.NewNotepad(level, jww.LevelTrace, os.Stdout, io.Discard, "["+padded+"] ", log.Ldate|log.Ltime)

	logger := &Logger{
		Notepad: notepad,
		name:    area,
	}

	loggers[area] = logger
	return logger
}

// Name returns the logger's area name
func (l *Logger) Name() string {
	return l.name
}

// Loggers invokes callback for each configured logger
func Loggers(cb func(string, *Logger)) {
	loggersMux.Lock()
	defer loggersMux.Unlock()

	for name, logger := range loggers {
		cb(name, logger)
	}
}

func logLevelForArea(area string) jww.Threshold {
	level, ok := levels[strings.ToLower(area)]
	if !ok {
		level = OutThreshold
	}
	return level
}

// LogLevel sets log level for all loggers
func LogLevel(defaultLevel string, areaLevels map[string]string) {
	// default level
	OutThreshold = LogLevelToThreshold(defaultLevel)

	// area levels
	levels = make(map[string]jww.Threshold)
	for name, level := range areaLevels {
		levels[strings.ToLower(name)] = LogLevelToThreshold(level)
	}

	Loggers(func(name string, logger *Logger) {
		logger.SetStdoutThreshold(logLevelForArea(name))
	})
}

// LogLevelToThreshold converts log level string to a jww Threshold
func LogLevelToThreshold(level string) jww.Threshold {
	switch strings.ToUpper(level) {
	case "FATAL":
		return jww.LevelFatal
	case "ERROR":
		return jww.LevelError
	case "WARN":
		return jww.LevelWarn
	case "INFO":
		return jww.LevelInfo
	case "DEBUG":
		return jww.LevelDebug
	case "TRACE":
		return jww.LevelTrace
	default:
		return jww.LevelError
	}
}
