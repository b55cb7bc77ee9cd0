package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"camclassify/internal/config"

	"github.com/fatih/color"
	"github.com/natefinch/lumberjack"
)

// Log file names, one per level.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

const logFlags = log.Ldate | log.Ltime | log.Lshortfile

// level pairs the console logger with the rotating file logger of one level.
type level struct {
	console *log.Logger
	file    *log.Logger
}

func (l level) printf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	// calldepth 3: printf -> Info/Warning/Error -> caller
	_ = l.console.Output(3, msg)
	_ = l.file.Output(3, msg)
}

// Logger provides leveled logging (info/warning/error) to rotating files and stdout/stderr.
type Logger struct {
	info    level
	warning level
	err     level
	files   map[string]*lumberjack.Logger
	logDir  string
	mu      sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(cfg *config.Config) *Logger {
	if err := os.MkdirAll(cfg.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	logger := &Logger{
		logDir: cfg.LogDirectory,
		files:  make(map[string]*lumberjack.Logger),
	}

	logger.setupLoggers(cfg.LogMaxSizeMB, cfg.LogMaxBackups)
	return logger
}

// setupLoggers initializes writers and per-level loggers.
func (l *Logger) setupLoggers(maxSizeMB, maxBackups int) {
	l.info = l.newLevel(InfoFile, os.Stdout, color.New(color.FgCyan).Sprint("INFO    "), maxSizeMB, maxBackups)
	l.warning = l.newLevel(WarningFile, os.Stdout, color.New(color.FgYellow).Sprint("WARNING "), maxSizeMB, maxBackups)
	l.err = l.newLevel(ErrorFile, os.Stderr, color.New(color.FgRed, color.Bold).Sprint("ERROR   "), maxSizeMB, maxBackups)
}

func (l *Logger) newLevel(fileName string, console io.Writer, consolePrefix string, maxSizeMB, maxBackups int) level {
	file := &lumberjack.Logger{
		Filename:   filepath.Join(l.logDir, fileName),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}
	l.files[fileName] = file

	return level{
		console: log.New(console, consolePrefix, logFlags),
		file:    log.New(file, fmt.Sprintf("%-8s", levelName(fileName)), logFlags),
	}
}

func levelName(fileName string) string {
	switch fileName {
	case WarningFile:
		return "WARNING"
	case ErrorFile:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.info.printf(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warning.printf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err.printf(format, v...)
}

// Directory returns the directory holding the log files.
func (l *Logger) Directory() string {
	return l.logDir
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// the file is reopened in append mode on the next write
	if file, ok := l.files[fileName]; ok {
		if err := file.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", fileName, err)
		}
	}

	filePath := filepath.Join(l.logDir, fileName)
	if err := os.Truncate(filePath, 0); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to truncate %s: %w", fileName, err)
	}
	return nil
}

// Close flushes and closes every log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
