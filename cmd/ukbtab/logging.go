package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the command logger. By default it logs to stderr; with a
// log directory or file it logs there instead, deriving a file name from
// the inputs when only a directory is given.
func newLogger(logDir, logFile, level string, verbose bool, inputs ...string) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}

	if logFile == "" && logDir != "" {
		logFile = filepath.Join(logDir, deriveLogName(inputs))
	}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}

		config.OutputPaths = []string{logFile}
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	config.Level = zap.NewAtomicLevelAt(lvl)

	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	return config.Build()
}

// deriveLogName builds a log file name from the input base names and the
// current time.
func deriveLogName(inputs []string) string {
	parts := []string{"ukbtab"}

	for _, in := range inputs {
		base := filepath.Base(in)
		parts = append(parts, strings.TrimSuffix(base, filepath.Ext(base)))
	}

	// Colons are invalid in file names on several filesystems.
	parts = append(parts, time.Now().Format("2006-01-02_15-04-05"))

	return strings.Join(parts, "_") + ".log"
}
