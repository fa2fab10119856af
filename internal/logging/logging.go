// Package logging provides the leveled stderr logger shared by the
// catalog and importer. Warnings cover degraded-but-continuing paths,
// such as an unreadable session file skipped during a listing.
package logging

import (
	"log"
	"os"
)

type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var (
	level  = LevelInfo
	logger = log.New(os.Stderr, "", log.LstdFlags)
)

func SetLevel(l Level) {
	level = l
}

// SetVerbose switches between info and debug output.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(LevelDebug)
	} else {
		SetLevel(LevelInfo)
	}
}

func Errorf(format string, args ...interface{}) {
	if level >= LevelError {
		logger.Printf("[ERROR] "+format, args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if level >= LevelWarn {
		logger.Printf("[WARN] "+format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if level >= LevelInfo {
		logger.Printf("[INFO] "+format, args...)
	}
}

func Debugf(format string, args ...interface{}) {
	if level >= LevelDebug {
		logger.Printf("[DEBUG] "+format, args...)
	}
}
