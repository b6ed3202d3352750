package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

// SetLogLevel maps a --loglevel value to logrus. Trace and panic are not exposed.
func SetLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug":
		Log.SetLevel(logrus.DebugLevel)
	case "info":
		Log.SetLevel(logrus.InfoLevel)
	case "warning", "warn":
		Log.SetLevel(logrus.WarnLevel)
	case "error":
		Log.SetLevel(logrus.ErrorLevel)
	case "fatal":
		Log.SetLevel(logrus.FatalLevel)
	default:
		return fmt.Errorf("bad log level %q", level)
	}
	return nil
}

// Android package names: two or more dot separated segments, each starting with a letter.
var packageNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z][A-Za-z0-9_]*)+$`)

// IsPackageName checks if a string is shaped like an Android package name (com.example.app)
func IsPackageName(s string) bool {
	return packageNameRe.MatchString(strings.TrimSpace(s))
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
