package config

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// SetupLogging configures logrus from a level name (case insensitive).
// "", "off" and "none" discard all output; unknown names fall back to debug.
func SetupLogging(level string) {
	level = strings.ToLower(level)
	if level == "" || level == "off" || level == "none" {
		log.SetOutput(io.Discard)
		return
	}

	log.SetOutput(os.Stderr)
	switch level {
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	default:
		log.SetLevel(log.DebugLevel)
	}
}
