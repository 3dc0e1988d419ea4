package config

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// LogConfig controls logrus output.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or text
}

// Validate checks the level and format names.
func (c LogConfig) Validate() error {
	if _, err := log.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	switch strings.ToLower(c.Format) {
	case "json", "text":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Format)
	}
}

// Apply configures l.
func (c LogConfig) Apply(l *log.Logger) error {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return err
	}
	l.SetLevel(level)
	l.SetOutput(os.Stdout)
	if strings.ToLower(c.Format) == "text" {
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&log.JSONFormatter{})
	}
	return nil
}
