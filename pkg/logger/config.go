package logger

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Config is the configuration of logger.
type Config struct {
	Level string `json:"level"`
	Color bool   `json:"color"`
	// JSON switches the output to one JSON object per line; Color is then ignored.
	JSON bool `json:"json"`
}

// DefaultConfig returns the default configuration of logger.
func DefaultConfig() *Config {
	return &Config{
		Level: "info",
		Color: true,
	}
}

// Validate implements the check.Validatable interface.
func (c Config) Validate() []error {
	if _, err := logrus.ParseLevel(c.Level); err != nil {
		return []error{err}
	}
	return nil
}

// Formatter returns the logrus formatter described by the configuration.
func (c Config) Formatter() logrus.Formatter {
	if c.JSON {
		return &logrus.JSONFormatter{}
	}
	return &logrus.TextFormatter{
		FullTimestamp: true,
		ForceColors:   c.Color,
		DisableColors: !c.Color,
	}
}

// SetLogrus configures the standard logrus logger. It panics on an invalid level, which
// Validate reports beforehand.
func SetLogrus(c Config) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		panic(fmt.Sprintf("invalid log level: %s", c.Level))
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(c.Formatter())
}
