// Package logger provides logger configuration options.
package logger

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	log "github.com/coursechat-io/coursechat/pkg/logger"
)

// Options wraps the logger configuration.
type Options struct {
	Level             string   `json:"level" mapstructure:"level"`
	Format            string   `json:"format" mapstructure:"format"`
	OutputPaths       []string `json:"output-paths" mapstructure:"output-paths"`
	Development       bool     `json:"development" mapstructure:"development"`
	DisableCaller     bool     `json:"disable-caller" mapstructure:"disable-caller"`
	DisableStacktrace bool     `json:"disable-stacktrace" mapstructure:"disable-stacktrace"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	cfg := log.DefaultConfig()
	return &Options{
		Level:       cfg.Level,
		Format:      cfg.Format,
		OutputPaths: cfg.OutputPaths,
	}
}

// AddFlags adds flags for logger options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Level, "log.level", o.Level, "Log level (DEBUG|INFO|WARN|ERROR|FATAL)")
	fs.StringVar(&o.Format, "log.format", o.Format, "Log format (json|console)")
	fs.StringSliceVar(&o.OutputPaths, "log.output-paths", o.OutputPaths, "Output paths for logs")
	fs.BoolVar(&o.Development, "log.development", o.Development, "Enable development mode")
	fs.BoolVar(&o.DisableCaller, "log.disable-caller", o.DisableCaller, "Disable caller detection")
	fs.BoolVar(&o.DisableStacktrace, "log.disable-stacktrace", o.DisableStacktrace, "Disable stacktrace capture")
}

// Validate validates the logger options.
func (o *Options) Validate() error {
	switch strings.ToUpper(o.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR", "FATAL", "":
	default:
		return fmt.Errorf("invalid log level: %s", o.Level)
	}
	switch o.Format {
	case "json", "console", "":
	default:
		return fmt.Errorf("invalid log format: %s", o.Format)
	}
	return nil
}

// Complete completes the logger options with defaults.
func (o *Options) Complete() error {
	if o.Level == "" {
		o.Level = "INFO"
	}
	if o.Format == "" {
		o.Format = "console"
	}
	return nil
}

// Init initializes the global logger with the options.
func (o *Options) Init() error {
	return log.Init(&log.Config{
		Level:             o.Level,
		Format:            o.Format,
		OutputPaths:       o.OutputPaths,
		Development:       o.Development,
		DisableCaller:     o.DisableCaller,
		DisableStacktrace: o.DisableStacktrace,
	})
}
