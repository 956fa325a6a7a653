// CLAUDE:SUMMARY Configuration struct and defaults for the pdfload loader.
package pdfload

import "log/slog"

// Config configures the PDF loader.
type Config struct {
	// MaxFileSize is the maximum file size to process (default: 100 MB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// Engine picks the extraction backend (default: EngineAuto).
	Engine Engine `json:"engine" yaml:"engine"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 100 * 1024 * 1024
	}
	if c.Engine == "" {
		c.Engine = EngineAuto
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
