// Package config loads pdfbridge settings from YAML, .env files and the
// environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/pdfbridge/chunk"
	"github.com/hazyhaar/pdfbridge/pdfload"
	"github.com/hazyhaar/pdfbridge/shield"
)

// Config holds the full pdfbridge configuration.
type Config struct {
	Listen    string      `yaml:"listen"`
	DBPath    string      `yaml:"db_path"`
	LoadRoot  string      `yaml:"load_root"` // confines POST /load paths when set
	CORS      []string    `yaml:"cors_origins"`
	MaxFileMB int         `yaml:"max_file_mb"`
	Engine    string      `yaml:"engine"` // auto | text | stream
	CacheSize int         `yaml:"cache_size"`
	LogLevel  string      `yaml:"log_level"`
	TopK      int         `yaml:"top_k"`
	Chunk     ChunkConfig `yaml:"chunk"`
	Upload    UploadLimit `yaml:"upload"`
}

// ChunkConfig configures the text splitter used on upload.
type ChunkConfig struct {
	Size      int    `yaml:"size"`
	Overlap   int    `yaml:"overlap"`
	Separator string `yaml:"separator"`
}

// UploadLimit rate-limits uploads per client IP. MaxRequests 0 disables it.
type UploadLimit struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:    ":8080",
		DBPath:    "data/pdfbridge.db",
		MaxFileMB: 100,
		Engine:    string(pdfload.EngineAuto),
		CacheSize: pdfload.DefaultCacheSize,
		LogLevel:  "info",
		TopK:      10,
		Chunk: ChunkConfig{
			Size:      1000,
			Overlap:   0,
			Separator: "\n\n",
		},
		Upload: UploadLimit{Window: time.Minute},
	}
}

// LoadConfig reads and parses a YAML config file. Returns DefaultConfig merged with the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// LoadDotEnv loads the given .env files (default ".env") into the process
// environment without overriding variables already set. Missing files are
// skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// FromEnv overrides cfg with PDFBRIDGE_LISTEN, PDFBRIDGE_DB,
// PDFBRIDGE_LOAD_ROOT, PDFBRIDGE_CORS_ORIGINS (comma separated), LOG_LEVEL,
// PDFBRIDGE_ENGINE and PDFBRIDGE_MAX_FILE_MB when they are set.
func (c *Config) FromEnv() error {
	if v := os.Getenv("PDFBRIDGE_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("PDFBRIDGE_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("PDFBRIDGE_LOAD_ROOT"); v != "" {
		c.LoadRoot = v
	}
	if v := os.Getenv("PDFBRIDGE_CORS_ORIGINS"); v != "" {
		c.CORS = splitList(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("PDFBRIDGE_ENGINE"); v != "" {
		c.Engine = v
	}
	if v := os.Getenv("PDFBRIDGE_MAX_FILE_MB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PDFBRIDGE_MAX_FILE_MB: %w", err)
		}
		c.MaxFileMB = n
	}
	return c.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.MaxFileMB <= 0 {
		return fmt.Errorf("max_file_mb must be > 0")
	}
	switch pdfload.Engine(c.Engine) {
	case pdfload.EngineAuto, pdfload.EngineText, pdfload.EngineStream:
	default:
		return fmt.Errorf("unsupported engine %q (use auto, text or stream)", c.Engine)
	}
	if c.Chunk.Size <= 0 {
		return fmt.Errorf("chunk.size must be > 0")
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("chunk.overlap must be in [0, chunk.size)")
	}
	if c.Upload.MaxRequests < 0 {
		return fmt.Errorf("upload.max_requests must be >= 0")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// MaxFileBytes returns max file size in bytes.
func (c *Config) MaxFileBytes() int64 { return int64(c.MaxFileMB) * 1024 * 1024 }

// Level returns the slog level named by LogLevel.
func (c *Config) Level() slog.Level {
	lvl, _ := parseLevel(c.LogLevel)
	return lvl
}

// LoaderConfig returns the pdfload settings.
func (c *Config) LoaderConfig(logger *slog.Logger) pdfload.Config {
	return pdfload.Config{
		MaxFileSize: c.MaxFileBytes(),
		Engine:      pdfload.Engine(c.Engine),
		Logger:      logger,
	}
}

// ChunkOptions returns the splitter settings.
func (c *Config) ChunkOptions() chunk.Options {
	return chunk.Options{
		ChunkSize:    c.Chunk.Size,
		ChunkOverlap: c.Chunk.Overlap,
		Separator:    c.Chunk.Separator,
	}
}

// UploadRateLimit returns the upload limiter settings.
func (c *Config) UploadRateLimit() shield.Limit {
	return shield.Limit{MaxRequests: c.Upload.MaxRequests, Window: c.Upload.Window}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unsupported log_level %q", s)
}
