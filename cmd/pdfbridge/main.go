// Command pdfbridge loads PDF files into per-page document records.
//
// With no arguments it reads a file path from stdin, loads it, prints what
// happened and echoes the path as the last line of stdout. The exit status is
// 0 whether or not the load succeeded.
//
//	echo /tmp/sample.pdf | pdfbridge
//	pdfbridge serve [-config pdfbridge.yaml]
//	pdfbridge mcp
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/pdfbridge/bridge"
	"github.com/hazyhaar/pdfbridge/config"
	"github.com/hazyhaar/pdfbridge/kit"
	"github.com/hazyhaar/pdfbridge/pdfload"
	"github.com/hazyhaar/pdfbridge/server"
	"github.com/hazyhaar/pdfbridge/store"
)

const version = "0.1.0"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "dotenv: %v\n", err)
		os.Exit(1)
	}

	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch cmd {
	case "":
		err = cmdStdin(ctx, os.Stdin, os.Stdout, os.Stderr)
	case "serve":
		err = cmdServe(ctx, os.Args[2:])
	case "mcp":
		err = cmdMCP(ctx)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		slog.Error("pdfbridge failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `pdfbridge - load PDF files into per-page documents

usage:
  pdfbridge                       read a PDF path from stdin and load it
  pdfbridge serve [-config file]  run the HTTP API
  pdfbridge mcp                   serve the pdfload tools over MCP stdio

environment:
  PDFBRIDGE_LISTEN, PDFBRIDGE_DB, PDFBRIDGE_LOAD_ROOT, PDFBRIDGE_CORS_ORIGINS,
  PDFBRIDGE_ENGINE, PDFBRIDGE_MAX_FILE_MB, LOG_LEVEL
`)
}

// loadConfig returns defaults, or the YAML file at path, then applies the
// environment overrides.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.FromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger writes JSON to w so stdout stays free for adapter output.
func newLogger(w io.Writer, lvl slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

// cmdStdin runs the stdin adapter. Load failures are reported on stdout and
// never returned.
func cmdStdin(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := loadConfig("")
	if err != nil {
		return err
	}
	logger := newLogger(stderr, cfg.Level())

	loader := pdfload.New(cfg.LoaderConfig(logger))
	path := bridge.RunFromStdin(kit.WithTransport(ctx, "stdin"), loader, stdin, stdout)
	logger.Debug("stdin run finished", "path", path)
	return nil
}

func cmdServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.Level())

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	loader := pdfload.New(cfg.LoaderConfig(logger))
	cache, err := pdfload.NewCache(loader, cfg.CacheSize)
	if err != nil {
		return err
	}

	api := server.New(server.Config{
		Loader:      loader,
		Documents:   cache,
		Store:       st,
		Chunk:       cfg.ChunkOptions(),
		TopK:        cfg.TopK,
		LoadRoot:    cfg.LoadRoot,
		CORSOrigins: cfg.CORS,
		UploadLimit: cfg.UploadRateLimit(),
		Logger:      logger,
	})
	go sweepLoop(ctx, api, time.Minute)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", "listen", cfg.Listen, "db", cfg.DBPath, "engine", cfg.Engine)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("server stopped")
	return nil
}

func sweepLoop(ctx context.Context, api *server.Server, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			api.Sweep()
		}
	}
}

func cmdMCP(ctx context.Context) error {
	cfg, err := loadConfig("")
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.Level())

	srv := mcp.NewServer(&mcp.Implementation{Name: "pdfbridge", Version: version}, nil)
	pdfload.New(cfg.LoaderConfig(logger)).RegisterMCP(srv)

	logger.Info("mcp server starting", "transport", "stdio")
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}
