// CLAUDE:SUMMARY Core PDF loader that turns a file into one Document per page via the configured engine.
// Package pdfload parses PDF files into per-page document records.
//
// Two engines are available:
//   - text:   github.com/ledongthuc/pdf plain-text extraction (font aware)
//   - stream: pdfcpu content-stream decoding (Tj/TJ operators)
//
// The default engine is auto: text first, stream when the text engine cannot
// open the file. Every page yields exactly one Document, empty pages
// included, so len(docs) is the page count.
//
// Usage:
//
//	l := pdfload.New(pdfload.Config{})
//	docs, err := l.Load(ctx, "/path/to/file.pdf")
//	fmt.Println(len(docs), "pages")
package pdfload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Source is the random-access input both engines need.
type Source interface {
	io.ReaderAt
	io.ReadSeeker
}

// Loader is the PDF loading engine. It holds no per-call state and is safe
// for concurrent use.
type Loader struct {
	cfg Config
}

// New creates a Loader with the given configuration.
func New(cfg Config) *Loader {
	cfg.defaults()
	return &Loader{cfg: cfg}
}

// Detect checks that path names a PDF file by extension.
func (l *Loader) Detect(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".pdf" {
		return fmt.Errorf("unsupported format: %q", ext)
	}
	return nil
}

// Load parses the PDF at path into one Document per page.
func (l *Loader) Load(ctx context.Context, path string) ([]Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > l.cfg.MaxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), l.cfg.MaxFileSize)
	}
	if err := l.Detect(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return l.load(ctx, f, info.Size(), path)
}

// LoadReader parses an in-memory or already opened PDF. source is recorded
// in each Document's metadata and used in log lines.
func (l *Loader) LoadReader(ctx context.Context, src Source, size int64, source string) ([]Document, error) {
	if size > l.cfg.MaxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", size, l.cfg.MaxFileSize)
	}
	return l.load(ctx, src, size, source)
}

func (l *Loader) load(ctx context.Context, src Source, size int64, source string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.cfg.Logger.Debug("loading pdf", "source", source, "engine", l.cfg.Engine, "size", size)

	var (
		docs []Document
		err  error
	)
	switch l.cfg.Engine {
	case EngineText:
		docs, err = loadText(ctx, src, size, source)
	case EngineStream:
		docs, err = loadStream(ctx, src, source)
	case EngineAuto:
		docs, err = loadText(ctx, src, size, source)
		if err != nil && ctx.Err() == nil {
			l.cfg.Logger.Debug("text engine failed, trying stream", "source", source, "error", err)
			if _, serr := src.Seek(0, io.SeekStart); serr != nil {
				return nil, fmt.Errorf("rewind %s: %w", source, serr)
			}
			docs, err = loadStream(ctx, src, source)
		}
	default:
		return nil, fmt.Errorf("unknown engine: %q", l.cfg.Engine)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}

	q := Assess(docs)
	l.cfg.Logger.Debug("pdf loaded",
		"source", source,
		"pages", q.PageCount,
		"empty_pages", q.EmptyPages,
		"chars_per_page", q.CharsPerPage,
		"needs_ocr", q.NeedsOCR())

	return docs, nil
}
