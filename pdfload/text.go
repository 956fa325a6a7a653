package pdfload

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// loadText extracts page text with ledongthuc/pdf. Fonts are shared across
// pages so each font dictionary is decoded once.
func loadText(ctx context.Context, src io.ReaderAt, size int64, source string) ([]Document, error) {
	r, err := openText(src, size)
	if err != nil {
		return nil, err
	}

	total := r.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	fonts := make(map[string]*pdf.Font)
	docs := make([]Document, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		docs = append(docs, newDocument(source, i-1, total, pageText(r.Page(i), fonts)))
	}
	return docs, nil
}

// openText wraps pdf.NewReader; the library panics on some malformed
// trailers instead of returning an error.
func openText(src io.ReaderAt, size int64) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("pdf open: %v", rec)
		}
	}()
	r, err = pdf.NewReader(src, size)
	if err != nil {
		return nil, fmt.Errorf("pdf open: %w", err)
	}
	return r, nil
}

// pageText returns the plain text of p, or "" for null or undecodable pages.
func pageText(p pdf.Page, fonts map[string]*pdf.Font) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
		}
	}()
	if p.V.IsNull() {
		return ""
	}
	for _, name := range p.Fonts() {
		if _, ok := fonts[name]; !ok {
			f := p.Font(name)
			fonts[name] = &f
		}
	}
	s, err := p.GetPlainText(fonts)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
