// Package chunk splits page text into bounded chunks for indexing.
//
// Text is cut on a separator (default a blank line) and the pieces are
// merged greedily up to ChunkSize runes. A piece longer than ChunkSize is
// kept whole as its own chunk rather than cut mid-sentence.
package chunk

import (
	"strings"
	"unicode/utf8"

	"github.com/hazyhaar/pdfbridge/pdfload"
)

// Options controls splitting. Zero values take the defaults.
type Options struct {
	ChunkSize    int    // max runes per chunk (default 1000)
	ChunkOverlap int    // runes carried from the previous chunk (default 0)
	Separator    string // piece boundary (default "\n\n")
}

// Chunk is one piece of split text.
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Page  int    `json:"page"` // 0-based source page, -1 for raw text
}

func (o *Options) defaults() {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 1000
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		o.ChunkOverlap = 0
	}
	if o.Separator == "" {
		o.Separator = "\n\n"
	}
}

// Split cuts text into chunks. Returns nil for blank text.
func Split(text string, opts Options) []Chunk {
	opts.defaults()
	var out []Chunk
	for i, s := range merge(pieces(text, opts.Separator), opts) {
		out = append(out, Chunk{Index: i, Text: s, Page: -1})
	}
	return out
}

// SplitDocuments splits each page separately and numbers the chunks across
// the whole document. Empty pages produce no chunks.
func SplitDocuments(docs []pdfload.Document, opts Options) []Chunk {
	opts.defaults()
	var out []Chunk
	for _, d := range docs {
		for _, s := range merge(pieces(d.PageContent, opts.Separator), opts) {
			out = append(out, Chunk{Index: len(out), Text: s, Page: d.Page()})
		}
	}
	return out
}

func pieces(text, sep string) []string {
	var out []string
	for _, p := range strings.Split(text, sep) {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// merge packs pieces into chunks of at most opts.ChunkSize runes, joined by
// the separator, keeping up to opts.ChunkOverlap runes of trailing pieces
// when a new chunk starts.
func merge(parts []string, opts Options) []string {
	sepLen := utf8.RuneCountInString(opts.Separator)

	var (
		out     []string
		current []string
		total   int
	)
	joinLen := func() int {
		if len(current) == 0 {
			return 0
		}
		return sepLen
	}
	emit := func() {
		if s := strings.TrimSpace(strings.Join(current, opts.Separator)); s != "" {
			out = append(out, s)
		}
	}

	for _, p := range parts {
		n := utf8.RuneCountInString(p)
		if total > 0 && total+n+joinLen() > opts.ChunkSize {
			emit()
			// Drop leading pieces until what is left fits the overlap and
			// leaves room for p.
			for total > 0 && (total > opts.ChunkOverlap || total+n+joinLen() > opts.ChunkSize) {
				first := utf8.RuneCountInString(current[0])
				total -= first
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		total += n + joinLen()
		current = append(current, p)
	}
	if len(current) > 0 {
		emit()
	}
	return out
}
