// CLAUDE:SUMMARY Defines Document (one record per PDF page) and the Engine selector for pdfload.
package pdfload

import (
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Engine selects the PDF backend used to extract page text.
type Engine string

const (
	// EngineAuto tries EngineText first and falls back to EngineStream
	// when the text engine cannot open the file.
	EngineAuto Engine = "auto"
	// EngineText extracts text through github.com/ledongthuc/pdf.
	EngineText Engine = "text"
	// EngineStream decodes content streams through pdfcpu.
	EngineStream Engine = "stream"
)

// Metadata keys set on every Document.
const (
	MetaSource     = "source"
	MetaPage       = "page"
	MetaTotalPages = "total_pages"
)

// Document is one parsed page of a PDF file.
type Document struct {
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
}

// Page returns the 0-based page index, or -1 if unset.
func (d Document) Page() int {
	if n, ok := d.Metadata[MetaPage].(int); ok {
		return n
	}
	return -1
}

// Source returns the path the document was loaded from.
func (d Document) Source() string {
	s, _ := d.Metadata[MetaSource].(string)
	return s
}

func (d Document) String() string {
	return fmt.Sprintf("Document(page=%d, source=%s, content=%q)", d.Page(), d.Source(), d.PageContent)
}

// newDocument stores text in NFC so both engines index identical strings
// for the same glyphs.
func newDocument(source string, page, total int, text string) Document {
	return Document{
		PageContent: norm.NFC.String(text),
		Metadata: map[string]any{
			MetaSource:     source,
			MetaPage:       page,
			MetaTotalPages: total,
		},
	}
}
