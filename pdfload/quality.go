// CLAUDE:SUMMARY Extraction quality scoring over loaded pages; flags PDFs that likely need OCR.
package pdfload

import (
	"strings"
	"unicode"
)

// ExtractionQuality captures metrics about page text extraction.
type ExtractionQuality struct {
	PageCount      int     `json:"page_count"`
	EmptyPages     int     `json:"empty_pages"`
	CharsPerPage   float64 `json:"chars_per_page"`
	PrintableRatio float64 `json:"printable_ratio"`
	WordlikeRatio  float64 `json:"wordlike_ratio"`
}

// NeedsOCR returns true if the text layer is too thin or too noisy to be
// trusted. A PDF with no pages never needs OCR.
func (q *ExtractionQuality) NeedsOCR() bool {
	if q.PageCount == 0 {
		return false
	}
	return q.CharsPerPage < 50 || q.PrintableRatio < 0.85
}

// Assess computes extraction quality for docs.
func Assess(docs []Document) *ExtractionQuality {
	q := &ExtractionQuality{PageCount: len(docs), PrintableRatio: 1}
	if len(docs) == 0 {
		return q
	}

	var sb strings.Builder
	chars := 0
	for _, d := range docs {
		n := len([]rune(d.PageContent))
		if strings.TrimSpace(d.PageContent) == "" {
			q.EmptyPages++
		}
		chars += n
		sb.WriteString(d.PageContent)
		sb.WriteByte('\n')
	}
	text := sb.String()

	q.CharsPerPage = float64(chars) / float64(len(docs))
	q.PrintableRatio = printableRatio(text)
	q.WordlikeRatio = wordlikeRatio(text)
	return q
}

// printableRatio excludes the Private Use Area, U+FFFD and control
// characters other than \n \r \t.
func printableRatio(text string) float64 {
	total, ok := 0, 0
	for _, r := range text {
		total++
		if isGarbage(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			ok++
		}
	}
	if total == 0 {
		return 1
	}
	return float64(ok) / float64(total)
}

func isGarbage(r rune) bool {
	switch {
	case r >= 0xE000 && r <= 0xF8FF:
		return true
	case r == 0xFFFD:
		return true
	case r < 0x20 && r != '\n' && r != '\r' && r != '\t':
		return true
	}
	return false
}

// wordlikeRatio is the share of whitespace-separated tokens 2 to 15 runes long.
func wordlikeRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	n := 0
	for _, f := range fields {
		if l := len([]rune(f)); l >= 2 && l <= 15 {
			n++
		}
	}
	return float64(n) / float64(len(fields))
}
