// CLAUDE:SUMMARY pdfcpu-backed engine: validates the file and scans page content streams for text operators.
package pdfload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// loadStream reads the PDF with pdfcpu and decodes each page's content stream.
func loadStream(ctx context.Context, src io.ReadSeeker, source string) ([]Document, error) {
	conf := model.NewDefaultConfiguration()
	pctx, err := api.ReadValidateAndOptimize(src, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	if pctx.PageCount == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	docs := make([]Document, 0, pctx.PageCount)
	for nr := 1; nr <= pctx.PageCount; nr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		docs = append(docs, newDocument(source, nr-1, pctx.PageCount, streamPageText(pctx, nr)))
	}
	return docs, nil
}

func streamPageText(pctx *model.Context, nr int) string {
	r, err := pdfcpu.ExtractPageContent(pctx, nr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ""
	}
	return scanContent(data)
}

// literalRe matches PDF string literals: (text here)
var literalRe = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)

// scanContent walks content-stream lines and collects text shown by the
// Tj, TJ, ' and " operators. Td/TD insert a space, T* a line break.
func scanContent(data []byte) string {
	var sb strings.Builder
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		fields := bytes.Fields(line)
		op := string(fields[len(fields)-1])

		switch op {
		case "Tj", "TJ":
			writeLiterals(&sb, line, false)
		case "'", `"`:
			writeLiterals(&sb, line, true)
		case "Td", "TD":
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case "T*":
			sb.WriteByte('\n')
		}
	}
	return normalizeSpace(sb.String())
}

func writeLiterals(sb *strings.Builder, line []byte, newline bool) {
	for _, m := range literalRe.FindAllSubmatch(line, -1) {
		text := unescapeLiteral(m[1])
		if text == "" {
			continue
		}
		if newline {
			sb.WriteByte('\n')
		}
		sb.WriteString(text)
	}
}

// unescapeLiteral handles the escape sequences allowed in PDF literal strings,
// including up to three octal digits.
func unescapeLiteral(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch e := raw[i]; e {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			val := int(e - '0')
			for k := 0; k < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; k++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		default:
			// \\ \( \) and unknown escapes keep the escaped byte.
			sb.WriteByte(e)
		}
	}
	return sb.String()
}

// normalizeSpace collapses whitespace runs and drops non-printable runes.
func normalizeSpace(text string) string {
	var sb strings.Builder
	pending := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			pending = sb.Len() > 0
		case unicode.IsPrint(r):
			if pending {
				sb.WriteByte(' ')
				pending = false
			}
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
