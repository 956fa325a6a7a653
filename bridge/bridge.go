// Package bridge is the stdin adapter around pdfload: it reads a path,
// loads it, prints what happened and echoes the path back.
//
// Load failures are printed and swallowed. A caller of Load cannot tell an
// empty PDF from a failed load, and RunFromStdin always returns the path it
// received.
package bridge

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hazyhaar/pdfbridge/pdfload"
)

// Loader is the PDF loading capability the adapter forwards to.
// *pdfload.Loader and *pdfload.Cache satisfy it.
type Loader interface {
	Load(ctx context.Context, path string) ([]pdfload.Document, error)
}

// Load writes the received path to w, loads it and writes either the loaded
// documents or the error. On failure it returns an empty, non-nil slice.
func Load(ctx context.Context, l Loader, w io.Writer, path string) []pdfload.Document {
	fmt.Fprintf(w, "Received file path: %s\n", path)

	docs, err := l.Load(ctx, path)
	if err != nil {
		fmt.Fprintf(w, "Error loading PDF: %v\n", err)
		return []pdfload.Document{}
	}

	fmt.Fprintf(w, "Loaded documents: %v\n", docs)
	return docs
}

// RunFromStdin reads all of r as a path, trims it, runs Load and writes the
// path as the final line of w. The loaded documents are discarded and the
// trimmed path is returned unchanged. A read error counts as empty input,
// bytes read before it included.
func RunFromStdin(ctx context.Context, l Loader, r io.Reader, w io.Writer) string {
	raw, err := io.ReadAll(r)
	if err != nil {
		raw = nil
	}
	path := strings.TrimSpace(string(raw))

	fmt.Fprintf(w, "File path received in script: %s\n", path)
	result := handOff(ctx, l, w, path)
	fmt.Fprintln(w, result)
	return result
}

// handOff is what the calling process gets back: the path, not the documents.
func handOff(ctx context.Context, l Loader, w io.Writer, path string) string {
	_ = Load(ctx, l, w, path)
	return path
}
