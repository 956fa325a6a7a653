package bridge

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/pdfbridge/pdfload"
	"github.com/hazyhaar/pdfbridge/pdfload/pdftest"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("broken pipe") }

// partialReader yields data once, then fails.
type partialReader struct{ data string }

func (p *partialReader) Read(b []byte) (int, error) {
	if p.data == "" {
		return 0, errors.New("connection reset")
	}
	n := copy(b, p.data)
	p.data = p.data[n:]
	return n, nil
}

type recordingLoader struct {
	paths []string
	docs  []pdfload.Document
	err   error
}

func (r *recordingLoader) Load(_ context.Context, path string) ([]pdfload.Document, error) {
	r.paths = append(r.paths, path)
	return r.docs, r.err
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return lines[len(lines)-1]
}

func TestLoad_ValidPDF(t *testing.T) {
	path := pdftest.Write(t, t.TempDir(), "ok.pdf", "hello", "world")
	var out bytes.Buffer

	docs := Load(context.Background(), pdfload.New(pdfload.Config{}), &out, path)
	if len(docs) != 2 {
		t.Fatalf("docs: got %d, want 2", len(docs))
	}
	text := out.String()
	if !strings.Contains(text, "Received file path: "+path) {
		t.Errorf("missing received line:\n%s", text)
	}
	if !strings.Contains(text, "Loaded documents: [") {
		t.Errorf("missing loaded line:\n%s", text)
	}
	if strings.Count(text, "Document(") != 2 {
		t.Errorf("expected 2 printed records:\n%s", text)
	}
}

func TestLoad_MissingFileSwallowed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.pdf")
	var out bytes.Buffer

	docs := Load(context.Background(), pdfload.New(pdfload.Config{}), &out, path)
	if docs == nil || len(docs) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", docs)
	}
	if !strings.Contains(out.String(), "Error loading PDF: ") {
		t.Fatalf("missing error line:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "no such file") {
		t.Errorf("error line should carry the reason:\n%s", out.String())
	}
}

func TestLoad_EmptyResultLooksLikeFailure(t *testing.T) {
	var out bytes.Buffer
	empty := Load(context.Background(), &recordingLoader{docs: []pdfload.Document{}}, &out, "a.pdf")
	failed := Load(context.Background(), &recordingLoader{err: errors.New("boom")}, &out, "a.pdf")
	if len(empty) != len(failed) {
		t.Fatalf("empty=%d failed=%d", len(empty), len(failed))
	}
}

func TestRunFromStdin_ThreePages(t *testing.T) {
	path := pdftest.Write(t, t.TempDir(), "sample.pdf", "page one", "page two", "page three")
	var out bytes.Buffer

	got := RunFromStdin(context.Background(), pdfload.New(pdfload.Config{}), strings.NewReader(path+"\n"), &out)
	if got != path {
		t.Fatalf("returned %q, want %q", got, path)
	}
	text := out.String()
	if !strings.HasPrefix(text, "File path received in script: "+path+"\n") {
		t.Errorf("first line:\n%s", text)
	}
	if strings.Count(text, "Document(") != 3 {
		t.Errorf("expected 3 printed records:\n%s", text)
	}
	if lastLine(text) != path {
		t.Errorf("final line: got %q, want %q", lastLine(text), path)
	}
}

func TestRunFromStdin_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.pdf")
	var out bytes.Buffer

	got := RunFromStdin(context.Background(), pdfload.New(pdfload.Config{}), strings.NewReader(path), &out)
	if got != path {
		t.Fatalf("returned %q, want %q", got, path)
	}
	if !strings.Contains(out.String(), "Error loading PDF: ") {
		t.Errorf("missing error line:\n%s", out.String())
	}
	if lastLine(out.String()) != path {
		t.Errorf("final line: got %q", lastLine(out.String()))
	}
}

func TestRunFromStdin_ReturnsTrimmedInput(t *testing.T) {
	inputs := []string{"  /tmp/x.pdf \n", "\t/tmp/y.pdf", "/tmp/z.pdf", "   ", ""}
	for _, in := range inputs {
		l := &recordingLoader{err: errors.New("nope")}
		var out bytes.Buffer

		got := RunFromStdin(context.Background(), l, strings.NewReader(in), &out)
		want := strings.TrimSpace(in)
		if got != want {
			t.Errorf("RunFromStdin(%q) = %q, want %q", in, got, want)
		}
		if len(l.paths) != 1 || l.paths[0] != want {
			t.Errorf("loader called with %q, want [%q]", l.paths, want)
		}
	}
}

func TestRunFromStdin_EmptyInputFailsThroughLoader(t *testing.T) {
	var out bytes.Buffer

	got := RunFromStdin(context.Background(), pdfload.New(pdfload.Config{}), strings.NewReader("  \n"), &out)
	if got != "" {
		t.Fatalf("returned %q, want empty", got)
	}
	if !strings.Contains(out.String(), "Error loading PDF: ") {
		t.Errorf("expected caught error:\n%s", out.String())
	}
}

func TestRunFromStdin_ReadError(t *testing.T) {
	l := &recordingLoader{err: errors.New("nope")}
	var out bytes.Buffer

	if got := RunFromStdin(context.Background(), l, failingReader{}, &out); got != "" {
		t.Fatalf("returned %q, want empty", got)
	}
	if len(l.paths) != 1 || l.paths[0] != "" {
		t.Fatalf("loader calls: %q", l.paths)
	}
}

func TestRunFromStdin_PartialReadIsEmpty(t *testing.T) {
	l := &recordingLoader{err: errors.New("no such file")}
	var out bytes.Buffer

	got := RunFromStdin(context.Background(), l, &partialReader{data: "/tmp/half.pdf"}, &out)
	if got != "" {
		t.Fatalf("returned %q, want empty", got)
	}
	if len(l.paths) != 1 || l.paths[0] != "" {
		t.Fatalf("loader calls: %q", l.paths)
	}
	if strings.Contains(out.String(), "/tmp/half.pdf") {
		t.Errorf("partial input leaked into output: %q", out.String())
	}
}
