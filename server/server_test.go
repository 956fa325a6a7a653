package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/pdfbridge/dbopen"
	"github.com/hazyhaar/pdfbridge/pdfload"
	"github.com/hazyhaar/pdfbridge/pdfload/pdftest"
	"github.com/hazyhaar/pdfbridge/shield"
	"github.com/hazyhaar/pdfbridge/store"
)

func newTestServer(t *testing.T, limit shield.Limit) (*Server, *store.Store) {
	t.Helper()
	st, err := store.OpenDB(dbopen.OpenMemory(t))
	if err != nil {
		t.Fatal(err)
	}
	srv := New(Config{
		Loader:      pdfload.New(pdfload.Config{}),
		Store:       st,
		UploadLimit: limit,
	})
	return srv, st
}

func do(t *testing.T, h http.Handler, method, target, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, h http.Handler, method, target string, v any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return do(t, h, method, target, "application/json", body)
}

func createIndex(t *testing.T, h http.Handler, name string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"indexName": {name}}.Encode()
	return do(t, h, http.MethodPost, "/index", "application/x-www-form-urlencoded", []byte(form))
}

func upload(t *testing.T, h http.Handler, index, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("pdf", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()
	return do(t, h, http.MethodPost, "/upload/"+index, mw.FormDataContentType(), buf.Bytes())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestRoot(t *testing.T) {
	srv, _ := newTestServer(t, shield.Limit{})
	rec := do(t, srv, http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "server running" {
		t.Fatalf("root: %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Trace-ID") == "" {
		t.Error("missing X-Trace-ID header")
	}

	rec = do(t, srv, http.MethodGet, "/health", "", nil)
	if decode(t, rec)["status"] != "ok" {
		t.Fatalf("health: %s", rec.Body.String())
	}
}

func TestLoad(t *testing.T) {
	srv, _ := newTestServer(t, shield.Limit{})
	path := pdftest.Write(t, t.TempDir(), "sample.pdf", "page one", "page two")

	rec := doJSON(t, srv, http.MethodPost, "/load", map[string]string{"path": path})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d %s", rec.Code, rec.Body.String())
	}
	var resp LoadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Path != path || len(resp.Documents) != 2 {
		t.Fatalf("path %q, documents %d", resp.Path, len(resp.Documents))
	}
	if !strings.Contains(resp.Output, "Received file path: "+path) {
		t.Errorf("output: %q", resp.Output)
	}
}

func TestLoad_MissingFileSwallowed(t *testing.T) {
	srv, _ := newTestServer(t, shield.Limit{})

	rec := doJSON(t, srv, http.MethodPost, "/load", map[string]string{"path": "/nonexistent/missing.pdf"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	var resp LoadResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Documents == nil || len(resp.Documents) != 0 {
		t.Fatalf("want empty non-nil documents, got %v", resp.Documents)
	}
	if !strings.Contains(resp.Output, "Error loading PDF") {
		t.Errorf("output: %q", resp.Output)
	}
}

func TestLoad_Confined(t *testing.T) {
	st, err := store.OpenDB(dbopen.OpenMemory(t))
	if err != nil {
		t.Fatal(err)
	}
	root := t.TempDir()
	pdftest.Write(t, root, "inside.pdf", "hello")
	srv := New(Config{Loader: pdfload.New(pdfload.Config{}), Store: st, LoadRoot: root})

	rec := doJSON(t, srv, http.MethodPost, "/load", map[string]string{"path": "inside.pdf"})
	var resp LoadResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if rec.Code != http.StatusOK || len(resp.Documents) != 1 {
		t.Fatalf("inside root: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, "/load", map[string]string{"path": "../outside.pdf"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("outside root: %d", rec.Code)
	}
}

func TestUpload_TooLarge(t *testing.T) {
	st, err := store.OpenDB(dbopen.OpenMemory(t))
	if err != nil {
		t.Fatal(err)
	}
	srv := New(Config{Loader: pdfload.New(pdfload.Config{}), Store: st, MaxUpload: 2048})
	createIndex(t, srv, "docs")

	data := pdftest.Build(strings.Repeat("filler ", 1200))
	if len(data) < 8192 {
		t.Fatalf("test pdf too small: %d bytes", len(data))
	}
	rec := upload(t, srv, "docs", "big.pdf", data)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status: got %d, want 413 (%s)", rec.Code, rec.Body.String())
	}

	if rec := upload(t, srv, "docs", "small.pdf", pdftest.Build("fits")); rec.Code != http.StatusOK {
		t.Fatalf("small upload: %d %s", rec.Code, rec.Body.String())
	}
}

func TestIndexRoutes(t *testing.T) {
	srv, _ := newTestServer(t, shield.Limit{})

	if rec := createIndex(t, srv, "docs"); rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	if rec := createIndex(t, srv, "docs"); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: %d", rec.Code)
	}
	if rec := createIndex(t, srv, "  "); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank: %d", rec.Code)
	}
	if rec := createIndex(t, srv, "a/b"); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid name: %d", rec.Code)
	}

	rec := do(t, srv, http.MethodGet, "/index", "", nil)
	names := decode(t, rec)["indexes"].([]any)
	if len(names) != 1 || names[0] != "docs" {
		t.Fatalf("indexes: %v", names)
	}

	if rec := do(t, srv, http.MethodDelete, "/index/docs", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, "/index/docs", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("delete again: %d", rec.Code)
	}
}

func TestUploadSearchDelete(t *testing.T) {
	srv, _ := newTestServer(t, shield.Limit{})
	createIndex(t, srv, "docs")

	data := pdftest.Build("alpha bravo charlie", "delta echo foxtrot")
	rec := upload(t, srv, "docs", "report.pdf", data)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}
	var up UploadResponse
	json.Unmarshal(rec.Body.Bytes(), &up)
	if up.Title != "report.pdf" || up.Upserted != 2 || up.Pages != 2 {
		t.Fatalf("upload response: %+v", up)
	}

	rec = do(t, srv, http.MethodGet, "/files/docs", "", nil)
	files := decode(t, rec)["files"].([]any)
	if len(files) != 1 || files[0] != "report.pdf" {
		t.Fatalf("files: %v", files)
	}

	rec = doJSON(t, srv, http.MethodPost, "/search/docs", map[string]string{"query": "echo"})
	if rec.Code != http.StatusOK {
		t.Fatalf("search: %d %s", rec.Code, rec.Body.String())
	}
	var sr SearchResponse
	json.Unmarshal(rec.Body.Bytes(), &sr)
	if len(sr.Matches) != 1 || sr.Matches[0].ID != "report.pdf-1" {
		t.Fatalf("matches: %+v", sr.Matches)
	}
	if !strings.Contains(sr.Context, "echo") {
		t.Errorf("context: %q", sr.Context)
	}

	if rec := doJSON(t, srv, http.MethodPost, "/search/docs", map[string]string{"query": "zulu"}); rec.Code != http.StatusNotFound {
		t.Fatalf("no match: %d", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodPost, "/search/docs", map[string]string{"query": " "}); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank query: %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodDelete, "/files/docs", map[string]string{"file": "report.pdf"})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete files: %d %s", rec.Code, rec.Body.String())
	}
	if ids := decode(t, rec)["deletedFiles"].([]any); len(ids) != 2 {
		t.Fatalf("deleted: %v", ids)
	}
	if rec := doJSON(t, srv, http.MethodDelete, "/files/docs", map[string]string{"file": "report.pdf"}); rec.Code != http.StatusNotFound {
		t.Fatalf("delete again: %d", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodDelete, "/files/docs", map[string]string{"file": ""}); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank file: %d", rec.Code)
	}
}

func TestUpload_Errors(t *testing.T) {
	srv, _ := newTestServer(t, shield.Limit{})
	createIndex(t, srv, "docs")
	data := pdftest.Build("text")

	if rec := upload(t, srv, "missing", "a.pdf", data); rec.Code != http.StatusNotFound {
		t.Errorf("unknown index: %d", rec.Code)
	}
	if rec := upload(t, srv, "docs", "notes.txt", data); rec.Code != http.StatusBadRequest {
		t.Errorf("wrong extension: %d", rec.Code)
	}
	if rec := upload(t, srv, "docs", "bad.pdf", []byte("not a pdf")); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("corrupt: %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodPost, "/upload/docs", "application/json", []byte("{}")); rec.Code != http.StatusBadRequest {
		t.Errorf("no multipart: %d", rec.Code)
	}
}

func TestUpload_RateLimited(t *testing.T) {
	srv, _ := newTestServer(t, shield.Limit{MaxRequests: 1, Window: time.Hour})
	createIndex(t, srv, "docs")
	data := pdftest.Build("text")

	if rec := upload(t, srv, "docs", "a.pdf", data); rec.Code != http.StatusOK {
		t.Fatalf("first upload: %d %s", rec.Code, rec.Body.String())
	}
	if rec := upload(t, srv, "docs", "b.pdf", data); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second upload: %d", rec.Code)
	}
	srv.Sweep()
}

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		store.ErrNotFound:      http.StatusNotFound,
		store.ErrExists:        http.StatusConflict,
		errBadRequest:          http.StatusBadRequest,
		errUnprocessable:       http.StatusUnprocessableEntity,
		http.ErrBodyNotAllowed: http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := statusOf(err); got != want {
			t.Errorf("statusOf(%v): got %d, want %d", err, got, want)
		}
	}
}

func TestCORS_Preflight(t *testing.T) {
	st, err := store.OpenDB(dbopen.OpenMemory(t))
	if err != nil {
		t.Fatal(err)
	}
	srv := New(Config{Loader: pdfload.New(pdfload.Config{}), Store: st, CORSOrigins: []string{"https://ui.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/upload/docs", nil)
	req.Header.Set("Origin", "https://ui.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://ui.example.com" {
		t.Fatalf("allow origin: got %q (status %d)", got, rec.Code)
	}
}
