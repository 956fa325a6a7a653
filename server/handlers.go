package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/pdfbridge/bridge"
	"github.com/hazyhaar/pdfbridge/chunk"
	"github.com/hazyhaar/pdfbridge/pdfload"
	"github.com/hazyhaar/pdfbridge/safe"
	"github.com/hazyhaar/pdfbridge/shield"
	"github.com/hazyhaar/pdfbridge/store"
)

const maxJSONBody = 1 << 20

var (
	errBadRequest    = errors.New("bad request")
	errUnprocessable = errors.New("unprocessable")
)

// --- /load ---

// LoadResponse is the body of POST /load.
type LoadResponse struct {
	Path      string             `json:"path"`
	Documents []pdfload.Document `json:"documents"`
	Output    string             `json:"output"`
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	path, err := safe.ConfinePath(s.cfg.LoadRoot, strings.TrimSpace(req.Path))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var out bytes.Buffer
	docs := bridge.Load(r.Context(), s.cfg.Documents, &out, path)
	writeJSON(w, http.StatusOK, LoadResponse{Path: path, Documents: docs, Output: out.String()})
}

// --- /upload ---

type ingestReq struct {
	Index string
	Title string
	Data  []byte
}

// UploadResponse is the body of POST /upload/{index}.
type UploadResponse struct {
	Upserted int    `json:"upserted"`
	Title    string `json:"title"`
	Pages    int    `json:"pages"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUpload)
	file, header, err := r.FormFile("pdf")
	if tooLarge(err) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", s.cfg.MaxUpload))
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("form field pdf: %w", err))
		return
	}
	defer file.Close()

	data, err := safe.LimitedReadAll(file, s.cfg.MaxUpload)
	if tooLarge(err) {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}

	resp, err := s.ingest(r.Context(), &ingestReq{
		Index: chi.URLParam(r, "index"),
		Title: filepath.Base(header.Filename),
		Data:  data,
	})
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) ingestEndpoint(ctx context.Context, req any) (any, error) {
	r := req.(*ingestReq)
	if err := s.cfg.Loader.Detect(r.Title); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}

	docs, err := s.cfg.Loader.LoadReader(ctx, bytes.NewReader(r.Data), int64(len(r.Data)), r.Title)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUnprocessable, err)
	}
	chunks := chunk.SplitDocuments(docs, s.cfg.Chunk)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no text extracted from %s", errUnprocessable, r.Title)
	}

	n, err := s.cfg.Store.Upsert(ctx, r.Index, r.Title, chunks)
	if err != nil {
		return nil, err
	}
	shield.GetLogger(ctx).Info("pdf indexed", "index", r.Index, "title", r.Title, "pages", len(docs), "chunks", n)
	return &UploadResponse{Upserted: n, Title: r.Title, Pages: len(docs)}, nil
}

// --- /search ---

type searchReq struct {
	Index string
	Query string
}

// SearchResponse is the body of POST /search/{index}. Context joins the
// matched chunks, best first.
type SearchResponse struct {
	Query   string        `json:"query"`
	Context string        `json:"context"`
	Matches []store.Match `json:"matches"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query string `json:"query"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		writeError(w, http.StatusBadRequest, errors.New("query is required"))
		return
	}

	resp, err := s.search(r.Context(), &searchReq{Index: chi.URLParam(r, "index"), Query: body.Query})
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) searchEndpoint(ctx context.Context, req any) (any, error) {
	r := req.(*searchReq)
	matches, err := s.cfg.Store.Search(ctx, r.Index, r.Query, s.cfg.TopK)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no relevant content for %q: %w", r.Query, store.ErrNotFound)
	}

	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = m.Content
	}
	return &SearchResponse{Query: r.Query, Context: strings.Join(parts, "\n\n"), Matches: matches}, nil
}

// --- /files ---

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.cfg.Store.ListFiles(r.Context(), chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (s *Server) handleDeleteFiles(w http.ResponseWriter, r *http.Request) {
	var body struct {
		File string `json:"file"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(body.File) == "" {
		writeError(w, http.StatusBadRequest, errors.New("file is required"))
		return
	}

	index := chi.URLParam(r, "index")
	ids, err := s.cfg.Store.DeleteFiles(r.Context(), index, body.File)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	shield.GetLogger(r.Context()).Info("files deleted", "index", index, "prefix", body.File, "records", len(ids))
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      fmt.Sprintf("deleted %d records", len(ids)),
		"deletedFiles": ids,
	})
}

// --- /index ---

func (s *Server) handleListIndexes(w http.ResponseWriter, r *http.Request) {
	names, err := s.cfg.Store.ListIndexes(r.Context())
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"indexes": names})
}

func (s *Server) handleCreateIndex(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("indexName"))
	if name == "" {
		writeError(w, http.StatusBadRequest, errors.New("indexName is required"))
		return
	}
	if err := safe.ValidateName(name); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.cfg.Store.CreateIndex(r.Context(), name); err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"index": name})
}

func (s *Server) handleDeleteIndex(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "index")
	if err := s.cfg.Store.DeleteIndex(r.Context(), name); err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": name})
}

// --- Helpers ---

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// tooLarge reports whether err comes from an exceeded body or file limit.
func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || errors.Is(err, safe.ErrTooLarge)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, errUnprocessable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
