// Package server exposes the PDF bridge and the document indexes over HTTP.
//
// Routes:
//
//	GET    /health
//	POST   /load              {"path": "..."}      run the stdin adapter on a path
//	POST   /upload/{index}    multipart field pdf  load, split and store a PDF
//	POST   /search/{index}    {"query": "..."}     full-text search
//	GET    /files/{index}                          stored file titles
//	DELETE /files/{index}     {"file": "..."}      delete records by id prefix
//	GET    /index                                  list indexes
//	POST   /index             form indexName       create an index
//	DELETE /index/{index}                          drop an index
//	GET    /                                       plain-text liveness
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/pdfbridge/bridge"
	"github.com/hazyhaar/pdfbridge/chunk"
	"github.com/hazyhaar/pdfbridge/kit"
	"github.com/hazyhaar/pdfbridge/pdfload"
	"github.com/hazyhaar/pdfbridge/shield"
	"github.com/hazyhaar/pdfbridge/store"
)

// DefaultMaxUpload bounds multipart uploads.
const DefaultMaxUpload = 64 << 20

// Config wires the server to its collaborators.
type Config struct {
	Loader    *pdfload.Loader // parses uploads
	Documents bridge.Loader   // backs /load; defaults to Loader
	Store     *store.Store
	Chunk     chunk.Options
	TopK      int
	MaxUpload int64

	// LoadRoot confines /load paths to a directory. Empty allows any path.
	LoadRoot string

	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string

	// UploadLimit rate-limits /upload per client IP. Zero disables it.
	UploadLimit shield.Limit

	Logger *slog.Logger
}

// Server is the HTTP surface. It implements http.Handler.
type Server struct {
	cfg     Config
	log     *slog.Logger
	limiter *shield.RateLimiter
	router  chi.Router

	ingest kit.Endpoint
	search kit.Endpoint
}

// New builds the router. Loader and Store are required.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Documents == nil {
		cfg.Documents = cfg.Loader
	}
	if cfg.TopK <= 0 {
		cfg.TopK = store.DefaultTopK
	}
	if cfg.MaxUpload <= 0 {
		cfg.MaxUpload = DefaultMaxUpload
	}

	s := &Server{
		cfg:     cfg,
		log:     cfg.Logger,
		limiter: shield.NewRateLimiter(cfg.UploadLimit),
	}
	s.ingest = kit.Chain(kit.Logging(s.log, "ingest"))(s.ingestEndpoint)
	s.search = kit.Chain(kit.Logging(s.log, "search"))(s.searchEndpoint)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(shield.CORS(s.cfg.CORSOrigins))
	for _, mw := range shield.DefaultStack() {
		r.Use(mw)
	}

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("server running"))
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/load", s.handleLoad)
	r.With(s.limiter.Middleware).Post("/upload/{index}", s.handleUpload)
	r.Post("/search/{index}", s.handleSearch)

	r.Get("/files/{index}", s.handleListFiles)
	r.Delete("/files/{index}", s.handleDeleteFiles)

	r.Get("/index", s.handleListIndexes)
	r.Post("/index", s.handleCreateIndex)
	r.Delete("/index/{index}", s.handleDeleteIndex)
	return r
}

// ServeHTTP dispatches to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Sweep drops expired rate-limit buckets.
func (s *Server) Sweep() {
	s.limiter.Sweep()
}
