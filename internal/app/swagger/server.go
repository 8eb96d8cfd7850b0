package swagger

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/R3E-Network/marina/internal/logging"
	"github.com/R3E-Network/marina/internal/middleware"
)

// SpecPath is where the document is served.
const SpecPath = "/openapi.json"

//go:embed static/index.html
var static embed.FS

var indexTemplate = template.Must(template.ParseFS(static, "static/index.html"))

// Server serves a prebuilt document and the UI page.
type Server struct {
	spec  []byte
	index []byte
	log   *logging.Logger
}

// NewServer encodes doc and renders the UI page once.
func NewServer(doc *openapi3.T, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewDefault("docs")
	}
	spec, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode openapi document: %w", err)
	}

	var index bytes.Buffer
	err = indexTemplate.Execute(&index, struct {
		Title   string
		SpecURL string
	}{
		Title:   doc.Info.Title,
		SpecURL: SpecPath,
	})
	if err != nil {
		return nil, fmt.Errorf("render docs page: %w", err)
	}
	return &Server{spec: spec, index: index.Bytes(), log: logger}, nil
}

// Router returns the docs routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.NewTracingMiddleware(s.log).Handler)

	r.Get(SpecPath, s.serveSpec)
	r.Get("/", s.serveIndex)
	return r
}

func (s *Server) serveSpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(s.spec)
}

func (s *Server) serveIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(s.index)
}
