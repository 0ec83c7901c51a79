// Package server is the analytics ingest server: it accepts event batches
// from clients, keeps a capped merged log, and serves the aggregate as JSON
// and as an HTML dashboard.
package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/shipyardhq/shipyard/internal/analytics"
	"github.com/shipyardhq/shipyard/internal/config"
	"github.com/shipyardhq/shipyard/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server is the HTTP server for analytics ingest and the dashboard.
type Server struct {
	store  *store.Store
	policy config.AnalyticsPolicy
	pages  map[string]*template.Template
	mux    *http.ServeMux
}

// New creates a new Server.
func New(st *store.Store, policy config.AnalyticsPolicy) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page template gets its own clone of the base so its
	// {{define "content"}} and {{define "title"}} stay separate.
	pageNames := []string{"index.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{store: st, policy: policy, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Routes
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/api/analytics/sync", s.withCORS(s.handleSync))
	s.mux.HandleFunc("/api/analytics/summary", s.withCORS(s.handleSummary))
}

// withCORS answers preflight requests and marks API responses as
// cross-origin readable. Clients sync from arbitrary origins.
func (s *Server) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

func (s *Server) events() []analytics.Event {
	return store.ReadList[analytics.Event](s.store, store.KeyServerEvents)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Events []analytics.Event `json:"events"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	merged, accepted := analytics.Merge(s.events(), req.Events, s.policy.ServerEventCap)
	if err := store.WriteList(s.store, store.KeyServerEvents, merged); err != nil {
		log.Printf("Persisting merged events failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"accepted":    accepted,
		"totalStored": len(merged),
		"summary":     analytics.Summarize(merged),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, analytics.Summarize(s.events()))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	events := s.events()
	summary := analytics.Summarize(events)

	s.render(w, "index.html", map[string]any{
		"Summary": summary,
		"Digest":  digestMarkdown(summary),
	})
}

// digestMarkdown composes the dashboard headline as markdown, rendered to
// HTML by the template's markdown func.
func digestMarkdown(s analytics.Summary) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "**%d events** from **%d installs**", s.Total, s.Installs)
	if s.LatestEventAt != "" {
		fmt.Fprintf(&buf, ", latest at %s", s.LatestEventAt)
	}
	buf.WriteString(".\n\n")
	fmt.Fprintf(&buf, "- Outcome save rate: **%.0f%%**\n", s.KPIs["outcome_save_rate"]*100)
	fmt.Fprintf(&buf, "- Report feedback rate: **%.0f%%**\n", s.KPIs["report_feedback_rate"]*100)
	fmt.Fprintf(&buf, "- Focus completion rate: **%.0f%%**\n", s.KPIs["focus_completion_rate"]*100)
	return buf.String()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(st *store.Store, policy config.AnalyticsPolicy, port int) error {
	srv, err := New(st, policy)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
