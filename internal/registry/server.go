// Package registry implements a local, single-directory artifact registry
// used to smoke-test the upload stage without touching a real package
// index. It accepts multipart uploads, lists what it holds, and exposes
// Prometheus metrics.
package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relforge/relctl/pkg/logging"
)

// Server is the local registry.
type Server struct {
	dir    string
	router *mux.Router
	log    *logging.Logger

	uploadsTotal prometheus.Counter
	uploadBytes  prometheus.Counter
	registry     *prometheus.Registry
}

// NewServer creates a registry storing artifacts under dir.
func NewServer(dir string, log *logging.Logger) (*Server, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating registry dir %s: %w", dir, err)
	}

	s := &Server{
		dir:      dir,
		log:      log.WithField("component", "registry"),
		registry: prometheus.NewRegistry(),
	}

	s.uploadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relctl_registry_uploads_total",
		Help: "Artifacts accepted by the local registry.",
	})
	s.uploadBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relctl_registry_upload_bytes_total",
		Help: "Bytes accepted by the local registry.",
	})
	s.registry.MustRegister(s.uploadsTotal, s.uploadBytes)

	r := mux.NewRouter()
	r.HandleFunc("/upload", s.handleUpload).Methods("POST")
	r.HandleFunc("/artifacts", s.handleList).Methods("GET")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods("GET")
	s.router = r

	return s, nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the registry on addr until the server errors.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	s.log.Info("registry listening", map[string]interface{}{"addr": addr, "dir": s.dir})
	return srv.ListenAndServe()
}

// artifactInfo is one stored artifact in list responses.
type artifactInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(256 << 20); err != nil {
		http.Error(w, fmt.Sprintf("invalid multipart request: %v", err), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["content"]
	if len(files) == 0 {
		http.Error(w, "no content files in upload", http.StatusBadRequest)
		return
	}

	var stored []artifactInfo
	for _, header := range files {
		name := filepath.Base(header.Filename)
		if name == "." || name == "/" || name == "" {
			http.Error(w, "invalid artifact name", http.StatusBadRequest)
			return
		}

		src, err := header.Open()
		if err != nil {
			http.Error(w, fmt.Sprintf("reading upload: %v", err), http.StatusBadRequest)
			return
		}

		dst, err := os.Create(filepath.Join(s.dir, name))
		if err != nil {
			src.Close()
			http.Error(w, fmt.Sprintf("storing artifact: %v", err), http.StatusInternalServerError)
			return
		}

		n, err := io.Copy(dst, src)
		src.Close()
		if closeErr := dst.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			http.Error(w, fmt.Sprintf("storing artifact: %v", err), http.StatusInternalServerError)
			return
		}

		s.uploadsTotal.Inc()
		s.uploadBytes.Add(float64(n))
		stored = append(stored, artifactInfo{Name: name, Size: n})
		s.log.Info("artifact stored", map[string]interface{}{"name": name, "bytes": n})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"stored": stored,
		"count":  len(stored),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		http.Error(w, fmt.Sprintf("listing artifacts: %v", err), http.StatusInternalServerError)
		return
	}

	artifacts := make([]artifactInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		artifacts = append(artifacts, artifactInfo{Name: e.Name(), Size: info.Size()})
	}
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Name < artifacts[j].Name })

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"artifacts": artifacts,
		"count":     len(artifacts),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
