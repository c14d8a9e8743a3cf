// Package httpapi exposes recognition and the scan history over HTTP.
package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/plateflow/dtklpr"
	"github.com/plateflow/dtklpr/internal/imaging"
	"github.com/plateflow/dtklpr/internal/logging"
	"github.com/plateflow/dtklpr/internal/store"
)

// Recognizer is the recognition backend the API drives.
type Recognizer interface {
	Recognize(ctx context.Context, img []byte) (*dtklpr.Recognition, error)
	LicenseOK() bool
}

// ScanStore is the persistence the API reads and writes.
type ScanStore interface {
	SaveScan(scan *store.Scan) error
	GetScan(id string) (*store.Scan, error)
	RecentScans(limit int) ([]store.Scan, error)
	SearchPlates(query string, limit int) ([]store.Scan, error)
}

// Server routes the JSON API.
type Server struct {
	router     *mux.Router
	recognizer Recognizer
	scans      ScanStore

	corsOrigins []string
	thumbMaxPx  int
}

// Option configures the Server instance.
type Option func(*Server)

// WithCORSOrigins overrides the allowed CORS origins. The default allows any
// origin.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// WithThumbnailMaxPx overrides the bounding box for scan thumbnails.
func WithThumbnailMaxPx(px int) Option {
	return func(s *Server) {
		if px > 0 {
			s.thumbMaxPx = px
		}
	}
}

// New creates the API server around a recognition backend and a scan store.
func New(recognizer Recognizer, scans ScanStore, opts ...Option) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		recognizer:  recognizer,
		scans:       scans,
		corsOrigins: []string{"*"},
		thumbMaxPx:  320,
	}

	for _, opt := range opts {
		opt(s)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Length", "Content-Type"},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()

	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	s.router.HandleFunc("/api/v1/recognize", s.handleRecognize).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/scans", s.handleListScans).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/scans/{id}", s.handleGetScan).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/scans/{id}/thumbnail", s.handleThumbnail).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/plates/search", s.handleSearchPlates).Methods(http.MethodGet)

	s.router.HandleFunc("/api/v1/recognize", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodOptions)
}

type healthResponse struct {
	Status   string `json:"status"`
	Licensed bool   `json:"licensed"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, healthResponse{Status: "ok", Licensed: s.recognizer.LicenseOK()})
}

type recognizeRequest struct {
	ImageBase64 string `json:"image_base64"`
}

func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	logging.Infof("handleRecognize called: path=%s", r.URL.Path)

	var req recognizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.ImageBase64 == "" {
		http.Error(w, "image_base64 is required", http.StatusBadRequest)
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		http.Error(w, "image_base64 is not valid base64", http.StatusBadRequest)
		return
	}

	rec, err := s.recognizer.Recognize(r.Context(), data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	scan := &store.Scan{
		Source: "http",
		Found:  rec.Found,
		Plates: rec.Plates,
	}
	// Color metadata is best effort: the engine may accept formats this
	// process cannot decode.
	if img, decErr := imaging.Decode(data); decErr == nil {
		if c := imaging.DominantColor(img); c != nil {
			scan.ColorHex = c.Hex
			scan.ColorName = c.Name
		}
	}

	if err := s.scans.SaveScan(scan); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, scan)
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	scans, err := s.scans.RecentScans(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if scans == nil {
		scans = []store.Scan{}
	}
	s.writeJSON(w, scans)
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	scan, err := s.scans.GetScan(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if scan == nil {
		http.Error(w, "scan not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, scan)
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	scan, err := s.scans.GetScan(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if scan == nil {
		http.Error(w, "scan not found", http.StatusNotFound)
		return
	}
	if scan.ImagePath == "" {
		http.Error(w, "no source image stored for this scan", http.StatusNotFound)
		return
	}

	data, err := os.ReadFile(scan.ImagePath)
	if err != nil {
		http.Error(w, "source image no longer available", http.StatusNotFound)
		return
	}
	img, err := imaging.Decode(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	thumb, err := imaging.Thumbnail(img, s.thumbMaxPx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(thumb)
}

func (s *Server) handleSearchPlates(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "query parameter q is required", http.StatusBadRequest)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	scans, err := s.scans.SearchPlates(query, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if scans == nil {
		scans = []store.Scan{}
	}
	s.writeJSON(w, scans)
}

// parseLimit reads the optional limit query parameter. Zero means the store
// default.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return limit, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Errorf("write response: %v", err)
	}
}
