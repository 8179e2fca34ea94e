package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sahithikokkula/samplingapi/pkg/sampler"
)

type JSON map[string]any

// Options tunes the handlers.
type Options struct {
	// RequestTimeout bounds the work of a single request.
	RequestTimeout time.Duration
	// BatchConcurrency caps the items of a batch evaluated at once.
	BatchConcurrency int
}

func RegisterRoutes(r *mux.Router, db *sql.DB, smp *sampler.Sampler, opts Options) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = 8
	}
	h := &Handler{db: db, sampler: smp, opts: opts}

	r.Use(markRoute)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, JSON{"error": "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, JSON{"error": "method not allowed"})
	})

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Estimation endpoints
	r.HandleFunc("/api/estimator/srs", h.PostSRS).Methods(http.MethodPost)
	r.HandleFunc("/api/estimator/model", h.PostModel).Methods(http.MethodPost)
	r.HandleFunc("/api/estimator/design", h.PostDesign).Methods(http.MethodPost)
	r.HandleFunc("/api/estimator/stratified", h.PostStratified).Methods(http.MethodPost)
	r.HandleFunc("/api/estimator/cluster", h.PostCluster).Methods(http.MethodPost)
	r.HandleFunc("/api/estimator/batch", h.PostBatch).Methods(http.MethodPost)

	// Sample size endpoints
	r.HandleFunc("/api/samplesize/srs", h.PostSampleSize).Methods(http.MethodPost)
	r.HandleFunc("/api/samplesize/stratified/distribution", h.PostDistribution).Methods(http.MethodPost)

	// Sampling endpoints
	r.HandleFunc("/api/sample/srs", h.PostSampleSRS).Methods(http.MethodPost)
	r.HandleFunc("/api/sample/systematic", h.PostSampleSystematic).Methods(http.MethodPost)
	r.HandleFunc("/api/sample/stratified", h.PostSampleStratified).Methods(http.MethodPost)

	// Stored datasets
	r.HandleFunc("/api/datasets", h.ListDatasets).Methods(http.MethodGet)
	r.HandleFunc("/api/datasets/{name}/sample/srs", h.PostDatasetSRS).Methods(http.MethodPost)
	r.HandleFunc("/api/datasets/{name}/sample/systematic", h.PostDatasetSystematic).Methods(http.MethodPost)
	r.HandleFunc("/api/datasets/{name}/sample/stratified", h.PostDatasetStratified).Methods(http.MethodPost)
	r.HandleFunc("/api/datasets/{name}/profile", h.GetDatasetProfile).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", h.PostProfile).Methods(http.MethodPost)

	// Format endpoints
	r.HandleFunc("/api/format/jsonarray", h.PostFormatJSONArray).Methods(http.MethodPost)
	r.HandleFunc("/api/format/delimited", h.PostFormatDelimited).Methods(http.MethodPost)
}

// NewHandler returns the full HTTP handler: the routes behind a path
// normalizer that accepts mixed-case endpoint names such as
// /api/Estimator/srs, and the request id, access log and metrics middleware.
// The middleware wraps the router so unmatched requests pass through it too.
func NewHandler(db *sql.DB, smp *sampler.Sampler, opts Options) http.Handler {
	r := mux.NewRouter()
	RegisterRoutes(r, db, smp, opts)
	return lowerCasePaths(requestID(accessLog(instrument(r))))
}

func lowerCasePaths(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Path = lowerFixedSegments(r.URL.Path)
		r.URL.RawPath = ""
		next.ServeHTTP(w, r)
	})
}

// lowerFixedSegments lowercases every segment except a dataset name.
func lowerFixedSegments(p string) string {
	parts := strings.Split(p, "/")
	for i := range parts {
		if i == 3 && strings.EqualFold(parts[2], "datasets") {
			continue
		}
		parts[i] = strings.ToLower(parts[i])
	}
	return strings.Join(parts, "/")
}

type Handler struct {
	db      *sql.DB
	sampler *sampler.Sampler
	opts    Options
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
