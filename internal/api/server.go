// Package api exposes the detector state over HTTP: the latest result
// snapshot, the persisted detection history, and the live-updatable
// processing configuration.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/level.report/internal/db"
	"github.com/banshee-data/level.report/internal/httputil"
	"github.com/banshee-data/level.report/internal/level"
	"github.com/banshee-data/level.report/internal/units"
	"github.com/banshee-data/level.report/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"
const colorYellow = "\033[33m"

// Detector is the subset of the processor the API needs: reading and
// updating the live processing configuration.
type Detector interface {
	Config() level.ProcessingConfig
	UpdateConfig(level.ProcessingConfig) error
}

// SnapshotSource provides the most recent per-sweep result. The second
// return is false until the first sweep has been processed.
type SnapshotSource interface {
	Latest() (*level.Result, bool)
}

type Server struct {
	detector Detector
	latest   SnapshotSource
	db       *db.DB
	units    string
}

func NewServer(detector Detector, latest SnapshotSource, database *db.DB, units string) *Server {
	return &Server{
		detector: detector,
		latest:   latest,
		db:       database,
		units:    units,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LogRequests wraps a handler with an access log line per request.
func LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf("%s %s %s%s%s %.2fms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/latest", s.showLatest)
	mux.HandleFunc("/detections", s.listDetections)
	mux.HandleFunc("/config", s.handleConfig)
	mux.HandleFunc("/healthz", s.healthz)
	return mux
}

// latestResponse mirrors level.Result with JSON-safe series: JSON has no
// NaN, so masked bins and the pre-first-emission mean sweep are nulls.
type latestResponse struct {
	SweepIndex int `json:"sweep_index"`

	Sweep         []*float64 `json:"sweep"`
	LastMeanSweep []*float64 `json:"last_mean_sweep"`
	Threshold     []*float64 `json:"threshold"`

	Emitted       bool      `json:"emitted"`
	Peaks         []int     `json:"peaks,omitempty"`
	PeakDistances []float64 `json:"peak_distances,omitempty"`

	MainPeakHistory   []historyPoint `json:"main_peak_history"`
	MinorPeakHistory  []historyPoint `json:"minor_peak_history"`
	FirstAboveHistory []historyPoint `json:"first_above_history"`

	Units string `json:"units"`
}

type historyPoint struct {
	TimeOffsetS float64 `json:"time_offset_s"`
	Distance    float64 `json:"distance"`
}

// sanitizeSeries replaces NaN samples with nulls for JSON encoding.
func sanitizeSeries(series []float64) []*float64 {
	out := make([]*float64, len(series))
	for i, v := range series {
		if math.IsNaN(v) {
			continue
		}
		v := v
		out[i] = &v
	}
	return out
}

func (s *Server) convertHistory(points []level.HistoryPoint) []historyPoint {
	out := make([]historyPoint, len(points))
	for i, p := range points {
		out[i] = historyPoint{
			TimeOffsetS: p.TimeOffsetS,
			Distance:    units.ConvertDistance(p.DistanceM, s.units),
		}
	}
	return out
}

func (s *Server) showLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	result, ok := s.latest.Latest()
	if !ok {
		httputil.NotFound(w, "no sweep processed yet")
		return
	}

	resp := latestResponse{
		SweepIndex:        result.SweepIndex,
		Sweep:             sanitizeSeries(result.Sweep),
		LastMeanSweep:     sanitizeSeries(result.LastMeanSweep),
		Threshold:         sanitizeSeries(result.Threshold),
		Emitted:           result.Emitted,
		Peaks:             result.Peaks,
		MainPeakHistory:   s.convertHistory(result.MainPeakHistory),
		MinorPeakHistory:  s.convertHistory(result.MinorPeakHistory),
		FirstAboveHistory: s.convertHistory(result.FirstAboveHistory),
		Units:             s.units,
	}
	for _, d := range result.PeakDistancesM {
		resp.PeakDistances = append(resp.PeakDistances, units.ConvertDistance(d, s.units))
	}

	httputil.WriteJSONOK(w, resp)
}

func (s *Server) listDetections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit := 100 // default value
	if l := r.URL.Query().Get("limit"); l != "" {
		parsedLimit, err := strconv.Atoi(l)
		if err != nil || parsedLimit < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsedLimit
	}

	detections, err := s.db.RecentDetections(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve detections: %v", err))
		return
	}

	// apply unit conversion to all distance values
	for i := range detections {
		detections[i].DistanceM = units.ConvertDistance(detections[i].DistanceM, s.units)
	}

	httputil.WriteJSONOK(w, detections)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, s.detector.Config())

	case http.MethodPost:
		// start from the active config so partial updates are safe
		cfg := s.detector.Config()
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid config JSON: %v", err))
			return
		}
		if err := s.detector.UpdateConfig(cfg); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid config: %v", err))
			return
		}
		httputil.WriteJSONOK(w, cfg)

	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}
