package server

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/metricsd/metricsd/pkg/metrics"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// WriteHeader captures the status code and writes it to the underlying ResponseWriter.
func (w *statusRecorder) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

// Flush implements http.Flusher if the underlying ResponseWriter supports it.
func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// scrapeMetrics is the server's own instrumentation.
type scrapeMetrics struct {
	requests *metrics.Handle
	duration *metrics.Handle
}

func newScrapeMetrics(reg *metrics.Registry) (*scrapeMetrics, error) {
	requests, err := reg.CreateCounter(metrics.Opts{
		Name:       "scrape_requests_total",
		Help:       "Total HTTP requests served by the exporter",
		LabelNames: []string{"path", "status"},
	})
	if err != nil {
		return nil, err
	}
	duration, err := reg.CreateHistogram(metrics.HistogramOpts{
		Opts: metrics.Opts{
			Name:       "scrape_duration_seconds",
			Help:       "HTTP request duration in seconds",
			LabelNames: []string{"path"},
		},
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
	if err != nil {
		return nil, err
	}
	return &scrapeMetrics{requests: requests, duration: duration}, nil
}

// middleware records request counts and durations. Unknown paths share a
// single label value to keep cardinality bounded.
func (m *scrapeMetrics) middleware(next http.Handler, known func(string) bool, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if !known(path) {
			path = "other"
		}

		var stop metrics.StopFunc
		series, err := m.duration.With(metrics.Labels{"path": path})
		if err == nil {
			stop, err = series.StartTimer()
		}
		if err != nil {
			logger.Debug("scrape timer not started", "path", path, "error", err)
		}

		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		if stop != nil {
			stop()
		}
		logger.Debug("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.statusCode,
			"request_id", r.Header.Get(RequestIDHeader),
		)

		status := strconv.Itoa(rec.statusCode)
		series, err = m.requests.With(metrics.Labels{"path": path, "status": status})
		if err == nil {
			err = series.Inc()
		}
		if err != nil {
			logger.Debug("scrape instrumentation failed", "path", path, "error", err)
		}
	})
}

// requestID propagates X-Request-ID, generating one when the client sent none.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}
