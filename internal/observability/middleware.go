package observability

import (
	"net/http"
	"time"

	"github.com/danmuck/vicictl/internal/auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// RequestLogger logs one line per HTTP request, escalating on error statuses.
func RequestLogger(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		status := sw.status
		if status == 0 {
			status = http.StatusOK
		}
		event := logger.Debug()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Int("bytes", sw.bytes).
			Msg("http_request")
	})
}

// MetricsHandler serves gatherer in the prometheus text format with request logging.
// A non-nil guard requires a bearer token on /metrics.
func MetricsHandler(logger zerolog.Logger, gatherer prometheus.Gatherer, guard auth.Validator) http.Handler {
	var metrics http.Handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	if guard != nil {
		metrics = auth.RequireBearer(guard, metrics)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics)
	return RequestLogger(logger, mux)
}
