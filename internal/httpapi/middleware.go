package httpapi

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"satquery/internal/logging"
	"satquery/internal/metrics"
)

const (
	RequestIDHeader = "X-Request-ID"

	// bodies above this are not echoed into debug logs
	maxLoggedBody = 4 << 10
)

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.written += n
	return n, err
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// requestLogger assigns a request id, attaches a request scoped logger to the
// context, logs one line per request and feeds the HTTP metrics.
func requestLogger(logger *slog.Logger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		reqLogger := logger.With("request_id", id)
		r = r.WithContext(logging.WithLogger(r.Context(), reqLogger))

		if reqLogger.Enabled(r.Context(), slog.LevelDebug) {
			logRequestDetails(reqLogger, r)
		}

		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)

		elapsed := time.Since(start)
		m.ObserveHTTP(r.Method, r.Pattern, sr.status, elapsed)
		reqLogger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", r.Pattern,
			"status", sr.status,
			"bytes", sr.written,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

// logRequestDetails logs headers and body and leaves the body readable for
// the handler.
func logRequestDetails(logger *slog.Logger, r *http.Request) {
	attrs := []any{"headers", r.Header.Clone()}
	if r.Body != nil && r.Body != http.NoBody {
		head, err := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody+1))
		if err != nil {
			logger.Debug("read request body for logging", "error", err)
		}
		r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(head), r.Body), Closer: r.Body}
		if len(head) > maxLoggedBody {
			attrs = append(attrs, "body", string(head[:maxLoggedBody]), "body_truncated", true)
		} else {
			attrs = append(attrs, "body", string(head))
		}
	}
	logger.Debug("http request details", attrs...)
}

type readCloser struct {
	io.Reader
	io.Closer
}
