package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/mentor-match/internal/apperror"
)

const RequestIDHeader = "X-Request-Id"

// CORS allows the configured origins to call the API with bearer tokens.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// RequestID assigns a request id and echoes it in the response headers.
func RequestID(next http.Handler) http.Handler {
	return chimw.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(RequestIDHeader, chimw.GetReqID(r.Context()))
		next.ServeHTTP(w, r)
	}))
}

// RealIP rewrites RemoteAddr from X-Forwarded-For / X-Real-IP.
func RealIP(next http.Handler) http.Handler {
	return chimw.RealIP(next)
}

// Logger writes one line per request.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			path := r.URL.Path
			if raw := r.URL.RawQuery; raw != "" {
				path = path + "?" + raw
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			event := log.Info()
			switch {
			case status >= 500:
				event = log.Error()
			case status >= 400:
				event = log.Warn()
			}
			event.
				Str("method", r.Method).
				Str("path", path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("request_id", chimw.GetReqID(r.Context())).
				Str("client_ip", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Int("body_size", ww.BytesWritten()).
				Msg("Request processed")
		})
	}
}

// Recover turns a panic into a 500 response and logs the stack.
func Recover(log zerolog.Logger, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error().
						Interface("panic", rec).
						Bytes("stack", debug.Stack()).
						Str("request_id", chimw.GetReqID(r.Context())).
						Msg("panic recovered")
					writeErr(w, r, fmt.Errorf("panic: %v", rec))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

var ErrTooManyRequests = apperror.New(apperror.KindRateLimited, "TOO_MANY_REQUESTS", "server is busy, retry later")

// Throttle bounds concurrent requests; extra requests wait in a short backlog.
// Rejections are rendered by writeErr.
func Throttle(limit int, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return jsonRejections(chimw.ThrottleWithOpts(chimw.ThrottleOpts{
		Limit:          limit,
		BacklogLimit:   limit * 4,
		BacklogTimeout: 10 * time.Second,
	}), writeErr)
}

// jsonRejections replaces any error response limiter writes before next runs.
func jsonRejections(limiter func(http.Handler) http.Handler, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &rejectionWriter{ResponseWriter: w, r: r, writeErr: writeErr}
			limiter(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				rw.passed = true
				next.ServeHTTP(w, r)
			})).ServeHTTP(rw, r)
		})
	}
}

type rejectionWriter struct {
	http.ResponseWriter
	r        *http.Request
	writeErr ErrorWriter
	passed   bool
	rejected bool
}

func (w *rejectionWriter) WriteHeader(status int) {
	if w.passed || status < http.StatusBadRequest {
		w.ResponseWriter.WriteHeader(status)
		return
	}
	w.rejected = true
	w.writeErr(w.ResponseWriter, w.r, ErrTooManyRequests)
}

func (w *rejectionWriter) Write(b []byte) (int, error) {
	if w.rejected {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

// Chain applies middlewares so that the first one is outermost.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
