package v1

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/KirkDiggler/tabletop-api/internal/auth"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
)

var tracer = otel.Tracer("github.com/KirkDiggler/tabletop-api/internal/handlers/http/v1")

type middleware func(http.Handler) http.Handler

// chain wraps h so the first middleware is outermost
func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// requestInfo is filled in by inner handlers and read back by the logging
// and tracing middleware once the request is served
type requestInfo struct {
	pattern string
	userID  string
}

type requestInfoKey struct{}

func infoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(*requestInfo)
	return info
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.ErrorContext(r.Context(), "Recovered from panic",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()))
				writeError(w, r, errors.Internal("internal error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		info := &requestInfo{}
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)))

		status := rec.code()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		case r.Method == http.MethodGet:
			level = slog.LevelDebug
		}

		slog.Log(r.Context(), level, "HTTP request",
			"method", r.Method,
			"pattern", info.pattern,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"user_id", info.userID)
	})
}

func traceRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			))
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w}
		r = r.WithContext(ctx)
		next.ServeHTTP(rec, r)
		if r.Pattern != "" {
			recordPattern(ctx, r.Pattern)
		}

		if info := infoFrom(ctx); info != nil && info.pattern != "" {
			span.SetName(info.pattern)
			span.SetAttributes(attribute.String("http.route", info.pattern))
		}
		status := rec.code()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	})
}

// recordPattern keeps the most specific pattern; the api mux records before
// the root mux does
func recordPattern(ctx context.Context, pattern string) {
	if info := infoFrom(ctx); info != nil && info.pattern == "" {
		info.pattern = pattern
	}
}

// authenticate verifies the bearer token and puts the identity on the context
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeError(w, r, errors.Unauthenticated("bearer token is required"))
			return
		}

		id, err := h.verifier.Verify(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if info := infoFrom(r.Context()); info != nil {
			info.userID = id.UserID
		}

		r = r.WithContext(auth.WithIdentity(r.Context(), id))
		next.ServeHTTP(w, r)
		recordPattern(r.Context(), r.Pattern)
	})
}
