// Package middlewares contiene los middlewares HTTP compartidos.
package middlewares

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	httperrors "github.com/dropDatabas3/aliceid/internal/http/errors"
	"github.com/dropDatabas3/aliceid/internal/observability/logger"
)

// Middleware es la firma estándar de un middleware HTTP.
type Middleware func(http.Handler) http.Handler

// WithRequestContext genera un request id, lo propaga en el header de la
// respuesta e inyecta un logger scoped en el contexto.
func WithRequestContext() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get("X-Request-Id")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", reqID)

			log := logger.L().With(
				logger.RequestID(reqID),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
			)
			ctx := logger.ToContext(r.Context(), log)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithAccessLog loguea cada request al terminar.
func WithAccessLog() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.From(r.Context()).Info("request",
				logger.Status(status),
				logger.Duration(time.Since(start)),
			)
		})
	}
}

// WithRecover captura panics y devuelve un error 500 en lugar de crashear.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log := logger.From(r.Context())
					log.Error("panic recovered",
						logger.Op("recover"),
						logger.Any("panic", rec),
					)
					httperrors.WriteError(w, httperrors.ErrInternalServerError.WithDetail("panic recovered"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
