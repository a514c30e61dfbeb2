package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 JSON response
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic while serving request",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("panic", fmt.Sprint(rec)),
					zap.ByteString("stack", debug.Stack()))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":      "Proxy error occurred",
					"message":    "internal server error",
					"code":       "internal_error",
					"request_id": GetRequestID(r.Context()),
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
