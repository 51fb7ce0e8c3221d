package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/api/handlers"
)

// ErrPanic wraps a value recovered from a panicking handler.
var ErrPanic = errors.New("internal error")

// Recover turns a handler panic into a JSON 500 response.
func Recover(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}

				if recovered == http.ErrAbortHandler { //nolint:errorlint,err113 // sentinel compared by identity
					panic(recovered)
				}

				err := fmt.Errorf("%w: %v", ErrPanic, recovered)
				log.Error("Recovered from panic in %s %s: %v", r.Method, r.URL.Path, recovered)
				handlers.WriteError(w, err)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
