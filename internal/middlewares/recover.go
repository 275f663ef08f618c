package middlewares

import (
	"net/http"
	"runtime/debug"

	"github.com/mariakisialiova/itechart-quiz/internal/config"
)

// Recoverer turns a panic into a logged error and the given error page.
func Recoverer(onPanic http.HandlerFunc) func(http.Handler) http.Handler {
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
				config.WithContext(r.Context()).
					WithField("panic", rec).
					WithField("stack", string(debug.Stack())).
					Error("Recovered from panic")
				onPanic(w, r)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
