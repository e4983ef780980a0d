package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
)

// recoverer turns a panicking handler into a JSON 500 response and records the
// panic value and stack on the request log entry.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}

			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{
				"panic": fmt.Sprint(rvr),
				"stack": string(debug.Stack()),
			})
			httplog.LogEntry(r.Context()).Error("panic recovered", slog.Any("err", rvr))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, serverErrorResponse)
		}()

		next.ServeHTTP(w, r)
	})
}
