package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/josh-kwaku/custodial-ledger/internal/handler"
	"github.com/josh-kwaku/custodial-ledger/internal/logging"
)

// Recovery converts a handler panic into a 500 response instead of letting
// net/http tear down the connection. The stack goes to the log, never to the
// client.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			logging.FromContext(r.Context()).Error("panic recovered",
				"error", v,
				"stack", string(debug.Stack()),
			)
			handler.RespondAppError(w, handler.ErrInternalError, nil)
		}()
		next.ServeHTTP(w, r)
	})
}
