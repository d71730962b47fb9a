package chi

import "net/http"

// ExternalSecretMiddleware guards a route group with the shared
// X-External-Secret header. A missing header and a wrong value produce
// distinct messages, the MoneyEZ backend relies on both.
func ExternalSecretMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			values := r.Header.Values("X-External-Secret")
			if len(values) == 0 {
				writeError(w, http.StatusForbidden, codeUnauthorized, "Missing X-External-Secret header")
				return
			}
			if values[0] != secret {
				writeError(w, http.StatusForbidden, codeUnauthorized, "Invalid X-External-Secret header")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
