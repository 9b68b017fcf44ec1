package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/yurykabanov/aci-redeployer/pkg"
)

const (
	AccessKeyQueryParam = "code"
	AccessKeyHeader     = "X-Functions-Key"
)

// WithAccessKey rejects requests that do not carry key in the "code" query parameter or
// the x-functions-key header. An empty key disables the check.
func WithAccessKey(next http.Handler, key string) http.Handler {
	if key == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided := r.Header.Get(AccessKeyHeader)
		if provided == "" {
			provided = r.URL.Query().Get(AccessKeyQueryParam)
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			pkg.LoggerFromContext(r.Context()).Warn("Rejected request with missing or invalid access key")

			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
