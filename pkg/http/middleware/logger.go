package middleware

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/yurykabanov/aci-redeployer/pkg"
)

func WithLogger(next http.Handler, logger log.FieldLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestId, _ := ctx.Value(pkg.ContextRequestIdKey).(string)
		ctx = pkg.WithLogger(ctx, logger.WithField("request_id", requestId))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
