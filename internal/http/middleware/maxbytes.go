package middleware

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// MaxRequestSize rejects write requests whose declared Content-Length exceeds
// the cap and wraps the body with http.MaxBytesReader as the hard stop for
// requests that lie about or omit their length. An unparsable Content-Length
// is logged and the request proceeds.
func MaxRequestSize(maxBytes int64, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
			default:
				next.ServeHTTP(w, r)
				return
			}

			if cl := r.Header.Get("Content-Length"); cl != "" {
				declared, err := strconv.ParseInt(cl, 10, 64)
				if err != nil {
					logger.Warn("invalid content-length header", zap.String("content_length", cl))
				} else if declared > maxBytes {
					writeDetail(w, http.StatusRequestEntityTooLarge, "Request body too large")
					return
				}
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
