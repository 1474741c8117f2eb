package middleware

import (
	"mime"
	"net/http"

	"post-reorder-backend/pkg/utils"
)

// AjaxContentType accepts the encodings admin-ajax style calls use:
// urlencoded or multipart forms, or JSON.
func AjaxContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil {
				utils.WriteBadRequestResponse(w, "Content-Type header is required")
				return
			}
			switch mediaType {
			case "application/x-www-form-urlencoded", "multipart/form-data", "application/json":
			default:
				utils.WriteBadRequestResponse(w, "Content-Type must be a form or application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// MaxBodySize 限制请求体大小
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
