package fileserve

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
)

// Error bodies are deliberately generic: they name the failure class and
// never echo internal paths or wrapped error text back to the client.
var errorBodies = map[int]string{
	http.StatusForbidden:           "403 Forbidden: the requested path resolves outside the served root",
	http.StatusNotFound:            "404 Not Found: the requested path does not exist",
	http.StatusInternalServerError: "500 Internal Server Error: the requested resource could not be read",
}

// statusForStatError classifies a failed stat: absence is 404, anything else
// (permission errors included) is an unreadable-resource 500. Traversal
// rejections never reach this point; they are decided before any stat.
func statusForStatError(err error) int {
	if errors.Is(err, fs.ErrNotExist) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeErrorResponse emits the single plain-text error response for a
// terminal non-200 state.
func writeErrorResponse(w http.ResponseWriter, status int) {
	body, ok := errorBodies[status]
	if !ok {
		body = fmt.Sprintf("%d %s", status, http.StatusText(status))
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintln(w, body)
}
