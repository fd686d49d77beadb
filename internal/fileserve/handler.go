// Package fileserve implements the request path of the directory server:
// URL-path resolution against the served root, content-type lookup,
// index-file fallback, directory listings, and the per-request dispatch
// state machine. The handler is safe for concurrent use; its only state is
// the immutable root configuration and the shared log sinks.
package fileserve

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"example.com/servedir/internal/logger"
)

// Handler serves one root directory over HTTP. Every request flows through
// the same sequence regardless of method: resolve, stat, then either an
// index file, a generated listing, or the file's bytes.
type Handler struct {
	root       string
	indexFiles []string
	log        *logger.Logger
}

// NewHandler creates a Handler for an absolute root directory. indexFiles
// defaults to ["index.html"] when empty.
func NewHandler(root string, indexFiles []string, lg *logger.Logger) *Handler {
	if len(indexFiles) == 0 {
		indexFiles = []string{"index.html"}
	}
	if lg == nil {
		lg = logger.NewNop()
	}
	return &Handler{
		root:       filepath.Clean(root),
		indexFiles: indexFiles,
		log:        lg,
	}
}

// ServeHTTP runs the dispatch state machine and then emits exactly one
// access-log line with the terminal status.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := &statusRecorder{ResponseWriter: w}
	h.dispatch(rec, r)
	h.log.Access(r.Method, r.URL.Path, rec.Status())
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	target := ResolveTarget(h.root, r.URL.Path)
	if !target.WithinRoot {
		h.log.Diag.Warn().
			Str("path", r.URL.Path).
			Str("resolved", target.AbsolutePath).
			Msg("rejected request resolving outside root")
		writeErrorResponse(w, http.StatusForbidden)
		return
	}

	info, err := os.Stat(target.AbsolutePath)
	if err != nil {
		status := statusForStatError(err)
		if status == http.StatusInternalServerError {
			h.log.Diag.Error().Err(err).Str("path", r.URL.Path).Msg("stat failed")
		}
		writeErrorResponse(w, status)
		return
	}

	if info.IsDir() {
		h.serveDirectory(w, r, target.AbsolutePath)
		return
	}
	h.serveFile(w, target.AbsolutePath)
}

// serveDirectory tries the configured index files first and falls back to a
// freshly generated listing. An index file that exists but is not a regular
// file is skipped; a stat failure other than absence is an unreadable
// target, not a cue to list the directory instead.
func (h *Handler) serveDirectory(w http.ResponseWriter, r *http.Request, dir string) {
	for _, name := range h.indexFiles {
		indexPath := filepath.Join(dir, name)
		fi, err := os.Stat(indexPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			h.log.Diag.Error().Err(err).Str("path", r.URL.Path).Msg("index file stat failed")
			writeErrorResponse(w, http.StatusInternalServerError)
			return
		}
		if fi.Mode().IsRegular() {
			h.serveFile(w, indexPath)
			return
		}
	}

	body, err := RenderListing(dir, r.URL.Path)
	if err != nil {
		h.log.Diag.Error().Err(err).Str("path", r.URL.Path).Msg("directory listing failed")
		writeErrorResponse(w, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.log.Diag.Error().Err(err).Str("path", r.URL.Path).Msg("writing listing response")
	}
}

func (h *Handler) serveFile(w http.ResponseWriter, path string) {
	f, err := os.Open(path)
	if err != nil {
		// Stat succeeded but open did not: either the file vanished in
		// between, or it is unreadable.
		status := statusForStatError(err)
		if status == http.StatusInternalServerError {
			h.log.Diag.Error().Err(err).Str("path", path).Msg("open failed")
		}
		writeErrorResponse(w, status)
		return
	}
	defer f.Close()

	// Size from the open handle, not the dispatcher's earlier stat, so the
	// declared length cannot disagree with the bytes copied below.
	info, err := f.Stat()
	if err != nil {
		h.log.Diag.Error().Err(err).Str("path", path).Msg("stat after open failed")
		writeErrorResponse(w, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", ResolveContentType(path))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		// Headers are already out; the connection is the only casualty.
		h.log.Diag.Error().Err(err).Str("path", path).Msg("streaming file")
	}
}

// statusRecorder captures the terminal status code for access logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
