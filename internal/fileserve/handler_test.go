package fileserve

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/servedir/internal/config"
	"example.com/servedir/internal/logger"
)

// newTestRoot builds a small served tree:
//
//	root/
//	  hello.txt          "hello, world\n"
//	  img/pixel.png      four bytes
//	  site/index.html    "<h1>site</h1>"
//	  plain/a/           empty subdirectory
//	  plain/b.txt        ten bytes
func newTestRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hello, world\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "img"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "img", "pixel.png"), []byte{1, 2, 3, 4}, 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "site"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "site", "index.html"), []byte("<h1>site</h1>"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "plain", "a"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "plain", "b.txt"), []byte("0123456789"), 0644))
	return root
}

func doRequest(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func TestHandlerServesFileVerbatim(t *testing.T) {
	h := NewHandler(newTestRoot(t), nil, logger.NewNop())

	rr := doRequest(h, http.MethodGet, "/hello.txt")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "13", rr.Header().Get("Content-Length"))
	assert.Equal(t, "hello, world\n", rr.Body.String())

	rr = doRequest(h, http.MethodGet, "/img/pixel.png")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, []byte{1, 2, 3, 4}, rr.Body.Bytes())
}

func TestHandlerDirectoryWithIndexFile(t *testing.T) {
	h := NewHandler(newTestRoot(t), nil, logger.NewNop())

	rr := doRequest(h, http.MethodGet, "/site/")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "<h1>site</h1>", rr.Body.String())
}

func TestHandlerDirectoryListingFallback(t *testing.T) {
	h := NewHandler(newTestRoot(t), nil, logger.NewNop())

	rr := doRequest(h, http.MethodGet, "/plain/")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))

	html := rr.Body.String()
	dirPos := strings.Index(html, ">a/<")
	filePos := strings.Index(html, ">b.txt<")
	require.NotEqual(t, -1, dirPos)
	require.NotEqual(t, -1, filePos)
	assert.Less(t, dirPos, filePos)
	assert.Contains(t, html, "10.0 B")
	assert.Contains(t, html, `<a href="/">../</a>`)
}

func TestHandlerCustomIndexFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "default.htm"), []byte("custom index"), 0644))
	h := NewHandler(root, []string{"index.html", "default.htm"}, logger.NewNop())

	rr := doRequest(h, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "custom index", rr.Body.String())
}

func TestHandlerNotFound(t *testing.T) {
	h := NewHandler(newTestRoot(t), nil, logger.NewNop())

	rr := doRequest(h, http.MethodGet, "/no/such/file.txt")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "404 Not Found")
}

func TestHandlerRejectsTraversal(t *testing.T) {
	root := newTestRoot(t)
	// A sibling of the root that shares its name as a string prefix.
	sibling := root + "-evil"
	require.NoError(t, os.Mkdir(sibling, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sibling, "secret.txt"), []byte("secret"), 0644))
	h := NewHandler(root, nil, logger.NewNop())

	for _, target := range []string{
		"/../secret.txt",
		"/../../../../etc/passwd",
		"/plain/../../outside",
		"/../" + filepath.Base(sibling) + "/secret.txt",
	} {
		rr := doRequest(h, http.MethodGet, target)
		assert.Equal(t, http.StatusForbidden, rr.Code, "target %q", target)
		assert.Contains(t, rr.Body.String(), "403 Forbidden", "target %q", target)
		assert.NotContains(t, rr.Body.String(), "secret", "target %q", target)
	}
}

// Embedded dot segments that stay inside the root are resolved, not
// rejected.
func TestHandlerNormalizesInsideRoot(t *testing.T) {
	h := NewHandler(newTestRoot(t), nil, logger.NewNop())

	rr := doRequest(h, http.MethodGet, "/plain/../hello.txt")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "hello, world\n", rr.Body.String())
}

// Response semantics do not vary by method; the same flow runs for all of
// them.
func TestHandlerMethodIndifferent(t *testing.T) {
	h := NewHandler(newTestRoot(t), nil, logger.NewNop())

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		rr := doRequest(h, method, "/hello.txt")
		assert.Equal(t, http.StatusOK, rr.Code, "method %s", method)
		assert.Equal(t, "hello, world\n", rr.Body.String(), "method %s", method)
	}
}

// A handler rooted at the filesystem root serves every existing path
// instead of rejecting the whole tree.
func TestHandlerServesWhenRootIsFilesystemRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hi"), 0644))
	h := NewHandler("/", nil, logger.NewNop())

	// The absolute fixture path doubles as the request path under a "/" root.
	rr := doRequest(h, http.MethodGet, filepath.Join(dir, "hello.txt"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "hi", rr.Body.String())
}

// Content-Length is derived from the handle the body is copied from, so it
// always matches the file as served.
func TestHandlerContentLengthMatchesServedBody(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("12345"), 0644))
	h := NewHandler(root, nil, logger.NewNop())

	rr := doRequest(h, http.MethodGet, "/data.txt")
	assert.Equal(t, "5", rr.Header().Get("Content-Length"))
	assert.Equal(t, 5, rr.Body.Len())

	require.NoError(t, os.WriteFile(path, []byte("123456789"), 0644))
	rr = doRequest(h, http.MethodGet, "/data.txt")
	assert.Equal(t, "9", rr.Header().Get("Content-Length"))
	assert.Equal(t, "123456789", rr.Body.String())
}

// An index-file stat failure other than absence is an unreadable target,
// not a reason to fall back to a listing.
func TestHandlerIndexStatFailureIsServerError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	root := t.TempDir()
	sub := filepath.Join(root, "docs")
	require.NoError(t, os.Mkdir(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "index.html"), []byte("x"), 0644))
	// Readable but not traversable: ReadDir would succeed, stat on children
	// fails with a permission error.
	require.NoError(t, os.Chmod(sub, 0444))
	t.Cleanup(func() { os.Chmod(sub, 0755) })

	h := NewHandler(root, nil, logger.NewNop())
	rr := doRequest(h, http.MethodGet, "/docs/")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "500 Internal Server Error")
}

func TestHandlerIdempotentReads(t *testing.T) {
	h := NewHandler(newTestRoot(t), nil, logger.NewNop())

	first := doRequest(h, http.MethodGet, "/plain/")
	second := doRequest(h, http.MethodGet, "/plain/")
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestHandlerWritesAccessLog(t *testing.T) {
	root := newTestRoot(t)
	accessPath := filepath.Join(t.TempDir(), "access.log")
	lg, err := logger.New(config.Logging{
		Level:     "info",
		AccessLog: accessPath,
		ErrorLog:  "stderr",
	})
	require.NoError(t, err)
	defer lg.Close()

	h := NewHandler(root, nil, lg)
	doRequest(h, http.MethodGet, "/hello.txt")
	doRequest(h, http.MethodGet, "/missing")

	data, err := os.ReadFile(accessPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry struct {
		Method string `json:"method"`
		Path   string `json:"path"`
		Status int    `json:"status"`
		Time   string `json:"time"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "GET", entry.Method)
	assert.Equal(t, "/hello.txt", entry.Path)
	assert.Equal(t, http.StatusOK, entry.Status)
	assert.NotEmpty(t, entry.Time)

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "/missing", entry.Path)
	assert.Equal(t, http.StatusNotFound, entry.Status)
}

func TestHandlerConcurrentRequests(t *testing.T) {
	root := t.TempDir()
	const n = 16
	for i := 0; i < n; i++ {
		content := strings.Repeat(fmt.Sprintf("%d", i), 1024)
		require.NoError(t, os.WriteFile(filepath.Join(root, fmt.Sprintf("f%d.txt", i)), []byte(content), 0644))
	}
	h := NewHandler(root, nil, logger.NewNop())

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rr := doRequest(h, http.MethodGet, fmt.Sprintf("/f%d.txt", i))
			if rr.Code != http.StatusOK {
				errs <- fmt.Errorf("f%d.txt: status %d", i, rr.Code)
				return
			}
			want := strings.Repeat(fmt.Sprintf("%d", i), 1024)
			if rr.Body.String() != want {
				errs <- fmt.Errorf("f%d.txt: wrong body", i)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
