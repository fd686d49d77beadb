package fileserve

import (
	"path/filepath"
	"strings"
)

// Target is the outcome of resolving a requested URL path against the served
// root. When WithinRoot is false the request must be rejected before any
// filesystem access; AbsolutePath is still populated for diagnostics.
type Target struct {
	AbsolutePath string
	WithinRoot   bool
}

// ResolveTarget joins a requested URL path onto the root directory and
// decides whether the result stays inside it.
//
// The join normalizes the whole path first (filepath.Join runs Clean over
// the combined path), so ".." segments are resolved wherever they appear,
// not just at the front. Containment is then checked on the normalized
// absolute path and respects segment boundaries: a sibling such as
// /srv/www-evil is outside a root of /srv/www even though it shares the
// string prefix. root must be an absolute, cleaned path; the filesystem
// root "/" is valid and contains everything.
func ResolveTarget(root, urlPath string) Target {
	abs := filepath.Join(root, filepath.FromSlash(urlPath))
	sep := string(filepath.Separator)
	prefix := strings.TrimSuffix(root, sep) + sep
	within := abs == root || strings.HasPrefix(abs, prefix)
	return Target{AbsolutePath: abs, WithinRoot: within}
}
