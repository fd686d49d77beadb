package fileserve

import (
	"mime"
	"path/filepath"
	"strings"
)

const octetStreamContentType = "application/octet-stream"

// contentTypes is the built-in extension table covering the common web,
// image, audio/video, font and WASM types. Extensions missing here fall
// through to mime.TypeByExtension before the octet-stream default.
var contentTypes = map[string]string{
	".css":   "text/css; charset=utf-8",
	".csv":   "text/csv; charset=utf-8",
	".gif":   "image/gif",
	".gz":    "application/gzip",
	".htm":   "text/html; charset=utf-8",
	".html":  "text/html; charset=utf-8",
	".ico":   "image/vnd.microsoft.icon",
	".jpeg":  "image/jpeg",
	".jpg":   "image/jpeg",
	".js":    "text/javascript; charset=utf-8",
	".json":  "application/json; charset=utf-8",
	".mjs":   "text/javascript; charset=utf-8",
	".mp3":   "audio/mpeg",
	".mp4":   "video/mp4",
	".mpeg":  "video/mpeg",
	".oga":   "audio/ogg",
	".ogv":   "video/ogg",
	".opus":  "audio/opus",
	".otf":   "font/otf",
	".pdf":   "application/pdf",
	".png":   "image/png",
	".svg":   "image/svg+xml",
	".tar":   "application/x-tar",
	".tif":   "image/tiff",
	".tiff":  "image/tiff",
	".ttf":   "font/ttf",
	".txt":   "text/plain; charset=utf-8",
	".wasm":  "application/wasm",
	".wav":   "audio/wav",
	".weba":  "audio/webm",
	".webm":  "video/webm",
	".webp":  "image/webp",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".xhtml": "application/xhtml+xml; charset=utf-8",
	".xml":   "application/xml; charset=utf-8",
	".zip":   "application/zip",
}

// ResolveContentType maps a file path to the Content-Type it should be
// served with. The extension lookup is case-insensitive. Unknown or absent
// extensions resolve to application/octet-stream; there is no error path.
func ResolveContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return octetStreamContentType
	}
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return octetStreamContentType
}
