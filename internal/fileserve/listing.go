package fileserve

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const listingTimeFormat = "02-Jan-2006 15:04"

// DirectoryEntry describes one immediate child of a listed directory. Entries
// are produced fresh from a directory read on every request and discarded
// once the response is written; nothing here is cached.
type DirectoryEntry struct {
	Name         string
	Href         string
	SizeBytes    int64
	LastModified time.Time
	IsDir        bool
}

type listingRow struct {
	Name      string
	Href      string
	Size      string
	SizeTitle string
	Modified  string
}

type listingData struct {
	Path      string
	ParentURL string
	Rows      []listingRow
	DirCount  int
	FileCount int
}

var listingTemplate = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Index of {{.Path}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { text-align: left; padding: 0.2em 1.5em 0.2em 0; }
th { border-bottom: 1px solid #ccc; }
footer { margin-top: 1em; color: #666; }
</style>
</head>
<body>
<h1>Index of {{.Path}}</h1>
<table>
<tr><th>Name</th><th>Size</th><th>Modified</th></tr>
{{- if .ParentURL}}
<tr><td><a href="{{.ParentURL}}">../</a></td><td>-</td><td></td></tr>
{{- end}}
{{- range .Rows}}
<tr><td><a href="{{.Href}}">{{.Name}}</a></td><td{{with .SizeTitle}} title="{{.}}"{{end}}>{{.Size}}</td><td>{{.Modified}}</td></tr>
{{- end}}
</table>
<footer>{{.DirCount}} directories, {{.FileCount}} files</footer>
</body>
</html>
`))

// RenderListing generates the browsable HTML document for a directory that
// has no index file. dirPath is the resolved filesystem directory, urlPath
// the request path used for link generation. The directory is re-read on
// every call so the listing always reflects the current contents.
func RenderListing(dirPath, urlPath string) ([]byte, error) {
	children, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("reading directory for listing: %w", err)
	}

	base := strings.TrimSuffix(urlPath, "/")
	var dirs, files []DirectoryEntry
	for _, child := range children {
		info, err := child.Info()
		if err != nil {
			// Entry vanished between ReadDir and stat; leave it out.
			continue
		}
		entry := DirectoryEntry{
			Name:         child.Name(),
			Href:         base + "/" + url.PathEscape(child.Name()),
			SizeBytes:    info.Size(),
			LastModified: info.ModTime(),
			IsDir:        info.IsDir(),
		}
		if entry.IsDir {
			entry.Href += "/"
			dirs = append(dirs, entry)
		} else {
			files = append(files, entry)
		}
	}

	// The collator keeps internal iteration state, so each render builds its
	// own rather than sharing one across concurrent requests.
	coll := collate.New(language.Und, collate.IgnoreCase)
	byName := func(entries []DirectoryEntry) func(i, j int) bool {
		return func(i, j int) bool {
			return coll.CompareString(entries[i].Name, entries[j].Name) < 0
		}
	}
	sort.Slice(dirs, byName(dirs))
	sort.Slice(files, byName(files))

	data := listingData{
		Path:      urlPath,
		ParentURL: parentListingURL(urlPath),
		DirCount:  len(dirs),
		FileCount: len(files),
	}
	for _, d := range dirs {
		data.Rows = append(data.Rows, listingRow{
			Name:     d.Name + "/",
			Href:     d.Href,
			Size:     "-",
			Modified: d.LastModified.Format(listingTimeFormat),
		})
	}
	for _, f := range files {
		data.Rows = append(data.Rows, listingRow{
			Name:      f.Name,
			Href:      f.Href,
			Size:      FormatSize(f.SizeBytes),
			SizeTitle: humanize.Comma(f.SizeBytes) + " bytes",
			Modified:  f.LastModified.Format(listingTimeFormat),
		})
	}

	var buf bytes.Buffer
	if err := listingTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering listing: %w", err)
	}
	return buf.Bytes(), nil
}

// parentListingURL returns the link target for the "../" row, or "" when
// urlPath is already the served root.
func parentListingURL(urlPath string) string {
	if urlPath == "/" || urlPath == "" {
		return ""
	}
	parent := path.Dir(strings.TrimSuffix(urlPath, "/"))
	if parent != "/" {
		parent += "/"
	}
	return parent
}
