package server

import (
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"go.uber.org/zap"
)

const indexFile = "index.html"

// Assets serves static UI files from an afs location.
type Assets struct {
	baseURL string
	fs      afs.Service
	options []storage.Option
	logger  *zap.Logger
}

// NewAssets creates an assets handler rooted at baseURL.
func NewAssets(baseURL string, logger *zap.Logger, options ...storage.Option) *Assets {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assets{baseURL: baseURL, fs: afs.New(), options: options, logger: logger}
}

func (a *Assets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := path.Clean("/" + r.URL.Path)
	if strings.HasSuffix(r.URL.Path, "/") || name == "/" {
		name = path.Join(name, indexFile)
	}
	URL := url.Join(a.baseURL, strings.TrimPrefix(name, "/"))
	ctx := r.Context()
	object, err := a.fs.Object(ctx, URL, a.options...)
	if err != nil || object.IsDir() {
		http.NotFound(w, r)
		return
	}
	data, err := a.fs.DownloadWithURL(ctx, URL, a.options...)
	if err != nil {
		a.logger.Warn("asset read failed", zap.String("url", URL), zap.Error(err))
		http.Error(w, "asset unavailable", http.StatusInternalServerError)
		return
	}
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(data)
}
