package server

import (
	"io/fs"
	"net/http"
	"strings"
)

// assetServer serves the embed bundle. Unlike an app shell there is no
// index fallback: unknown paths are 404 so broken embed snippets show up.
type assetServer struct {
	fileServer http.Handler
	fileSystem fs.FS
}

func newAssetServer(fsys fs.FS) *assetServer {
	return &assetServer{
		fileServer: http.FileServer(http.FS(fsys)),
		fileSystem: fsys,
	}
}

func (s *assetServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	info, err := fs.Stat(s.fileSystem, path)
	if path == "" || err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=300")
	s.fileServer.ServeHTTP(w, r)
}
