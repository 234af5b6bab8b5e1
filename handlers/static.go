package handlers

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed static/*
var staticAssets embed.FS

// StaticHandler serves the embedded web shell and preset artwork.
type StaticHandler struct {
	fileServer http.Handler
}

func NewStaticHandler() *StaticHandler {
	staticFS, err := fs.Sub(staticAssets, "static")
	if err != nil {
		panic("failed to get static subdirectory: " + err.Error())
	}

	return &StaticHandler{
		fileServer: http.FileServer(http.FS(staticFS)),
	}
}

func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=31536000")

	path := r.URL.Path
	if strings.HasSuffix(path, ".png") {
		w.Header().Set("Content-Type", "image/png")
	} else if strings.HasSuffix(path, ".svg") {
		w.Header().Set("Content-Type", "image/svg+xml")
	} else if strings.HasSuffix(path, ".jpg") || strings.HasSuffix(path, ".jpeg") {
		w.Header().Set("Content-Type", "image/jpeg")
	}

	h.fileServer.ServeHTTP(w, r)
}

// ServeShell returns a handler that answers every page route with the
// embedded application shell. Pages re-check the session on the client,
// so the guard middleware in front of this handler is the enforcement
// point and the shell is the fallback.
func ServeShell() http.HandlerFunc {
	shell, err := staticAssets.ReadFile("static/index.html")
	if err != nil {
		panic("failed to read embedded shell: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		w.Write(shell)
	}
}
