package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"
)

var (
	version     string
	versionOnce sync.Once
)

type VersionHandler struct{}

type VersionResponse struct {
	Version string `json:"version"`
}

func NewVersionHandler() *VersionHandler {
	return &VersionHandler{}
}

// ServerVersion reads the version from version.txt, cached after the
// first read.
func ServerVersion() string {
	versionOnce.Do(func() {
		paths := []string{
			"version.txt",
			"/app/version.txt",
		}

		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err == nil {
				version = strings.TrimSpace(string(data))
				return
			}
		}

		version = "unknown"
	})
	return version
}

func (h *VersionHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(VersionResponse{Version: ServerVersion()})
}
