// Package web holds the dashboard page served by the netsync monitor. The
// page polls the monitor's JSON routes for peer, network and progress data.
package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DevModeEnv names the environment variable that makes Assets read the
// dashboard from the source tree instead of the embedded copy.
const DevModeEnv = "NETSYNC_MONITOR_DEV"

//go:embed dist/*
var dist embed.FS

// Assets returns the dashboard files. With DevModeEnv set to "1" or "true"
// they are read from disk on every request, so edits to dist/ show up on
// reload.
func Assets(logger *slog.Logger) http.FileSystem {
	if devMode() {
		dir := sourceDir()
		logger.Info("Serving dashboard from disk", slog.String("dir", dir))

		return http.Dir(dir)
	}

	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		panic("web: " + err.Error())
	}

	return http.FS(sub)
}

func sourceDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		panic("web: cannot locate the dashboard sources")
	}

	return filepath.Join(filepath.Dir(file), "dist")
}

func devMode() bool {
	switch strings.ToLower(os.Getenv(DevModeEnv)) {
	case "1", "true":
		return true
	default:
		return false
	}
}
