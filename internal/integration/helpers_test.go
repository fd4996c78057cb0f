package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	zipPassword = "integration-password"
	githubRepo  = "acme/app"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

func readTree(t *testing.T, root, rel string) string {
	t.Helper()

	raw, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err, rel)

	return string(raw)
}

// writeSettings writes a TOML settings file into project and returns its path.
func writeSettings(t *testing.T, project, apiURL string) string {
	t.Helper()

	var builder strings.Builder

	builder.WriteString("[updater]\n")
	fmt.Fprintf(&builder, "zip_password = '%s'\n", zipPassword)
	fmt.Fprintf(&builder, "github_repo = '%s'\n", githubRepo)
	fmt.Fprintf(&builder, "project_dir = '%s'\n", project)
	builder.WriteString("excluded_items = ['.venv', 'config.toml']\n")

	if apiURL != "" {
		fmt.Fprintf(&builder, "api_url = '%s'\n", apiURL)
	}

	builder.WriteString("retries = 0\n")
	builder.WriteString("timeout = '5s'\n")
	builder.WriteString("\n[log]\nlevel = 'debug'\n")

	path := filepath.Join(project, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(builder.String()), 0o600))

	return path
}

// releaseServer fakes the GitHub latest-release endpoint and serves the asset.
type releaseServer struct {
	*httptest.Server

	tag         string
	archivePath string
	downloads   atomic.Int32
}

func newReleaseServer(t *testing.T, tag, archivePath string) *releaseServer {
	t.Helper()

	rs := &releaseServer{tag: tag, archivePath: archivePath}

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/"+githubRepo+"/releases/latest", func(w http.ResponseWriter, _ *http.Request) {
		payload := map[string]any{
			"tag_name": rs.tag,
			"assets": []map[string]any{
				{
					"name":                 "update.zip",
					"browser_download_url": rs.URL + "/download/update.zip",
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	})
	mux.HandleFunc("/download/update.zip", func(w http.ResponseWriter, r *http.Request) {
		rs.downloads.Add(1)
		http.ServeFile(w, r, rs.archivePath)
	})

	rs.Server = httptest.NewServer(mux)
	t.Cleanup(rs.Close)

	return rs
}
