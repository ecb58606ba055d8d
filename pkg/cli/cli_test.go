package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metricsd/metricsd/pkg/metrics"
)

// isolate points config discovery at empty temporary directories.
// Tests using it cannot run in parallel.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	isolate(t)

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "metricsd ")
	assert.Contains(t, out, runtime.Version())

	out, err = execute(t, "version", "--json")
	require.NoError(t, err)
	var v VersionOutput
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, runtime.Version(), v.Go)
	assert.Equal(t, runtime.GOOS, v.OS)
}

func TestConfigCommand(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".metricsd.yaml"), []byte("prefix: app_\nmetricsPath: /prom\n"), 0o600))
	t.Setenv("METRICSD_PORT", "9999")

	out, err := execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "port: 9999")
	assert.Contains(t, out, "prefix: app_")
	assert.Contains(t, out, "metricsPath: /prom")

	out, err = execute(t, "config", "--sources", "--json", "--log-level", "debug")
	require.NoError(t, err)
	var entries []ConfigSourceEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	sources := make(map[string]string, len(entries))
	for _, e := range entries {
		sources[e.Key] = e.Source
	}
	assert.Equal(t, "env", sources["port"])
	assert.Equal(t, "local", sources["prefix"])
	assert.Equal(t, "flag", sources["logLevel"])
	assert.Equal(t, "default", sources["host"])
}

func TestConfigCommandInvalid(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".metricsd.yaml"), []byte("healthPath: /metrics\n"), 0o600))

	_, err := execute(t, "config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestConfigCommandMissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := execute(t, "config", "--config", "nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func newExpositionServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := metrics.NewRegistry(metrics.WithPrefix("app_"))
	api := metrics.NewAPI(reg)

	c, err := api.Counter("requests_total", "Requests", "code")
	require.NoError(t, err)
	for _, code := range []string{"200", "500"} {
		s, err := c.With(metrics.Labels{"code": code})
		require.NoError(t, err)
		require.NoError(t, s.Inc())
	}
	h, err := api.Histogram("latency_seconds", "Latency", []float64{0.1, 1})
	require.NoError(t, err)
	require.NoError(t, h.Observe(0.5))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metrics" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", metrics.ContentType)
		_, _ = reg.WriteTo(w)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScrapeCommand(t *testing.T) {
	isolate(t)
	srv := newExpositionServer(t)

	out, err := execute(t, "scrape", srv.URL+"/metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Regexp(t, `app_requests_total\s+counter\s+2`, out)
	assert.Regexp(t, `app_latency_seconds\s+histogram\s+1`, out)

	out, err = execute(t, "scrape", "--json", srv.URL+"/metrics")
	require.NoError(t, err)
	var families []ScrapedFamily
	require.NoError(t, json.Unmarshal([]byte(out), &families))
	require.Len(t, families, 2)
	assert.Equal(t, "app_latency_seconds", families[0].Name)
	assert.Equal(t, "Latency", families[0].Help)
	assert.Equal(t, "app_requests_total", families[1].Name)
	assert.Equal(t, 2, families[1].Series)
}

func TestScrapeCommandErrors(t *testing.T) {
	isolate(t)
	srv := newExpositionServer(t)

	_, err := execute(t, "scrape", srv.URL+"/missing")
	require.ErrorIs(t, err, ErrUnexpectedStatus)

	_, err = execute(t, "scrape")
	require.Error(t, err)
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestServeCommand(t *testing.T) {
	isolate(t)
	vaultDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(vaultDir, "note.md"), []byte("# hi"), 0o600))

	port := freePort(t)
	cmd := NewRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"serve", "--port", strconv.Itoa(port), "--watch", vaultDir})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	base := "http://127.0.0.1:" + strconv.Itoa(port)
	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/metrics")
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		body = string(b)
		return resp.StatusCode == http.StatusOK &&
			bytes.Contains(b, []byte(`obsidian_files_total{extension="md"} 1`))
	}, 10*time.Second, 50*time.Millisecond)

	assert.Contains(t, body, `obsidian_build_info{goversion="`+runtime.Version()+`",version="dev"} 1`)
	assert.Contains(t, body, "# TYPE obsidian_go_goroutines gauge")

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServeCommandInvalidPort(t *testing.T) {
	isolate(t)

	_, err := execute(t, "serve", "--port", "70000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}
