package generator_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidsbond/chinadns/internal/config"
	"github.com/davidsbond/chinadns/internal/generator"
	"github.com/davidsbond/chinadns/internal/source"
)

func TestRun(t *testing.T) {
	t.Parallel()

	const list = "server=/example.cn/1.2.3.4\nbad-line\nserver=/foo.com/5.6.7.8\n"

	t.Run("generates the configuration", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(list))
		}))
		t.Cleanup(server.Close)

		dir := t.TempDir()
		cfg := testConfig(dir, server.URL)

		require.NoError(t, generator.Run(t.Context(), cfg))

		content, err := os.ReadFile(cfg.Output.File)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
		require.NotEmpty(t, lines)
		assert.Equal(t, "tls://8.8.8.8", lines[0])

		rest := lines[1:]
		sort.Strings(rest)
		assert.Equal(t, []string{
			"[/example.cn/]223.5.5.5 223.6.6.6",
			"[/foo.com/]223.5.5.5 223.6.6.6",
		}, rest)
	})

	t.Run("overrides take precedence", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(list))
		}))
		t.Cleanup(server.Close)

		dir := t.TempDir()
		cfg := testConfig(dir, server.URL)

		require.NoError(t, os.WriteFile(cfg.Output.OverrideFile, []byte("[/example.cn/]custom-route\n"), 0o644))
		require.NoError(t, generator.Run(t.Context(), cfg))

		content, err := os.ReadFile(cfg.Output.File)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
		assert.Contains(t, lines, "[/example.cn/]custom-route")
		assert.Contains(t, lines, "[/foo.com/]223.5.5.5 223.6.6.6")
		assert.NotContains(t, lines, "[/example.cn/]223.5.5.5 223.6.6.6")

		// Exactly one line references the overridden domain.
		var count int
		for _, line := range lines {
			if strings.Contains(line, "example.cn") {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("aborts on fetch failure without writing", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}))
		t.Cleanup(server.Close)

		dir := t.TempDir()
		cfg := testConfig(dir, server.URL)

		err := generator.Run(t.Context(), cfg)

		var fetchErr *source.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.NoFileExists(t, cfg.Output.File)
	})

	t.Run("aborts on insufficient records without writing", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("server=/example.cn/1.2.3.4\n"))
		}))
		t.Cleanup(server.Close)

		dir := t.TempDir()
		cfg := testConfig(dir, server.URL)
		cfg.Sources.MinimumRecords = 2

		require.NoError(t, os.WriteFile(cfg.Output.File, []byte("previous\n"), 0o644))

		err := generator.Run(t.Context(), cfg)

		var insufficient *generator.InsufficientRecordsError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, 1, insufficient.Count)
		assert.Equal(t, 2, insufficient.Minimum)

		// The previous artifact survives a failed run untouched.
		content, err := os.ReadFile(cfg.Output.File)
		require.NoError(t, err)
		assert.Equal(t, "previous\n", string(content))
		assert.NoFileExists(t, cfg.Output.File+".bak")
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		require.Error(t, generator.Run(t.Context(), config.Config{}))
	})
}

func testConfig(dir, url string) config.Config {
	return config.Config{
		Sources: config.SourceConfig{
			URLs:           []string{url},
			MinimumRecords: 1,
		},
		DNS: config.DNSConfig{
			China:   []string{"223.5.5.5", "223.6.6.6"},
			Trusted: []string{"tls://8.8.8.8"},
		},
		Output: config.OutputConfig{
			File:         filepath.Join(dir, "output.conf"),
			OverrideFile: filepath.Join(dir, "extra.conf"),
		},
		Logging: &config.LoggingConfig{Level: "error"},
	}
}
