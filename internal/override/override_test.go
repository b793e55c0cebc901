package override_test

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidsbond/chinadns/internal/override"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	tt := []struct {
		Name     string
		File     string
		Expected []override.Entry
	}{
		{
			Name: "valid entries in order",
			File: "extra.conf",
			Expected: []override.Entry{
				{Domain: "google.cn", Line: "[/google.cn/]tls://8.8.8.8"},
				{Domain: "example.cn", Line: "[/example.cn/]223.5.5.5 223.6.6.6"},
				{Domain: "internal.corp", Line: "[/internal.corp/]10.0.0.53"},
			},
		},
		{
			Name: "malformed lines skipped",
			File: "malformed.conf",
			Expected: []override.Entry{
				{Domain: "google.cn", Line: "[/google.cn/]tls://8.8.8.8"},
				{Domain: "example.cn", Line: "[/example.cn/]223.5.5.5"},
			},
		},
		{
			Name: "first duplicate wins",
			File: "duplicates.conf",
			Expected: []override.Entry{
				{Domain: "google.cn", Line: "[/google.cn/]tls://8.8.8.8"},
			},
		},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			path := filepath.Join("testdata", tc.File)

			overrides, err := override.Load(path, discardLogger())
			require.NoError(t, err)

			assert.EqualValues(t, tc.Expected, overrides.Entries())
			assert.Equal(t, len(tc.Expected), overrides.Len())

			for _, entry := range tc.Expected {
				assert.True(t, overrides.Contains(entry.Domain))
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	overrides, err := override.Load(filepath.Join("testdata", "does-not-exist.conf"), discardLogger())
	require.NoError(t, err)
	require.NotNil(t, overrides)

	assert.Zero(t, overrides.Len())
	assert.Empty(t, overrides.Entries())
	assert.False(t, overrides.Contains("google.cn"))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
