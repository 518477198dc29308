package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukb-tools/ukbtab/fetch"
)

func TestFetch(t *testing.T) {
	t.Parallel()

	const body = "coding\tmeaning\n1\tYes\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "19", r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	f := fetch.New(fetch.WithURL(srv.URL + "/codown.cgi?id=%s"))

	// The destination's parent directories do not exist yet.
	dest := filepath.Join(t.TempDir(), "encodings", "encoding_table_19.txt")

	require.NoError(t, f.Fetch(context.Background(), "19", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFetchHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such coding", http.StatusNotFound)
	}))
	defer srv.Close()

	f := fetch.New(fetch.WithURL(srv.URL + "/codown.cgi?id=%s"))
	dest := filepath.Join(t.TempDir(), "encoding_table_404.txt")

	err := f.Fetch(context.Background(), "404", dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.NoFileExists(t, dest)
}

func TestFetchConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	f := fetch.New(fetch.WithURL(srv.URL + "/codown.cgi?id=%s"))
	dest := filepath.Join(t.TempDir(), "encoding_table_8.txt")

	require.Error(t, f.Fetch(context.Background(), "8", dest))
}

func TestFetchCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := fetch.New(fetch.WithURL(srv.URL + "/codown.cgi?id=%s"))
	dest := filepath.Join(t.TempDir(), "encoding_table_8.txt")

	require.ErrorIs(t, f.Fetch(ctx, "8", dest), context.Canceled)
}
