package fetch_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.cocoon.sh/cocoon/internal/adapters/fetch"
	"go.cocoon.sh/cocoon/internal/core/domain"
)

func digestOf(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

func fetchSource(url, digest string) domain.Source {
	return domain.Source{
		Kind:   domain.SourceKindFetch,
		URL:    domain.NewInternedString(url),
		Digest: domain.NewInternedString(digest),
	}
}

func TestFetch_Success(t *testing.T) {
	content := []byte("prebuilt interpreter artifact")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(content)
	}))
	defer server.Close()

	destDir := t.TempDir()
	client := fetch.NewClient(3, 5*time.Second)

	src := fetchSource(server.URL+"/python3-3.12.4.tar.zst", digestOf(content))
	require.NoError(t, client.Fetch(context.Background(), src, destDir))

	got, err := os.ReadFile(filepath.Join(destDir, "python3-3.12.4.tar.zst"))
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestFetch_FallbackArtifactName(t *testing.T) {
	content := []byte("nameless")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(content)
	}))
	defer server.Close()

	destDir := t.TempDir()
	client := fetch.NewClient(1, 5*time.Second)

	// URL path carries no usable base name
	src := fetchSource(server.URL+"/", digestOf(content))
	require.NoError(t, client.Fetch(context.Background(), src, destDir))

	_, err := os.Stat(filepath.Join(destDir, "artifact"))
	require.NoError(t, err)
}

func TestFetch_DigestMismatch(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		_, _ = w.Write([]byte("not what the descriptor promised"))
	}))
	defer server.Close()

	destDir := t.TempDir()
	client := fetch.NewClient(3, 5*time.Second)

	src := fetchSource(server.URL+"/lib.tar.zst", "0123456789abcdef")
	err := client.Fetch(context.Background(), src, destDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrArtifactCorrupt.Error())

	// A mismatch is permanent: no retries, no artifact left behind
	assert.Equal(t, 1, requests)
	entries, readErr := os.ReadDir(destDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestFetch_RetriesThenSucceeds(t *testing.T) {
	content := []byte("eventually available")
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		if requests < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(content)
	}))
	defer server.Close()

	destDir := t.TempDir()
	client := fetch.NewClient(3, 5*time.Second)

	src := fetchSource(server.URL+"/flaky.tar.zst", digestOf(content))
	require.NoError(t, client.Fetch(context.Background(), src, destDir))
	assert.Equal(t, 3, requests)
}

func TestFetch_AttemptBudgetExhausted(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := fetch.NewClient(2, 5*time.Second)

	src := fetchSource(server.URL+"/down.tar.zst", "0123456789abcdef")
	err := client.Fetch(context.Background(), src, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrFetchFailed.Error())
	assert.Equal(t, 2, requests)
}

func TestFetch_NotFoundIsPermanent(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := fetch.NewClient(3, 5*time.Second)

	src := fetchSource(server.URL+"/gone.tar.zst", "0123456789abcdef")
	err := client.Fetch(context.Background(), src, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrFetchFailed.Error())
	assert.Equal(t, 1, requests)
}

func TestFetch_EmptyDigestSkipsVerification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("unverified"))
	}))
	defer server.Close()

	destDir := t.TempDir()
	client := fetch.NewClient(1, 5*time.Second)

	src := fetchSource(server.URL+"/unverified.tar.zst", "")
	require.NoError(t, client.Fetch(context.Background(), src, destDir))
}
