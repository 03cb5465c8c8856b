// Package fetch implements the Fetcher port over HTTP with bounded retries
// and digest verification.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cespare/xxhash/v2"
	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.cocoon.sh/cocoon/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Fetcher = (*Client)(nil)

// Client implements ports.Fetcher. Every attempt is bounded by the
// configured per-attempt timeout; transient failures are retried with
// exponential backoff up to the attempt budget.
type Client struct {
	httpClient *http.Client
	attempts   int
	timeout    time.Duration
}

// NewClient creates a Client with the given attempt budget and per-attempt
// timeout. Zero or negative values fall back to a single unbounded attempt.
func NewClient(attempts int, timeout time.Duration) *Client {
	if attempts < 1 {
		attempts = 1
	}

	return &Client{
		httpClient: &http.Client{},
		attempts:   attempts,
		timeout:    timeout,
	}
}

// Fetch downloads the artifact described by src into destDir and verifies
// its xxhash64 digest.
func (c *Client) Fetch(ctx context.Context, src domain.Source, destDir string) error {
	operation := func() (string, error) {
		return c.download(ctx, src, destDir)
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(c.attempts)),
	)
	if err != nil {
		// A digest mismatch is a property of the artifact, not the network
		if errors.Is(err, domain.ErrArtifactCorrupt) {
			return err
		}
		fetchErr := zerr.Wrap(err, domain.ErrFetchFailed.Error())
		fetchErr = zerr.With(fetchErr, "url", src.URL.String())
		return zerr.With(fetchErr, "attempts", c.attempts)
	}

	return nil
}

// download performs one attempt: stream the body into a temp file, verify
// the digest, rename into place. Errors returned as backoff.Permanent stop
// the retry loop.
func (c *Client) download(ctx context.Context, src domain.Source, destDir string) (string, error) {
	attemptCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, src.URL.String(), http.NoBody)
	if err != nil {
		return "", backoff.Permanent(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		statusErr := zerr.With(zerr.New("unexpected response status"), "status_code", resp.StatusCode)
		statusErr = zerr.With(statusErr, "url", src.URL.String())
		if retryableStatus(resp.StatusCode) {
			return "", statusErr
		}
		return "", backoff.Permanent(statusErr)
	}

	tmpFile, err := os.CreateTemp(destDir, "fetch-*")
	if err != nil {
		return "", backoff.Permanent(err)
	}
	tmpName := tmpFile.Name()

	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}()

	hasher := xxhash.New()
	if _, err := io.Copy(io.MultiWriter(tmpFile, hasher), resp.Body); err != nil {
		_ = tmpFile.Close()
		return "", err
	}

	if err := tmpFile.Close(); err != nil {
		return "", err
	}

	// An empty declared digest skips verification
	got := fmt.Sprintf("%016x", hasher.Sum64())
	if want := src.Digest.String(); want != "" && got != want {
		corruptErr := zerr.With(domain.ErrArtifactCorrupt, "url", src.URL.String())
		corruptErr = zerr.With(corruptErr, "want_digest", want)
		corruptErr = zerr.With(corruptErr, "got_digest", got)
		return "", backoff.Permanent(corruptErr)
	}

	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return "", backoff.Permanent(err)
	}

	target := filepath.Join(destDir, artifactName(src.URL.String()))
	if err := os.Rename(tmpName, target); err != nil {
		return "", backoff.Permanent(err)
	}

	return target, nil
}

// retryableStatus reports whether another attempt could succeed.
func retryableStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}

// artifactName derives the stored file name from the source URL.
func artifactName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "artifact"
	}

	base := path.Base(parsed.Path)
	if base == "." || base == "/" || base == "" {
		return "artifact"
	}
	return base
}
