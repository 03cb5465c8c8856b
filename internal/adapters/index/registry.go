package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.cocoon.sh/cocoon/internal/core/ports"
	"go.trai.ch/zerr"
)

const httpClientTimeout = 30 * time.Second

// Registry implements ports.PackageIndex against the package registry HTTP
// API, with a per-name response cache on disk.
type Registry struct {
	baseURL    string
	cacheDir   string
	httpClient *http.Client
	log        ports.Logger
}

// NewRegistry creates a Registry for baseURL caching responses under cacheDir.
func NewRegistry(baseURL, cacheDir string, log ports.Logger) (*Registry, error) {
	return newRegistryWithClient(baseURL, cacheDir, &http.Client{Timeout: httpClientTimeout}, log)
}

// newRegistryWithClient creates a Registry with a custom http client (used for testing).
func newRegistryWithClient(baseURL, cacheDir string, client *http.Client, log ports.Logger) (*Registry, error) {
	cleanDir := filepath.Clean(cacheDir)
	if err := os.MkdirAll(cleanDir, domain.DirPerm); err != nil {
		return nil, zerr.Wrap(err, domain.ErrIndexCacheCreateFailed.Error())
	}

	return &Registry{
		baseURL:    strings.TrimRight(baseURL, "/"),
		cacheDir:   cleanDir,
		httpClient: client,
		log:        log,
	}, nil
}

// Lookup returns the registry's releases of name admitted by the constraint.
// It consults the on-disk cache first and queries the registry on a miss.
func (r *Registry) Lookup(ctx context.Context, name string, constraint domain.Constraint) ([]domain.PackageDescriptor, error) {
	cachePath := r.cachePath(name)

	releases, err := r.loadFromCache(cachePath)
	if err != nil {
		resp, queryErr := r.queryRegistry(ctx, name)
		if queryErr != nil {
			return nil, queryErr
		}

		if saveErr := r.saveToCache(cachePath, resp); saveErr != nil {
			// A failed cache write must not fail the lookup
			r.log.Warn("index cache write failed: " + saveErr.Error())
		}
		releases = resp.Releases
	}

	descriptors := make([]domain.PackageDescriptor, 0, len(releases))
	for _, rel := range releases {
		desc, convErr := rel.toDomain()
		if convErr != nil {
			return nil, zerr.Wrap(convErr, domain.ErrRegistryParseFailed.Error())
		}
		descriptors = append(descriptors, desc)
	}

	return filterCandidates(name, descriptors, constraint)
}

// cachePath returns the cache file path for a package name.
func (r *Registry) cachePath(name string) string {
	sum := sha256.Sum256([]byte(name))
	return filepath.Join(r.cacheDir, hex.EncodeToString(sum[:])+".json")
}

// loadFromCache attempts to load a cached registry response.
func (r *Registry) loadFromCache(path string) ([]packageDoc, error) {
	//nolint:gosec // Path is constructed from trusted directory and hashed filename
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrIndexCacheReadFailed
		}
		return nil, zerr.Wrap(err, domain.ErrIndexCacheReadFailed.Error())
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, zerr.Wrap(err, domain.ErrIndexCacheUnmarshalFailed.Error())
	}

	// An entry without releases is treated as a miss
	if len(entry.Releases) == 0 {
		return nil, domain.ErrIndexCacheReadFailed
	}

	return entry.Releases, nil
}

// saveToCache saves a registry response to the cache.
func (r *Registry) saveToCache(path string, resp *registryResponse) error {
	entry := cacheEntry{
		Name:      resp.Name,
		Releases:  resp.Releases,
		Timestamp: time.Now(),
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrIndexCacheMarshalFailed.Error())
	}

	if err := atomicWriteFile(path, data); err != nil {
		return zerr.Wrap(err, domain.ErrIndexCacheWriteFailed.Error())
	}

	return nil
}

// atomicWriteFile writes data to a file atomically by writing to a temp file and renaming it.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, "index-cache-*.json")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()

	// Clean up temp file on error
	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// queryRegistry fetches every release of a package from the registry API.
func (r *Registry) queryRegistry(ctx context.Context, name string) (*registryResponse, error) {
	endpoint := fmt.Sprintf("%s/v1/packages/%s", r.baseURL, url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrRegistryRequestFailed.Error())
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrRegistryRequestFailed.Error())
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, zerr.With(domain.ErrPackageNotFound, "package", name)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := zerr.With(domain.ErrRegistryRequestFailed, "status_code", resp.StatusCode)
		return nil, zerr.With(apiErr, "package", name)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrRegistryRequestFailed.Error())
	}

	var apiResp registryResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, zerr.Wrap(err, domain.ErrRegistryParseFailed.Error())
	}

	if len(apiResp.Releases) == 0 {
		return nil, zerr.With(domain.ErrPackageNotFound, "package", name)
	}

	return &apiResp, nil
}
