// Package fetch downloads compressed RHCOS artifacts and stages the
// decompressed disk image in the local temp directory.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/openshift-eng/rhcos-ami-import/internal/release"
)

// IntegrityError reports a download below the size floor. RHCOS disk
// images are never this small, so a short body means a truncated or
// corrupted transfer. The job is abandoned rather than retried.
type IntegrityError struct {
	Path string
	Size int64
	Min  int64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("artifact %s is too small: %d bytes (%d MB), expected at least %d bytes",
		e.Path, e.Size, e.Size/(1024*1024), e.Min)
}

// Fetcher downloads and decompresses artifacts.
type Fetcher struct {
	httpClient *http.Client
	minBytes   int64
	log        *zap.SugaredLogger
}

// NewFetcher creates a Fetcher enforcing the given compressed-size
// floor. A nil httpClient means http.DefaultClient.
func NewFetcher(httpClient *http.Client, minBytes int64, log *zap.SugaredLogger) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Fetcher{httpClient: httpClient, minBytes: minBytes, log: log}
}

// Fetch stages the decompressed artifact at art.LocalPath. If the file
// is already there the download is skipped entirely. The compressed
// intermediate is removed on success and the decompressed target is
// never left behind on failure.
func (f *Fetcher) Fetch(ctx context.Context, art release.Artifact) error {
	if _, err := os.Stat(art.LocalPath); err == nil {
		f.log.Infof("Skipping download because %s already exists", art.LocalPath)
		return nil
	}

	gzPath := art.LocalPath + ".gz"
	size, err := f.download(ctx, art.SourceURL, gzPath)
	if err != nil {
		return err
	}

	if size < f.minBytes {
		_ = os.Remove(gzPath)
		return &IntegrityError{Path: gzPath, Size: size, Min: f.minBytes}
	}

	f.log.Infof("Unpacking %s", gzPath)
	if err := gunzip(gzPath, art.LocalPath); err != nil {
		_ = os.Remove(art.LocalPath)
		return err
	}

	if err := os.Remove(gzPath); err != nil {
		return fmt.Errorf("failed to remove compressed artifact: %w", err)
	}
	return nil
}

// download streams the URL body to path and returns the byte count.
func (f *Fetcher) download(ctx context.Context, url, path string) (int64, error) {
	f.log.Infof("Downloading %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download of %s returned status %d", url, resp.StatusCode)
	}

	f.log.Infof("Saving %s", path)
	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}

	size, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return size, nil
}

// gunzip decompresses src into dst with a streaming copy.
func gunzip(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("failed to read gzip header of %s: %w", src, err)
	}
	defer zr.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	_, err = io.Copy(out, zr) // #nosec G110 -- trusted release mirror
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to decompress %s: %w", src, err)
	}
	return nil
}
