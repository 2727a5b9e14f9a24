package release

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"go.uber.org/zap"
)

// machineOSPattern matches the machine-os line of a release.txt, e.g.
// "machine-os 47.83.202103251640-0 Red Hat Enterprise Linux CoreOS".
var machineOSPattern = regexp.MustCompile(`machine-os ([\d.\-]+)`)

// Resolver maps a release version to its RHCOS artifact version by
// reading the release metadata mirror.
type Resolver struct {
	httpClient *http.Client
	baseURL    string
	log        *zap.SugaredLogger
}

// NewResolver creates a Resolver against the given release-info root.
// A nil httpClient means http.DefaultClient.
func NewResolver(httpClient *http.Client, baseURL string, log *zap.SugaredLogger) *Resolver {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Resolver{httpClient: httpClient, baseURL: baseURL, log: log}
}

// Resolve fetches release.txt for the release version and extracts the
// RHCOS version from its machine-os line. The second return is false
// when the metadata has no machine-os line; that is not an error, it
// means the release has nothing to import.
func (r *Resolver) Resolve(ctx context.Context, releaseVersion string) (string, bool, error) {
	url := fmt.Sprintf("%s/%s/release.txt", r.baseURL, releaseVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to build release info request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("failed to fetch release info for %s: %w", releaseVersion, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("release info for %s returned status %d", releaseVersion, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("failed to read release info for %s: %w", releaseVersion, err)
	}

	m := machineOSPattern.FindSubmatch(body)
	if m == nil {
		r.log.Infof("Unable to find RHCOS version for %s", releaseVersion)
		return "", false, nil
	}

	version := string(m[1])
	r.log.Infof("RHCOS version %s", version)
	return version, true, nil
}
