package release

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"
)

// GraphClient discovers release versions from the upgrade-graph
// service.
type GraphClient struct {
	httpClient *http.Client
	graphURL   string
	log        *zap.SugaredLogger
}

// NewGraphClient creates a GraphClient for the given graph endpoint.
// A nil httpClient means http.DefaultClient.
func NewGraphClient(httpClient *http.Client, graphURL string, log *zap.SugaredLogger) *GraphClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GraphClient{httpClient: httpClient, graphURL: graphURL, log: log}
}

type graphResponse struct {
	Nodes []graphNode `json:"nodes"`
}

type graphNode struct {
	Version string `json:"version"`
}

// Discover queries the stable channel of each minor-version prefix and
// returns the matching release versions, deduplicated and sorted by
// descending numeric (major, minor, patch) order.
//
// Only plain major.minor.patch versions are kept: release candidates
// and other pre-release builds never get images published. A node also
// has to belong to one of the requested prefixes; channels can carry
// releases of the next minor once an upgrade edge exists.
func (c *GraphClient) Discover(ctx context.Context, prefixes []string) ([]string, error) {
	requested := make(map[string]bool, len(prefixes))
	for _, p := range prefixes {
		requested[p] = true
	}

	var (
		versions []string
		seen     = make(map[string]bool)
		parsed   = make(map[string]*semver.Version)
	)

	for _, prefix := range prefixes {
		nodes, err := c.channelNodes(ctx, "stable-"+prefix)
		if err != nil {
			return nil, err
		}

		for _, node := range nodes {
			v, err := semver.StrictNewVersion(node.Version)
			if err != nil || v.Prerelease() != "" || v.Metadata() != "" {
				continue
			}
			if !requested[fmt.Sprintf("%d.%d", v.Major(), v.Minor())] {
				continue
			}
			if seen[node.Version] {
				continue
			}
			seen[node.Version] = true
			parsed[node.Version] = v
			versions = append(versions, node.Version)
		}
	}

	sort.SliceStable(versions, func(i, j int) bool {
		return parsed[versions[i]].GreaterThan(parsed[versions[j]])
	})

	c.log.Infof("Discovered %d release versions for channels %v", len(versions), prefixes)
	return versions, nil
}

func (c *GraphClient) channelNodes(ctx context.Context, channel string) ([]graphNode, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.graphURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph request: %w", err)
	}
	req.URL.RawQuery = url.Values{"channel": []string{channel}}.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query upgrade graph for %s: %w", channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upgrade graph for %s returned status %d", channel, resp.StatusCode)
	}

	var graph graphResponse
	if err := json.NewDecoder(resp.Body).Decode(&graph); err != nil {
		return nil, fmt.Errorf("failed to decode upgrade graph for %s: %w", channel, err)
	}
	return graph.Nodes, nil
}
