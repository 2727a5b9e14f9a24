// Package handlers implements the execution behind the CLI commands.
package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/openshift-eng/rhcos-ami-import/internal/config"
	"github.com/openshift-eng/rhcos-ami-import/internal/fetch"
	"github.com/openshift-eng/rhcos-ami-import/internal/logger"
	"github.com/openshift-eng/rhcos-ami-import/internal/platform/ec2"
	"github.com/openshift-eng/rhcos-ami-import/internal/platform/s3"
	"github.com/openshift-eng/rhcos-ami-import/internal/publish"
	"github.com/openshift-eng/rhcos-ami-import/internal/release"
)

// Discoverer finds the release versions to publish.
type Discoverer interface {
	Discover(ctx context.Context, prefixes []string) ([]string, error)
}

// BatchPublisher runs the pipeline over a list of release versions.
type BatchPublisher interface {
	PublishAll(ctx context.Context, releaseVersions []string) publish.Report
}

// Factory function variables - can be replaced in tests.
var (
	newObjectStore = func(ctx context.Context) (publish.ObjectStore, error) {
		return s3.NewClient(ctx)
	}

	newCompute = func(ctx context.Context) (publish.Compute, error) {
		return ec2.NewClient(ctx)
	}

	newDiscoverer = func(cfg *config.Config, log *zap.SugaredLogger) Discoverer {
		return release.NewGraphClient(nil, cfg.GraphURL, log)
	}

	newPublisher = func(cfg *config.Config, store publish.ObjectStore, compute publish.Compute, log *zap.SugaredLogger) BatchPublisher {
		resolver := release.NewResolver(nil, cfg.ReleaseInfoURL, log)
		fetcher := fetch.NewFetcher(nil, cfg.MinArtifactBytes, log)
		return publish.NewPublisher(cfg, resolver, fetcher, store, compute, log)
	}
)

// Publish discovers the releases of the given channel prefixes and
// publishes each as a public AMI. Per-version failures are isolated
// and reported at the end; the returned error is non-nil iff any
// version failed, which drives the process exit code.
func Publish(ctx context.Context, prefixes []string, bucket, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if bucket != "" {
		cfg.Bucket = bucket
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.FromEnv()
	defer func() { _ = log.Sync() }()

	versions, err := newDiscoverer(cfg, log).Discover(ctx, prefixes)
	if err != nil {
		return fmt.Errorf("release discovery failed: %w", err)
	}
	if len(versions) == 0 {
		log.Warnf("No releases found for channels %v", prefixes)
		return nil
	}

	store, err := newObjectStore(ctx)
	if err != nil {
		return err
	}
	compute, err := newCompute(ctx)
	if err != nil {
		return err
	}

	report := newPublisher(cfg, store, compute, log).PublishAll(ctx, versions)

	log.Infof("Batch complete: %s", report.Summary())
	if report.AnyFailed() {
		return fmt.Errorf("batch finished with failures: %s", report.Summary())
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.FromEnv(), nil
	}
	return config.Load(path)
}
