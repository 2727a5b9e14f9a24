// Package config holds the pipeline configuration: endpoints, the staging
// bucket, image registration constants, and import polling limits. All
// values have working defaults; a YAML file can override any of them.
package config

import (
	"fmt"
	"time"
)

// MiB is the unit used for the artifact size floor.
const MiB = 1024 * 1024

// Config carries every tunable of the import pipeline.
type Config struct {
	// ReleaseInfoURL is the root of the release metadata mirror. The
	// release.txt for version V lives at <ReleaseInfoURL>/<V>/release.txt.
	ReleaseInfoURL string `mapstructure:"release_info_url"`

	// GraphURL is the upgrade-graph endpoint queried per channel.
	GraphURL string `mapstructure:"graph_url"`

	// ArtifactBaseURL is the root of the RHCOS artifact storage tree.
	ArtifactBaseURL string `mapstructure:"artifact_base_url"`

	// Bucket is the S3 bucket artifacts are staged into before import.
	Bucket string `mapstructure:"bucket"`

	// ImagePrefix names snapshots tags, AMIs and artifact files
	// ("rhcos" gives rhcos-<version> images).
	ImagePrefix string `mapstructure:"image_prefix"`

	// Architecture is the artifact and AMI architecture.
	Architecture string `mapstructure:"architecture"`

	// DiskFormat is the virtual disk format of the artifact.
	DiskFormat string `mapstructure:"disk_format"`

	// MinArtifactBytes is the integrity floor for the compressed
	// download; anything smaller is treated as corrupt.
	MinArtifactBytes int64 `mapstructure:"min_artifact_bytes"`

	// PollInterval is the wait between import task status checks.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// ImportTimeout bounds the total wait for one snapshot import.
	ImportTimeout time.Duration `mapstructure:"import_timeout"`

	// AMI device layout.
	RootDeviceName       string `mapstructure:"root_device_name"`
	RootVolumeType       string `mapstructure:"root_volume_type"`
	EphemeralDeviceName  string `mapstructure:"ephemeral_device_name"`
	EphemeralVirtualName string `mapstructure:"ephemeral_virtual_name"`
}

// Default returns the configuration used when no overrides are given.
// These match the production publishing setup.
func Default() *Config {
	return &Config{
		ReleaseInfoURL:       "https://mirror.openshift.com/pub/openshift-v4/clients/ocp",
		GraphURL:             "https://api.openshift.com/api/upgrades_info/v1/graph",
		ArtifactBaseURL:      "https://releases-art-rhcos.svc.ci.openshift.org/art/storage/releases",
		Bucket:               "io-rhdt-govcloud-vmimport",
		ImagePrefix:          "rhcos",
		Architecture:         "x86_64",
		DiskFormat:           "vmdk",
		MinArtifactBytes:     100 * MiB,
		PollInterval:         10 * time.Second,
		ImportTimeout:        5 * time.Minute,
		RootDeviceName:       "/dev/xvda",
		RootVolumeType:       "gp2",
		EphemeralDeviceName:  "/dev/xvdb",
		EphemeralVirtualName: "ephemeral0",
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.ReleaseInfoURL == "" {
		return fmt.Errorf("release_info_url must not be empty")
	}
	if c.GraphURL == "" {
		return fmt.Errorf("graph_url must not be empty")
	}
	if c.ArtifactBaseURL == "" {
		return fmt.Errorf("artifact_base_url must not be empty")
	}
	if c.Bucket == "" {
		return fmt.Errorf("bucket must not be empty")
	}
	if c.MinArtifactBytes <= 0 {
		return fmt.Errorf("min_artifact_bytes must be positive, got %d", c.MinArtifactBytes)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.ImportTimeout < c.PollInterval {
		return fmt.Errorf("import_timeout %s is shorter than poll_interval %s", c.ImportTimeout, c.PollInterval)
	}
	return nil
}
