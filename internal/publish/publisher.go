// Package publish drives the provisioning pipeline that turns a
// release version into a publicly launchable AMI:
//
//	resolve -> fetch -> stage to S3 -> import snapshot -> register image
//
// Each stage checks for its own output in the remote provider first and
// skips the stages below it when the output already exists, so the
// whole pipeline is safe to re-run at any point.
package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/openshift-eng/rhcos-ami-import/internal/config"
	"github.com/openshift-eng/rhcos-ami-import/internal/platform/ec2"
	"github.com/openshift-eng/rhcos-ami-import/internal/release"
)

// snapshotVersionTag is the tag key that makes a snapshot findable by
// its artifact version. It is the snapshot-level dedup key.
const snapshotVersionTag = "rhcos_version"

// Import task statuses the poll loop distinguishes. Anything else is
// treated as still in progress.
const (
	importStatusCompleted = "completed"
	importStatusDeleted   = "deleted"
	importStatusDeleting  = "deleting"
)

// Resolver maps a release version to its artifact version.
type Resolver interface {
	Resolve(ctx context.Context, releaseVersion string) (string, bool, error)
}

// Fetcher stages the decompressed artifact on the local disk.
type Fetcher interface {
	Fetch(ctx context.Context, art release.Artifact) error
}

// ObjectStore is the staging side of the object-storage provider.
type ObjectStore interface {
	ObjectCount(ctx context.Context, bucket, prefix string) (int, error)
	Upload(ctx context.Context, bucket, key string, body io.Reader, length int64) error
}

// Compute is the snapshot and image side of the compute provider.
type Compute interface {
	FindSnapshotByTag(ctx context.Context, key, value string) (string, bool, error)
	ImportSnapshot(ctx context.Context, description, format, bucket, key string) (string, error)
	ImportTaskStatus(ctx context.Context, taskID string) (status, snapshotID string, err error)
	TagResource(ctx context.Context, resourceID, key, value string) error
	FindImageByName(ctx context.Context, name string) (string, bool, error)
	RegisterImage(ctx context.Context, params ec2.RegisterImageParams) (string, error)
	MakeImagePublic(ctx context.Context, imageID string) error
}

// ImportTimeoutError reports an import task that did not complete
// within the configured deadline. The provider-side task keeps
// running; a later re-run picks the snapshot up through the tag check.
type ImportTimeoutError struct {
	TaskID  string
	Timeout time.Duration
}

func (e *ImportTimeoutError) Error() string {
	return fmt.Sprintf("snapshot import task %s has not completed after %s", e.TaskID, e.Timeout)
}

// ImportFailedError reports an import task the provider moved to a
// failed terminal state.
type ImportFailedError struct {
	TaskID string
	Status string
}

func (e *ImportFailedError) Error() string {
	return fmt.Sprintf("snapshot import task %s failed with status %q", e.TaskID, e.Status)
}

// Job is the unit of work for one release version.
type Job struct {
	ReleaseVersion string
	Bucket         string
	Artifact       release.Artifact
}

// Publisher runs jobs against the configured providers. It processes
// one job at a time; nothing here is safe for concurrent use.
type Publisher struct {
	cfg      *config.Config
	resolver Resolver
	fetcher  Fetcher
	store    ObjectStore
	compute  Compute
	log      *zap.SugaredLogger
}

// NewPublisher wires a Publisher from its collaborators.
func NewPublisher(cfg *config.Config, resolver Resolver, fetcher Fetcher, store ObjectStore, compute Compute, log *zap.SugaredLogger) *Publisher {
	return &Publisher{
		cfg:      cfg,
		resolver: resolver,
		fetcher:  fetcher,
		store:    store,
		compute:  compute,
		log:      log,
	}
}

// PublishAll runs every release version through the pipeline in order.
// A failure in one version is recorded and never stops the others.
func (p *Publisher) PublishAll(ctx context.Context, releaseVersions []string) Report {
	report := make(Report, 0, len(releaseVersions))
	for _, version := range releaseVersions {
		p.log.Infof("Processing OpenShift %s", version)

		result := p.Publish(ctx, version)
		if result.Status == StatusFailed {
			p.log.Errorf("Failed to publish %s: %v", version, result.Err)
		}
		report = append(report, result)
	}
	return report
}

// Publish runs one release version through the pipeline and reports
// the outcome as a value; it never panics across versions.
func (p *Publisher) Publish(ctx context.Context, releaseVersion string) Result {
	artifactVersion, found, err := p.resolver.Resolve(ctx, releaseVersion)
	if err != nil {
		return Failed(releaseVersion, err)
	}
	if !found {
		return Skipped(releaseVersion, "release metadata has no machine-os version")
	}

	job := Job{
		ReleaseVersion: releaseVersion,
		Bucket:         p.cfg.Bucket,
		Artifact:       release.NewArtifact(releaseVersion, artifactVersion, p.cfg),
	}

	imageID, err := p.registerImage(ctx, job)
	if err != nil {
		return Failed(releaseVersion, err)
	}
	return Succeeded(releaseVersion, artifactVersion, imageID)
}

// registerImage returns the id of the AMI for the job's artifact,
// registering it from an imported snapshot if it does not exist yet.
func (p *Publisher) registerImage(ctx context.Context, job Job) (string, error) {
	snapshotID, err := p.importSnapshot(ctx, job)
	if err != nil {
		return "", err
	}

	imageID, exists, err := p.compute.FindImageByName(ctx, job.Artifact.Name)
	if err != nil {
		return "", err
	}
	if exists {
		p.log.Infof("Skipping image creation because %s already exists", imageID)
		return imageID, nil
	}

	p.log.Infof("Registering image from snapshot %s", snapshotID)
	imageID, err = p.compute.RegisterImage(ctx, ec2.RegisterImageParams{
		Name:                 job.Artifact.Name,
		Description:          fmt.Sprintf("OpenShift 4 %s", job.Artifact.Version),
		SnapshotID:           snapshotID,
		RootDeviceName:       p.cfg.RootDeviceName,
		RootVolumeType:       p.cfg.RootVolumeType,
		EphemeralDeviceName:  p.cfg.EphemeralDeviceName,
		EphemeralVirtualName: p.cfg.EphemeralVirtualName,
	})
	if err != nil {
		return "", err
	}
	p.log.Infof("Created image %s", imageID)

	p.log.Infof("Making image %s public", imageID)
	if err := p.compute.MakeImagePublic(ctx, imageID); err != nil {
		return "", err
	}
	return imageID, nil
}

// importSnapshot returns the id of the snapshot holding the job's
// artifact, importing it from object storage if no snapshot with the
// version tag exists yet.
func (p *Publisher) importSnapshot(ctx context.Context, job Job) (string, error) {
	if err := p.stage(ctx, job); err != nil {
		return "", err
	}

	snapshotID, exists, err := p.compute.FindSnapshotByTag(ctx, snapshotVersionTag, job.Artifact.Version)
	if err != nil {
		return "", err
	}
	if exists {
		p.log.Infof("Skipping snapshot creation because %s already exists", snapshotID)
		return snapshotID, nil
	}

	p.log.Infof("Importing snapshot from s3://%s/%s", job.Bucket, job.Artifact.Filename)
	taskID, err := p.compute.ImportSnapshot(ctx, job.Artifact.Name, p.cfg.DiskFormat, job.Bucket, job.Artifact.Filename)
	if err != nil {
		return "", err
	}

	snapshotID, err = p.waitForImport(ctx, taskID)
	if err != nil {
		return "", err
	}

	p.log.Infof("Tagging snapshot %s with %s=%s", snapshotID, snapshotVersionTag, job.Artifact.Version)
	if err := p.compute.TagResource(ctx, snapshotID, snapshotVersionTag, job.Artifact.Version); err != nil {
		return "", err
	}
	return snapshotID, nil
}

// waitForImport polls the import task until it completes, the provider
// fails it, the deadline passes, or the context is cancelled.
func (p *Publisher) waitForImport(ctx context.Context, taskID string) (string, error) {
	var elapsed time.Duration
	for {
		p.log.Infof("Checking status of snapshot import task %s", taskID)
		status, snapshotID, err := p.compute.ImportTaskStatus(ctx, taskID)
		if err != nil {
			return "", err
		}

		switch status {
		case importStatusCompleted:
			p.log.Infof("Snapshot %s created", snapshotID)
			return snapshotID, nil
		case importStatusDeleted, importStatusDeleting:
			return "", &ImportFailedError{TaskID: taskID, Status: status}
		}

		if elapsed > p.cfg.ImportTimeout {
			return "", &ImportTimeoutError{TaskID: taskID, Timeout: p.cfg.ImportTimeout}
		}

		p.log.Infof("Snapshot import task %s not complete, waiting %s to try again", taskID, p.cfg.PollInterval)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for import task %s: %w", taskID, ctx.Err())
		case <-time.After(p.cfg.PollInterval):
			elapsed += p.cfg.PollInterval
		}
	}
}

// stage makes sure the artifact object exists in the bucket, fetching
// and uploading it only when the object is missing. The local staged
// file is removed once the upload has handed off to the provider.
func (p *Publisher) stage(ctx context.Context, job Job) error {
	count, err := p.store.ObjectCount(ctx, job.Bucket, job.Artifact.Filename)
	if err != nil {
		return err
	}
	if count > 0 {
		p.log.Infof("Skipping upload because s3://%s/%s already exists", job.Bucket, job.Artifact.Filename)
		return nil
	}

	if err := p.fetcher.Fetch(ctx, job.Artifact); err != nil {
		return err
	}

	f, err := os.Open(job.Artifact.LocalPath)
	if err != nil {
		return fmt.Errorf("failed to open staged artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat staged artifact: %w", err)
	}

	p.log.Infof("Uploading %s to S3", job.Artifact.LocalPath)
	if err := p.store.Upload(ctx, job.Bucket, job.Artifact.Filename, f, info.Size()); err != nil {
		return err
	}

	if err := os.Remove(job.Artifact.LocalPath); err != nil {
		return fmt.Errorf("failed to remove staged artifact: %w", err)
	}
	return nil
}
