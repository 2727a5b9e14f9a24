package publish

import "fmt"

// Status classifies the outcome of one release version's pipeline.
type Status string

const (
	// StatusSucceeded means the AMI exists and is public (created now
	// or found from an earlier run).
	StatusSucceeded Status = "succeeded"
	// StatusSkipped means the release has no importable artifact.
	StatusSkipped Status = "skipped"
	// StatusFailed means a pipeline stage errored; other versions are
	// unaffected.
	StatusFailed Status = "failed"
)

// Result is the outcome of one release version.
type Result struct {
	ReleaseVersion  string
	ArtifactVersion string
	ImageID         string
	Reason          string
	Err             error
	Status          Status
}

// Succeeded builds a success result.
func Succeeded(releaseVersion, artifactVersion, imageID string) Result {
	return Result{
		ReleaseVersion:  releaseVersion,
		ArtifactVersion: artifactVersion,
		ImageID:         imageID,
		Status:          StatusSucceeded,
	}
}

// Skipped builds a skip result with a human-readable reason.
func Skipped(releaseVersion, reason string) Result {
	return Result{
		ReleaseVersion: releaseVersion,
		Reason:         reason,
		Status:         StatusSkipped,
	}
}

// Failed builds a failure result.
func Failed(releaseVersion string, err error) Result {
	return Result{
		ReleaseVersion: releaseVersion,
		Err:            err,
		Status:         StatusFailed,
	}
}

// Report collects the results of a batch in processing order.
type Report []Result

// Counts returns how many results succeeded, were skipped, and failed.
func (r Report) Counts() (succeeded, skipped, failed int) {
	for _, result := range r {
		switch result.Status {
		case StatusSucceeded:
			succeeded++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return succeeded, skipped, failed
}

// AnyFailed reports whether any version in the batch failed. The
// process exit code is derived from this.
func (r Report) AnyFailed() bool {
	_, _, failed := r.Counts()
	return failed > 0
}

// Summary renders a one-line batch summary for the final log line.
func (r Report) Summary() string {
	succeeded, skipped, failed := r.Counts()
	return fmt.Sprintf("%d succeeded, %d skipped, %d failed", succeeded, skipped, failed)
}
