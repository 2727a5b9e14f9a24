// Package release resolves OpenShift release versions to RHCOS artifact
// versions and discovers the releases published in a set of upgrade
// channels.
package release

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openshift-eng/rhcos-ami-import/internal/config"
)

// Artifact describes one RHCOS disk image: where to download it from,
// where it is staged locally, and the name it keeps through S3, the EBS
// snapshot tag, and the AMI. Every field is derived from the artifact
// version, so two releases that share an artifact version share all of
// them; the filename doubles as the dedup key at every stage.
type Artifact struct {
	// ReleaseVersion is the OpenShift release the artifact belongs to.
	ReleaseVersion string

	// Version is the RHCOS version, e.g. "47.83.202103251640-0".
	Version string

	// Filename is the canonical artifact file name and the S3 key.
	Filename string

	// LocalPath is where the decompressed artifact is staged on disk.
	LocalPath string

	// SourceURL is the gzip-compressed artifact download location.
	SourceURL string

	// Name is the snapshot description and AMI name,
	// e.g. "rhcos-47.83.202103251640-0".
	Name string
}

// NewArtifact derives all artifact fields. Pure: no I/O, no caching
// needed, identical inputs always produce identical outputs.
func NewArtifact(releaseVersion, artifactVersion string, cfg *config.Config) Artifact {
	filename := fmt.Sprintf("%s-%s-aws.%s.%s",
		cfg.ImagePrefix, artifactVersion, cfg.Architecture, cfg.DiskFormat)

	sourceURL := strings.Join([]string{
		cfg.ArtifactBaseURL,
		fmt.Sprintf("%s-%s", cfg.ImagePrefix, MajorMinor(releaseVersion)),
		artifactVersion,
		cfg.Architecture,
		filename + ".gz",
	}, "/")

	return Artifact{
		ReleaseVersion: releaseVersion,
		Version:        artifactVersion,
		Filename:       filename,
		LocalPath:      filepath.Join(os.TempDir(), filename),
		SourceURL:      sourceURL,
		Name:           fmt.Sprintf("%s-%s", cfg.ImagePrefix, artifactVersion),
	}
}

// MajorMinor returns the first two dotted components of a version
// string ("4.7.7" gives "4.7"). Inputs with fewer components are
// returned unchanged.
func MajorMinor(version string) string {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return version
	}
	return parts[0] + "." + parts[1]
}
