// Package ec2 provides the compute-provider client used to import
// snapshots and register AMIs.
package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// ownedBySelf scopes lookups to resources owned by the calling account.
const ownedBySelf = "self"

// API is the subset of the EC2 SDK client this package uses.
type API interface {
	DescribeSnapshots(ctx context.Context, params *ec2.DescribeSnapshotsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSnapshotsOutput, error)
	ImportSnapshot(ctx context.Context, params *ec2.ImportSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.ImportSnapshotOutput, error)
	DescribeImportSnapshotTasks(ctx context.Context, params *ec2.DescribeImportSnapshotTasksInput, optFns ...func(*ec2.Options)) (*ec2.DescribeImportSnapshotTasksOutput, error)
	CreateTags(ctx context.Context, params *ec2.CreateTagsInput, optFns ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error)
	DescribeImages(ctx context.Context, params *ec2.DescribeImagesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeImagesOutput, error)
	RegisterImage(ctx context.Context, params *ec2.RegisterImageInput, optFns ...func(*ec2.Options)) (*ec2.RegisterImageOutput, error)
	ModifyImageAttribute(ctx context.Context, params *ec2.ModifyImageAttributeInput, optFns ...func(*ec2.Options)) (*ec2.ModifyImageAttributeOutput, error)
}

// Client wraps the EC2 SDK client behind the operations the importer
// and registrar need.
type Client struct {
	api API
}

// NewClient creates a Client using the default AWS credential and
// region chain.
func NewClient(ctx context.Context) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Client{api: ec2.NewFromConfig(cfg)}, nil
}

// NewClientFromAPI builds a Client around an existing API. For tests.
func NewClientFromAPI(api API) *Client {
	return &Client{api: api}
}

// FindSnapshotByTag returns the id of the first account-owned snapshot
// carrying the tag, or false when none exists.
func (c *Client) FindSnapshotByTag(ctx context.Context, key, value string) (string, bool, error) {
	result, err := c.api.DescribeSnapshots(ctx, &ec2.DescribeSnapshotsInput{
		Filters: []types.Filter{{
			Name:   aws.String("tag:" + key),
			Values: []string{value},
		}},
		OwnerIds: []string{ownedBySelf},
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to list snapshots tagged %s=%s: %w", key, value, err)
	}
	if len(result.Snapshots) == 0 {
		return "", false, nil
	}
	return aws.ToString(result.Snapshots[0].SnapshotId), true, nil
}

// ImportSnapshot submits an asynchronous import of the staged object
// and returns the task id.
func (c *Client) ImportSnapshot(ctx context.Context, description, format, bucket, key string) (string, error) {
	result, err := c.api.ImportSnapshot(ctx, &ec2.ImportSnapshotInput{
		Description: aws.String(description),
		DiskContainer: &types.SnapshotDiskContainer{
			Description: aws.String(description),
			Format:      aws.String(format),
			UserBucket: &types.UserBucket{
				S3Bucket: aws.String(bucket),
				S3Key:    aws.String(key),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to import snapshot from s3://%s/%s: %w", bucket, key, err)
	}
	return aws.ToString(result.ImportTaskId), nil
}

// ImportTaskStatus returns the current status of an import task and,
// once available, the resulting snapshot id.
func (c *Client) ImportTaskStatus(ctx context.Context, taskID string) (string, string, error) {
	result, err := c.api.DescribeImportSnapshotTasks(ctx, &ec2.DescribeImportSnapshotTasksInput{
		ImportTaskIds: []string{taskID},
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to describe import task %s: %w", taskID, err)
	}
	if len(result.ImportSnapshotTasks) == 0 || result.ImportSnapshotTasks[0].SnapshotTaskDetail == nil {
		return "", "", fmt.Errorf("import task %s not found", taskID)
	}

	detail := result.ImportSnapshotTasks[0].SnapshotTaskDetail
	return aws.ToString(detail.Status), aws.ToString(detail.SnapshotId), nil
}

// TagResource sets a single tag on a resource.
func (c *Client) TagResource(ctx context.Context, resourceID, key, value string) error {
	_, err := c.api.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: []string{resourceID},
		Tags: []types.Tag{{
			Key:   aws.String(key),
			Value: aws.String(value),
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to tag %s with %s=%s: %w", resourceID, key, value, err)
	}
	return nil
}

// FindImageByName returns the id of the first account-owned image with
// the exact name, or false when none exists.
func (c *Client) FindImageByName(ctx context.Context, name string) (string, bool, error) {
	result, err := c.api.DescribeImages(ctx, &ec2.DescribeImagesInput{
		Filters: []types.Filter{{
			Name:   aws.String("name"),
			Values: []string{name},
		}},
		Owners: []string{ownedBySelf},
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to list images named %s: %w", name, err)
	}
	if len(result.Images) == 0 {
		return "", false, nil
	}
	return aws.ToString(result.Images[0].ImageId), true, nil
}

// RegisterImageParams holds the registration inputs that vary per
// image or come from configuration.
type RegisterImageParams struct {
	Name                 string
	Description          string
	SnapshotID           string
	RootDeviceName       string
	RootVolumeType       string
	EphemeralDeviceName  string
	EphemeralVirtualName string
}

// RegisterImage registers a bootable HVM x86_64 image from a snapshot:
// EBS root device with delete-on-termination, one instance-store
// device, ENA and SR-IOV networking enabled.
func (c *Client) RegisterImage(ctx context.Context, p RegisterImageParams) (string, error) {
	result, err := c.api.RegisterImage(ctx, &ec2.RegisterImageInput{
		Name:         aws.String(p.Name),
		Description:  aws.String(p.Description),
		Architecture: types.ArchitectureValuesX8664,
		BlockDeviceMappings: []types.BlockDeviceMapping{
			{
				DeviceName: aws.String(p.RootDeviceName),
				Ebs: &types.EbsBlockDevice{
					SnapshotId:          aws.String(p.SnapshotID),
					DeleteOnTermination: aws.Bool(true),
					VolumeType:          types.VolumeType(p.RootVolumeType),
				},
			},
			{
				DeviceName:  aws.String(p.EphemeralDeviceName),
				VirtualName: aws.String(p.EphemeralVirtualName),
			},
		},
		EnaSupport:         aws.Bool(true),
		RootDeviceName:     aws.String(p.RootDeviceName),
		SriovNetSupport:    aws.String("simple"),
		VirtualizationType: aws.String("hvm"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to register image %s: %w", p.Name, err)
	}
	return aws.ToString(result.ImageId), nil
}

// MakeImagePublic adds the "all" launch-permission group so any
// account can launch instances from the image.
func (c *Client) MakeImagePublic(ctx context.Context, imageID string) error {
	_, err := c.api.ModifyImageAttribute(ctx, &ec2.ModifyImageAttributeInput{
		ImageId: aws.String(imageID),
		LaunchPermission: &types.LaunchPermissionModifications{
			Add: []types.LaunchPermission{{
				Group: types.PermissionGroupAll,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to make image %s public: %w", imageID, err)
	}
	return nil
}
