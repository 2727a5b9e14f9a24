// Package s3 provides the object-storage client used to stage disk
// images for snapshot import.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Client wraps the AWS S3 client with the two operations the stager
// needs.
type Client struct {
	s3 *s3.Client
}

// NewClient creates a Client using the default AWS credential and
// region chain (environment, shared config, instance role).
func NewClient(ctx context.Context) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Client{s3: s3.NewFromConfig(cfg)}, nil
}

// newClientFromAPI builds a Client around an existing SDK client. For
// tests.
func newClientFromAPI(api *s3.Client) *Client {
	return &Client{s3: api}
}

// ObjectCount returns how many objects in the bucket match the prefix.
// The stager treats any count above zero as "already staged".
func (c *Client) ObjectCount(ctx context.Context, bucket, prefix string) (int, error) {
	result, err := c.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		if code := apiErrorCode(err); code == "NoSuchBucket" {
			return 0, fmt.Errorf("staging bucket %s does not exist: %w", bucket, err)
		}
		return 0, fmt.Errorf("failed to list objects in bucket %s: %w", bucket, err)
	}
	return int(aws.ToInt32(result.KeyCount)), nil
}

// Upload streams body into the bucket under key. length must be the
// exact body size; disk images are too large to buffer in memory.
func (c *Client) Upload(ctx context.Context, bucket, key string, body io.Reader, length int64) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(length),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s to bucket %s: %w", key, bucket, err)
	}
	return nil
}

// apiErrorCode extracts the provider error code, or "" for non-API
// errors. S3-compatible endpoints do not always return the typed SDK
// errors, so the code string is the reliable discriminator.
func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
