package publish

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/openshift-eng/rhcos-ami-import/internal/platform/ec2"
	"github.com/openshift-eng/rhcos-ami-import/internal/release"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, releaseVersion string) (string, bool, error) {
	args := m.Called(ctx, releaseVersion)
	return args.String(0), args.Bool(1), args.Error(2)
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, art release.Artifact) error {
	args := m.Called(ctx, art)
	return args.Error(0)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ObjectCount(ctx context.Context, bucket, prefix string) (int, error) {
	args := m.Called(ctx, bucket, prefix)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) Upload(ctx context.Context, bucket, key string, body io.Reader, length int64) error {
	args := m.Called(ctx, bucket, key, body, length)
	return args.Error(0)
}

type mockCompute struct {
	mock.Mock
}

func (m *mockCompute) FindSnapshotByTag(ctx context.Context, key, value string) (string, bool, error) {
	args := m.Called(ctx, key, value)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockCompute) ImportSnapshot(ctx context.Context, description, format, bucket, key string) (string, error) {
	args := m.Called(ctx, description, format, bucket, key)
	return args.String(0), args.Error(1)
}

func (m *mockCompute) ImportTaskStatus(ctx context.Context, taskID string) (string, string, error) {
	args := m.Called(ctx, taskID)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *mockCompute) TagResource(ctx context.Context, resourceID, key, value string) error {
	args := m.Called(ctx, resourceID, key, value)
	return args.Error(0)
}

func (m *mockCompute) FindImageByName(ctx context.Context, name string) (string, bool, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockCompute) RegisterImage(ctx context.Context, params ec2.RegisterImageParams) (string, error) {
	args := m.Called(ctx, params)
	return args.String(0), args.Error(1)
}

func (m *mockCompute) MakeImagePublic(ctx context.Context, imageID string) error {
	args := m.Called(ctx, imageID)
	return args.Error(0)
}
