package ec2

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI implements API with per-call function fields.
type fakeAPI struct {
	describeSnapshots           func(*awsec2.DescribeSnapshotsInput) (*awsec2.DescribeSnapshotsOutput, error)
	importSnapshot              func(*awsec2.ImportSnapshotInput) (*awsec2.ImportSnapshotOutput, error)
	describeImportSnapshotTasks func(*awsec2.DescribeImportSnapshotTasksInput) (*awsec2.DescribeImportSnapshotTasksOutput, error)
	createTags                  func(*awsec2.CreateTagsInput) (*awsec2.CreateTagsOutput, error)
	describeImages              func(*awsec2.DescribeImagesInput) (*awsec2.DescribeImagesOutput, error)
	registerImage               func(*awsec2.RegisterImageInput) (*awsec2.RegisterImageOutput, error)
	modifyImageAttribute        func(*awsec2.ModifyImageAttributeInput) (*awsec2.ModifyImageAttributeOutput, error)
}

func (f *fakeAPI) DescribeSnapshots(_ context.Context, in *awsec2.DescribeSnapshotsInput, _ ...func(*awsec2.Options)) (*awsec2.DescribeSnapshotsOutput, error) {
	return f.describeSnapshots(in)
}

func (f *fakeAPI) ImportSnapshot(_ context.Context, in *awsec2.ImportSnapshotInput, _ ...func(*awsec2.Options)) (*awsec2.ImportSnapshotOutput, error) {
	return f.importSnapshot(in)
}

func (f *fakeAPI) DescribeImportSnapshotTasks(_ context.Context, in *awsec2.DescribeImportSnapshotTasksInput, _ ...func(*awsec2.Options)) (*awsec2.DescribeImportSnapshotTasksOutput, error) {
	return f.describeImportSnapshotTasks(in)
}

func (f *fakeAPI) CreateTags(_ context.Context, in *awsec2.CreateTagsInput, _ ...func(*awsec2.Options)) (*awsec2.CreateTagsOutput, error) {
	return f.createTags(in)
}

func (f *fakeAPI) DescribeImages(_ context.Context, in *awsec2.DescribeImagesInput, _ ...func(*awsec2.Options)) (*awsec2.DescribeImagesOutput, error) {
	return f.describeImages(in)
}

func (f *fakeAPI) RegisterImage(_ context.Context, in *awsec2.RegisterImageInput, _ ...func(*awsec2.Options)) (*awsec2.RegisterImageOutput, error) {
	return f.registerImage(in)
}

func (f *fakeAPI) ModifyImageAttribute(_ context.Context, in *awsec2.ModifyImageAttributeInput, _ ...func(*awsec2.Options)) (*awsec2.ModifyImageAttributeOutput, error) {
	return f.modifyImageAttribute(in)
}

func TestClient_FindSnapshotByTag(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		describeSnapshots: func(in *awsec2.DescribeSnapshotsInput) (*awsec2.DescribeSnapshotsOutput, error) {
			require.Len(t, in.Filters, 1)
			assert.Equal(t, "tag:rhcos_version", aws.ToString(in.Filters[0].Name))
			assert.Equal(t, []string{"47.83.202103251640-0"}, in.Filters[0].Values)
			assert.Equal(t, []string{"self"}, in.OwnerIds)

			return &awsec2.DescribeSnapshotsOutput{
				Snapshots: []types.Snapshot{
					{SnapshotId: aws.String("snap-111")},
					{SnapshotId: aws.String("snap-222")},
				},
			}, nil
		},
	}

	id, found, err := NewClientFromAPI(api).FindSnapshotByTag(context.Background(), "rhcos_version", "47.83.202103251640-0")

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "snap-111", id)
}

func TestClient_FindSnapshotByTag_NoMatch(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		describeSnapshots: func(*awsec2.DescribeSnapshotsInput) (*awsec2.DescribeSnapshotsOutput, error) {
			return &awsec2.DescribeSnapshotsOutput{}, nil
		},
	}

	_, found, err := NewClientFromAPI(api).FindSnapshotByTag(context.Background(), "rhcos_version", "missing")

	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_ImportSnapshot(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		importSnapshot: func(in *awsec2.ImportSnapshotInput) (*awsec2.ImportSnapshotOutput, error) {
			assert.Equal(t, "rhcos-47.83.202103251640-0", aws.ToString(in.Description))
			require.NotNil(t, in.DiskContainer)
			assert.Equal(t, "vmdk", aws.ToString(in.DiskContainer.Format))
			assert.Equal(t, "staging", aws.ToString(in.DiskContainer.UserBucket.S3Bucket))
			assert.Equal(t, "rhcos.vmdk", aws.ToString(in.DiskContainer.UserBucket.S3Key))

			return &awsec2.ImportSnapshotOutput{ImportTaskId: aws.String("import-snap-abc")}, nil
		},
	}

	taskID, err := NewClientFromAPI(api).ImportSnapshot(context.Background(), "rhcos-47.83.202103251640-0", "vmdk", "staging", "rhcos.vmdk")

	require.NoError(t, err)
	assert.Equal(t, "import-snap-abc", taskID)
}

func TestClient_ImportTaskStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		output       *awsec2.DescribeImportSnapshotTasksOutput
		apiErr       error
		wantStatus   string
		wantSnapshot string
		wantErr      bool
	}{
		{
			name: "completed task carries snapshot id",
			output: &awsec2.DescribeImportSnapshotTasksOutput{
				ImportSnapshotTasks: []types.ImportSnapshotTask{{
					SnapshotTaskDetail: &types.SnapshotTaskDetail{
						Status:     aws.String("completed"),
						SnapshotId: aws.String("snap-333"),
					},
				}},
			},
			wantStatus:   "completed",
			wantSnapshot: "snap-333",
		},
		{
			name: "active task has no snapshot yet",
			output: &awsec2.DescribeImportSnapshotTasksOutput{
				ImportSnapshotTasks: []types.ImportSnapshotTask{{
					SnapshotTaskDetail: &types.SnapshotTaskDetail{
						Status: aws.String("active"),
					},
				}},
			},
			wantStatus: "active",
		},
		{
			name:    "unknown task",
			output:  &awsec2.DescribeImportSnapshotTasksOutput{},
			wantErr: true,
		},
		{
			name:    "api error",
			apiErr:  errors.New("throttled"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			api := &fakeAPI{
				describeImportSnapshotTasks: func(in *awsec2.DescribeImportSnapshotTasksInput) (*awsec2.DescribeImportSnapshotTasksOutput, error) {
					assert.Equal(t, []string{"import-snap-abc"}, in.ImportTaskIds)
					return tt.output, tt.apiErr
				},
			}

			status, snapshotID, err := NewClientFromAPI(api).ImportTaskStatus(context.Background(), "import-snap-abc")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantSnapshot, snapshotID)
		})
	}
}

func TestClient_TagResource(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		createTags: func(in *awsec2.CreateTagsInput) (*awsec2.CreateTagsOutput, error) {
			assert.Equal(t, []string{"snap-333"}, in.Resources)
			require.Len(t, in.Tags, 1)
			assert.Equal(t, "rhcos_version", aws.ToString(in.Tags[0].Key))
			assert.Equal(t, "47.83.202103251640-0", aws.ToString(in.Tags[0].Value))
			return &awsec2.CreateTagsOutput{}, nil
		},
	}

	err := NewClientFromAPI(api).TagResource(context.Background(), "snap-333", "rhcos_version", "47.83.202103251640-0")
	assert.NoError(t, err)
}

func TestClient_RegisterImage(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		registerImage: func(in *awsec2.RegisterImageInput) (*awsec2.RegisterImageOutput, error) {
			assert.Equal(t, "rhcos-47.83.202103251640-0", aws.ToString(in.Name))
			assert.Equal(t, types.ArchitectureValuesX8664, in.Architecture)
			assert.Equal(t, "hvm", aws.ToString(in.VirtualizationType))
			assert.Equal(t, "simple", aws.ToString(in.SriovNetSupport))
			assert.True(t, aws.ToBool(in.EnaSupport))
			assert.Equal(t, "/dev/xvda", aws.ToString(in.RootDeviceName))

			require.Len(t, in.BlockDeviceMappings, 2)
			root := in.BlockDeviceMappings[0]
			assert.Equal(t, "/dev/xvda", aws.ToString(root.DeviceName))
			require.NotNil(t, root.Ebs)
			assert.Equal(t, "snap-333", aws.ToString(root.Ebs.SnapshotId))
			assert.True(t, aws.ToBool(root.Ebs.DeleteOnTermination))
			assert.Equal(t, types.VolumeTypeGp2, root.Ebs.VolumeType)

			ephemeral := in.BlockDeviceMappings[1]
			assert.Equal(t, "/dev/xvdb", aws.ToString(ephemeral.DeviceName))
			assert.Equal(t, "ephemeral0", aws.ToString(ephemeral.VirtualName))

			return &awsec2.RegisterImageOutput{ImageId: aws.String("ami-444")}, nil
		},
	}

	imageID, err := NewClientFromAPI(api).RegisterImage(context.Background(), RegisterImageParams{
		Name:                 "rhcos-47.83.202103251640-0",
		Description:          "OpenShift 4 47.83.202103251640-0",
		SnapshotID:           "snap-333",
		RootDeviceName:       "/dev/xvda",
		RootVolumeType:       "gp2",
		EphemeralDeviceName:  "/dev/xvdb",
		EphemeralVirtualName: "ephemeral0",
	})

	require.NoError(t, err)
	assert.Equal(t, "ami-444", imageID)
}

func TestClient_MakeImagePublic(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		modifyImageAttribute: func(in *awsec2.ModifyImageAttributeInput) (*awsec2.ModifyImageAttributeOutput, error) {
			assert.Equal(t, "ami-444", aws.ToString(in.ImageId))
			require.NotNil(t, in.LaunchPermission)
			require.Len(t, in.LaunchPermission.Add, 1)
			assert.Equal(t, types.PermissionGroupAll, in.LaunchPermission.Add[0].Group)
			return &awsec2.ModifyImageAttributeOutput{}, nil
		},
	}

	err := NewClientFromAPI(api).MakeImagePublic(context.Background(), "ami-444")
	assert.NoError(t, err)
}

func TestClient_FindImageByName(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		describeImages: func(in *awsec2.DescribeImagesInput) (*awsec2.DescribeImagesOutput, error) {
			require.Len(t, in.Filters, 1)
			assert.Equal(t, "name", aws.ToString(in.Filters[0].Name))
			assert.Equal(t, []string{"self"}, in.Owners)
			return &awsec2.DescribeImagesOutput{
				Images: []types.Image{{ImageId: aws.String("ami-444")}},
			}, nil
		},
	}

	id, found, err := NewClientFromAPI(api).FindImageByName(context.Background(), "rhcos-47.83.202103251640-0")

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "ami-444", id)
}
