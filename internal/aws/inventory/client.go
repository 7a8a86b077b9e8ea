package inventory

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// EC2API is the subset of the EC2 client we use.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *awsec2.DescribeInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeInstancesOutput, error)
	DescribeVolumes(ctx context.Context, params *awsec2.DescribeVolumesInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeVolumesOutput, error)
}

// Client wraps EC2 as the engine's read-only resource inventory.
type Client struct {
	api EC2API
}

// NewClient creates an inventory client from an AWS config.
func NewClient(cfg aws.Config) *Client {
	return &Client{api: awsec2.NewFromConfig(cfg)}
}

// NewClientWithAPI creates a client with a custom API implementation (for testing).
func NewClientWithAPI(api EC2API) *Client {
	return &Client{api: api}
}

// ListResources returns every VM and disk in the account, in that
// order. Both listings follow pagination to exhaustion.
func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	vms, err := c.listInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("DescribeInstances: %w", err)
	}
	disks, err := c.listVolumes(ctx)
	if err != nil {
		return nil, fmt.Errorf("DescribeVolumes: %w", err)
	}
	return append(vms, disks...), nil
}

// GetPowerState returns the coarse power state of one VM.
func (c *Client) GetPowerState(ctx context.Context, resourceID string) (PowerState, error) {
	out, err := c.api.DescribeInstances(ctx, &awsec2.DescribeInstancesInput{
		InstanceIds: []string{resourceID},
	})
	if err != nil {
		return PowerUnknown, fmt.Errorf("DescribeInstances: %w", err)
	}
	for _, reservation := range out.Reservations {
		for _, inst := range reservation.Instances {
			if aws.ToString(inst.InstanceId) == resourceID {
				return mapPowerState(inst.State), nil
			}
		}
	}
	return PowerUnknown, fmt.Errorf("instance %s not found", resourceID)
}

func (c *Client) listInstances(ctx context.Context) ([]Resource, error) {
	var resources []Resource
	var nextToken *string
	for {
		out, err := c.api.DescribeInstances(ctx, &awsec2.DescribeInstancesInput{
			NextToken: nextToken,
		})
		if err != nil {
			return nil, err
		}

		for _, reservation := range out.Reservations {
			for _, inst := range reservation.Instances {
				tags := make(map[string]string, len(inst.Tags))
				for _, tag := range inst.Tags {
					tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
				}

				location := ""
				if inst.Placement != nil {
					location = aws.ToString(inst.Placement.AvailabilityZone)
				}

				resources = append(resources, Resource{
					ID:           aws.ToString(inst.InstanceId),
					Name:         tags["Name"],
					Kind:         KindVM,
					InstanceType: string(inst.InstanceType),
					State:        stateName(inst.State),
					Location:     location,
					Tags:         tags,
				})
			}
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return resources, nil
}

func (c *Client) listVolumes(ctx context.Context) ([]Resource, error) {
	var resources []Resource
	var nextToken *string
	for {
		out, err := c.api.DescribeVolumes(ctx, &awsec2.DescribeVolumesInput{
			NextToken: nextToken,
		})
		if err != nil {
			return nil, err
		}

		for _, vol := range out.Volumes {
			tags := make(map[string]string, len(vol.Tags))
			for _, tag := range vol.Tags {
				tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
			}

			attachedTo := ""
			for _, att := range vol.Attachments {
				if att.State == types.VolumeAttachmentStateAttached {
					attachedTo = aws.ToString(att.InstanceId)
					break
				}
			}

			resources = append(resources, Resource{
				ID:         aws.ToString(vol.VolumeId),
				Name:       tags["Name"],
				Kind:       KindDisk,
				State:      string(vol.State),
				Location:   aws.ToString(vol.AvailabilityZone),
				Tags:       tags,
				SizeGB:     aws.ToInt32(vol.Size),
				AttachedTo: attachedTo,
			})
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return resources, nil
}

func stateName(st *types.InstanceState) string {
	if st == nil {
		return ""
	}
	return string(st.Name)
}

func mapPowerState(st *types.InstanceState) PowerState {
	if st == nil {
		return PowerUnknown
	}
	switch st.Name {
	case types.InstanceStateNameRunning, types.InstanceStateNamePending:
		return PowerRunning
	case types.InstanceStateNameStopped, types.InstanceStateNameStopping:
		return PowerStopped
	case types.InstanceStateNameTerminated, types.InstanceStateNameShuttingDown:
		return PowerDeallocated
	default:
		return PowerUnknown
	}
}
