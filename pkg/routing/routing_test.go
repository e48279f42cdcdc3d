package routing

import (
	"context"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"testing"
)

type fakeEC2 struct {
	pages         [][]types.RouteTable
	describeErr   error
	replaceErr    error
	associateErr  error
	routes        []ec2.ReplaceRouteInput
	associations  []ec2.ReplaceRouteTableAssociationInput
	describeCalls int
}

func (f *fakeEC2) DescribeRouteTables(ctx context.Context, params *ec2.DescribeRouteTablesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRouteTablesOutput, error) {
	f.describeCalls++
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	page := 0
	if params.NextToken != nil {
		page = int(aws.ToString(params.NextToken)[0] - '0')
	}
	out := &ec2.DescribeRouteTablesOutput{}
	if page < len(f.pages) {
		out.RouteTables = f.pages[page]
	}
	if page+1 < len(f.pages) {
		out.NextToken = aws.String(string(rune('0' + page + 1)))
	}
	return out, nil
}

func (f *fakeEC2) ReplaceRouteTableAssociation(ctx context.Context, params *ec2.ReplaceRouteTableAssociationInput, optFns ...func(*ec2.Options)) (*ec2.ReplaceRouteTableAssociationOutput, error) {
	if f.associateErr != nil {
		return nil, f.associateErr
	}
	f.associations = append(f.associations, *params)
	return &ec2.ReplaceRouteTableAssociationOutput{
		NewAssociationId: aws.String("rtbassoc-new"),
	}, nil
}

func (f *fakeEC2) ReplaceRoute(ctx context.Context, params *ec2.ReplaceRouteInput, optFns ...func(*ec2.Options)) (*ec2.ReplaceRouteOutput, error) {
	if f.replaceErr != nil {
		return nil, f.replaceErr
	}
	f.routes = append(f.routes, *params)
	return &ec2.ReplaceRouteOutput{}, nil
}

func routeTables() [][]types.RouteTable {
	return [][]types.RouteTable{
		{
			{
				RouteTableId: aws.String("rtb-main"),
				Associations: []types.RouteTableAssociation{
					{RouteTableAssociationId: aws.String("rtbassoc-main"), Main: aws.Bool(true)},
				},
			},
		},
		{
			{
				RouteTableId: aws.String("rtb-primary"),
				Associations: []types.RouteTableAssociation{
					{RouteTableAssociationId: aws.String("rtbassoc-aaa"), SubnetId: aws.String("subnet-aaa")},
					{RouteTableAssociationId: aws.String("rtbassoc-bbb"), SubnetId: aws.String("subnet-bbb")},
				},
			},
		},
	}
}

func TestRouter_LookupAssociation(t *testing.T) {
	ctx := context.Background()

	t.Run("found on second page", func(t *testing.T) {
		client := &fakeEC2{pages: routeTables()}
		assoc, err := New(client, zap.NewNop()).LookupAssociation(ctx, "subnet-bbb")
		require.NoError(t, err)
		assert.Equal(t, "rtbassoc-bbb", assoc)
		assert.Equal(t, 2, client.describeCalls)
	})

	t.Run("not found", func(t *testing.T) {
		client := &fakeEC2{pages: routeTables()}
		assoc, err := New(client, zap.NewNop()).LookupAssociation(ctx, "subnet-zzz")
		assert.Empty(t, assoc)
		assert.True(t, errors.Is(err, ErrAssociationNotFound))
	})

	t.Run("main association has no subnet", func(t *testing.T) {
		client := &fakeEC2{pages: routeTables()}
		_, err := New(client, zap.NewNop()).LookupAssociation(ctx, "")
		assert.True(t, errors.Is(err, ErrAssociationNotFound))
	})

	t.Run("api error", func(t *testing.T) {
		client := &fakeEC2{describeErr: &smithy.GenericAPIError{Code: "UnauthorizedOperation", Message: "denied"}}
		_, err := New(client, zap.NewNop()).LookupAssociation(ctx, "subnet-aaa")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrAssociationNotFound))
	})
}

func TestRouter_ReplaceAssociation(t *testing.T) {
	ctx := context.Background()

	client := &fakeEC2{}
	newID, err := New(client, zap.NewNop()).ReplaceAssociation(ctx, "rtbassoc-aaa", "rtb-standby")
	require.NoError(t, err)
	assert.Equal(t, "rtbassoc-new", newID)
	require.Len(t, client.associations, 1)
	assert.Equal(t, "rtbassoc-aaa", aws.ToString(client.associations[0].AssociationId))
	assert.Equal(t, "rtb-standby", aws.ToString(client.associations[0].RouteTableId))

	client = &fakeEC2{associateErr: &smithy.GenericAPIError{Code: "InvalidAssociationID.NotFound"}}
	_, err = New(client, zap.NewNop()).ReplaceAssociation(ctx, "rtbassoc-aaa", "rtb-standby")
	require.Error(t, err)
	var apiErr smithy.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "InvalidAssociationID.NotFound", apiErr.ErrorCode())
}

func TestRouter_ReplaceRoute(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		client := &fakeEC2{}
		err := New(client, zap.NewNop()).ReplaceRoute(ctx, "rtb-primary", "0.0.0.0/0", "eni-standby")
		require.NoError(t, err)
		require.Len(t, client.routes, 1)
		assert.Equal(t, "rtb-primary", aws.ToString(client.routes[0].RouteTableId))
		assert.Equal(t, "0.0.0.0/0", aws.ToString(client.routes[0].DestinationCidrBlock))
		assert.Equal(t, "eni-standby", aws.ToString(client.routes[0].NetworkInterfaceId))
	})

	t.Run("api error", func(t *testing.T) {
		client := &fakeEC2{replaceErr: &smithy.GenericAPIError{Code: "InvalidRoute.NotFound", Message: "no route"}}
		err := New(client, zap.NewNop()).ReplaceRoute(ctx, "rtb-primary", "10.9.0.0/16", "eni-standby")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rtb-primary")
		assert.Empty(t, client.routes)
	})
}

func TestRouter_Failover(t *testing.T) {
	ctx := context.Background()

	t.Run("route action", func(t *testing.T) {
		client := &fakeEC2{}
		err := New(client, zap.NewNop()).Failover(ctx, Action{
			Name:               "default-route",
			RouteTableID:       "rtb-primary",
			DestinationCIDR:    "0.0.0.0/0",
			NetworkInterfaceID: "eni-standby",
		})
		require.NoError(t, err)
		assert.Len(t, client.routes, 1)
		assert.Empty(t, client.associations)
	})

	t.Run("association action", func(t *testing.T) {
		client := &fakeEC2{pages: routeTables()}
		err := New(client, zap.NewNop()).Failover(ctx, Action{
			Name:         "private-subnet",
			SubnetID:     "subnet-aaa",
			RouteTableID: "rtb-standby",
		})
		require.NoError(t, err)
		require.Len(t, client.associations, 1)
		assert.Equal(t, "rtbassoc-aaa", aws.ToString(client.associations[0].AssociationId))
	})

	t.Run("association not found", func(t *testing.T) {
		client := &fakeEC2{pages: routeTables()}
		err := New(client, zap.NewNop()).Failover(ctx, Action{SubnetID: "subnet-zzz", RouteTableID: "rtb-standby"})
		assert.True(t, errors.Is(err, ErrAssociationNotFound))
		assert.Empty(t, client.associations)
	})
}

func TestRouter_FailoverAll(t *testing.T) {
	client := &fakeEC2{pages: routeTables()}
	applied, err := New(client, zap.NewNop()).FailoverAll(context.Background(), []Action{
		{Name: "missing-subnet", SubnetID: "subnet-zzz", RouteTableID: "rtb-standby"},
		{Name: "default-route", RouteTableID: "rtb-primary", DestinationCIDR: "0.0.0.0/0", NetworkInterfaceID: "eni-standby"},
		{Name: "private-subnet", SubnetID: "subnet-aaa", RouteTableID: "rtb-standby"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAssociationNotFound))
	assert.Contains(t, err.Error(), "failover missing-subnet")
	assert.Equal(t, []string{"default-route", "private-subnet"}, applied)
	assert.Len(t, client.routes, 1)
	assert.Len(t, client.associations, 1)
}
