package routing

import (
	"context"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var ErrAssociationNotFound = errors.New("route table association not found")

// EC2API - *ec2.Client中用到的方法
type EC2API interface {
	ec2.DescribeRouteTablesAPIClient
	ReplaceRouteTableAssociation(ctx context.Context, params *ec2.ReplaceRouteTableAssociationInput, optFns ...func(*ec2.Options)) (*ec2.ReplaceRouteTableAssociationOutput, error)
	ReplaceRoute(ctx context.Context, params *ec2.ReplaceRouteInput, optFns ...func(*ec2.Options)) (*ec2.ReplaceRouteOutput, error)
}

func NewEC2Client(ctx context.Context, region string) (*ec2.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return ec2.NewFromConfig(cfg), nil
}

// Action - 设备故障时执行的切换动作
// SubnetID不为空: 把子网重新关联到RouteTableID
// 否则: 把RouteTableID中DestinationCIDR的目标改为NetworkInterfaceID
type Action struct {
	Name               string
	Device             string
	RouteTableID       string
	DestinationCIDR    string
	NetworkInterfaceID string
	SubnetID           string
}

func (a Action) IsAssociation() bool {
	return a.SubnetID != ""
}

type Router struct {
	client EC2API
	logger *zap.Logger
}

func New(client EC2API, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{client: client, logger: logger}
}

// LookupAssociation - 查找子网的路由表关联ID
func (r *Router) LookupAssociation(ctx context.Context, subnet string) (string, error) {
	paginator := ec2.NewDescribeRouteTablesPaginator(r.client, &ec2.DescribeRouteTablesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.logAPIError("Unable to describe route tables", err)
			return "", errors.Wrap(err, "describe route tables")
		}
		for _, table := range page.RouteTables {
			for _, assoc := range table.Associations {
				if assoc.SubnetId != nil && *assoc.SubnetId == subnet {
					return aws.ToString(assoc.RouteTableAssociationId), nil
				}
			}
		}
	}
	return "", errors.Wrapf(ErrAssociationNotFound, "subnet %s", subnet)
}

// ReplaceAssociation - 修改路由表关联, 返回新的关联ID
func (r *Router) ReplaceAssociation(ctx context.Context, oldAssociationID, routeTableID string) (string, error) {
	out, err := r.client.ReplaceRouteTableAssociation(ctx, &ec2.ReplaceRouteTableAssociationInput{
		AssociationId: aws.String(oldAssociationID),
		RouteTableId:  aws.String(routeTableID),
	})
	if err != nil {
		r.logAPIError("Unable to replace route table association", err,
			zap.String("association", oldAssociationID),
			zap.String("rtb", routeTableID),
		)
		return "", errors.Wrapf(err, "replace association %s with rtb %s", oldAssociationID, routeTableID)
	}
	newID := aws.ToString(out.NewAssociationId)
	r.logger.Info("Replaced route table association",
		zap.String("association", oldAssociationID),
		zap.String("new_association", newID),
		zap.String("rtb", routeTableID),
	)
	return newID, nil
}

// ReplaceRoute - 修改路由的目标网卡
func (r *Router) ReplaceRoute(ctx context.Context, routeTableID, destinationCIDR, interfaceID string) error {
	_, err := r.client.ReplaceRoute(ctx, &ec2.ReplaceRouteInput{
		RouteTableId:         aws.String(routeTableID),
		DestinationCidrBlock: aws.String(destinationCIDR),
		NetworkInterfaceId:   aws.String(interfaceID),
	})
	if err != nil {
		r.logAPIError("Unable to replace route", err,
			zap.String("destination", destinationCIDR),
			zap.String("rtb", routeTableID),
			zap.String("eni", interfaceID),
		)
		return errors.Wrapf(err, "replace route %s on rtb %s to eni %s", destinationCIDR, routeTableID, interfaceID)
	}
	r.logger.Info("Replaced route",
		zap.String("destination", destinationCIDR),
		zap.String("rtb", routeTableID),
		zap.String("eni", interfaceID),
	)
	return nil
}

// Failover - 执行一个切换动作
func (r *Router) Failover(ctx context.Context, action Action) error {
	if action.IsAssociation() {
		assoc, err := r.LookupAssociation(ctx, action.SubnetID)
		if err != nil {
			return err
		}
		_, err = r.ReplaceAssociation(ctx, assoc, action.RouteTableID)
		return err
	}
	return r.ReplaceRoute(ctx, action.RouteTableID, action.DestinationCIDR, action.NetworkInterfaceID)
}

// FailoverAll - 依次执行所有动作, 某个动作失败时继续执行其余动作
func (r *Router) FailoverAll(ctx context.Context, actions []Action) ([]string, error) {
	var (
		applied []string
		errs    error
	)
	for _, action := range actions {
		r.logger.Info("Failover", zap.String("name", action.Name), zap.String("device", action.Device))
		if err := r.Failover(ctx, action); err != nil {
			errs = multierr.Append(errs, errors.WithMessagef(err, "failover %s", action.Name))
			continue
		}
		applied = append(applied, action.Name)
	}
	return applied, errs
}

func (r *Router) logAPIError(msg string, err error, fields ...zap.Field) {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		fields = append(fields,
			zap.String("code", apiErr.ErrorCode()),
			zap.String("reason", apiErr.ErrorMessage()),
		)
	} else {
		fields = append(fields, zap.Error(err))
	}
	r.logger.Error(msg, fields...)
}
