package cmd

import (
	"cloud-ha/pkg/routing"
	"cloud-ha/setting"
	"context"
	"fmt"
	"github.com/spf13/cobra"
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Route table operations used by the failover",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	routeCmd.AddCommand(routeLookupCmd)
	routeCmd.AddCommand(routeAssociateCmd)
	routeCmd.AddCommand(routeReplaceCmd)
}

func newRouter(cmd *cobra.Command) (context.Context, *routing.Router, error) {
	logger, err := setup()
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := routing.NewEC2Client(ctx, setting.Config.Region)
	if err != nil {
		return nil, nil, err
	}
	return ctx, routing.New(client, logger), nil
}

var routeLookupCmd = &cobra.Command{
	Use:           "lookup <subnet-id>",
	Short:         "Print the route table association of a subnet",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, router, err := newRouter(cmd)
		if err != nil {
			return err
		}
		assoc, err := router.LookupAssociation(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(assoc)
		return nil
	},
}

var routeAssociateCmd = &cobra.Command{
	Use:           "associate <association-id> <route-table-id>",
	Short:         "Replace a route table association and print the new association",
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, router, err := newRouter(cmd)
		if err != nil {
			return err
		}
		assoc, err := router.ReplaceAssociation(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(assoc)
		return nil
	},
}

var routeReplaceCmd = &cobra.Command{
	Use:           "replace <route-table-id> <destination-cidr> <network-interface-id>",
	Short:         "Point a route at another network interface",
	Args:          cobra.ExactArgs(3),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, router, err := newRouter(cmd)
		if err != nil {
			return err
		}
		return router.ReplaceRoute(ctx, args[0], args[1], args[2])
	},
}
