package cmd

import (
	"cloud-ha/pkg/availability"
	"cloud-ha/pkg/handler"
	"cloud-ha/pkg/network"
	"cloud-ha/pkg/routing"
	"cloud-ha/pkg/storage"
	"cloud-ha/pkg/zlog"
	"cloud-ha/setting"
	"context"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Run as an AWS Lambda function handler",
	Run: func(cmd *cobra.Command, args []string) {
		logger, err := setup()
		if err != nil {
			zlog.Error(err)
			return
		}

		ctx := context.Background()
		s3Client, err := storage.NewS3Client(ctx, setting.Config.Region, setting.Config.Endpoint)
		if err != nil {
			zlog.Error(err)
			return
		}
		ec2Client, err := routing.NewEC2Client(ctx, setting.Config.Region)
		if err != nil {
			zlog.Error(err)
			return
		}

		h := &handler.Handler{
			Loader:    storage.NewLoader(s3Client, logger),
			Evaluator: availability.New(network.NewChecker(logger, network.DefaultCheckTimeout), logger),
			Router:    routing.New(ec2Client, logger),
			Actions:   setting.Config.Actions,
			Bucket:    setting.Config.Bucket,
			Key:       setting.Config.Key,
			Host:      setting.Config.Host,
			Logger:    logger,
		}
		lambda.Start(h.Handle)
	},
}
