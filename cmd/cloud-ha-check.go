package cmd

import (
	"cloud-ha/pkg/availability"
	"cloud-ha/pkg/hacfg"
	"cloud-ha/pkg/handler"
	"cloud-ha/pkg/network"
	"cloud-ha/pkg/routing"
	"cloud-ha/pkg/storage"
	"cloud-ha/pkg/zlog"
	"cloud-ha/setting"
	"context"
	"encoding/json"
	"fmt"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	checkHost     string
	checkFile     string
	checkBucket   string
	checkKey      string
	checkFailover bool
)

func init() {
	checkCmd.Flags().StringVar(&checkHost, "host", "", "Only check this device")
	checkCmd.Flags().StringVarP(&checkFile, "file", "f", "", "Read the device config from a local file instead of S3")
	checkCmd.Flags().StringVar(&checkBucket, "bucket", "", "S3 bucket of the device config")
	checkCmd.Flags().StringVar(&checkKey, "key", "", "S3 key of the device config")
	checkCmd.Flags().BoolVar(&checkFailover, "failover", false, "Run the configured failovers of the failed devices")
}

var checkCmd = &cobra.Command{
	Use:           "check",
	Short:         "Check the devices once and print the failed ones",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := setup()
		if err != nil {
			return err
		}
		if checkHost != "" {
			setting.Config.Host = checkHost
		}
		if checkBucket != "" {
			setting.Config.Bucket = checkBucket
		}
		if checkKey != "" {
			setting.Config.Key = checkKey
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		doc, err := loadDocument(ctx, logger)
		if err != nil {
			return err
		}

		evaluator := availability.New(network.NewChecker(logger, network.DefaultCheckTimeout), logger)
		failed, err := evaluator.Evaluate(doc, setting.Config.Host)
		if err != nil {
			return err
		}

		result := handler.Result{Failed: failed}
		if checkFailover && len(failed) > 0 {
			ec2Client, err := routing.NewEC2Client(ctx, setting.Config.Region)
			if err != nil {
				return err
			}
			var actions []routing.Action
			for _, device := range failed {
				actions = append(actions, setting.Config.Actions(device)...)
			}
			applied, err := routing.New(ec2Client, logger).FailoverAll(ctx, actions)
			result.Failovers = applied
			if err != nil {
				zlog.Error(err)
			}
		}

		out, err := json.Marshal(result)
		if err != nil {
			return errors.WithStack(err)
		}
		fmt.Println(string(out))
		if len(failed) > 0 {
			return errors.Errorf("%d device(s) failed: %v", len(failed), failed)
		}
		return nil
	},
}

func loadDocument(ctx context.Context, logger *zap.Logger) (*hacfg.Document, error) {
	if checkFile != "" {
		return storage.LoadFile(checkFile)
	}
	if err := setting.Config.ValidateSource(); err != nil {
		return nil, err
	}
	s3Client, err := storage.NewS3Client(ctx, setting.Config.Region, setting.Config.Endpoint)
	if err != nil {
		return nil, err
	}
	return storage.NewLoader(s3Client, logger).Load(ctx, setting.Config.Bucket, setting.Config.Key)
}
