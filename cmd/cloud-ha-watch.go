package cmd

import (
	"cloud-ha/pkg/network"
	"cloud-ha/pkg/routing"
	"cloud-ha/pkg/storage"
	"cloud-ha/pkg/zlog"
	"cloud-ha/setting"
	"cloud-ha/watcher"
	"context"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var watchDryRun bool

func init() {
	watchCmd.Flags().BoolVar(&watchDryRun, "dry-run", false, "Only check the devices, never change routes")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Check the devices periodically and fail over when a device goes down",
	Run: func(cmd *cobra.Command, args []string) {
		// 设置日志级别并加载配置文件
		logger, err := setup()
		if err != nil {
			zlog.Error(err)
			return
		}
		if err := setting.Config.ValidateSource(); err != nil {
			zlog.Error(err)
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s3Client, err := storage.NewS3Client(ctx, setting.Config.Region, setting.Config.Endpoint)
		if err != nil {
			zlog.Error(err)
			return
		}
		var router watcher.Router
		if !watchDryRun {
			ec2Client, err := routing.NewEC2Client(ctx, setting.Config.Region)
			if err != nil {
				zlog.Error(err)
				return
			}
			router = routing.New(ec2Client, logger)
		}

		// 开启Prometheus
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		if setting.Config.Prometheus.Enabled {
			server, err := watcher.ServeMetrics(setting.Config.Prometheus.Address, registry)
			if err != nil {
				zlog.Error(err)
				return
			}
			defer server.Close()
		}

		w := watcher.New(watcher.Config{
			Bucket:   setting.Config.Bucket,
			Key:      setting.Config.Key,
			Host:     setting.Config.Host,
			Interval: time.Second * time.Duration(setting.Config.ChecksInterval),
			Actions:  setting.Config.Actions,
		},
			storage.NewLoader(s3Client, logger),
			network.NewChecker(logger, network.DefaultCheckTimeout),
			router,
			logger,
			registry,
		)
		w.Start(ctx)
		zlog.Info("Watching devices")

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		w.Stop()
	},
}
