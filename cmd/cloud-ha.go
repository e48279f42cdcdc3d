package cmd

import (
	"cloud-ha/pkg/zlog"
	"cloud-ha/setting"
	"fmt"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"os"
)

var cloudHaCmd = &cobra.Command{
	Use:   "cloud-ha",
	Short: "Health checks and route table failover for cloud high availability",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var (
	logEncoder string
	logLevel   string
	configPath string
)

func init() {
	// 命令行参数
	cloudHaCmd.PersistentFlags().StringVar(&logEncoder, "log-encoder", "console", "Output Encoder. One of: [console|json]")
	cloudHaCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log Level. One of: [debug|info|warn|error]")
	cloudHaCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a cloud-ha configuration (optional, CLOUDHA_* environment variables are also read)")

	// 添加子命令
	cloudHaCmd.AddCommand(checkCmd)
	cloudHaCmd.AddCommand(watchCmd)
	cloudHaCmd.AddCommand(lambdaCmd)
	cloudHaCmd.AddCommand(routeCmd)
}

// setup - 设置日志并加载配置, 返回注入到各组件的日志(由DEBUG控制)
func setup() (*zap.Logger, error) {
	zlog.NewZapLog(logLevel, logEncoder)
	if err := setting.LoadConfig(configPath); err != nil {
		return nil, errors.WithMessage(err, "example: cloud-ha check -c ./cloud-ha.yaml")
	}
	return zlog.NewVerbosityLogger(setting.Config.Debug, logEncoder), nil
}

// Execute - 命令解析
func Execute() {
	if err := cloudHaCmd.Execute(); err != nil {
		fmt.Println(err)
		zlog.Sync()
		os.Exit(1)
	}
	zlog.Sync()
}
