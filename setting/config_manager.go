package setting

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"strings"
)

const EnvPrefix = "CLOUDHA"

var Config config

// LoadConfig - 读取配置文件和环境变量, configPath为空时只使用默认值和环境变量
func LoadConfig(configPath string) error {
	Viper := viper.New()
	Viper.SetDefault("region", "")
	Viper.SetDefault("endpoint", "")
	Viper.SetDefault("bucket", "")
	Viper.SetDefault("key", "")
	Viper.SetDefault("host", "")
	Viper.SetDefault("debug", "")
	Viper.SetDefault("checksInterval", 30)
	Viper.SetDefault("prometheus.enabled", false)
	Viper.SetDefault("prometheus.address", "0.0.0.0:9110")

	// CLOUDHA_BUCKET, CLOUDHA_PROMETHEUS_ENABLED ...
	Viper.SetEnvPrefix(EnvPrefix)
	Viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Viper.AutomaticEnv()
	if err := Viper.BindEnv("debug", "DEBUG"); err != nil {
		return errors.WithStack(err)
	}

	if configPath != "" {
		Viper.SetConfigFile(configPath)
		Viper.SetConfigType("yaml")
		if err := Viper.ReadInConfig(); err != nil {
			return errors.WithStack(err)
		}
	}

	var loaded config
	if err := Viper.Unmarshal(&loaded); err != nil {
		return errors.WithStack(err)
	}
	if err := loaded.Validate(); err != nil {
		return errors.WithMessage(err, "invalid configuration")
	}
	Config = loaded
	return nil
}
