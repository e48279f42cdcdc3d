package setting

import "cloud-ha/pkg/routing"

type config struct {
	Region         string     `mapstructure:"region"`         // AWS区域(默认使用环境配置)
	Endpoint       string     `mapstructure:"endpoint"`       // S3兼容存储地址, AWS S3留空
	Bucket         string     `mapstructure:"bucket"`         // 配置文件所在的bucket
	Key            string     `mapstructure:"key"`            // 配置文件的key
	Host           string     `mapstructure:"host"`           // 只检查该设备, 为空检查全部
	Debug          string     `mapstructure:"debug"`          // DEBUG环境变量, 检查日志级别
	ChecksInterval int        `mapstructure:"checksInterval"` // 单位s, watch检查间隔
	Prometheus     prometheus `mapstructure:"prometheus"`     // Prometheus
	Failovers      []failover `mapstructure:"failovers"`      // 设备故障时的切换动作
}

type prometheus struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

type failover struct {
	Name               string `mapstructure:"name"`
	Device             string `mapstructure:"device"`             // 触发切换的设备
	RouteTableID       string `mapstructure:"routeTableId"`       // 路由表(关联模式下为新的路由表)
	DestinationCIDR    string `mapstructure:"destinationCidr"`    // 路由模式: 目标网段
	NetworkInterfaceID string `mapstructure:"networkInterfaceId"` // 路由模式: 备用网卡
	SubnetID           string `mapstructure:"subnetId"`           // 关联模式: 子网
}

// Actions - 返回设备对应的切换动作, device为空返回全部
func (c *config) Actions(device string) []routing.Action {
	var actions []routing.Action
	for _, f := range c.Failovers {
		if device != "" && f.Device != device {
			continue
		}
		actions = append(actions, routing.Action{
			Name:               f.Name,
			Device:             f.Device,
			RouteTableID:       f.RouteTableID,
			DestinationCIDR:    f.DestinationCIDR,
			NetworkInterfaceID: f.NetworkInterfaceID,
			SubnetID:           f.SubnetID,
		})
	}
	return actions
}
