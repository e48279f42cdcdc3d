package setting

import (
	"cloud-ha/pkg/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `
region: eu-west-1
bucket: ha-config
key: cloud-ha.json
checksInterval: 10
prometheus:
  enabled: true
  address: 127.0.0.1:9110
failovers:
  - name: default-route
    device: fw-a
    routeTableId: rtb-0a1b2c
    destinationCidr: 0.0.0.0/0
    networkInterfaceId: eni-0f0f0f
  - name: private-subnet
    device: fw-a
    routeTableId: rtb-0d0d0d
    subnetId: subnet-0123ab
  - name: db-route
    device: pg-1
    routeTableId: rtb-0a1b2c
    destinationCidr: 10.8.0.0/16
    networkInterfaceId: eni-0e0e0e
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cloud-ha.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("DEBUG", "10")
	t.Setenv("CLOUDHA_HOST", "fw-a")

	require.NoError(t, LoadConfig(writeConfig(t, sampleConfig)))

	assert.Equal(t, "eu-west-1", Config.Region)
	assert.Equal(t, "ha-config", Config.Bucket)
	assert.Equal(t, "cloud-ha.json", Config.Key)
	assert.Equal(t, "fw-a", Config.Host)
	assert.Equal(t, "10", Config.Debug)
	assert.Equal(t, 10, Config.ChecksInterval)
	assert.True(t, Config.Prometheus.Enabled)
	assert.Len(t, Config.Failovers, 3)
	assert.NoError(t, Config.ValidateSource())

	assert.Equal(t, []routing.Action{
		{Name: "default-route", Device: "fw-a", RouteTableID: "rtb-0a1b2c", DestinationCIDR: "0.0.0.0/0", NetworkInterfaceID: "eni-0f0f0f"},
		{Name: "private-subnet", Device: "fw-a", RouteTableID: "rtb-0d0d0d", SubnetID: "subnet-0123ab"},
	}, Config.Actions("fw-a"))
	assert.Len(t, Config.Actions(""), 3)
	assert.Empty(t, Config.Actions("unknown"))
}

func TestLoadConfig_EnvOnly(t *testing.T) {
	t.Setenv("CLOUDHA_BUCKET", "env-bucket")
	t.Setenv("CLOUDHA_KEY", "env.json")

	require.NoError(t, LoadConfig(""))
	assert.Equal(t, "env-bucket", Config.Bucket)
	assert.Equal(t, "env.json", Config.Key)
	assert.Equal(t, 30, Config.ChecksInterval)
	assert.False(t, Config.Prometheus.Enabled)
	assert.Empty(t, Config.Failovers)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"interval", "checksInterval: -5\n"},
		{"prometheus address", "prometheus:\n  enabled: true\n  address: nope\n"},
		{"route table id", "failovers:\n  - name: a\n    device: d\n    routeTableId: table\n    destinationCidr: 0.0.0.0/0\n    networkInterfaceId: eni-01\n"},
		{"cidr", "failovers:\n  - name: a\n    device: d\n    routeTableId: rtb-01\n    destinationCidr: 10.0.0.0\n    networkInterfaceId: eni-01\n"},
		{"missing interface", "failovers:\n  - name: a\n    device: d\n    routeTableId: rtb-01\n    destinationCidr: 10.0.0.0/8\n"},
		{"mixed modes", "failovers:\n  - name: a\n    device: d\n    routeTableId: rtb-01\n    subnetId: subnet-01\n    networkInterfaceId: eni-01\n"},
		{"missing device", "failovers:\n  - name: a\n    routeTableId: rtb-01\n    subnetId: subnet-01\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestValidateSource(t *testing.T) {
	c := config{ChecksInterval: 1}
	assert.Error(t, c.ValidateSource())
	c.Bucket = "b"
	assert.Error(t, c.ValidateSource())
	c.Key = "k"
	assert.NoError(t, c.ValidateSource())
}
