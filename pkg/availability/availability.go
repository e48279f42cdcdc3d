package availability

import (
	"cloud-ha/pkg/hacfg"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	TestTCPPing = "tcp_ping"
	TestSSLPing = "ssl_ping"
)

var ErrNoConfig = errors.New("config not passed")

// Prober - 地址可达性检查
type Prober interface {
	TCPPing(ip string, port int) bool
	SSLPing(ip string, port int) bool
}

// Result - 一次地址检查的结果
type Result struct {
	Group     string
	Device    string
	Address   hacfg.Address
	Reachable bool
}

type Option func(*Evaluator)

// WithObserver - 每次执行检查后回调
func WithObserver(observer func(Result)) Option {
	return func(e *Evaluator) {
		e.observer = observer
	}
}

type Evaluator struct {
	prober   Prober
	logger   *zap.Logger
	observer func(Result)
}

func New(prober Prober, logger *zap.Logger, opts ...Option) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Evaluator{
		prober: prober,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate - 检查所有设备(host不为空时只检查该设备), 返回检查失败的设备名
func (e *Evaluator) Evaluate(doc *hacfg.Document, host string) ([]string, error) {
	if doc == nil {
		e.logger.Error("Config not passed!")
		return nil, ErrNoConfig
	}
	if doc.Groups == nil {
		e.logger.Error("Config does not have groups key!")
		return nil, hacfg.ErrMissingGroups
	}

	failedHosts := []string{}
	for _, group := range doc.Groups {
		for _, device := range group.Devices {
			if host != "" && device.Name != host {
				continue
			}
			if e.checkDevice(group.Name, device) {
				e.logger.Debug("ALL TESTS PASSED", zap.String("device", device.Name))
				continue
			}
			e.logger.Debug("One or more tests FAILED", zap.String("device", device.Name))
			failedHosts = append(failedHosts, device.Name)
		}
	}
	return failedHosts, nil
}

// checkDevice - 任意一个地址失败则设备失败, 不支持的检查类型跳过
func (e *Evaluator) checkDevice(group string, device hacfg.Device) bool {
	e.logger.Info("Checking device", zap.String("group", group), zap.String("device", device.Name))

	passed := true
	for _, address := range device.Addresses {
		port := int(address.Port)
		log := e.logger.With(
			zap.String("device", device.Name),
			zap.String("ip", address.IP),
			zap.Int("port", port),
			zap.String("test", address.Test),
		)
		log.Debug("Testing address", zap.Int("count", address.Count), zap.Int("failure", address.Failure))

		var reachable bool
		switch address.Test {
		case TestTCPPing:
			reachable = e.prober.TCPPing(address.IP, port)
		case TestSSLPing:
			reachable = e.prober.SSLPing(address.IP, port)
		default:
			log.Error("Unsupported test specified")
			continue
		}

		if reachable {
			log.Debug(address.Test + " SUCCEEDED")
		} else {
			log.Debug(address.Test + " FAILED")
			passed = false
		}
		if e.observer != nil {
			e.observer(Result{
				Group:     group,
				Device:    device.Name,
				Address:   address,
				Reachable: reachable,
			})
		}
	}
	return passed
}
