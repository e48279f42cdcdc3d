package watcher

import (
	"cloud-ha/pkg/availability"
	"cloud-ha/pkg/hacfg"
	"cloud-ha/pkg/routing"
	"cloud-ha/pkg/zlog"
	"context"
	"fmt"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"net"
	"net/http"
	"strconv"
	"time"
)

const Namespace = "cloud_ha"

type ConfigLoader interface {
	Load(ctx context.Context, bucket, key string) (*hacfg.Document, error)
}

type Router interface {
	FailoverAll(ctx context.Context, actions []routing.Action) ([]string, error)
}

type Config struct {
	Bucket   string
	Key      string
	Host     string
	Interval time.Duration
	Actions  func(device string) []routing.Action
}

type metrics struct {
	deviceFailed  *prometheus.GaugeVec
	checkAddress  *prometheus.GaugeVec
	failoverTotal *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		deviceFailed: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "device_failed",
			Help:      "Whether or not the device failed one of its tests. 1 if failed, 0 otherwise",
		}, []string{"group", "device"}),
		checkAddress: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "check_address",
			Help:      "Device address check. return 1 is success, 0 failure",
		}, []string{"device", "address", "test"}),
		failoverTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "failover_total",
			Help:      "Failover actions executed, by result",
		}, []string{"name", "device", "result"}),
	}
}

type Watcher struct {
	cfg       Config
	loader    ConfigLoader
	evaluator *availability.Evaluator
	router    Router
	metrics   *metrics

	failed    map[string]bool // 上一次检查失败的设备
	stop      chan bool
	completed chan bool
}

// New - router为nil时只检查不切换, reg为nil时不记录指标
func New(cfg Config, loader ConfigLoader, prober availability.Prober, router Router, logger *zap.Logger, reg prometheus.Registerer) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	w := &Watcher{
		cfg:     cfg,
		loader:  loader,
		router:  router,
		metrics: newMetrics(reg),
		failed:  map[string]bool{},
	}
	w.evaluator = availability.New(prober, logger, availability.WithObserver(w.observe))
	return w
}

func (w *Watcher) observe(r availability.Result) {
	address := net.JoinHostPort(r.Address.IP, strconv.Itoa(int(r.Address.Port)))
	var current float64
	if r.Reachable {
		current = 1
	}
	w.metrics.checkAddress.With(prometheus.Labels{
		"device":  r.Device,
		"address": address,
		"test":    r.Address.Test,
	}).Set(current)
}

// RunOnce - 读取配置并检查一次, 新失败的设备执行切换
func (w *Watcher) RunOnce(ctx context.Context) ([]string, error) {
	doc, err := w.loader.Load(ctx, w.cfg.Bucket, w.cfg.Key)
	if err != nil {
		return nil, err
	}
	failed, err := w.evaluator.Evaluate(doc, w.cfg.Host)
	if err != nil {
		return nil, err
	}

	current := make(map[string]bool, len(failed))
	for _, device := range failed {
		current[device] = true
	}
	// 已从配置中删除的设备不再导出
	w.metrics.deviceFailed.Reset()
	for _, group := range doc.Groups {
		for _, device := range group.Devices {
			if w.cfg.Host != "" && device.Name != w.cfg.Host {
				continue
			}
			var state float64
			if current[device.Name] {
				state = 1
			}
			w.metrics.deviceFailed.With(prometheus.Labels{
				"group":  group.Name,
				"device": device.Name,
			}).Set(state)
		}
	}

	var actions []routing.Action
	for _, device := range failed {
		if w.failed[device] {
			continue
		}
		zlog.Warn("Device became unavailable", zap.String("device", device))
		if w.cfg.Actions != nil {
			actions = append(actions, w.cfg.Actions(device)...)
		}
	}
	for device := range w.failed {
		if !current[device] {
			zlog.Info("Device is available again", zap.String("device", device))
		}
	}
	w.failed = current

	if w.router != nil && len(actions) > 0 {
		applied, err := w.router.FailoverAll(ctx, actions)
		w.countFailovers(actions, applied)
		if err != nil {
			return failed, err
		}
	}
	return failed, nil
}

func (w *Watcher) countFailovers(actions []routing.Action, applied []string) {
	done := make(map[string]bool, len(applied))
	for _, name := range applied {
		done[name] = true
	}
	for _, action := range actions {
		result := "failure"
		if done[action.Name] {
			result = "success"
		}
		w.metrics.failoverTotal.With(prometheus.Labels{
			"name":   action.Name,
			"device": action.Device,
			"result": result,
		}).Inc()
	}
}

// Start - 按间隔定时检查
func (w *Watcher) Start(ctx context.Context) {
	zlog.Info("Started", zap.Duration("interval", w.cfg.Interval))
	ticker := time.NewTicker(w.cfg.Interval)
	stop, completed := make(chan bool, 1), make(chan bool, 1)
	w.stop, w.completed = stop, completed

	check := func() {
		failed, err := w.RunOnce(ctx)
		if err != nil {
			zlog.Error(err)
			return
		}
		zlog.Info("Check completed", zap.Strings("failed", failed))
	}

	go func() {
		defer ticker.Stop()
		check()
		for {
			select {
			case <-ticker.C:
				check()
			case <-stop:
				close(completed)
				return
			}
		}
	}()
}

func (w *Watcher) Stop() {
	if w.stop == nil {
		return
	}
	// 关闭停止通道, 等待检查循环退出
	close(w.stop)
	<-w.completed
	w.stop = nil

	zlog.Info("Stopped")
}

// ServeMetrics - 开启Prometheus, 监听失败时直接返回错误, 返回的server用于关闭
func ServeMetrics(address string, gatherer prometheus.Gatherer) (*http.Server, error) {
	tcpAddress, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	listener, err := net.Listen("tcp", tcpAddress.String())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              listener.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	zlog.Info(fmt.Sprintf("Enabled prometheus at: http://%s/metrics", listener.Addr().String()))
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			zlog.Error(errors.Wrap(err, "prometheus server stopped"))
		}
	}()
	return server, nil
}
