package handler

import (
	"cloud-ha/pkg/hacfg"
	"cloud-ha/pkg/routing"
	"context"
	"encoding/json"
	"go.uber.org/zap"
	"net/http"
)

// Response - API Gateway代理格式的返回值
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// FatalError - 把错误信息包装成500返回值
func FatalError(errmsg string) Response {
	body, _ := json.Marshal(struct {
		ErrorMessage string `json:"errorMessage"`
	}{errmsg})
	return Response{
		StatusCode: http.StatusInternalServerError,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

// Event - 调用参数, 为空的字段使用Handler的默认值
type Event struct {
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	Host     string `json:"host"`
	Failover bool   `json:"failover"`
}

// Result - 成功时的返回内容
type Result struct {
	Failed    []string `json:"failed"`
	Failovers []string `json:"failovers,omitempty"`
}

type ConfigLoader interface {
	Load(ctx context.Context, bucket, key string) (*hacfg.Document, error)
}

type Evaluator interface {
	Evaluate(doc *hacfg.Document, host string) ([]string, error)
}

type Router interface {
	FailoverAll(ctx context.Context, actions []routing.Action) ([]string, error)
}

type Handler struct {
	Loader    ConfigLoader
	Evaluator Evaluator
	Router    Router // 为nil时不能执行切换
	Actions   func(device string) []routing.Action

	Bucket string
	Key    string
	Host   string

	Logger *zap.Logger
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func (h *Handler) fatal(msg string, err error) Response {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	h.logger().Error(msg)
	return FatalError(msg)
}

// Handle - 读取配置, 检查设备, 按需执行切换
func (h *Handler) Handle(ctx context.Context, event Event) (Response, error) {
	bucket, key, host := h.Bucket, h.Key, h.Host
	if event.Bucket != "" {
		bucket = event.Bucket
	}
	if event.Key != "" {
		key = event.Key
	}
	if event.Host != "" {
		host = event.Host
	}
	if bucket == "" || key == "" {
		return h.fatal("config bucket and key are required", nil), nil
	}

	doc, err := h.Loader.Load(ctx, bucket, key)
	if err != nil {
		return h.fatal("unable to load config", err), nil
	}
	failed, err := h.Evaluator.Evaluate(doc, host)
	if err != nil {
		return h.fatal("unable to check availability", err), nil
	}

	result := Result{Failed: failed}
	if event.Failover && len(failed) > 0 {
		if h.Router == nil || h.Actions == nil {
			return h.fatal("failover requested but no router configured", nil), nil
		}
		var actions []routing.Action
		for _, device := range failed {
			actions = append(actions, h.Actions(device)...)
		}
		applied, err := h.Router.FailoverAll(ctx, actions)
		if err != nil {
			return h.fatal("failover incomplete", err), nil
		}
		result.Failovers = applied
	}

	body, err := json.Marshal(result)
	if err != nil {
		return h.fatal("encode result", err), nil
	}
	return Response{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}
