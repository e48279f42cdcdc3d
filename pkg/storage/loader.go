package storage

import (
	"cloud-ha/pkg/hacfg"
	"context"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"io"
	"os"
)

// ObjectGetter - *s3.Client中用到的方法
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client - endpoint不为空时使用S3兼容存储(path-style)
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

type Loader struct {
	client ObjectGetter
	logger *zap.Logger
}

func NewLoader(client ObjectGetter, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{client: client, logger: logger}
}

// Load - 从S3读取并解析配置文件
func (l *Loader) Load(ctx context.Context, bucket, key string) (*hacfg.Document, error) {
	l.logger.Debug("Fetching config", zap.String("bucket", bucket), zap.String("key", key))
	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get object %s/%s", bucket, key)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read object %s/%s", bucket, key)
	}
	doc, err := hacfg.Parse(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "parse object %s/%s", bucket, key)
	}
	return doc, nil
}

// LoadFile - 从本地文件读取配置, 用于上传前的检查
func LoadFile(path string) (*hacfg.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	doc, err := hacfg.Parse(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "parse %s", path)
	}
	return doc, nil
}
