package zlog

import (
	"fmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	logger    = zap.NewNop()
	errLogger = zap.NewNop()
)

// DEBUG环境变量的级别
const (
	VerbosityError = 0
	VerbosityInfo  = 1
	VerbosityTrace = 10
)

// ParseLevel - 接受一个字符串，返回zapcore.Level常量
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug", "trace":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.DebugLevel
	}
}

// ParseVerbosity - 解析DEBUG的值, 为空或者不是整数时返回false(不输出日志)
func ParseVerbosity(debug string) (zapcore.Level, bool) {
	debug = strings.TrimSpace(debug)
	if debug == "" {
		return zapcore.InvalidLevel, false
	}
	verbosity, err := strconv.Atoi(debug)
	if err != nil || verbosity < VerbosityError {
		return zapcore.InvalidLevel, false
	}
	switch {
	case verbosity >= VerbosityTrace:
		return zapcore.DebugLevel, true
	case verbosity >= VerbosityInfo:
		return zapcore.InfoLevel, true
	default:
		return zapcore.ErrorLevel, true
	}
}

func newEncoder(encoder string) zapcore.Encoder {
	zapConfig := zapcore.EncoderConfig{
		TimeKey:       "datetime",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "message",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding, // 行结束符\n
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime: func(time time.Time, encoder zapcore.PrimitiveArrayEncoder) {
			encoder.AppendString(time.Format("2006-01-02 15:04:05"))
		},
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if encoder == "json" {
		return zapcore.NewJSONEncoder(zapConfig)
	}
	return zapcore.NewConsoleEncoder(zapConfig)
}

func NewZapLog(level, encoder string) {
	core := zapcore.NewCore(newEncoder(encoder), zapcore.AddSync(os.Stdout), ParseLevel(level)) // 日志输出级别

	errLogger = zap.New(core,
		zap.AddCaller(),                       // 打印文件名和行号
		zap.AddCallerSkip(1),                  // 封装了一层日志方法
		zap.AddStacktrace(zapcore.ErrorLevel), // 添加错误信息堆栈的级别
	)

	logger = zap.New(core,
		zap.AddCaller(),      // 打印文件名和行号
		zap.AddCallerSkip(1), // 封装了一层日志方法
		zap.AddStacktrace(zapcore.PanicLevel),
	)
}

// NewVerbosityLogger - 根据DEBUG的值创建注入到各组件的日志, 未设置DEBUG时不输出
func NewVerbosityLogger(debug, encoder string) *zap.Logger {
	level, ok := ParseVerbosity(debug)
	if !ok {
		return zap.NewNop()
	}
	core := zapcore.NewCore(newEncoder(encoder), zapcore.AddSync(os.Stdout), level)
	return zap.New(core, zap.AddCaller())
}

func Debug(msg string, fields ...zap.Field) {
	logger.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	logger.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	logger.Warn(msg, fields...)
}

type withStack interface {
	Format(s fmt.State, verb rune)
}

func Error(err error, fields ...zap.Field) {
	// 接口断言
	if _, ok := err.(withStack); ok {
		logger.Error(fmt.Sprintf("%+v", err), fields...)
		return
	}
	errLogger.Error(err.Error(), fields...)
}

func Sync() {
	_ = errLogger.Sync()
	_ = logger.Sync()
}
