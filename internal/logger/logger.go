// Package logger 结构化日志，zap 输出到控制台并经 lumberjack 轮转写入文件
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ashwinyue/next-chat/internal/config"
)

// Logger 模块化日志
type Logger struct {
	zap *zap.Logger
}

// New 根据配置创建日志
func New(cfg config.LogConfig) *Logger {
	level := zap.InfoLevel
	if err := level.Set(cfg.Level); err != nil {
		level = zap.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)

	var consoleEncoder zapcore.Encoder
	if cfg.Production {
		consoleEncoder = jsonEncoder
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), level),
	}
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // 天
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator), level))
	}

	return &Logger{
		zap: zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)),
	}
}

// Nop 不输出任何内容的日志，用于测试
func Nop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// FromZap 包装已有的 zap.Logger
func FromZap(l *zap.Logger) *Logger {
	return &Logger{zap: l}
}

// Zap 返回底层 zap.Logger
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

func (l *Logger) Debug(module, message string, details map[string]any) {
	l.zap.Debug(message, fields(module, details)...)
}

func (l *Logger) Info(module, message string, details map[string]any) {
	l.zap.Info(message, fields(module, details)...)
}

func (l *Logger) Warn(module, message string, details map[string]any) {
	l.zap.Warn(message, fields(module, details)...)
}

func (l *Logger) Error(module, message string, details map[string]any) {
	l.zap.Error(message, fields(module, details)...)
}

// Sync 刷新缓冲
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

func fields(module string, details map[string]any) []zap.Field {
	fs := []zap.Field{zap.String("module", module)}
	if err, ok := details["error"].(error); ok {
		fs = append(fs, zap.Error(err))
		rest := make(map[string]any, len(details)-1)
		for k, v := range details {
			if k != "error" {
				rest[k] = v
			}
		}
		details = rest
	}
	if len(details) > 0 {
		fs = append(fs, zap.Any("details", details))
	}
	return fs
}
