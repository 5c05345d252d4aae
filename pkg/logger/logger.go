package logger

import (
	"os"
	"time"
	"tradeflow/internal/config"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 基于zap的统一日志封装，支持文件滚动和控制台双输出

var (
	l *zap.Logger
	s *zap.SugaredLogger
)

// InitLogger 根据配置初始化全局日志实例，必须在服务启动早期调用
func InitLogger(cfg *config.LogConfig, appName string) {
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeFormat)
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	level := zapcore.InfoLevel
	if err := level.Set(cfg.Level); err != nil {
		level = zapcore.InfoLevel
	}

	var cores []zapcore.Core

	if cfg.FileName != "" {
		// lumberjack 负责日志文件的切割和归档
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FileName,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  cfg.LocalTime,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, level))
	}

	if cfg.Console || cfg.FileName == "" {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stdout), level))
	}

	l = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).Named(appName)
	s = l.Sugar()
}

// Pair 构造结构化日志字段
func Pair(key string, value interface{}) zap.Field {
	return zap.Any(key, value)
}

func base() *zap.Logger {
	if l == nil {
		// 未初始化时退化为控制台输出，避免丢日志
		InitLogger(&config.LogConfig{Console: true, Level: "debug"}, "tradeflow")
	}
	return l
}

func sugar() *zap.SugaredLogger {
	base()
	return s
}

func Info(msg string, fields ...zap.Field)  { base().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { base().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { base().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { base().Fatal(msg, fields...) }

func Infof(format string, args ...interface{})  { sugar().Infof(format, args...) }
func Debugf(format string, args ...interface{}) { sugar().Debugf(format, args...) }
func Warnf(format string, args ...interface{})  { sugar().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { sugar().Errorf(format, args...) }
func Fatalf(format string, args ...interface{}) { sugar().Fatalf(format, args...) }
