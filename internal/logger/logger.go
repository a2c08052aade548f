// Package logger - структурированное логирование поверх zap.
// Логгер передается в компоненты явно, глобального состояния нет.
package logger

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger - интерфейс логгера, который получают все компоненты
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Sync() error
}

// Field - пара ключ-значение для записи лога
type Field = zap.Field

// Config - настройки логгера
type Config struct {
	Level       string
	Development bool
	OutputPaths []string
}

type zapLogger struct {
	logger *zap.Logger
}

// New - создает логгер по конфигурации
func New(cfg Config) (Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.Sampling = nil
	}
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	zapCfg.OutputPaths = []string{"stderr"}
	if len(cfg.OutputPaths) > 0 {
		zapCfg.OutputPaths = cfg.OutputPaths
	}

	z, err := zapCfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("не удалось собрать zap-логгер: %w", err)
	}
	return &zapLogger{logger: z}, nil
}

// FromZap - оборачивает готовый *zap.Logger (удобно для тестов с observer)
func FromZap(z *zap.Logger) Logger {
	return &zapLogger{logger: z}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.logger.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.logger.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.logger.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.logger.Error(msg, fields...) }

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{logger: l.logger.With(fields...)}
}

func (l *zapLogger) Sync() error {
	return l.logger.Sync()
}

// String - строковое поле
func String(key, val string) Field { return zap.String(key, val) }

// Strings - поле со списком строк
func Strings(key string, val []string) Field { return zap.Strings(key, val) }

// Int - целочисленное поле
func Int(key string, val int) Field { return zap.Int(key, val) }

// Float64 - дробное поле
func Float64(key string, val float64) Field { return zap.Float64(key, val) }

// Duration - поле длительности
func Duration(key string, val time.Duration) Field { return zap.Duration(key, val) }

// Error - поле ошибки с ключом "error"
func Error(err error) Field { return zap.Error(err) }

// Any - поле произвольного значения
func Any(key string, val any) Field { return zap.Any(key, val) }
