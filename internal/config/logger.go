package config

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger строит логгер по LogConfig: debug - цветная консоль для
// локальной разработки, всё остальное - production JSON без stacktrace
// (ошибки провайдеров штатные, трейсы только шумят).
func (c LogConfig) NewLogger() (*zap.Logger, error) {
	level := c.zapLevel()

	var zcfg zap.Config
	if level == zapcore.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.TimeKey = "ts"
		zcfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
		zcfg.EncoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
		zcfg.DisableStacktrace = true
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Named("imgsearch"), nil
}

// zapLevel: пустой или непонятный уровень молча откатывается в info,
// уровни выше error (fatal, panic) сюда не пускаем
func (c LogConfig) zapLevel() zapcore.Level {
	s := strings.ToLower(strings.TrimSpace(c.Level))
	if s == "warning" {
		return zapcore.WarnLevel
	}

	level, err := zapcore.ParseLevel(s)
	if err != nil || level < zapcore.DebugLevel || level > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return level
}
