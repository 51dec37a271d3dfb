package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New создаёт логгер уровня level; component попадает в каждое сообщение.
// debug - консольный вывод для разработки, остальное - JSON в stdout.
func New(level, component string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	var config zap.Config
	if zapLevel == zapcore.DebugLevel {
		config = developmentConfig()
	} else {
		config = productionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	if component != "" {
		config.InitialFields = map[string]interface{}{"component": component}
	}

	return config.Build()
}

func productionConfig() zap.Config {
	encoder := zap.NewProductionEncoderConfig()
	encoder.TimeKey = "ts"
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder.EncodeDuration = zapcore.StringDurationEncoder

	return zap.Config{
		Encoding:         "json",
		EncoderConfig:    encoder,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		// тик и пул пишут много одинаковых сообщений
		Sampling: &zap.SamplingConfig{Initial: 100, Thereafter: 100},
	}
}

func developmentConfig() zap.Config {
	encoder := zap.NewDevelopmentEncoderConfig()
	encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoder.EncodeDuration = zapcore.StringDurationEncoder

	return zap.Config{
		Development:      true,
		Encoding:         "console",
		EncoderConfig:    encoder,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
}
