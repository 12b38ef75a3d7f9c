package util

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger.
// json - if true logs are in json format
func NewLogger(json bool, level string) *zap.Logger {
	econf := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zap.InfoLevel
	}

	var enc zapcore.Encoder
	if json {
		enc = zapcore.NewJSONEncoder(econf)
	} else {
		enc = zapcore.NewConsoleEncoder(econf)
	}
	return zap.New(zapcore.NewCore(enc, os.Stdout, lvl))
}
