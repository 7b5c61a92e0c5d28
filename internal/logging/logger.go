// Package logging provides zap logger helpers.
//
// The gateway logs every event to two sinks carrying the same structured
// representation: an append-only log file (one JSON object per line) and
// the process's stdout stream.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger that tees every event to filePath and stdout.
// When development is true the stdout sink uses a human-readable console
// encoder; the file sink is always JSON.
func New(development bool, filePath string) (*zap.Logger, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.FunctionKey = "func"

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(f),
		zapcore.DebugLevel,
	)

	var streamEnc zapcore.Encoder
	if development {
		devCfg := zap.NewDevelopmentEncoderConfig()
		devCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		streamEnc = zapcore.NewConsoleEncoder(devCfg)
	} else {
		streamEnc = zapcore.NewJSONEncoder(encCfg)
	}
	streamCore := zapcore.NewCore(streamEnc, zapcore.Lock(os.Stdout), zapcore.DebugLevel)

	logger := zap.New(
		zapcore.NewTee(fileCore, streamCore),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	return logger, nil
}
