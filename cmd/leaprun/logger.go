package main

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wippyai/wasm-host/config"
)

// newLogger writes to console (unless it is nil) and, when cfg.File is set,
// to a rotated file. The returned func flushes and closes the file.
func newLogger(cfg config.Log, console io.Writer) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if cfg.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		consoleCfg := encCfg
		consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(consoleCfg)
	}

	var cores []zapcore.Core
	if console != nil {
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(console)), level))
	}

	var rw *lumberjack.Logger
	if cfg.File != "" {
		rw = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB, // megabytes
			MaxBackups: cfg.MaxBackups,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rw), level))
	}

	if len(cores) == 0 {
		return zap.NewNop(), func() {}, nil
	}

	l := zap.New(zapcore.NewTee(cores...))
	return l, func() {
		_ = l.Sync()
		if rw != nil {
			_ = rw.Close()
		}
	}, nil
}

// stderr is the console the logger writes to outside interactive mode.
var stderr io.Writer = os.Stderr
