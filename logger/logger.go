package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	// Mode is "production" for JSON output, anything else for console.
	Mode  string
	Level string
	// File enables a rotated JSON log file next to stdout.
	File string
}

// New builds the process logger. The returned level can be changed while
// the logger is in use.
func New(opts Options) (*zap.Logger, zap.AtomicLevel, error) {
	var zapConfig zap.Config
	if opts.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	if opts.Level != "" {
		lvl, err := ParseLevel(opts.Level)
		if err != nil {
			return nil, zap.AtomicLevel{}, err
		}
		zapConfig.Level.SetLevel(lvl)
	}
	zapConfig.OutputPaths = []string{"stdout"}

	if opts.File == "" {
		l, err := zapConfig.Build(zap.AddCaller())
		return l, zapConfig.Level, err
	}

	lumberJackLogger := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    64,
		MaxBackups: 7,
		MaxAge:     7,
		Compress:   false,
	}
	consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	if opts.Mode == "production" {
		consoleEncoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(lumberJackLogger),
			zapConfig.Level,
		),
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), zapConfig.Level),
	)
	return zap.New(core, zap.AddCaller()), zapConfig.Level, nil
}

func ParseLevel(s string) (zapcore.Level, error) {
	return zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
}
