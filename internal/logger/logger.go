// Package logger builds the process zap logger and adapts it to the workflow
// engine's key/value logging interface.
package logger

import (
	"log"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger at the given level ("debug", "info", "warn",
// "error"); unknown levels fall back to info. It also becomes zap's global
// logger and the sink of the standard library log package.
func New(level string) *zap.Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)

	core := zapcore.NewCore(
		consoleEncoder,
		zapcore.AddSync(os.Stderr),
		ParseLevel(level),
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	zap.ReplaceGlobals(logger)
	log.SetOutput(zap.NewStdLog(logger).Writer())

	return logger
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(level string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// KV adapts a zap logger to Debug/Info/Warn/Error(msg, keysAndValues...).
type KV struct {
	s *zap.SugaredLogger
}

// NewKV wraps l; a nil logger discards everything.
func NewKV(l *zap.Logger) KV {
	if l == nil {
		l = zap.NewNop()
	}
	return KV{s: l.Sugar()}
}

func (k KV) Debug(msg string, args ...any) { k.s.Debugw(msg, args...) }
func (k KV) Info(msg string, args ...any)  { k.s.Infow(msg, args...) }
func (k KV) Warn(msg string, args ...any)  { k.s.Warnw(msg, args...) }
func (k KV) Error(msg string, args ...any) { k.s.Errorw(msg, args...) }
