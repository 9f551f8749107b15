// Package logging builds the process logger.
package logging

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ragchat/internal/credential"
	"ragchat/internal/domain"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New creates a logger writing to stderr.
func New(level, format string) (*zap.Logger, error) {
	return NewWithSink(level, format, zapcore.Lock(os.Stderr))
}

// NewWithSink creates a logger writing to ws. level accepts the zap level names.
func NewWithSink(level, format string, ws zapcore.WriteSyncer) (*zap.Logger, error) {
	var lvl zapcore.Level
	if level == "" {
		lvl = zapcore.InfoLevel
	} else if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, domain.Configf("log level %q: %v", level, err)
	}
	if format != "" && format != FormatConsole && format != FormatJSON {
		return nil, domain.Configf("log format %q: want %s or %s", format, FormatConsole, FormatJSON)
	}
	return zap.New(zapcore.NewCore(newEncoder(format), ws, lvl)), nil
}

func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == FormatJSON {
		return zapcore.NewJSONEncoder(encoderCfg)
	}
	return zapcore.NewConsoleEncoder(encoderCfg)
}

type secretMarshaler struct {
	val credential.Secret
}

func (s secretMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddBool("set", !s.val.IsZero())
	return nil
}

// Secret logs whether a credential is present, never its value.
func Secret(key string, val credential.Secret) zap.Field {
	return zap.Object(key, secretMarshaler{val: val})
}

// Sync flushes l, ignoring the errors stdout and stderr return on Linux.
func Sync(l *zap.Logger) error {
	err := l.Sync()
	if err != nil && isStdoutSyncError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("sync logger: %w", err)
	}
	return nil
}

func isStdoutSyncError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EINVAL || errno == syscall.ENOTTY
	}
	return false
}
