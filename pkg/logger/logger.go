// Package logger は zap をラップした構造化ロガーを提供します。
package logger

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger は構造化ログのインターフェースです。
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Sync() error
}

// Field は zap.Field の型エイリアスです。
type Field = zap.Field

// Config はロガーの設定です。
type Config struct {
	Level       string
	Development bool
	OutputPaths []string
}

const DefaultLevel = "info"

type zapLogger struct {
	logger *zap.Logger
}

// New は Config から Logger を生成します。
// 出力先の既定値は標準エラー出力で、標準出力は差分レポート専用に空けておきます。
func New(cfg Config) (Logger, error) {
	if cfg.Level == "" {
		cfg.Level = DefaultLevel
	}
	if len(cfg.OutputPaths) == 0 {
		cfg.OutputPaths = []string{"stderr"}
	}

	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.Sampling = nil
	}
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	zapCfg.OutputPaths = cfg.OutputPaths
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	z, err := zapCfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("zapロガーの構築に失敗しました: %w", err)
	}
	return &zapLogger{logger: z}, nil
}

// NewFromZap は既存の *zap.Logger を Logger に適合させます。
func NewFromZap(z *zap.Logger) Logger {
	return &zapLogger{logger: z}
}

// NewNop は何も出力しない Logger を返します。
func NewNop() Logger {
	return &zapLogger{logger: zap.NewNop()}
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

// String は文字列フィールドを生成します。
func String(key, val string) Field { return zap.String(key, val) }

// Int は整数フィールドを生成します。
func Int(key string, val int) Field { return zap.Int(key, val) }

// Duration は期間フィールドを生成します。
func Duration(key string, val time.Duration) Field { return zap.Duration(key, val) }

// Error はキー "error" のフィールドを生成します。
func Error(err error) Field { return zap.Error(err) }
