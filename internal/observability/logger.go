package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig logger 設定
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// NewLogger 依設定建立 zap logger
//
// 參數:
//
//	cfg: 等級字串 (debug/info/warn/error)，空字串視為 info
//
// 回傳值:
//
//	*zap.Logger: logger
//	error: 等級字串無法解析或建立失敗
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, err
		}
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
