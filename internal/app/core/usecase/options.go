package usecase

import (
	"time"

	"go.uber.org/zap"
)

// Policy 帳本規則
type Policy struct {
	// Currency: 新建帳戶使用的幣別
	Currency string
	// MinorUnitExponent: 最小單位的小數位數 (USD 為 2)
	MinorUnitExponent int32
	// AllowNegativeEquity: 允許請款讓成員權益變成負數，並自動建立未知成員的帳戶
	AllowNegativeEquity bool
}

// DefaultPolicy USD，禁止負權益
func DefaultPolicy() Policy {
	return Policy{Currency: "USD", MinorUnitExponent: 2}
}

// Option 服務選項
type Option func(*options)

type options struct {
	logger *zap.Logger
	now    func() time.Time
}

// WithLogger 指定 logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock 指定時間來源 (測試用)
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
