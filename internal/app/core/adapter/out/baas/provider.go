// Package baas BaaS provider 的實作，依設定於啟動時選定
package baas

import (
	"fmt"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/usecase"
)

// 支援的 provider 名稱
const (
	ProviderMock          = "mock"
	ProviderStripeIssuing = "stripe-issuing"
	ProviderSynctera      = "synctera"
)

// Config provider 設定
type Config struct {
	Provider      string `yaml:"provider"`
	WebhookSecret string `yaml:"webhook_secret"` // 可由 BAAS_WEBHOOK_SECRET 覆寫
	WidgetBaseURL string `yaml:"widget_base_url"`
}

// New 依設定建立 provider
//
// stripe-issuing 與 synctera 的客戶端不在這個版本內，回傳 domain.ErrProviderUnsupported
func New(cfg Config) (usecase.Provider, error) {
	switch cfg.Provider {
	case "", ProviderMock:
		return NewMockProvider(cfg.WebhookSecret, cfg.WidgetBaseURL)
	case ProviderStripeIssuing, ProviderSynctera:
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderUnsupported, cfg.Provider)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrProviderUnsupported, cfg.Provider)
	}
}
