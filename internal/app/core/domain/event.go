package domain

// Split 請款時分配給單一成員的金額
type Split struct {
	UserID string `json:"user_id" validate:"required,max=128"`
	Amount int64  `json:"amount" validate:"gt=0"`
}

// ProviderEventType BaaS 事件類型
type ProviderEventType string

const (
	ProviderEventDeposit ProviderEventType = "deposit"
	ProviderEventCapture ProviderEventType = "capture"
)

// ProviderEvent 已驗證且正規化的 BaaS 事件
type ProviderEvent struct {
	ID       string            `json:"id"`
	Type     ProviderEventType `json:"type"`
	CardID   string            `json:"card_id"`
	UserID   string            `json:"user_id,omitempty"`
	Amount   int64             `json:"amount,omitempty"`
	Splits   []Split           `json:"splits,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IssuedCard provider 發行的卡片
type IssuedCard struct {
	CardID   string `json:"card_id"`
	WalletID string `json:"wallet_id"`
	Provider string `json:"provider"`
	Last4    string `json:"last4"`
}
