package baas

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
)

// MockProvider 本地開發與測試用的 provider
//
// webhook 簽章為 hex(HMAC-SHA256(secret, payload))
type MockProvider struct {
	secret     []byte
	widgetBase *url.URL
}

// NewMockProvider 建立 MockProvider
func NewMockProvider(secret, widgetBaseURL string) (*MockProvider, error) {
	if secret == "" {
		return nil, errors.New("mock provider requires a webhook secret")
	}
	if widgetBaseURL == "" {
		widgetBaseURL = "http://localhost:8081/widget"
	}
	base, err := url.Parse(widgetBaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse widget base url")
	}
	return &MockProvider{secret: []byte(secret), widgetBase: base}, nil
}

func (p *MockProvider) Name() string {
	return ProviderMock
}

// CreateCard 產生一張虛擬卡片
func (p *MockProvider) CreateCard(ctx context.Context, walletID string) (*domain.IssuedCard, error) {
	if walletID == "" {
		return nil, fmt.Errorf("%w: wallet_id is required", domain.ErrInvalidCommand)
	}
	id := uuid.New()
	return &domain.IssuedCard{
		CardID:   "card_" + hex.EncodeToString(id[:8]),
		WalletID: walletID,
		Provider: ProviderMock,
		Last4:    fmt.Sprintf("%04d", (int(id[14])<<8|int(id[15]))%10000),
	}, nil
}

// IssueWidgetURL 帶一次性 token 的卡片資訊網址
func (p *MockProvider) IssueWidgetURL(ctx context.Context, cardID string) (string, error) {
	if cardID == "" {
		return "", fmt.Errorf("%w: card_id is required", domain.ErrInvalidCommand)
	}
	u := *p.widgetBase
	q := u.Query()
	q.Set("card", cardID)
	q.Set("token", uuid.NewString())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Sign 計算 payload 的簽章
func (p *MockProvider) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, p.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhook 驗證簽章並解析事件
func (p *MockProvider) VerifyWebhook(payload []byte, signature string) (*domain.ProviderEvent, error) {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed signature", domain.ErrInvalidSignature)
	}
	want, _ := hex.DecodeString(p.Sign(payload))
	if !hmac.Equal(got, want) {
		return nil, domain.ErrInvalidSignature
	}

	var event domain.ProviderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: decode webhook: %v", domain.ErrInvalidCommand, err)
	}
	switch event.Type {
	case domain.ProviderEventDeposit, domain.ProviderEventCapture:
	default:
		return nil, fmt.Errorf("%w: unsupported event type %q", domain.ErrInvalidCommand, event.Type)
	}
	return &event, nil
}
