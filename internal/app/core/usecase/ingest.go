package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
)

// WebhookIngestor 將 BaaS webhook 轉成入帳指令
type WebhookIngestor struct {
	provider Provider
	engine   *PostingEngine
	logger   *zap.Logger
}

// NewWebhookIngestor 建立 WebhookIngestor
func NewWebhookIngestor(provider Provider, engine *PostingEngine, opts ...Option) *WebhookIngestor {
	o := buildOptions(opts)
	return &WebhookIngestor{provider: provider, engine: engine, logger: o.logger}
}

// Ingest 驗證簽章後入帳，交易 ID 為 "<provider>:<event id>"，重送的 webhook 會得到重放結果
func (i *WebhookIngestor) Ingest(ctx context.Context, payload []byte, signature string) (*domain.PostingResult, error) {
	event, err := i.provider.VerifyWebhook(payload, signature)
	if err != nil {
		i.logger.Warn("webhook rejected", zap.String("provider", i.provider.Name()), zap.Error(err))
		return nil, err
	}
	if event.ID == "" {
		return nil, fmt.Errorf("%w: webhook event id is empty", domain.ErrInvalidCommand)
	}
	txID := domain.TransactionID(i.provider.Name() + ":" + event.ID)
	metadata := map[string]string{"provider": i.provider.Name(), "event_id": event.ID}
	for k, v := range event.Metadata {
		metadata[k] = v
	}

	i.logger.Info("webhook accepted",
		zap.String("provider", i.provider.Name()),
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("card_id", event.CardID),
	)

	switch event.Type {
	case domain.ProviderEventDeposit:
		return i.engine.PostDeposit(ctx, DepositCommand{
			TransactionID: txID,
			CardID:        event.CardID,
			UserID:        event.UserID,
			Amount:        event.Amount,
			Metadata:      metadata,
		})
	case domain.ProviderEventCapture:
		return i.engine.PostCapture(ctx, CaptureCommand{
			TransactionID: txID,
			CardID:        event.CardID,
			Splits:        event.Splits,
			Total:         event.Amount,
			Metadata:      metadata,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported event type %q", domain.ErrInvalidCommand, event.Type)
	}
}
