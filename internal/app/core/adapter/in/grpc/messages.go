package grpc

import (
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/usecase"
)

// DepositRequest 存款，WalletID 不為空時檢查卡片與成員歸屬
type DepositRequest struct {
	WalletID string `json:"wallet_id,omitempty"`
	usecase.DepositCommand
}

// CaptureRequest 刷卡請款
type CaptureRequest struct {
	WalletID string `json:"wallet_id,omitempty"`
	usecase.CaptureCommand
}

// WithdrawalRequest 提款申請
type WithdrawalRequest struct {
	WalletID string `json:"wallet_id,omitempty"`
	usecase.WithdrawalCommand
}

// ResolveRequest 提款出帳或撤銷，WalletID 不為空時檢查請求屬於該錢包
type ResolveRequest struct {
	WalletID string `json:"wallet_id,omitempty"`
	usecase.ResolveCommand
}

// PostingResponse 寫入類操作的回應
type PostingResponse struct {
	Transaction *domain.Transaction `json:"transaction"`
	Replayed    bool                `json:"replayed"`
}

type CardBalancesRequest struct {
	WalletID string `json:"wallet_id,omitempty"`
	CardID   string `json:"card_id"`
}

type WalletBalancesRequest struct {
	WalletID string `json:"wallet_id"`
}

type ReconciliationRequest struct {
	CardID string `json:"card_id"`
}

type ReconcileAllRequest struct{}

type ReconcileAllResponse struct {
	Reports []*domain.CardReconciliation `json:"reports"`
}

// WebhookRequest BaaS webhook 原始內容，Payload 在 JSON 中為 base64
type WebhookRequest struct {
	Payload   []byte `json:"payload"`
	Signature string `json:"signature"`
}

type IssueCardRequest struct {
	WalletID string `json:"wallet_id"`
}

type WidgetURLRequest struct {
	WalletID string `json:"wallet_id,omitempty"`
	CardID   string `json:"card_id"`
}

type WidgetURLResponse struct {
	URL string `json:"url"`
}

func toPostingResponse(res *domain.PostingResult) *PostingResponse {
	return &PostingResponse{Transaction: res.Transaction, Replayed: res.Replayed}
}
