package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
)

// LedgerStore 帳本儲存層介面
type LedgerStore interface {
	// Snapshot 取得單張卡片的一致性快照，不會看到未提交的寫入
	Snapshot(ctx context.Context, cardID string) (*domain.CardLedger, error)
	// Apply 原子寫入整筆交易；交易 ID 已存在時回傳 domain.ErrDuplicateTransaction
	Apply(ctx context.Context, tran *domain.Transaction) error
	// FindTransaction 查詢已提交的交易，不存在回傳 nil, nil
	FindTransaction(ctx context.Context, id domain.TransactionID) (*domain.Transaction, error)
	// FindWithdrawal 查詢提款請求，不存在回傳 nil, nil
	FindWithdrawal(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error)
	// CardIDs 列出所有已建立資金池的卡片
	CardIDs(ctx context.Context) ([]string, error)
}

// CardLocker 卡片層級的互斥鎖，等待時間有上限
type CardLocker interface {
	// Lock 取得鎖，逾時回傳 domain.ErrLockTimeout；回傳的 unlock 必須呼叫
	Lock(ctx context.Context, cardID string) (unlock func(), err error)
}

// WalletDirectory 外部錢包/成員服務
type WalletDirectory interface {
	IsMember(ctx context.Context, walletID, userID string) (bool, error)
	CardsOfWallet(ctx context.Context, walletID string) ([]string, error)
}

// CardRegistrar 可登記新卡片的錢包服務 (選用)
type CardRegistrar interface {
	AddCard(walletID, cardID string) error
}

// Provider BaaS provider 能力集合，實作依設定於啟動時選定
type Provider interface {
	Name() string
	CreateCard(ctx context.Context, walletID string) (*domain.IssuedCard, error)
	IssueWidgetURL(ctx context.Context, cardID string) (string, error)
	// VerifyWebhook 驗證簽章並解析成正規化事件
	VerifyWebhook(payload []byte, signature string) (*domain.ProviderEvent, error)
}
