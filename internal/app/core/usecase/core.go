package usecase

import (
	"context"
	"fmt"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
)

// Dependencies CoreUseCase 需要的外部元件
type Dependencies struct {
	Store     LedgerStore
	Locker    CardLocker
	Directory WalletDirectory
	Provider  Provider
	Policy    Policy
}

// CoreUseCase 是核心業務邏輯層
//
// walletID 不為空時，先經 Gatekeeper 確認卡片與成員屬於該錢包
type CoreUseCase struct {
	gatekeeper  *Gatekeeper
	engine      *PostingEngine
	withdrawals *WithdrawalMachine
	reconciler  *ReconciliationService
	projector   *BalanceProjector
	ingestor    *WebhookIngestor
	provider    Provider
	directory   WalletDirectory
	store       LedgerStore
}

func NewCoreUseCase(deps Dependencies, opts ...Option) *CoreUseCase {
	engine := NewPostingEngine(deps.Store, deps.Locker, deps.Policy, opts...)
	c := &CoreUseCase{
		gatekeeper:  NewGatekeeper(deps.Directory),
		engine:      engine,
		withdrawals: NewWithdrawalMachine(deps.Store, deps.Locker, opts...),
		reconciler:  NewReconciliationService(deps.Store, opts...),
		projector:   NewBalanceProjector(deps.Store, deps.Directory, deps.Policy, opts...),
		provider:    deps.Provider,
		directory:   deps.Directory,
		store:       deps.Store,
	}
	if deps.Provider != nil {
		c.ingestor = NewWebhookIngestor(deps.Provider, engine, opts...)
	}
	return c
}

// PostDeposit 存款
func (c *CoreUseCase) PostDeposit(ctx context.Context, walletID string, cmd DepositCommand) (*domain.PostingResult, error) {
	if err := c.authorize(ctx, walletID, cmd, cmd.CardID, cmd.UserID); err != nil {
		return nil, err
	}
	return c.engine.PostDeposit(ctx, cmd)
}

// PostCapture 刷卡請款
func (c *CoreUseCase) PostCapture(ctx context.Context, walletID string, cmd CaptureCommand) (*domain.PostingResult, error) {
	users := make([]string, 0, len(cmd.Splits))
	for _, s := range cmd.Splits {
		users = append(users, s.UserID)
	}
	if err := c.authorize(ctx, walletID, cmd, cmd.CardID, users...); err != nil {
		return nil, err
	}
	return c.engine.PostCapture(ctx, cmd)
}

// RequestWithdrawal 提款申請
func (c *CoreUseCase) RequestWithdrawal(ctx context.Context, walletID string, cmd WithdrawalCommand) (*domain.PostingResult, error) {
	if err := c.authorize(ctx, walletID, cmd, cmd.CardID, cmd.UserID); err != nil {
		return nil, err
	}
	return c.withdrawals.RequestWithdrawal(ctx, cmd)
}

// FinalizeWithdrawal 提款出帳
func (c *CoreUseCase) FinalizeWithdrawal(ctx context.Context, walletID string, cmd ResolveCommand) (*domain.PostingResult, error) {
	if err := c.authorizeWithdrawal(ctx, walletID, cmd); err != nil {
		return nil, err
	}
	return c.withdrawals.FinalizeWithdrawal(ctx, cmd)
}

// ReverseWithdrawal 提款撤銷
func (c *CoreUseCase) ReverseWithdrawal(ctx context.Context, walletID string, cmd ResolveCommand) (*domain.PostingResult, error) {
	if err := c.authorizeWithdrawal(ctx, walletID, cmd); err != nil {
		return nil, err
	}
	return c.withdrawals.ReverseWithdrawal(ctx, cmd)
}

// GetCardBalances 取得卡片餘額
func (c *CoreUseCase) GetCardBalances(ctx context.Context, walletID, cardID string) (*domain.CardDisplayBalances, error) {
	if err := c.gatekeeper.Authorize(ctx, walletID, cardID); err != nil {
		return nil, err
	}
	return c.projector.CardBalances(ctx, cardID)
}

// GetWalletBalances 取得錢包加總餘額
func (c *CoreUseCase) GetWalletBalances(ctx context.Context, walletID string) (*domain.AggregatedWalletBalances, error) {
	return c.projector.WalletBalances(ctx, walletID)
}

// GetReconciliation 單張卡片對帳
func (c *CoreUseCase) GetReconciliation(ctx context.Context, cardID string) (*domain.CardReconciliation, error) {
	return c.reconciler.Reconcile(ctx, cardID)
}

// ReconcileAll 所有卡片對帳
func (c *CoreUseCase) ReconcileAll(ctx context.Context) ([]*domain.CardReconciliation, error) {
	return c.reconciler.ReconcileAll(ctx)
}

// IngestWebhook 處理 BaaS webhook
func (c *CoreUseCase) IngestWebhook(ctx context.Context, payload []byte, signature string) (*domain.PostingResult, error) {
	if c.ingestor == nil {
		return nil, domain.ErrProviderUnsupported
	}
	return c.ingestor.Ingest(ctx, payload, signature)
}

// IssueCard 向 provider 申請新卡，錢包服務支援時一併登記
func (c *CoreUseCase) IssueCard(ctx context.Context, walletID string) (*domain.IssuedCard, error) {
	if c.provider == nil {
		return nil, domain.ErrProviderUnsupported
	}
	if _, err := c.directory.CardsOfWallet(ctx, walletID); err != nil {
		return nil, err
	}
	card, err := c.provider.CreateCard(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if reg, ok := c.directory.(CardRegistrar); ok {
		if err := reg.AddCard(walletID, card.CardID); err != nil {
			return nil, err
		}
	}
	return card, nil
}

// IssueWidgetURL 取得卡片資訊 widget 的一次性網址
func (c *CoreUseCase) IssueWidgetURL(ctx context.Context, walletID, cardID string) (string, error) {
	if c.provider == nil {
		return "", domain.ErrProviderUnsupported
	}
	if err := c.gatekeeper.Authorize(ctx, walletID, cardID); err != nil {
		return "", err
	}
	return c.provider.IssueWidgetURL(ctx, cardID)
}

// authorize 先驗證欄位，避免錯誤的指令去打錢包服務
func (c *CoreUseCase) authorize(ctx context.Context, walletID string, cmd any, cardID string, userIDs ...string) error {
	if walletID == "" {
		return nil
	}
	if err := validateCommand(cmd); err != nil {
		return err
	}
	return c.gatekeeper.Authorize(ctx, walletID, cardID, userIDs...)
}

// authorizeWithdrawal 提款請求的卡片與申請人必須屬於該錢包
func (c *CoreUseCase) authorizeWithdrawal(ctx context.Context, walletID string, cmd ResolveCommand) error {
	if walletID == "" {
		return nil
	}
	if err := validateResolve(cmd); err != nil {
		return err
	}
	w, err := c.store.FindWithdrawal(ctx, cmd.WithdrawalID)
	if err != nil {
		return storageError(err)
	}
	if w == nil {
		return fmt.Errorf("%w: %s", domain.ErrWithdrawalNotFound, cmd.WithdrawalID)
	}
	return c.gatekeeper.Authorize(ctx, walletID, w.CardID, w.UserID)
}
