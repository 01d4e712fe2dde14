package usecase_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/adapter/out/baas"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/adapter/out/directory"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/adapter/out/lock"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/usecase"
)

func newCore(t *testing.T) (*usecase.CoreUseCase, *baas.MockProvider) {
	t.Helper()
	store, err := memory.NewShardedStore(nil, nil)
	require.NoError(t, err)
	dir, err := directory.NewStaticDirectory([]directory.Wallet{
		{ID: "w-1", Members: []string{"alice", "bob"}, Cards: []string{"card-1"}},
		{ID: "w-2", Members: []string{"carol"}, Cards: []string{"card-9"}},
	})
	require.NoError(t, err)
	provider, err := baas.NewMockProvider("s3cret", "")
	require.NoError(t, err)
	core := usecase.NewCoreUseCase(usecase.Dependencies{
		Store:     store,
		Locker:    lock.NewLocalLocker(time.Second),
		Directory: dir,
		Provider:  provider,
		Policy:    usecase.DefaultPolicy(),
	})
	return core, provider
}

func TestGatekeeper(t *testing.T) {
	ctx := context.Background()
	core, _ := newCore(t)

	_, err := core.PostDeposit(ctx, "w-1", usecase.DepositCommand{TransactionID: "d1", CardID: "card-1", UserID: "alice", Amount: 100})
	require.NoError(t, err)

	_, err = core.PostDeposit(ctx, "w-1", usecase.DepositCommand{TransactionID: "d2", CardID: "card-9", UserID: "alice", Amount: 100})
	assert.ErrorIs(t, err, domain.ErrWalletMismatch)

	_, err = core.PostDeposit(ctx, "w-1", usecase.DepositCommand{TransactionID: "d3", CardID: "card-1", UserID: "carol", Amount: 100})
	assert.ErrorIs(t, err, domain.ErrUnknownMember)

	_, err = core.PostCapture(ctx, "w-1", usecase.CaptureCommand{TransactionID: "c1", CardID: "card-1",
		Splits: []domain.Split{{UserID: "alice", Amount: 10}, {UserID: "mallory", Amount: 10}}})
	assert.ErrorIs(t, err, domain.ErrUnknownMember)

	_, err = core.GetCardBalances(ctx, "w-2", "card-1")
	assert.ErrorIs(t, err, domain.ErrWalletMismatch)

	// 驗證錯誤優先於錢包檢查
	_, err = core.PostDeposit(ctx, "w-1", usecase.DepositCommand{TransactionID: "d4", CardID: "card-9", UserID: "alice"})
	assert.ErrorIs(t, err, domain.ErrAmountMustBePositive)

	// 內部呼叫不帶錢包
	_, err = core.PostDeposit(ctx, "", usecase.DepositCommand{TransactionID: "d5", CardID: "card-9", UserID: "carol", Amount: 50})
	require.NoError(t, err)

	view, err := core.GetCardBalances(ctx, "w-1", "card-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), view.PoolBalance)
}

func TestIngestWebhook(t *testing.T) {
	ctx := context.Background()
	core, provider := newCore(t)

	deposit, err := json.Marshal(domain.ProviderEvent{ID: "evt-1", Type: domain.ProviderEventDeposit, CardID: "card-1", UserID: "alice", Amount: 900})
	require.NoError(t, err)
	res, err := core.IngestWebhook(ctx, deposit, provider.Sign(deposit))
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionID("mock:evt-1"), res.Transaction.ID)
	assert.Equal(t, "evt-1", res.Transaction.Metadata["event_id"])

	// 重送
	again, err := core.IngestWebhook(ctx, deposit, provider.Sign(deposit))
	require.NoError(t, err)
	assert.True(t, again.Replayed)

	capture, err := json.Marshal(domain.ProviderEvent{ID: "evt-2", Type: domain.ProviderEventCapture, CardID: "card-1",
		Amount: 300, Splits: []domain.Split{{UserID: "alice", Amount: 300}}})
	require.NoError(t, err)
	_, err = core.IngestWebhook(ctx, capture, provider.Sign(capture))
	require.NoError(t, err)

	_, err = core.IngestWebhook(ctx, capture, "00")
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	view, err := core.GetCardBalances(ctx, "", "card-1")
	require.NoError(t, err)
	assert.Equal(t, int64(600), view.PoolBalance)

	report, err := core.GetReconciliation(ctx, "card-1")
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

func TestIssueCardRegistersWithWallet(t *testing.T) {
	ctx := context.Background()
	core, _ := newCore(t)

	card, err := core.IssueCard(ctx, "w-1")
	require.NoError(t, err)

	url, err := core.IssueWidgetURL(ctx, "w-1", card.CardID)
	require.NoError(t, err)
	assert.Contains(t, url, card.CardID)

	_, err = core.IssueCard(ctx, "w-404")
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)

	wallet, err := core.GetWalletBalances(ctx, "w-1")
	require.NoError(t, err)
	assert.Len(t, wallet.Cards, 2)
}

func TestResolveWithdrawalChecksWallet(t *testing.T) {
	ctx := context.Background()
	core, _ := newCore(t)

	_, err := core.PostDeposit(ctx, "w-1", usecase.DepositCommand{TransactionID: "d1", CardID: "card-1", UserID: "alice", Amount: 1000})
	require.NoError(t, err)
	_, err = core.RequestWithdrawal(ctx, "w-1", usecase.WithdrawalCommand{TransactionID: "w1", CardID: "card-1", UserID: "alice", Amount: 300})
	require.NoError(t, err)
	id := domain.WithdrawalID("w1")

	_, err = core.FinalizeWithdrawal(ctx, "w-2", usecase.ResolveCommand{TransactionID: "f1", WithdrawalID: id})
	assert.ErrorIs(t, err, domain.ErrWalletMismatch)
	_, err = core.ReverseWithdrawal(ctx, "w-2", usecase.ResolveCommand{TransactionID: "r1", WithdrawalID: id})
	assert.ErrorIs(t, err, domain.ErrWalletMismatch)

	_, err = core.FinalizeWithdrawal(ctx, "w-1", usecase.ResolveCommand{TransactionID: "f2", WithdrawalID: domain.WithdrawalID("missing")})
	assert.ErrorIs(t, err, domain.ErrWithdrawalNotFound)

	// 被拒絕的請求不改變狀態
	view, err := core.GetCardBalances(ctx, "w-1", "card-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), view.PoolBalance)

	res, err := core.FinalizeWithdrawal(ctx, "w-1", usecase.ResolveCommand{TransactionID: "f1", WithdrawalID: id})
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalFinalized, res.Transaction.Withdrawal.Status)
}
