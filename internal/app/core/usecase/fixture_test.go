package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/adapter/out/directory"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/adapter/out/lock"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/usecase"
)

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

type fixture struct {
	store       usecase.LedgerStore
	engine      *usecase.PostingEngine
	withdrawals *usecase.WithdrawalMachine
	reconciler  *usecase.ReconciliationService
	projector   *usecase.BalanceProjector
}

func newFixture(t *testing.T, policy usecase.Policy) *fixture {
	t.Helper()
	store, err := memory.NewShardedStore(nil, nil)
	require.NoError(t, err)
	return newFixtureWithStore(t, store, policy)
}

func newFixtureWithStore(t *testing.T, store usecase.LedgerStore, policy usecase.Policy) *fixture {
	t.Helper()
	dir, err := directory.NewStaticDirectory([]directory.Wallet{
		{ID: "w-1", Members: []string{"alice", "bob"}, Cards: []string{"card-1", "card-2"}},
	})
	require.NoError(t, err)
	locker := lock.NewLocalLocker(time.Second)
	clock := usecase.WithClock(func() time.Time { return fixedNow })
	return &fixture{
		store:       store,
		engine:      usecase.NewPostingEngine(store, locker, policy, clock),
		withdrawals: usecase.NewWithdrawalMachine(store, locker, clock),
		reconciler:  usecase.NewReconciliationService(store, clock),
		projector:   usecase.NewBalanceProjector(store, dir, policy, clock),
	}
}

func (f *fixture) deposit(t *testing.T, txID domain.TransactionID, cardID, userID string, amount int64) *domain.PostingResult {
	t.Helper()
	res, err := f.engine.PostDeposit(context.Background(), usecase.DepositCommand{
		TransactionID: txID, CardID: cardID, UserID: userID, Amount: amount,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) request(t *testing.T, txID domain.TransactionID, cardID, userID string, amount int64) uuid.UUID {
	t.Helper()
	res, err := f.withdrawals.RequestWithdrawal(context.Background(), usecase.WithdrawalCommand{
		TransactionID: txID, CardID: cardID, UserID: userID, Amount: amount,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Transaction.Withdrawal)
	return res.Transaction.Withdrawal.ID
}

func (f *fixture) tally(t *testing.T, cardID string) *domain.Tally {
	t.Helper()
	ledger, err := f.store.Snapshot(context.Background(), cardID)
	require.NoError(t, err)
	return domain.NewTally(ledger)
}

func (f *fixture) entryCount(t *testing.T, cardID string) int {
	t.Helper()
	ledger, err := f.store.Snapshot(context.Background(), cardID)
	require.NoError(t, err)
	return len(ledger.Entries)
}

func (f *fixture) requireConsistent(t *testing.T, cardID string) {
	t.Helper()
	report, err := f.reconciler.Reconcile(context.Background(), cardID)
	require.NoError(t, err)
	require.True(t, report.Consistent, "sum(memberEquity) must equal poolBalance: %+v", report)
	require.True(t, report.ReservationsConsistent, "held reservations must equal pending: %+v", report)
}

func equity(t *testing.T, tally *domain.Tally, userID string) domain.MemberTally {
	t.Helper()
	m, ok := tally.Member(userID)
	require.True(t, ok, "member %s", userID)
	return m
}
