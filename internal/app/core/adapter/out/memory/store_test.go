package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-pool-ledger/pkg/wal"
)

func deposit(id domain.TransactionID, cardID, userID string, amount int64, now time.Time) *domain.Transaction {
	pool := domain.NewPoolAccount(cardID, "USD", now)
	equity := domain.NewEquityAccount(cardID, userID, "USD", now)
	tran := &domain.Transaction{
		ID:          id,
		CardID:      cardID,
		Kind:        domain.TransactionKindDeposit,
		NewAccounts: []domain.Account{pool, equity},
		CreatedAt:   now,
	}
	tran.AddEntry(pool, amount, domain.EntryKindDeposit)
	tran.AddEntry(equity, amount, domain.EntryKindDeposit)
	return tran
}

func reserve(id domain.TransactionID, cardID, userID string, amount int64, now time.Time) *domain.Transaction {
	equity := domain.NewEquityAccount(cardID, userID, "USD", now)
	tran := &domain.Transaction{ID: id, CardID: cardID, Kind: domain.TransactionKindWithdrawalRequest, CreatedAt: now}
	tran.AddEntry(equity, -amount, domain.EntryKindWithdrawalReserve)
	tran.Withdrawal = &domain.WithdrawalRequest{
		ID: domain.WithdrawalID(id), CardID: cardID, UserID: userID, Amount: amount,
		Status: domain.WithdrawalPending, CreatedAt: now, ReservedBy: id,
	}
	return tran
}

func TestShardedStoreApplyAndSnapshot(t *testing.T) {
	ctx := context.Background()
	store, err := NewShardedStore(nil, nil)
	require.NoError(t, err)
	now := time.Now().UTC()

	require.NoError(t, store.Apply(ctx, deposit("tx-1", "card-1", "alice", 5000, now)))
	require.NoError(t, store.Apply(ctx, deposit("tx-2", "card-1", "bob", 3000, now)))
	require.NoError(t, store.Apply(ctx, deposit("tx-3", "card-2", "alice", 100, now)))

	ledger, err := store.Snapshot(ctx, "card-1")
	require.NoError(t, err)
	assert.Len(t, ledger.Accounts, 3, "pool is created once")
	assert.Len(t, ledger.Entries, 4)

	tally := domain.NewTally(ledger)
	assert.Equal(t, int64(8000), tally.PoolBalance)
	assert.True(t, tally.Consistent())

	ids, err := store.CardIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"card-1", "card-2"}, ids)

	empty, err := store.Snapshot(ctx, "card-unknown")
	require.NoError(t, err)
	assert.Empty(t, empty.Entries)
}

func TestShardedStoreRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	store, err := NewShardedStore(nil, nil)
	require.NoError(t, err)
	now := time.Now().UTC()

	require.NoError(t, store.Apply(ctx, deposit("tx-1", "card-1", "alice", 5000, now)))
	err = store.Apply(ctx, deposit("tx-1", "card-2", "alice", 5000, now))
	assert.ErrorIs(t, err, domain.ErrDuplicateTransaction)

	got, err := store.FindTransaction(ctx, "tx-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "card-1", got.CardID)

	missing, err := store.FindTransaction(ctx, "tx-404")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestShardedStoreWithdrawalGuard(t *testing.T) {
	ctx := context.Background()
	store, err := NewShardedStore(nil, nil)
	require.NoError(t, err)
	now := time.Now().UTC()

	require.NoError(t, store.Apply(ctx, deposit("tx-1", "card-1", "alice", 5000, now)))
	require.NoError(t, store.Apply(ctx, reserve("tx-2", "card-1", "alice", 1000, now)))

	w, err := store.FindWithdrawal(ctx, domain.WithdrawalID("tx-2"))
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, domain.WithdrawalPending, w.Status)

	// 預期前一個狀態是 FINALIZED，但實際是 PENDING
	stale := &domain.Transaction{ID: "tx-3", CardID: "card-1", Kind: domain.TransactionKindWithdrawalReverse, CreatedAt: now}
	next := *w
	next.Status = domain.WithdrawalReversed
	stale.Withdrawal = &next
	stale.WithdrawalFrom = domain.WithdrawalFinalized
	err = store.Apply(ctx, stale)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	// 失敗的交易沒有留下任何痕跡
	got, err := store.FindTransaction(ctx, "tx-3")
	require.NoError(t, err)
	assert.Nil(t, got)

	missing, err := store.FindWithdrawal(ctx, domain.WithdrawalID("tx-404"))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

type failingJournal struct{}

func (failingJournal) Write(string, any) error { return errors.New("disk full") }
func (failingJournal) ReadAll(func(string, []byte) error) error {
	return nil
}

func TestShardedStoreJournalFailureLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	store, err := NewShardedStore(failingJournal{}, nil)
	require.NoError(t, err)

	err = store.Apply(ctx, deposit("tx-1", "card-1", "alice", 5000, time.Now().UTC()))
	assert.ErrorIs(t, err, domain.ErrStorageFailure)

	ledger, err := store.Snapshot(ctx, "card-1")
	require.NoError(t, err)
	assert.Empty(t, ledger.Entries)
	got, err := store.FindTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestShardedStoreRecoversFromWAL(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	now := time.Unix(1700000000, 0).UTC()

	w, err := wal.NewWAL(wal.Config{Dir: dir, NoSync: true})
	require.NoError(t, err)
	store, err := NewShardedStore(w, nil)
	require.NoError(t, err)
	require.NoError(t, store.Apply(ctx, deposit("tx-1", "card-1", "alice", 5000, now)))
	require.NoError(t, store.Apply(ctx, deposit("tx-2", "card-1", "bob", 2000, now)))
	require.NoError(t, store.Apply(ctx, reserve("tx-3", "card-1", "alice", 1500, now)))
	before, err := store.Snapshot(ctx, "card-1")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w2, err := wal.NewWAL(wal.Config{Dir: dir, NoSync: true})
	require.NoError(t, err)
	defer w2.Close()
	recovered, err := NewShardedStore(w2, nil)
	require.NoError(t, err)

	after, err := recovered.Snapshot(ctx, "card-1")
	require.NoError(t, err)
	assert.Equal(t, before.Accounts, after.Accounts)
	assert.Equal(t, before.Entries, after.Entries)
	assert.Equal(t, before.Withdrawals, after.Withdrawals)

	replayed, err := recovered.FindTransaction(ctx, "tx-2")
	require.NoError(t, err)
	require.NotNil(t, replayed)

	wr, err := recovered.FindWithdrawal(ctx, domain.WithdrawalID("tx-3"))
	require.NoError(t, err)
	require.NotNil(t, wr)
	assert.Equal(t, int64(1500), wr.Amount)
}

func TestShardedStoreKeepsOwnMetadata(t *testing.T) {
	ctx := context.Background()
	store, err := NewShardedStore(nil, nil)
	require.NoError(t, err)
	now := time.Now().UTC()

	tran := &domain.Transaction{ID: "tx-1", CardID: "card-1", Kind: domain.TransactionKindDeposit,
		Metadata: map[string]string{"k": "v"}, CreatedAt: now}
	pool := domain.NewPoolAccount("card-1", "USD", now)
	equity := domain.NewEquityAccount("card-1", "alice", "USD", now)
	tran.NewAccounts = []domain.Account{pool, equity}
	tran.AddEntry(pool, 10, domain.EntryKindDeposit)
	tran.AddEntry(equity, 10, domain.EntryKindDeposit)
	require.NoError(t, store.Apply(ctx, tran))

	tran.Metadata["k"] = "mutated"

	stored, err := store.FindTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "v", stored.Metadata["k"])
	ledger, err := store.Snapshot(ctx, "card-1")
	require.NoError(t, err)
	for _, e := range ledger.Entries {
		assert.Equal(t, "v", e.Metadata["k"])
	}
}
