package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-pool-ledger/pkg/wal"
)

// Journal 交易日誌，由 pkg/wal 實作
type Journal interface {
	Write(key string, v any) error
	ReadAll(callback func(key string, raw []byte) error) error
}

// cardShard 單張卡片的資料
//
// mu 寫鎖只在套用已驗證的交易時持有，讀取快照時持讀鎖
type cardShard struct {
	mu          sync.RWMutex
	accounts    []domain.Account
	accountIdx  map[uuid.UUID]struct{}
	entries     []domain.Entry
	withdrawals map[uuid.UUID]domain.WithdrawalRequest
	// order: 提款請求建立順序
	order []uuid.UUID
}

func newCardShard() *cardShard {
	return &cardShard{
		accountIdx:  make(map[uuid.UUID]struct{}),
		withdrawals: make(map[uuid.UUID]domain.WithdrawalRequest),
	}
}

// ShardedStore 記憶體帳本，依卡片分片並寫入 WAL
//
// 結構:
//
//	shards: 卡片 ID 對應的分片
//	transactions: 已提交的交易
//	reserved: 寫入中的交易 ID，避免不同卡片重複使用同一個 ID
//	withdrawalCard: 提款請求 ID 對應的卡片
//	journal: Write-Ahead Log，可為 nil (純記憶體)
type ShardedStore struct {
	mu             sync.RWMutex
	shards         map[string]*cardShard
	transactions   map[domain.TransactionID]*domain.Transaction
	reserved       map[domain.TransactionID]struct{}
	withdrawalCard map[uuid.UUID]string
	journal        Journal
	logger         *zap.Logger
	now            func() time.Time
}

// NewShardedStore 建立記憶體帳本並從日誌恢復
//
// 參數:
//
//	journal: 交易日誌，nil 代表不落地
//	logger: nil 時不輸出
//
// 回傳:
//
//	*ShardedStore: 帳本
//	error: 日誌恢復失敗
func NewShardedStore(journal Journal, logger *zap.Logger) (*ShardedStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ShardedStore{
		shards:         make(map[string]*cardShard),
		transactions:   make(map[domain.TransactionID]*domain.Transaction),
		reserved:       make(map[domain.TransactionID]struct{}),
		withdrawalCard: make(map[uuid.UUID]string),
		journal:        journal,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
	if journal != nil {
		if err := s.recover(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// recover 依序重播日誌，只在建構時呼叫
func (s *ShardedStore) recover() error {
	count := 0
	err := s.journal.ReadAll(func(key string, raw []byte) error {
		var tran domain.Transaction
		if err := json.Unmarshal(raw, &tran); err != nil {
			return fmt.Errorf("decode journal record %s: %w", key, err)
		}
		if _, ok := s.transactions[tran.ID]; ok {
			return nil
		}
		s.commit(s.shard(tran.CardID), &tran)
		count++
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("ledger recovered from wal", zap.Int("transactions", count), zap.Int("cards", len(s.shards)))
	return nil
}

// Snapshot 回傳卡片快照的複本
func (s *ShardedStore) Snapshot(ctx context.Context, cardID string) (*domain.CardLedger, error) {
	s.mu.RLock()
	sh, ok := s.shards[cardID]
	s.mu.RUnlock()

	ledger := &domain.CardLedger{CardID: cardID, AsOf: s.now()}
	if !ok {
		return ledger, nil
	}

	sh.mu.RLock()
	defer sh.mu.RUnlock()
	ledger.Accounts = append([]domain.Account(nil), sh.accounts...)
	ledger.Entries = cloneEntries(sh.entries)
	ledger.Withdrawals = make([]domain.WithdrawalRequest, 0, len(sh.order))
	for _, id := range sh.order {
		ledger.Withdrawals = append(ledger.Withdrawals, sh.withdrawals[id])
	}
	return ledger, nil
}

// Apply 驗證後寫入 WAL，再套用到記憶體
func (s *ShardedStore) Apply(ctx context.Context, tran *domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.transactions[tran.ID]; ok {
		s.mu.Unlock()
		return domain.ErrDuplicateTransaction
	}
	if _, ok := s.reserved[tran.ID]; ok {
		s.mu.Unlock()
		return domain.ErrDuplicateTransaction
	}
	s.reserved[tran.ID] = struct{}{}
	sh := s.shard(tran.CardID)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.reserved, tran.ID)
		s.mu.Unlock()
	}()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if err := checkWithdrawal(sh, tran); err != nil {
		return err
	}

	// 1. 寫入 WAL (Critical Path)
	if s.journal != nil {
		if err := s.journal.Write(string(tran.ID), tran); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
		}
	}

	// 2. 套用到記憶體
	stored := cloneTransaction(tran)
	s.applyShard(sh, stored)
	s.mu.Lock()
	s.index(stored)
	s.mu.Unlock()
	return nil
}

// FindTransaction 查詢已提交交易
func (s *ShardedStore) FindTransaction(ctx context.Context, id domain.TransactionID) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tran, ok := s.transactions[id]
	if !ok {
		return nil, nil
	}
	return cloneTransaction(tran), nil
}

// FindWithdrawal 查詢提款請求
func (s *ShardedStore) FindWithdrawal(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	s.mu.RLock()
	cardID, ok := s.withdrawalCard[id]
	var sh *cardShard
	if ok {
		sh = s.shards[cardID]
	}
	s.mu.RUnlock()
	if sh == nil {
		return nil, nil
	}

	sh.mu.RLock()
	defer sh.mu.RUnlock()
	w, ok := sh.withdrawals[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

// CardIDs 已建立資金池的卡片，依 ID 排序
func (s *ShardedStore) CardIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.shards))
	for id, sh := range s.shards {
		sh.mu.RLock()
		_, hasPool := sh.accountIdx[domain.PoolAccountID(id)]
		sh.mu.RUnlock()
		if hasPool {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids, nil
}

// shard 取得或建立分片，呼叫端需持有 s.mu 寫鎖
func (s *ShardedStore) shard(cardID string) *cardShard {
	sh, ok := s.shards[cardID]
	if !ok {
		sh = newCardShard()
		s.shards[cardID] = sh
	}
	return sh
}

// commit 恢復時使用，單執行緒不需要鎖
func (s *ShardedStore) commit(sh *cardShard, tran *domain.Transaction) {
	s.applyShard(sh, tran)
	s.index(tran)
}

func (s *ShardedStore) applyShard(sh *cardShard, tran *domain.Transaction) {
	for _, a := range tran.NewAccounts {
		if _, ok := sh.accountIdx[a.ID]; ok {
			continue
		}
		sh.accountIdx[a.ID] = struct{}{}
		sh.accounts = append(sh.accounts, a)
	}
	sh.entries = append(sh.entries, tran.Entries...)
	if w := tran.Withdrawal; w != nil {
		if _, ok := sh.withdrawals[w.ID]; !ok {
			sh.order = append(sh.order, w.ID)
		}
		sh.withdrawals[w.ID] = *w
	}
}

func (s *ShardedStore) index(tran *domain.Transaction) {
	s.transactions[tran.ID] = tran
	if tran.Withdrawal != nil {
		s.withdrawalCard[tran.Withdrawal.ID] = tran.CardID
	}
}

// checkWithdrawal 提款請求的前一個狀態必須符合預期
func checkWithdrawal(sh *cardShard, tran *domain.Transaction) error {
	w := tran.Withdrawal
	if w == nil {
		return nil
	}
	current, exists := sh.withdrawals[w.ID]
	switch {
	case tran.WithdrawalFrom == "" && exists:
		return fmt.Errorf("%w: withdrawal %s already exists", domain.ErrInvalidStateTransition, w.ID)
	case tran.WithdrawalFrom != "" && !exists:
		return fmt.Errorf("%w: %s", domain.ErrWithdrawalNotFound, w.ID)
	case exists && current.Status != tran.WithdrawalFrom:
		return fmt.Errorf("%w: expected %s, found %s", domain.ErrInvalidStateTransition, tran.WithdrawalFrom, current.Status)
	}
	return nil
}

func cloneTransaction(t *domain.Transaction) *domain.Transaction {
	cp := *t
	cp.NewAccounts = append([]domain.Account(nil), t.NewAccounts...)
	cp.Entries = cloneEntries(t.Entries)
	cp.Metadata = maps.Clone(t.Metadata)
	if t.Withdrawal != nil {
		w := *t.Withdrawal
		cp.Withdrawal = &w
	}
	return &cp
}

// cloneEntries 連同 metadata 一起複製
func cloneEntries(entries []domain.Entry) []domain.Entry {
	out := make([]domain.Entry, len(entries))
	for i, e := range entries {
		e.Metadata = maps.Clone(e.Metadata)
		out[i] = e
	}
	return out
}

var (
	_ usecase.LedgerStore = (*ShardedStore)(nil)
	_ Journal             = (*wal.WAL)(nil)
)
