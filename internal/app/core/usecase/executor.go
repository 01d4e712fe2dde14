package usecase

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-pool-ledger/internal/observability"
)

// buildFunc 在卡片鎖內依據快照組出交易
//
// 回傳 prior 不為 nil 代表操作已由先前的交易完成，直接當作重放結果
type buildFunc func(ledger *domain.CardLedger, now time.Time) (tran *domain.Transaction, prior *domain.Transaction, err error)

// executor 所有寫入操作共用的流程:
// 重放檢查 -> 取卡片鎖 -> 再次檢查 -> 快照 -> 組交易 -> 原子寫入
type executor struct {
	store  LedgerStore
	locker CardLocker
	logger *zap.Logger
	now    func() time.Time
}

func newExecutor(store LedgerStore, locker CardLocker, o options) *executor {
	return &executor{store: store, locker: locker, logger: o.logger, now: o.now}
}

func (e *executor) execute(ctx context.Context, op string, txID domain.TransactionID, cardID string, build buildFunc) (*domain.PostingResult, error) {
	if prior, err := e.lookup(ctx, txID); err != nil {
		return nil, e.fail(op, err)
	} else if prior != nil {
		return e.replay(op, prior), nil
	}

	start := time.Now()
	unlock, err := e.locker.Lock(ctx, cardID)
	observability.LockWait.Observe(time.Since(start).Seconds())
	if err != nil {
		e.logger.Warn("card lock not acquired", zap.String("op", op), zap.String("card_id", cardID), zap.Error(err))
		return nil, e.fail(op, err)
	}
	defer unlock()

	// 等鎖期間可能有其他請求提交了同一筆交易
	if prior, err := e.lookup(ctx, txID); err != nil {
		return nil, e.fail(op, err)
	} else if prior != nil {
		return e.replay(op, prior), nil
	}

	ledger, err := e.store.Snapshot(ctx, cardID)
	if err != nil {
		return nil, e.fail(op, storageError(err))
	}

	tran, prior, err := build(ledger, e.now())
	if err != nil {
		observability.Postings.WithLabelValues(op, observability.OutcomeRejected).Inc()
		e.logger.Debug("operation rejected", zap.String("op", op), zap.String("tx_id", string(txID)), zap.Error(err))
		return nil, err
	}
	if prior != nil {
		return e.replay(op, prior), nil
	}

	if err := e.store.Apply(ctx, tran); err != nil {
		if errors.Is(err, domain.ErrDuplicateTransaction) {
			// 其他行程搶先提交
			if prior, ferr := e.lookup(ctx, txID); ferr == nil && prior != nil {
				return e.replay(op, prior), nil
			}
		}
		e.logger.Error("apply transaction failed", zap.String("op", op), zap.String("tx_id", string(txID)), zap.Error(err))
		return nil, e.fail(op, storageError(err))
	}

	observability.Postings.WithLabelValues(op, observability.OutcomeCommitted).Inc()
	e.logger.Debug("transaction committed",
		zap.String("op", op),
		zap.String("tx_id", string(tran.ID)),
		zap.String("card_id", tran.CardID),
		zap.Int("entries", len(tran.Entries)),
	)
	return &domain.PostingResult{Transaction: tran}, nil
}

func (e *executor) lookup(ctx context.Context, txID domain.TransactionID) (*domain.Transaction, error) {
	prior, err := e.store.FindTransaction(ctx, txID)
	if err != nil {
		return nil, storageError(err)
	}
	return prior, nil
}

func (e *executor) replay(op string, prior *domain.Transaction) *domain.PostingResult {
	observability.Replays.WithLabelValues(op).Inc()
	e.logger.Info("transaction replayed", zap.String("op", op), zap.String("tx_id", string(prior.ID)))
	return &domain.PostingResult{Transaction: prior, Replayed: true}
}

func (e *executor) fail(op string, err error) error {
	observability.Postings.WithLabelValues(op, observability.OutcomeFailed).Inc()
	return err
}

// storageError 儲存層錯誤一律標記為可重試的儲存失敗，保留原本的錯誤鏈
func storageError(err error) error {
	if errors.Is(err, domain.ErrStorageFailure) || errors.Is(err, domain.ErrLockTimeout) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStorageFailure, err)
}

// newTransaction 建立空交易，metadata 複製一份，呼叫端之後修改不影響已提交的分錄
func newTransaction(id domain.TransactionID, cardID string, kind domain.TransactionKind, metadata map[string]string, now time.Time) *domain.Transaction {
	return &domain.Transaction{
		ID:        id,
		CardID:    cardID,
		Kind:      kind,
		Metadata:  maps.Clone(metadata),
		CreatedAt: now,
	}
}
