package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-pool-ledger/internal/observability"
)

// ReconciliationService 由分錄重算餘額並檢查 sum(memberEquity) == poolBalance
//
// 只讀，不修改任何資料
type ReconciliationService struct {
	store  LedgerStore
	logger *zap.Logger
	now    func() time.Time
}

// NewReconciliationService 建立 ReconciliationService
func NewReconciliationService(store LedgerStore, opts ...Option) *ReconciliationService {
	o := buildOptions(opts)
	return &ReconciliationService{store: store, logger: o.logger, now: o.now}
}

// Reconcile 對單張卡片對帳
//
// 不一致不會回傳 error，由報告的 Consistent 欄位表示
func (s *ReconciliationService) Reconcile(ctx context.Context, cardID string) (*domain.CardReconciliation, error) {
	if cardID == "" {
		return nil, fmt.Errorf("%w: card_id is required", domain.ErrInvalidCommand)
	}
	ledger, err := s.store.Snapshot(ctx, cardID)
	if err != nil {
		return nil, storageError(err)
	}
	report := BuildReconciliation(domain.NewTally(ledger), s.now())
	s.record(report)
	return report, nil
}

// ReconcileAll 對所有卡片對帳
func (s *ReconciliationService) ReconcileAll(ctx context.Context) ([]*domain.CardReconciliation, error) {
	cardIDs, err := s.store.CardIDs(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	reports := make([]*domain.CardReconciliation, 0, len(cardIDs))
	for _, id := range cardIDs {
		report, err := s.Reconcile(ctx, id)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (s *ReconciliationService) record(r *domain.CardReconciliation) {
	if r.Consistent && r.ReservationsConsistent {
		observability.Reconciliations.WithLabelValues(observability.ResultConsistent).Inc()
		return
	}
	observability.Reconciliations.WithLabelValues(observability.ResultInconsistent).Inc()
	s.logger.Warn("ledger inconsistency detected",
		zap.String("card_id", r.CardID),
		zap.Int64("pool_balance", r.PoolBalance),
		zap.Int64("equity_total", r.EquityTotal),
		zap.Int64("pending_withdrawals", r.PendingWithdrawals),
		zap.Int64("held_reservations", r.HeldReservations),
		zap.Int64("unattributed", r.Unattributed),
	)
}

// BuildReconciliation 由 Tally 產生對帳報告
func BuildReconciliation(tally *domain.Tally, checkedAt time.Time) *domain.CardReconciliation {
	members := tally.Members()
	equities := make([]domain.MemberEquity, 0, len(members))
	for _, m := range members {
		equities = append(equities, domain.MemberEquity{UserID: m.UserID, Equity: m.Equity})
	}
	return &domain.CardReconciliation{
		CardID:                 tally.CardID,
		PoolBalance:            tally.PoolBalance,
		MemberEquities:         equities,
		EquityTotal:            tally.EquityTotal(),
		PendingWithdrawals:     tally.PendingWithdrawals,
		HeldReservations:       tally.HeldReservations,
		Unattributed:           tally.Unattributed,
		Consistent:             tally.Consistent(),
		ReservationsConsistent: tally.ReservationsConsistent(),
		CheckedAt:              checkedAt,
	}
}
