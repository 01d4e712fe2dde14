package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
)

const (
	opWithdrawalRequest  = "withdrawal_request"
	opWithdrawalFinalize = "withdrawal_finalize"
	opWithdrawalReverse  = "withdrawal_reverse"
)

// WithdrawalMachine 兩階段提款: PENDING -> FINALIZED / REVERSED
type WithdrawalMachine struct {
	exec  *executor
	store LedgerStore
}

// NewWithdrawalMachine 建立 WithdrawalMachine
func NewWithdrawalMachine(store LedgerStore, locker CardLocker, opts ...Option) *WithdrawalMachine {
	return &WithdrawalMachine{
		exec:  newExecutor(store, locker, buildOptions(opts)),
		store: store,
	}
}

// RequestWithdrawal 建立 PENDING 提款請求並保留成員權益
//
// 參數:
//
//	ctx: context
//	cmd: 提款指令
//
// 回傳值:
//
//	*domain.PostingResult: Transaction.Withdrawal 為建立的請求
//	error: 成員不存在、可用權益不足、資金池可用餘額不足等
func (m *WithdrawalMachine) RequestWithdrawal(ctx context.Context, cmd WithdrawalCommand) (*domain.PostingResult, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	return m.exec.execute(ctx, opWithdrawalRequest, cmd.TransactionID, cmd.CardID, func(ledger *domain.CardLedger, now time.Time) (*domain.Transaction, *domain.Transaction, error) {
		equity, ok := ledger.EquityAccount(cmd.UserID)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s has no equity on card %s", domain.ErrUnknownMember, cmd.UserID, cmd.CardID)
		}
		tally := domain.NewTally(ledger)
		member, _ := tally.Member(cmd.UserID)
		if cmd.Amount > member.Available() {
			return nil, nil, fmt.Errorf("%w: %s requests %d, available %d", domain.ErrInsufficientAvailableBalance, cmd.UserID, cmd.Amount, member.Available())
		}
		// 負權益政策下成員可用餘額可能超過資金池
		if cmd.Amount > tally.PoolAvailable() {
			return nil, nil, fmt.Errorf("%w: withdrawal %d exceeds available %d", domain.ErrInsufficientPoolBalance, cmd.Amount, tally.PoolAvailable())
		}

		tran := newTransaction(cmd.TransactionID, cmd.CardID, domain.TransactionKindWithdrawalRequest, cmd.Metadata, now)
		tran.AddEntry(equity, -cmd.Amount, domain.EntryKindWithdrawalReserve)
		tran.Withdrawal = &domain.WithdrawalRequest{
			ID:         domain.WithdrawalID(cmd.TransactionID),
			CardID:     cmd.CardID,
			UserID:     cmd.UserID,
			Amount:     cmd.Amount,
			Status:     domain.WithdrawalPending,
			CreatedAt:  now,
			ReservedBy: cmd.TransactionID,
		}
		return tran, nil, nil
	})
}

// FinalizeWithdrawal 出帳: 資金池與成員權益扣款，並釋放保留款
func (m *WithdrawalMachine) FinalizeWithdrawal(ctx context.Context, cmd ResolveCommand) (*domain.PostingResult, error) {
	return m.resolve(ctx, opWithdrawalFinalize, cmd, domain.WithdrawalFinalized)
}

// ReverseWithdrawal 撤銷: PENDING 釋放保留款，FINALIZED 以 REVERSAL 退回款項
func (m *WithdrawalMachine) ReverseWithdrawal(ctx context.Context, cmd ResolveCommand) (*domain.PostingResult, error) {
	return m.resolve(ctx, opWithdrawalReverse, cmd, domain.WithdrawalReversed)
}

func (m *WithdrawalMachine) resolve(ctx context.Context, op string, cmd ResolveCommand, target domain.WithdrawalStatus) (*domain.PostingResult, error) {
	if err := validateResolve(cmd); err != nil {
		return nil, err
	}
	req, err := m.store.FindWithdrawal(ctx, cmd.WithdrawalID)
	if err != nil {
		return nil, storageError(err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrWithdrawalNotFound, cmd.WithdrawalID)
	}

	kind := domain.TransactionKindWithdrawalFinalize
	if target == domain.WithdrawalReversed {
		kind = domain.TransactionKindWithdrawalReverse
	}

	return m.exec.execute(ctx, op, cmd.TransactionID, req.CardID, func(ledger *domain.CardLedger, now time.Time) (*domain.Transaction, *domain.Transaction, error) {
		current, ok := ledger.Withdrawal(cmd.WithdrawalID)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrWithdrawalNotFound, cmd.WithdrawalID)
		}
		if current.Status == target {
			prior, err := m.store.FindTransaction(ctx, current.ResolvedBy(target))
			if err != nil {
				return nil, nil, storageError(err)
			}
			if prior != nil {
				return nil, prior, nil
			}
		}
		if !current.Status.CanTransitionTo(target) {
			return nil, nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStateTransition, current.Status, target)
		}

		pool, ok := ledger.PoolAccount()
		if !ok {
			return nil, nil, fmt.Errorf("%w: card %s has no pool", domain.ErrStorageFailure, current.CardID)
		}
		equity, ok := ledger.EquityAccount(current.UserID)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s has no equity on card %s", domain.ErrUnknownMember, current.UserID, current.CardID)
		}

		tran := newTransaction(cmd.TransactionID, current.CardID, kind, cmd.Metadata, now)
		tran.WithdrawalFrom = current.Status
		switch {
		case current.Status == domain.WithdrawalPending && target == domain.WithdrawalFinalized:
			tran.AddEntry(pool, -current.Amount, domain.EntryKindWithdrawalFinalize)
			tran.AddEntry(equity, -current.Amount, domain.EntryKindWithdrawalFinalize)
			tran.AddEntry(equity, current.Amount, domain.EntryKindWithdrawalRelease)
		case current.Status == domain.WithdrawalPending:
			tran.AddEntry(equity, current.Amount, domain.EntryKindWithdrawalRelease)
		default:
			// FINALIZED -> REVERSED
			tally := domain.NewTally(ledger)
			member, _ := tally.Member(current.UserID)
			if !domain.Fits(tally.PoolBalance, current.Amount) || !domain.Fits(member.Equity, current.Amount) {
				return nil, nil, fmt.Errorf("%w: reversal %d on card %s", domain.ErrBalanceOverflow, current.Amount, current.CardID)
			}
			tran.AddEntry(pool, current.Amount, domain.EntryKindReversal)
			tran.AddEntry(equity, current.Amount, domain.EntryKindReversal)
		}

		next := current
		next.Status = target
		resolvedAt := now
		next.ResolvedAt = &resolvedAt
		if target == domain.WithdrawalFinalized {
			next.FinalizedBy = cmd.TransactionID
		} else {
			next.ReversedBy = cmd.TransactionID
		}
		tran.Withdrawal = &next
		return tran, nil, nil
	})
}
