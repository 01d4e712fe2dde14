package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
)

const (
	opDeposit = "deposit"
	opCapture = "capture"
)

// PostingEngine 存款與請款
type PostingEngine struct {
	exec     *executor
	registry *AccountRegistry
	policy   Policy
}

// NewPostingEngine 建立 PostingEngine
func NewPostingEngine(store LedgerStore, locker CardLocker, policy Policy, opts ...Option) *PostingEngine {
	return &PostingEngine{
		exec:     newExecutor(store, locker, buildOptions(opts)),
		registry: NewAccountRegistry(policy.Currency),
		policy:   policy,
	}
}

// PostDeposit 存款: 資金池與成員權益各記一筆 DEPOSIT
//
// 參數:
//
//	ctx: context
//	cmd: 存款指令，TransactionID 重複時回傳先前的結果
//
// 回傳值:
//
//	*domain.PostingResult: 提交或重放的交易
//	error: 驗證、鎖、儲存錯誤
func (p *PostingEngine) PostDeposit(ctx context.Context, cmd DepositCommand) (*domain.PostingResult, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	return p.exec.execute(ctx, opDeposit, cmd.TransactionID, cmd.CardID, func(ledger *domain.CardLedger, now time.Time) (*domain.Transaction, *domain.Transaction, error) {
		tally := domain.NewTally(ledger)
		member, _ := tally.Member(cmd.UserID)
		if !domain.Fits(tally.PoolBalance, cmd.Amount) || !domain.Fits(member.Equity, cmd.Amount) {
			return nil, nil, fmt.Errorf("%w: deposit %d on card %s", domain.ErrBalanceOverflow, cmd.Amount, cmd.CardID)
		}

		tran := newTransaction(cmd.TransactionID, cmd.CardID, domain.TransactionKindDeposit, cmd.Metadata, now)
		pool := p.registry.Pool(ledger, tran)
		equity := p.registry.Equity(ledger, tran, cmd.UserID)
		tran.AddEntry(pool, cmd.Amount, domain.EntryKindDeposit)
		tran.AddEntry(equity, cmd.Amount, domain.EntryKindDeposit)
		return tran, nil, nil
	})
}

// PostCapture 刷卡請款: 資金池扣總額，各成員依拆帳扣款
//
// 參數:
//
//	ctx: context
//	cmd: 請款指令，Total 不為 0 時必須等於拆帳總和
//
// 回傳值:
//
//	*domain.PostingResult: 提交或重放的交易
//	error: 驗證、餘額、鎖、儲存錯誤
func (p *PostingEngine) PostCapture(ctx context.Context, cmd CaptureCommand) (*domain.PostingResult, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	total, err := validateSplits(cmd.Splits, cmd.Total)
	if err != nil {
		return nil, err
	}
	return p.exec.execute(ctx, opCapture, cmd.TransactionID, cmd.CardID, func(ledger *domain.CardLedger, now time.Time) (*domain.Transaction, *domain.Transaction, error) {
		tally := domain.NewTally(ledger)
		if total > tally.PoolAvailable() {
			return nil, nil, fmt.Errorf("%w: capture %d exceeds available %d", domain.ErrInsufficientPoolBalance, total, tally.PoolAvailable())
		}
		if p.policy.AllowNegativeEquity {
			for _, s := range cmd.Splits {
				if m, _ := tally.Member(s.UserID); !domain.Fits(m.Equity, -s.Amount) {
					return nil, nil, fmt.Errorf("%w: capture %d for %s", domain.ErrBalanceOverflow, s.Amount, s.UserID)
				}
			}
		} else {
			for _, s := range cmd.Splits {
				m, ok := tally.Member(s.UserID)
				if !ok {
					return nil, nil, fmt.Errorf("%w: %s has no equity on card %s", domain.ErrUnknownMember, s.UserID, cmd.CardID)
				}
				if s.Amount > m.Available() {
					return nil, nil, fmt.Errorf("%w: %s needs %d, available %d", domain.ErrInsufficientAvailableBalance, s.UserID, s.Amount, m.Available())
				}
			}
		}

		tran := newTransaction(cmd.TransactionID, cmd.CardID, domain.TransactionKindCapture, cmd.Metadata, now)
		tran.AddEntry(p.registry.Pool(ledger, tran), -total, domain.EntryKindCapture)
		for _, s := range cmd.Splits {
			tran.AddEntry(p.registry.Equity(ledger, tran, s.UserID), -s.Amount, domain.EntryKindCapture)
		}
		return tran, nil, nil
	})
}
