package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
)

// BalanceProjector 卡片與錢包的顯示餘額
type BalanceProjector struct {
	store     LedgerStore
	directory WalletDirectory
	policy    Policy
	now       func() time.Time
}

// NewBalanceProjector 建立 BalanceProjector
func NewBalanceProjector(store LedgerStore, directory WalletDirectory, policy Policy, opts ...Option) *BalanceProjector {
	o := buildOptions(opts)
	return &BalanceProjector{store: store, directory: directory, policy: policy, now: o.now}
}

// CardBalances 單張卡片的餘額
func (p *BalanceProjector) CardBalances(ctx context.Context, cardID string) (*domain.CardDisplayBalances, error) {
	if cardID == "" {
		return nil, fmt.Errorf("%w: card_id is required", domain.ErrInvalidCommand)
	}
	ledger, err := p.store.Snapshot(ctx, cardID)
	if err != nil {
		return nil, storageError(err)
	}
	tally := domain.NewTally(ledger)
	currency := tally.Currency
	if currency == "" {
		currency = p.policy.Currency
	}

	members := tally.Members()
	view := &domain.CardDisplayBalances{
		CardID:             cardID,
		Currency:           currency,
		PoolBalance:        tally.PoolBalance,
		PoolAvailable:      tally.PoolAvailable(),
		PendingWithdrawals: tally.PendingWithdrawals,
		PoolBalanceDisplay: p.Display(tally.PoolBalance),
		Members:            make([]domain.MemberBalance, 0, len(members)),
		AsOf:               p.asOf(ledger),
	}
	for _, m := range members {
		view.Members = append(view.Members, p.memberBalance(m.UserID, m.Equity, m.Pending))
	}
	return view, nil
}

// WalletBalances 錢包底下所有卡片的加總，成員權益跨卡片合併
func (p *BalanceProjector) WalletBalances(ctx context.Context, walletID string) (*domain.AggregatedWalletBalances, error) {
	if walletID == "" {
		return nil, fmt.Errorf("%w: wallet_id is required", domain.ErrInvalidCommand)
	}
	cardIDs, err := p.directory.CardsOfWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}

	agg := &domain.AggregatedWalletBalances{
		WalletID: walletID,
		Currency: p.policy.Currency,
		Cards:    make([]domain.CardDisplayBalances, 0, len(cardIDs)),
		AsOf:     p.now(),
	}
	type sum struct{ equity, pending int64 }
	merged := make(map[string]*sum)
	for _, id := range cardIDs {
		card, err := p.CardBalances(ctx, id)
		if err != nil {
			return nil, err
		}
		agg.PoolBalance += card.PoolBalance
		agg.PoolAvailable += card.PoolAvailable
		agg.PendingWithdrawals += card.PendingWithdrawals
		for _, m := range card.Members {
			s, ok := merged[m.UserID]
			if !ok {
				s = &sum{}
				merged[m.UserID] = s
			}
			s.equity += m.Equity
			s.pending += m.Pending
		}
		agg.Cards = append(agg.Cards, *card)
	}

	agg.PoolBalanceDisplay = p.Display(agg.PoolBalance)
	agg.Members = make([]domain.MemberBalance, 0, len(merged))
	for userID, s := range merged {
		agg.Members = append(agg.Members, p.memberBalance(userID, s.equity, s.pending))
	}
	sort.Slice(agg.Members, func(i, j int) bool { return agg.Members[i].UserID < agg.Members[j].UserID })
	return agg, nil
}

// Display 最小單位轉成顯示字串，例如 12345 -> "123.45"
func (p *BalanceProjector) Display(amount int64) string {
	exp := p.policy.MinorUnitExponent
	return decimal.New(amount, -exp).StringFixed(exp)
}

func (p *BalanceProjector) memberBalance(userID string, equity, pending int64) domain.MemberBalance {
	available := equity - pending
	return domain.MemberBalance{
		UserID:           userID,
		Equity:           equity,
		Pending:          pending,
		Available:        available,
		EquityDisplay:    p.Display(equity),
		AvailableDisplay: p.Display(available),
	}
}

func (p *BalanceProjector) asOf(ledger *domain.CardLedger) time.Time {
	if ledger.AsOf.IsZero() {
		return p.now()
	}
	return ledger.AsOf
}
