package domain

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// MemberTally 單一成員的加總
type MemberTally struct {
	UserID string
	// Equity: 已結算權益
	Equity int64
	// Pending: PENDING 提款請求總額
	Pending int64
	// Held: 保留款分錄反向加總，正常情況等於 Pending
	Held int64
}

// Available 可用權益 = 已結算權益 - 待出帳提款
func (m MemberTally) Available() int64 {
	return m.Equity - m.Pending
}

// Tally 由分錄重新計算的卡片餘額
//
// 對帳與餘額投影都只透過這個函式做加總，避免兩套算法分歧
type Tally struct {
	CardID             string
	Currency           string
	PoolBalance        int64
	HasPool            bool
	PendingWithdrawals int64
	HeldReservations   int64
	// Unattributed: 找不到對應帳戶的分錄加總，正常為 0
	Unattributed int64
	members      map[string]*MemberTally
}

// NewTally 計算快照加總
func NewTally(ledger *CardLedger) *Tally {
	t := &Tally{
		CardID:  ledger.CardID,
		members: make(map[string]*MemberTally),
	}
	accounts := make(map[uuid.UUID]Account, len(ledger.Accounts))
	for _, a := range ledger.Accounts {
		accounts[a.ID] = a
		switch a.Kind {
		case AccountKindPool:
			t.HasPool = true
			t.Currency = a.Currency
		case AccountKindMemberEquity:
			t.member(a.UserID)
		}
	}

	for _, e := range ledger.Entries {
		a, ok := accounts[e.AccountID]
		if !ok {
			t.Unattributed += e.Amount
			continue
		}
		switch a.Kind {
		case AccountKindPool:
			if !e.Kind.IsHold() {
				t.PoolBalance += e.Amount
			}
		case AccountKindMemberEquity:
			m := t.member(a.UserID)
			if e.Kind.IsHold() {
				m.Held -= e.Amount
				t.HeldReservations -= e.Amount
			} else {
				m.Equity += e.Amount
			}
		}
	}

	for _, w := range ledger.Withdrawals {
		if w.Status != WithdrawalPending {
			continue
		}
		t.member(w.UserID).Pending += w.Amount
		t.PendingWithdrawals += w.Amount
	}
	return t
}

func (t *Tally) member(userID string) *MemberTally {
	m, ok := t.members[userID]
	if !ok {
		m = &MemberTally{UserID: userID}
		t.members[userID] = m
	}
	return m
}

// Member 取得成員加總，不存在時回傳 false
func (t *Tally) Member(userID string) (MemberTally, bool) {
	m, ok := t.members[userID]
	if !ok {
		return MemberTally{UserID: userID}, false
	}
	return *m, true
}

// Members 依 UserID 排序回傳所有成員
func (t *Tally) Members() []MemberTally {
	out := make([]MemberTally, 0, len(t.members))
	for _, m := range t.members {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// EquityTotal 所有成員已結算權益加總
func (t *Tally) EquityTotal() int64 {
	var sum int64
	for _, m := range t.members {
		sum += m.Equity
	}
	return sum
}

// PoolAvailable 資金池可用餘額 = 已結算餘額 - 待出帳提款
func (t *Tally) PoolAvailable() int64 {
	return t.PoolBalance - t.PendingWithdrawals
}

// Consistent sum(memberEquity) == poolBalance
func (t *Tally) Consistent() bool {
	return t.Unattributed == 0 && t.EquityTotal() == t.PoolBalance
}

// ReservationsConsistent 保留款分錄與 PENDING 請求一致
func (t *Tally) ReservationsConsistent() bool {
	if t.HeldReservations != t.PendingWithdrawals {
		return false
	}
	for _, m := range t.members {
		if m.Held != m.Pending {
			return false
		}
	}
	return true
}

// Fits balance 加上 delta 後是否仍在 int64 範圍內
func Fits(balance, delta int64) bool {
	if delta > 0 {
		return balance <= math.MaxInt64-delta
	}
	return balance >= math.MinInt64-delta
}
