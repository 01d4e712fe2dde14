package domain

import (
	"time"

	"github.com/google/uuid"
)

// CardLedger 單張卡片在某個時間點的一致性快照
type CardLedger struct {
	CardID      string
	Accounts    []Account
	Entries     []Entry
	Withdrawals []WithdrawalRequest
	AsOf        time.Time
}

// PoolAccount 取得資金池帳戶
func (l *CardLedger) PoolAccount() (Account, bool) {
	return l.account(PoolAccountID(l.CardID))
}

// EquityAccount 取得成員權益帳戶
func (l *CardLedger) EquityAccount(userID string) (Account, bool) {
	return l.account(EquityAccountID(l.CardID, userID))
}

// Withdrawal 取得提款請求
func (l *CardLedger) Withdrawal(id uuid.UUID) (WithdrawalRequest, bool) {
	for _, w := range l.Withdrawals {
		if w.ID == id {
			return w, true
		}
	}
	return WithdrawalRequest{}, false
}

func (l *CardLedger) account(id uuid.UUID) (Account, bool) {
	for _, a := range l.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}
