package usecase

import (
	"github.com/google/uuid"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
)

// AccountRegistry 解析卡片的資金池與成員權益帳戶
//
// 帳戶不存在時加入交易的 NewAccounts，與分錄一起提交
type AccountRegistry struct {
	currency string
}

// NewAccountRegistry 建立 AccountRegistry
func NewAccountRegistry(currency string) *AccountRegistry {
	return &AccountRegistry{currency: currency}
}

// Pool 取得或延遲建立資金池帳戶
func (r *AccountRegistry) Pool(ledger *domain.CardLedger, tran *domain.Transaction) domain.Account {
	if a, ok := ledger.PoolAccount(); ok {
		return a
	}
	id := domain.PoolAccountID(ledger.CardID)
	if a, ok := staged(tran, id); ok {
		return a
	}
	a := domain.NewPoolAccount(ledger.CardID, r.currency, tran.CreatedAt)
	tran.NewAccounts = append(tran.NewAccounts, a)
	return a
}

// Equity 取得或延遲建立成員權益帳戶
func (r *AccountRegistry) Equity(ledger *domain.CardLedger, tran *domain.Transaction, userID string) domain.Account {
	if a, ok := ledger.EquityAccount(userID); ok {
		return a
	}
	id := domain.EquityAccountID(ledger.CardID, userID)
	if a, ok := staged(tran, id); ok {
		return a
	}
	a := domain.NewEquityAccount(ledger.CardID, userID, r.currency, tran.CreatedAt)
	tran.NewAccounts = append(tran.NewAccounts, a)
	return a
}

func staged(tran *domain.Transaction, id uuid.UUID) (domain.Account, bool) {
	for _, a := range tran.NewAccounts {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Account{}, false
}
