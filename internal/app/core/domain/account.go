package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// idNamespace 產生 name-based UUID 的命名空間，之後不可更改
var idNamespace = uuid.MustParse("6f1c2a9e-3b7d-4c52-9e0a-8d4b1f27c6e3")

// AccountKind 帳戶類型
type AccountKind string

const (
	// 卡片資金池，每張卡片恰好一個
	AccountKindPool AccountKind = "POOL"
	// 成員對資金池的權益，每張卡片每位成員最多一個
	AccountKindMemberEquity AccountKind = "MEMBER_EQUITY"
)

// Account 帳本帳戶
//
// ID 由 (CardID, Kind, UserID) 決定，並發建立時會收斂到同一個 ID
type Account struct {
	ID        uuid.UUID   `json:"id"`
	CardID    string      `json:"card_id"`
	Kind      AccountKind `json:"kind"`
	UserID    string      `json:"user_id,omitempty"`
	Currency  string      `json:"currency"`
	CreatedAt time.Time   `json:"created_at"`
}

// PoolAccountID 回傳卡片資金池帳戶 ID
func PoolAccountID(cardID string) uuid.UUID {
	return nameID(fmt.Sprintf("pool:%d:%s", len(cardID), cardID))
}

// EquityAccountID 回傳 (卡片, 成員) 權益帳戶 ID
func EquityAccountID(cardID, userID string) uuid.UUID {
	return nameID(fmt.Sprintf("equity:%d:%s:%s", len(cardID), cardID, userID))
}

// NewPoolAccount 建立資金池帳戶
func NewPoolAccount(cardID, currency string, now time.Time) Account {
	return Account{
		ID:        PoolAccountID(cardID),
		CardID:    cardID,
		Kind:      AccountKindPool,
		Currency:  currency,
		CreatedAt: now,
	}
}

// NewEquityAccount 建立成員權益帳戶
func NewEquityAccount(cardID, userID, currency string, now time.Time) Account {
	return Account{
		ID:        EquityAccountID(cardID, userID),
		CardID:    cardID,
		Kind:      AccountKindMemberEquity,
		UserID:    userID,
		Currency:  currency,
		CreatedAt: now,
	}
}

func nameID(name string) uuid.UUID {
	return uuid.NewSHA1(idNamespace, []byte(name))
}
