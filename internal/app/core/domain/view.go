package domain

import "time"

// MemberBalance 成員在卡片上的顯示餘額
type MemberBalance struct {
	UserID           string `json:"user_id"`
	Equity           int64  `json:"equity"`
	Pending          int64  `json:"pending"`
	Available        int64  `json:"available"`
	EquityDisplay    string `json:"equity_display"`
	AvailableDisplay string `json:"available_display"`
}

// CardDisplayBalances 單張卡片的顯示餘額
type CardDisplayBalances struct {
	CardID             string          `json:"card_id"`
	Currency           string          `json:"currency"`
	PoolBalance        int64           `json:"pool_balance"`
	PoolAvailable      int64           `json:"pool_available"`
	PendingWithdrawals int64           `json:"pending_withdrawals"`
	PoolBalanceDisplay string          `json:"pool_balance_display"`
	Members            []MemberBalance `json:"members"`
	AsOf               time.Time       `json:"as_of"`
}

// AggregatedWalletBalances 錢包底下所有卡片的加總
//
// Members 為跨卡片合併後的成員權益
type AggregatedWalletBalances struct {
	WalletID           string                `json:"wallet_id"`
	Currency           string                `json:"currency"`
	PoolBalance        int64                 `json:"pool_balance"`
	PoolAvailable      int64                 `json:"pool_available"`
	PendingWithdrawals int64                 `json:"pending_withdrawals"`
	PoolBalanceDisplay string                `json:"pool_balance_display"`
	Members            []MemberBalance       `json:"members"`
	Cards              []CardDisplayBalances `json:"cards"`
	AsOf               time.Time             `json:"as_of"`
}

// MemberEquity 對帳報告中的成員權益
type MemberEquity struct {
	UserID string `json:"user_id"`
	Equity int64  `json:"equity"`
}

// CardReconciliation 對帳報告
//
// Consistent 為 false 代表資料完整性事故，需要另外告警，不是請求錯誤
type CardReconciliation struct {
	CardID                 string         `json:"card_id"`
	PoolBalance            int64          `json:"pool_balance"`
	MemberEquities         []MemberEquity `json:"member_equities"`
	EquityTotal            int64          `json:"equity_total"`
	PendingWithdrawals     int64          `json:"pending_withdrawals"`
	HeldReservations       int64          `json:"held_reservations"`
	Unattributed           int64          `json:"unattributed"`
	Consistent             bool           `json:"consistent"`
	ReservationsConsistent bool           `json:"reservations_consistent"`
	CheckedAt              time.Time      `json:"checked_at"`
}
