package domain

import (
	"time"

	"github.com/google/uuid"
)

// WithdrawalStatus 提款請求狀態
type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "PENDING"
	WithdrawalFinalized WithdrawalStatus = "FINALIZED"
	WithdrawalReversed  WithdrawalStatus = "REVERSED"
)

// CanTransitionTo 檢查狀態轉換是否合法
//
//	PENDING   -> FINALIZED
//	PENDING   -> REVERSED
//	FINALIZED -> REVERSED (退回已出帳的金額)
func (s WithdrawalStatus) CanTransitionTo(next WithdrawalStatus) bool {
	switch s {
	case WithdrawalPending:
		return next == WithdrawalFinalized || next == WithdrawalReversed
	case WithdrawalFinalized:
		return next == WithdrawalReversed
	default:
		return false
	}
}

// WithdrawalRequest 成員提款請求
type WithdrawalRequest struct {
	ID          uuid.UUID        `json:"id"`
	CardID      string           `json:"card_id"`
	UserID      string           `json:"user_id"`
	Amount      int64            `json:"amount"`
	Status      WithdrawalStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	ResolvedAt  *time.Time       `json:"resolved_at,omitempty"`
	ReservedBy  TransactionID    `json:"reserved_by"`
	FinalizedBy TransactionID    `json:"finalized_by,omitempty"`
	ReversedBy  TransactionID    `json:"reversed_by,omitempty"`
}

// WithdrawalID 由保留交易 ID 推導提款請求 ID
func WithdrawalID(reservedBy TransactionID) uuid.UUID {
	return nameID("withdrawal:" + string(reservedBy))
}

// ResolvedBy 回傳讓請求進入指定狀態的交易 ID
func (w *WithdrawalRequest) ResolvedBy(status WithdrawalStatus) TransactionID {
	switch status {
	case WithdrawalPending:
		return w.ReservedBy
	case WithdrawalFinalized:
		return w.FinalizedBy
	case WithdrawalReversed:
		return w.ReversedBy
	}
	return ""
}
