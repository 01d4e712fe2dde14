package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntryKind 分錄類型
type EntryKind string

const (
	EntryKindDeposit            EntryKind = "DEPOSIT"
	EntryKindCapture            EntryKind = "CAPTURE"
	EntryKindWithdrawalReserve  EntryKind = "WITHDRAWAL_RESERVE"
	EntryKindWithdrawalFinalize EntryKind = "WITHDRAWAL_FINALIZE"
	EntryKindWithdrawalRelease  EntryKind = "WITHDRAWAL_RELEASE"
	EntryKindReversal           EntryKind = "REVERSAL"
)

// IsHold 是否為保留款分錄
//
// 保留款分錄只影響可用餘額的計算，不影響已結算餘額
func (k EntryKind) IsHold() bool {
	return k == EntryKindWithdrawalReserve || k == EntryKindWithdrawalRelease
}

// Entry 不可變的帳戶異動，正數為 credit，負數為 debit
type Entry struct {
	ID            uuid.UUID     `json:"id"`
	AccountID     uuid.UUID     `json:"account_id"`
	TransactionID TransactionID `json:"transaction_id"`
	// Seq: 在同一筆交易內的序號，與 TransactionID 組成唯一鍵
	Seq       int               `json:"seq"`
	Amount    int64             `json:"amount"`
	Kind      EntryKind         `json:"kind"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// EntryID 回傳交易內第 seq 筆分錄的 ID
func EntryID(txID TransactionID, seq int) uuid.UUID {
	return nameID(fmt.Sprintf("entry:%s:%d", txID, seq))
}
