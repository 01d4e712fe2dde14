package domain

import "time"

// TransactionID 呼叫端提供的交易追蹤號，同一個 ID 最多套用一次
type TransactionID string

// TransactionKind 交易類型
type TransactionKind string

const (
	// 存款
	TransactionKindDeposit TransactionKind = "DEPOSIT"
	// 刷卡請款
	TransactionKindCapture TransactionKind = "CAPTURE"
	// 提款保留
	TransactionKindWithdrawalRequest TransactionKind = "WITHDRAWAL_REQUEST"
	// 提款出帳
	TransactionKindWithdrawalFinalize TransactionKind = "WITHDRAWAL_FINALIZE"
	// 提款撤銷
	TransactionKindWithdrawalReverse TransactionKind = "WITHDRAWAL_REVERSE"
)

// Transaction 一筆邏輯交易，所有欄位一次原子寫入
//
// 已提交的 Transaction 會完整保存，重放時原樣回傳
type Transaction struct {
	ID     TransactionID   `json:"id"`
	CardID string          `json:"card_id"`
	Kind   TransactionKind `json:"kind"`
	// NewAccounts: 本次交易延遲建立的帳戶
	NewAccounts []Account `json:"new_accounts,omitempty"`
	Entries     []Entry   `json:"entries"`
	// Withdrawal: 交易後的提款請求狀態 (僅提款相關交易)
	Withdrawal *WithdrawalRequest `json:"withdrawal,omitempty"`
	// WithdrawalFrom: 預期的前一個狀態，空字串代表新建立
	WithdrawalFrom WithdrawalStatus  `json:"withdrawal_from,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// AddEntry 加入一筆分錄，並依序編號
func (t *Transaction) AddEntry(account Account, amount int64, kind EntryKind) {
	seq := len(t.Entries)
	t.Entries = append(t.Entries, Entry{
		ID:            EntryID(t.ID, seq),
		AccountID:     account.ID,
		TransactionID: t.ID,
		Seq:           seq,
		Amount:        amount,
		Kind:          kind,
		CreatedAt:     t.CreatedAt,
		Metadata:      t.Metadata,
	})
}

// Net 回傳指定帳戶在本交易的已結算淨額 (不含保留款分錄)
func (t *Transaction) Net(account Account) int64 {
	var sum int64
	for _, e := range t.Entries {
		if e.AccountID == account.ID && !e.Kind.IsHold() {
			sum += e.Amount
		}
	}
	return sum
}

// PostingResult 交易結果
//
// Replayed 為 true 代表交易先前已提交，Transaction 為當時的紀錄
type PostingResult struct {
	Transaction *Transaction `json:"transaction"`
	Replayed    bool         `json:"replayed"`
}
