package mysql

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
)

// sqlTransaction 對應 ledger_transactions 表，主鍵即冪等約束
type sqlTransaction struct {
	ID        string    `gorm:"primaryKey;size:128"`
	CardID    string    `gorm:"size:128;index"`
	Kind      string    `gorm:"size:32"`
	Payload   []byte    `gorm:"type:json"` // 完整的 domain.Transaction，重放時原樣回傳
	CreatedAt time.Time `gorm:"precision:6"`
}

func (*sqlTransaction) TableName() string {
	return "ledger_transactions"
}

// sqlAccount 對應 ledger_accounts 表
type sqlAccount struct {
	ID        string    `gorm:"primaryKey;size:36"`
	CardID    string    `gorm:"size:128;uniqueIndex:uk_account_owner,priority:1"`
	Kind      string    `gorm:"size:16;uniqueIndex:uk_account_owner,priority:2"`
	UserID    string    `gorm:"size:128;uniqueIndex:uk_account_owner,priority:3"`
	Currency  string    `gorm:"size:3"`
	CreatedAt time.Time `gorm:"precision:6"`
}

func (*sqlAccount) TableName() string {
	return "ledger_accounts"
}

// sqlEntry 對應 ledger_entries 表
type sqlEntry struct {
	ID            string    `gorm:"primaryKey;size:36"`
	AccountID     string    `gorm:"size:36;index"`
	CardID        string    `gorm:"size:128;index"`
	TransactionID string    `gorm:"size:128;uniqueIndex:uk_entry_tx_seq,priority:1"`
	Seq           int       `gorm:"uniqueIndex:uk_entry_tx_seq,priority:2"`
	Amount        int64     `gorm:"not null"`
	Kind          string    `gorm:"size:32"`
	Metadata      string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"precision:6"`
}

func (*sqlEntry) TableName() string {
	return "ledger_entries"
}

// sqlWithdrawal 對應 withdrawal_requests 表
type sqlWithdrawal struct {
	ID          string     `gorm:"primaryKey;size:36"`
	CardID      string     `gorm:"size:128;index"`
	UserID      string     `gorm:"size:128"`
	Amount      int64      `gorm:"not null"`
	Status      string     `gorm:"size:16"`
	CreatedAt   time.Time  `gorm:"precision:6"`
	ResolvedAt  *time.Time `gorm:"precision:6"`
	ReservedBy  string     `gorm:"size:128"`
	FinalizedBy string     `gorm:"size:128"`
	ReversedBy  string     `gorm:"size:128"`
}

func (*sqlWithdrawal) TableName() string {
	return "withdrawal_requests"
}

func toSQLAccount(a domain.Account) sqlAccount {
	return sqlAccount{
		ID:        a.ID.String(),
		CardID:    a.CardID,
		Kind:      string(a.Kind),
		UserID:    a.UserID,
		Currency:  a.Currency,
		CreatedAt: a.CreatedAt,
	}
}

func (a *sqlAccount) toDomain() (domain.Account, error) {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return domain.Account{}, err
	}
	return domain.Account{
		ID:        id,
		CardID:    a.CardID,
		Kind:      domain.AccountKind(a.Kind),
		UserID:    a.UserID,
		Currency:  a.Currency,
		CreatedAt: a.CreatedAt,
	}, nil
}

func toSQLEntry(cardID string, e domain.Entry) (sqlEntry, error) {
	var metadata string
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return sqlEntry{}, err
		}
		metadata = string(raw)
	}
	return sqlEntry{
		ID:            e.ID.String(),
		AccountID:     e.AccountID.String(),
		CardID:        cardID,
		TransactionID: string(e.TransactionID),
		Seq:           e.Seq,
		Amount:        e.Amount,
		Kind:          string(e.Kind),
		Metadata:      metadata,
		CreatedAt:     e.CreatedAt,
	}, nil
}

func (e *sqlEntry) toDomain() (domain.Entry, error) {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		return domain.Entry{}, err
	}
	accountID, err := uuid.Parse(e.AccountID)
	if err != nil {
		return domain.Entry{}, err
	}
	entry := domain.Entry{
		ID:            id,
		AccountID:     accountID,
		TransactionID: domain.TransactionID(e.TransactionID),
		Seq:           e.Seq,
		Amount:        e.Amount,
		Kind:          domain.EntryKind(e.Kind),
		CreatedAt:     e.CreatedAt,
	}
	if e.Metadata != "" {
		if err := json.Unmarshal([]byte(e.Metadata), &entry.Metadata); err != nil {
			return domain.Entry{}, err
		}
	}
	return entry, nil
}

func toSQLWithdrawal(w *domain.WithdrawalRequest) sqlWithdrawal {
	return sqlWithdrawal{
		ID:          w.ID.String(),
		CardID:      w.CardID,
		UserID:      w.UserID,
		Amount:      w.Amount,
		Status:      string(w.Status),
		CreatedAt:   w.CreatedAt,
		ResolvedAt:  w.ResolvedAt,
		ReservedBy:  string(w.ReservedBy),
		FinalizedBy: string(w.FinalizedBy),
		ReversedBy:  string(w.ReversedBy),
	}
}

func (w *sqlWithdrawal) toDomain() (domain.WithdrawalRequest, error) {
	id, err := uuid.Parse(w.ID)
	if err != nil {
		return domain.WithdrawalRequest{}, err
	}
	return domain.WithdrawalRequest{
		ID:          id,
		CardID:      w.CardID,
		UserID:      w.UserID,
		Amount:      w.Amount,
		Status:      domain.WithdrawalStatus(w.Status),
		CreatedAt:   w.CreatedAt,
		ResolvedAt:  w.ResolvedAt,
		ReservedBy:  domain.TransactionID(w.ReservedBy),
		FinalizedBy: domain.TransactionID(w.FinalizedBy),
		ReversedBy:  domain.TransactionID(w.ReversedBy),
	}, nil
}
