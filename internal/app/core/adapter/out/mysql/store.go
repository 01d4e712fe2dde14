package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-pool-ledger/pkg/mysql"
)

// LedgerStore MySQL 帳本
//
// 一筆交易的所有資料在同一個 DB transaction 內寫入；
// ledger_transactions 主鍵衝突代表其他行程已提交同一筆交易
type LedgerStore struct {
	client *mysql.Client
	now    func() time.Time
}

func NewLedgerStore(client *mysql.Client) *LedgerStore {
	return &LedgerStore{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AutoMigrate 建立或更新資料表
func (s *LedgerStore) AutoMigrate(ctx context.Context) error {
	err := s.client.DB().WithContext(ctx).AutoMigrate(&sqlTransaction{}, &sqlAccount{}, &sqlEntry{}, &sqlWithdrawal{})
	return errors.Wrap(err, "auto migrate ledger tables")
}

// Snapshot 以 REPEATABLE READ 唯讀交易讀取卡片資料
func (s *LedgerStore) Snapshot(ctx context.Context, cardID string) (*domain.CardLedger, error) {
	ledger := &domain.CardLedger{CardID: cardID}
	err := s.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var accounts []sqlAccount
		if err := tx.Where("card_id = ?", cardID).Order("created_at, id").Find(&accounts).Error; err != nil {
			return errors.Wrap(err, "select accounts")
		}
		var entries []sqlEntry
		if err := tx.Where("card_id = ?", cardID).Order("created_at, transaction_id, seq").Find(&entries).Error; err != nil {
			return errors.Wrap(err, "select entries")
		}
		var withdrawals []sqlWithdrawal
		if err := tx.Where("card_id = ?", cardID).Order("created_at, id").Find(&withdrawals).Error; err != nil {
			return errors.Wrap(err, "select withdrawals")
		}

		ledger.Accounts = make([]domain.Account, 0, len(accounts))
		for i := range accounts {
			a, err := accounts[i].toDomain()
			if err != nil {
				return errors.Wrapf(err, "decode account %s", accounts[i].ID)
			}
			ledger.Accounts = append(ledger.Accounts, a)
		}
		ledger.Entries = make([]domain.Entry, 0, len(entries))
		for i := range entries {
			e, err := entries[i].toDomain()
			if err != nil {
				return errors.Wrapf(err, "decode entry %s", entries[i].ID)
			}
			ledger.Entries = append(ledger.Entries, e)
		}
		ledger.Withdrawals = make([]domain.WithdrawalRequest, 0, len(withdrawals))
		for i := range withdrawals {
			w, err := withdrawals[i].toDomain()
			if err != nil {
				return errors.Wrapf(err, "decode withdrawal %s", withdrawals[i].ID)
			}
			ledger.Withdrawals = append(ledger.Withdrawals, w)
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, storageFailure(err)
	}
	ledger.AsOf = s.now()
	return ledger, nil
}

// Apply 原子寫入整筆交易
func (s *LedgerStore) Apply(ctx context.Context, tran *domain.Transaction) error {
	payload, err := json.Marshal(tran)
	if err != nil {
		return storageFailure(errors.Wrap(err, "marshal transaction"))
	}

	err = s.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 交易紀錄 (冪等約束)
		record := sqlTransaction{
			ID:        string(tran.ID),
			CardID:    tran.CardID,
			Kind:      string(tran.Kind),
			Payload:   payload,
			CreatedAt: tran.CreatedAt,
		}
		if err := tx.Create(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrDuplicateTransaction
			}
			return errors.Wrap(err, "insert transaction")
		}

		// 2. 延遲建立的帳戶，其他行程可能已建立同一個帳戶
		if len(tran.NewAccounts) > 0 {
			accounts := make([]sqlAccount, 0, len(tran.NewAccounts))
			for _, a := range tran.NewAccounts {
				accounts = append(accounts, toSQLAccount(a))
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&accounts).Error; err != nil {
				return errors.Wrap(err, "insert accounts")
			}
		}

		// 3. 分錄
		if len(tran.Entries) > 0 {
			entries := make([]sqlEntry, 0, len(tran.Entries))
			for _, e := range tran.Entries {
				row, err := toSQLEntry(tran.CardID, e)
				if err != nil {
					return errors.Wrap(err, "encode entry")
				}
				entries = append(entries, row)
			}
			if err := tx.Create(&entries).Error; err != nil {
				return errors.Wrap(err, "insert entries")
			}
		}

		// 4. 提款請求，狀態轉換以 WHERE status 保護
		if tran.Withdrawal != nil {
			return applyWithdrawal(tx, tran)
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrDuplicateTransaction) || errors.Is(err, domain.ErrInvalidStateTransition) ||
		errors.Is(err, domain.ErrWithdrawalNotFound) {
		return err
	}
	return storageFailure(err)
}

func applyWithdrawal(tx *gorm.DB, tran *domain.Transaction) error {
	row := toSQLWithdrawal(tran.Withdrawal)
	if tran.WithdrawalFrom == "" {
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: withdrawal %s already exists", domain.ErrInvalidStateTransition, row.ID)
			}
			return errors.Wrap(err, "insert withdrawal")
		}
		return nil
	}

	result := tx.Model(&sqlWithdrawal{}).
		Where("id = ? AND status = ?", row.ID, string(tran.WithdrawalFrom)).
		Updates(map[string]any{
			"status":       row.Status,
			"resolved_at":  row.ResolvedAt,
			"finalized_by": row.FinalizedBy,
			"reversed_by":  row.ReversedBy,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "update withdrawal")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: withdrawal %s is no longer %s", domain.ErrInvalidStateTransition, row.ID, tran.WithdrawalFrom)
	}
	return nil
}

// FindTransaction 查詢已提交交易
func (s *LedgerStore) FindTransaction(ctx context.Context, id domain.TransactionID) (*domain.Transaction, error) {
	var record sqlTransaction
	err := s.client.DB().WithContext(ctx).Where("id = ?", string(id)).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageFailure(errors.Wrap(err, "select transaction"))
	}
	var tran domain.Transaction
	if err := json.Unmarshal(record.Payload, &tran); err != nil {
		return nil, storageFailure(errors.Wrapf(err, "decode transaction %s", id))
	}
	return &tran, nil
}

// FindWithdrawal 查詢提款請求
func (s *LedgerStore) FindWithdrawal(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	var row sqlWithdrawal
	err := s.client.DB().WithContext(ctx).Where("id = ?", id.String()).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageFailure(errors.Wrap(err, "select withdrawal"))
	}
	w, err := row.toDomain()
	if err != nil {
		return nil, storageFailure(err)
	}
	return &w, nil
}

// CardIDs 已建立資金池的卡片
func (s *LedgerStore) CardIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.client.DB().WithContext(ctx).Model(&sqlAccount{}).
		Where("kind = ?", string(domain.AccountKindPool)).
		Order("card_id").
		Pluck("card_id", &ids).Error
	if err != nil {
		return nil, storageFailure(errors.Wrap(err, "select cards"))
	}
	return ids, nil
}

func storageFailure(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStorageFailure, err)
}

var _ usecase.LedgerStore = (*LedgerStore)(nil)
