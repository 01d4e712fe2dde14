package usecase

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
)

// DepositCommand 存款
type DepositCommand struct {
	TransactionID domain.TransactionID `json:"transaction_id" validate:"required,max=128"`
	CardID        string               `json:"card_id" validate:"required,max=128"`
	UserID        string               `json:"user_id" validate:"required,max=128"`
	Amount        int64                `json:"amount" validate:"gt=0"`
	Metadata      map[string]string    `json:"metadata,omitempty"`
}

// CaptureCommand 刷卡請款，Total 為 0 代表不檢查總額
type CaptureCommand struct {
	TransactionID domain.TransactionID `json:"transaction_id" validate:"required,max=128"`
	CardID        string               `json:"card_id" validate:"required,max=128"`
	Splits        []domain.Split       `json:"splits" validate:"required,min=1,dive"`
	Total         int64                `json:"total,omitempty" validate:"gte=0"`
	Metadata      map[string]string    `json:"metadata,omitempty"`
}

// WithdrawalCommand 提款申請
type WithdrawalCommand struct {
	TransactionID domain.TransactionID `json:"transaction_id" validate:"required,max=128"`
	CardID        string               `json:"card_id" validate:"required,max=128"`
	UserID        string               `json:"user_id" validate:"required,max=128"`
	Amount        int64                `json:"amount" validate:"gt=0"`
	Metadata      map[string]string    `json:"metadata,omitempty"`
}

// ResolveCommand 提款出帳或撤銷
type ResolveCommand struct {
	TransactionID domain.TransactionID `json:"transaction_id" validate:"required,max=128"`
	WithdrawalID  uuid.UUID            `json:"withdrawal_id"`
	Metadata      map[string]string    `json:"metadata,omitempty"`
}

var validate = validator.New()

// validateCommand 欄位驗證，錯誤對應到 domain 的錯誤類型
func validateCommand(cmd any) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidCommand, err)
	}
	for _, fe := range verrs {
		switch {
		case strings.Contains(fe.Namespace(), ".Splits"), fe.Field() == "Total":
			return fmt.Errorf("%w: %s failed on '%s'", domain.ErrInvalidSplit, fe.Namespace(), fe.Tag())
		case fe.Field() == "Amount":
			return fmt.Errorf("%w: got %v", domain.ErrAmountMustBePositive, fe.Value())
		}
	}
	fe := verrs[0]
	return fmt.Errorf("%w: %s failed on '%s'", domain.ErrInvalidCommand, fe.Namespace(), fe.Tag())
}

// validateSplits 成員不可重複，總額需一致
//
// 回傳值:
//
//	int64: 拆帳總額
//	error: domain.ErrInvalidSplit
func validateSplits(splits []domain.Split, total int64) (int64, error) {
	seen := make(map[string]struct{}, len(splits))
	var sum int64
	for _, s := range splits {
		if _, dup := seen[s.UserID]; dup {
			return 0, fmt.Errorf("%w: user %s appears more than once", domain.ErrInvalidSplit, s.UserID)
		}
		seen[s.UserID] = struct{}{}
		if s.Amount > math.MaxInt64-sum {
			return 0, fmt.Errorf("%w: split total overflows", domain.ErrInvalidSplit)
		}
		sum += s.Amount
	}
	if total != 0 && total != sum {
		return 0, fmt.Errorf("%w: total %d does not match split sum %d", domain.ErrInvalidSplit, total, sum)
	}
	return sum, nil
}

func validateResolve(cmd ResolveCommand) error {
	if err := validateCommand(cmd); err != nil {
		return err
	}
	if cmd.WithdrawalID == uuid.Nil {
		return fmt.Errorf("%w: withdrawal_id is required", domain.ErrInvalidCommand)
	}
	return nil
}
