package usecase

import (
	"context"
	"fmt"
	"slices"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
)

// Gatekeeper 呼叫帳本前先向錢包服務確認卡片與成員
type Gatekeeper struct {
	directory WalletDirectory
}

// NewGatekeeper 建立 Gatekeeper
func NewGatekeeper(directory WalletDirectory) *Gatekeeper {
	return &Gatekeeper{directory: directory}
}

// Authorize 確認卡片屬於錢包且所有成員都是錢包成員
//
// 參數:
//
//	walletID: 空字串代表內部呼叫，略過檢查
//	cardID: 卡片 ID
//	userIDs: 需要檢查的成員
//
// 回傳值:
//
//	error: domain.ErrWalletMismatch, domain.ErrUnknownMember 或錢包服務錯誤
func (g *Gatekeeper) Authorize(ctx context.Context, walletID, cardID string, userIDs ...string) error {
	if walletID == "" {
		return nil
	}
	cards, err := g.directory.CardsOfWallet(ctx, walletID)
	if err != nil {
		return err
	}
	if !slices.Contains(cards, cardID) {
		return fmt.Errorf("%w: card %s, wallet %s", domain.ErrWalletMismatch, cardID, walletID)
	}
	for _, userID := range userIDs {
		ok, err := g.directory.IsMember(ctx, walletID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s is not a member of wallet %s", domain.ErrUnknownMember, userID, walletID)
		}
	}
	return nil
}
