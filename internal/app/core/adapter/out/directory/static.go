// Package directory 錢包/成員服務的實作
package directory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/usecase"
)

// Wallet 設定檔中的錢包
type Wallet struct {
	ID      string   `yaml:"id"`
	Members []string `yaml:"members"`
	Cards   []string `yaml:"cards"`
}

// StaticDirectory 由設定檔載入的錢包目錄
type StaticDirectory struct {
	mu      sync.RWMutex
	wallets map[string]Wallet
}

// NewStaticDirectory 建立 StaticDirectory，同一張卡片不可屬於多個錢包
func NewStaticDirectory(wallets []Wallet) (*StaticDirectory, error) {
	d := &StaticDirectory{wallets: make(map[string]Wallet, len(wallets))}
	owner := make(map[string]string)
	for _, w := range wallets {
		if w.ID == "" {
			return nil, fmt.Errorf("wallet id is required")
		}
		if _, dup := d.wallets[w.ID]; dup {
			return nil, fmt.Errorf("wallet %s defined twice", w.ID)
		}
		for _, c := range w.Cards {
			if other, ok := owner[c]; ok {
				return nil, fmt.Errorf("card %s belongs to wallets %s and %s", c, other, w.ID)
			}
			owner[c] = w.ID
		}
		d.wallets[w.ID] = w
	}
	return d, nil
}

// IsMember 成員是否屬於錢包
func (d *StaticDirectory) IsMember(ctx context.Context, walletID, userID string) (bool, error) {
	w, err := d.wallet(walletID)
	if err != nil {
		return false, err
	}
	return slices.Contains(w.Members, userID), nil
}

// CardsOfWallet 錢包底下的卡片
func (d *StaticDirectory) CardsOfWallet(ctx context.Context, walletID string) ([]string, error) {
	w, err := d.wallet(walletID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(w.Cards), nil
}

// AddCard 將 provider 新發行的卡片加入錢包
func (d *StaticDirectory) AddCard(walletID, cardID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.wallets[walletID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrWalletNotFound, walletID)
	}
	if !slices.Contains(w.Cards, cardID) {
		w.Cards = append(slices.Clone(w.Cards), cardID)
		d.wallets[walletID] = w
	}
	return nil
}

func (d *StaticDirectory) wallet(walletID string) (Wallet, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	w, ok := d.wallets[walletID]
	if !ok {
		return Wallet{}, fmt.Errorf("%w: %s", domain.ErrWalletNotFound, walletID)
	}
	return w, nil
}

var (
	_ usecase.WalletDirectory = (*StaticDirectory)(nil)
	_ usecase.CardRegistrar   = (*StaticDirectory)(nil)
)
