// Package lock 卡片層級互斥鎖的實作
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/usecase"
)

// DefaultMaxWait 預設等待上限
const DefaultMaxWait = 2 * time.Second

// LocalLocker 單一行程內的卡片鎖
//
// 每張卡片一個容量為 1 的 channel，送入成功即取得鎖
type LocalLocker struct {
	mu      sync.Mutex
	slots   map[string]chan struct{}
	maxWait time.Duration
}

// NewLocalLocker 建立 LocalLocker，maxWait <= 0 時使用 DefaultMaxWait
func NewLocalLocker(maxWait time.Duration) *LocalLocker {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &LocalLocker{slots: make(map[string]chan struct{}), maxWait: maxWait}
}

// Lock 取得卡片鎖
func (l *LocalLocker) Lock(ctx context.Context, cardID string) (func(), error) {
	slot := l.slot(cardID)

	select {
	case slot <- struct{}{}:
		return releaseOnce(func() { <-slot }), nil
	default:
	}

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()
	select {
	case slot <- struct{}{}:
		return releaseOnce(func() { <-slot }), nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: card %s after %s", domain.ErrLockTimeout, cardID, l.maxWait)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *LocalLocker) slot(cardID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[cardID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[cardID] = ch
	}
	return ch
}

// releaseOnce 重複呼叫 unlock 不會釋放別人的鎖
func releaseOnce(fn func()) func() {
	var once sync.Once
	return func() { once.Do(fn) }
}

var _ usecase.CardLocker = (*LocalLocker)(nil)
