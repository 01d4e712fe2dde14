package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/usecase"
)

// AdvisoryLocker 以 GET_LOCK 實作的跨行程卡片鎖
//
// GET_LOCK 綁定連線，所以每次上鎖都從連線池取出一條獨占連線，解鎖後歸還。
// RELEASE_LOCK 失敗時連線直接丟棄
type AdvisoryLocker struct {
	db      *sql.DB
	prefix  string
	maxWait time.Duration
	logger  *zap.Logger
}

// NewAdvisoryLocker 建立 AdvisoryLocker
func NewAdvisoryLocker(db *sql.DB, prefix string, maxWait time.Duration, logger *zap.Logger) *AdvisoryLocker {
	if prefix == "" {
		prefix = "ledger:"
	}
	if maxWait <= 0 {
		maxWait = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdvisoryLocker{db: db, prefix: prefix, maxWait: maxWait, logger: logger}
}

// lockName 鎖名稱上限 64 字元，以資金池帳戶 ID 代表卡片
func (l *AdvisoryLocker) lockName(cardID string) string {
	return l.prefix + domain.PoolAccountID(cardID).String()
}

// Lock 取得卡片鎖
func (l *AdvisoryLocker) Lock(ctx context.Context, cardID string) (func(), error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, storageFailure(errors.Wrap(err, "get lock connection"))
	}

	name := l.lockName(cardID)
	seconds := int(math.Ceil(l.maxWait.Seconds()))
	var got sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", name, seconds).Scan(&got); err != nil {
		conn.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, storageFailure(errors.Wrap(err, "get_lock"))
	}
	if !got.Valid || got.Int64 != 1 {
		conn.Close()
		return nil, fmt.Errorf("%w: card %s after %s", domain.ErrLockTimeout, cardID, l.maxWait)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			defer conn.Close()
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			var released sql.NullInt64
			if err := conn.QueryRowContext(releaseCtx, "SELECT RELEASE_LOCK(?)", name).Scan(&released); err != nil {
				l.logger.Warn("release advisory lock failed, discarding connection", zap.String("name", name), zap.Error(err))
				// 連線可能仍持有鎖，不可回到連線池
				_ = conn.Raw(func(any) error { return driver.ErrBadConn })
			}
		})
	}, nil
}

var _ usecase.CardLocker = (*AdvisoryLocker)(nil)
