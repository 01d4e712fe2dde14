package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-pool-ledger/pkg/retrier"
)

// unlockScript 只刪除自己持有的鎖
const unlockScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

var errLockBusy = errors.New("lock held by another owner")

// RedisConfig Redis 鎖設定
type RedisConfig struct {
	KeyPrefix string
	// TTL: 持有者當掉時鎖自動過期的時間
	TTL time.Duration
	// MaxWait: 等待上限
	MaxWait time.Duration
	// RetryInterval: 第一次重試的等待時間
	RetryInterval time.Duration
}

// RedisOption RedisLocker 選項
type RedisOption func(*RedisLocker)

// WithRetrier 指定重試策略
func WithRetrier(r *retrier.Retrier) RedisOption {
	return func(l *RedisLocker) { l.retrier = r }
}

// WithTokenSource 指定鎖 token 產生方式
func WithTokenSource(fn func() string) RedisOption {
	return func(l *RedisLocker) { l.newToken = fn }
}

// RedisLocker 以 SET NX PX 實作的跨行程卡片鎖
type RedisLocker struct {
	client   redis.Cmdable
	cfg      RedisConfig
	retrier  *retrier.Retrier
	newToken func() string
	logger   *zap.Logger
}

// NewRedisLocker 建立 RedisLocker
//
// 參數:
//
//	client: redis client
//	cfg: 鎖設定，零值欄位使用預設值
//	logger: nil 時不輸出
func NewRedisLocker(client redis.Cmdable, cfg RedisConfig, logger *zap.Logger, opts ...RedisOption) *RedisLocker {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "poolledger:lock:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultMaxWait
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &RedisLocker{
		client:   client,
		cfg:      cfg,
		newToken: func() string { return uuid.NewString() },
		logger:   logger,
	}
	l.retrier = retrier.New(
		retrier.WithInitialInterval(cfg.RetryInterval),
		retrier.WithMaxInterval(100*time.Millisecond),
		retrier.WithMaxRetries(-1),
		retrier.WithRetryIf(func(err error) bool { return errors.Is(err, errLockBusy) }),
	)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock 取得卡片鎖
func (l *RedisLocker) Lock(ctx context.Context, cardID string) (func(), error) {
	key := l.cfg.KeyPrefix + cardID
	token := l.newToken()

	waitCtx, cancel := context.WithTimeout(ctx, l.cfg.MaxWait)
	defer cancel()

	err := l.retrier.Do(waitCtx, func(ctx context.Context) error {
		ok, err := l.client.SetNX(ctx, key, token, l.cfg.TTL).Result()
		if err != nil {
			return err
		}
		if !ok {
			return errLockBusy
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, errLockBusy) || waitCtx.Err() != nil {
			return nil, fmt.Errorf("%w: card %s after %s", domain.ErrLockTimeout, cardID, l.cfg.MaxWait)
		}
		return nil, fmt.Errorf("%w: redis lock: %v", domain.ErrStorageFailure, err)
	}

	return releaseOnce(func() {
		// 呼叫端的 ctx 可能已取消，仍要釋放
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := l.client.Eval(releaseCtx, unlockScript, []string{key}, token).Err(); err != nil {
			l.logger.Warn("release redis lock failed", zap.String("key", key), zap.Error(err))
		}
	}), nil
}

var _ usecase.CardLocker = (*RedisLocker)(nil)
