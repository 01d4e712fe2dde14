package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-pool-ledger/pkg/retrier"
)

func newTestRedisLocker(t *testing.T, retries int) (*RedisLocker, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	l := NewRedisLocker(client, RedisConfig{KeyPrefix: "test:", TTL: 5 * time.Second, MaxWait: time.Second}, nil,
		WithTokenSource(func() string { return "token-1" }),
		WithRetrier(retrier.New(
			retrier.WithMaxRetries(retries),
			retrier.WithInitialInterval(time.Millisecond),
			retrier.WithRetryIf(func(err error) bool { return errors.Is(err, errLockBusy) }),
		)),
	)
	return l, mock
}

func TestRedisLockerAcquireAndRelease(t *testing.T) {
	l, mock := newTestRedisLocker(t, 3)
	mock.ExpectSetNX("test:card-1", "token-1", 5*time.Second).SetVal(true)
	mock.ExpectEval(unlockScript, []string{"test:card-1"}, "token-1").SetVal(int64(1))

	unlock, err := l.Lock(context.Background(), "card-1")
	require.NoError(t, err)
	unlock()
	unlock()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLockerRetriesWhileBusy(t *testing.T) {
	l, mock := newTestRedisLocker(t, 3)
	mock.ExpectSetNX("test:card-1", "token-1", 5*time.Second).SetVal(false)
	mock.ExpectSetNX("test:card-1", "token-1", 5*time.Second).SetVal(false)
	mock.ExpectSetNX("test:card-1", "token-1", 5*time.Second).SetVal(true)
	mock.ExpectEval(unlockScript, []string{"test:card-1"}, "token-1").SetVal(int64(1))

	unlock, err := l.Lock(context.Background(), "card-1")
	require.NoError(t, err)
	unlock()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLockerTimeout(t *testing.T) {
	l, mock := newTestRedisLocker(t, 1)
	mock.ExpectSetNX("test:card-1", "token-1", 5*time.Second).SetVal(false)
	mock.ExpectSetNX("test:card-1", "token-1", 5*time.Second).SetVal(false)

	_, err := l.Lock(context.Background(), "card-1")
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLockerBackendError(t *testing.T) {
	l, mock := newTestRedisLocker(t, 3)
	mock.ExpectSetNX("test:card-1", "token-1", 5*time.Second).SetErr(errors.New("connection refused"))

	_, err := l.Lock(context.Background(), "card-1")
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
}
