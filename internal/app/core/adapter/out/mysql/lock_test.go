package mysql

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
)

func TestAdvisoryLockerAcquireAndRelease(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewAdvisoryLocker(db, "test:", 2*time.Second, nil)
	name := "test:" + domain.PoolAccountID("card-1").String()
	assert.LessOrEqual(t, len(name), 64)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT GET_LOCK(?, ?)")).WithArgs(name, 2).
		WillReturnRows(sqlmock.NewRows([]string{"got"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT RELEASE_LOCK(?)")).WithArgs(name).
		WillReturnRows(sqlmock.NewRows([]string{"released"}).AddRow(1))

	unlock, err := l.Lock(context.Background(), "card-1")
	require.NoError(t, err)
	unlock()
	unlock()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvisoryLockerTimeout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewAdvisoryLocker(db, "test:", 500*time.Millisecond, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT GET_LOCK(?, ?)")).
		WillReturnRows(sqlmock.NewRows([]string{"got"}).AddRow(0))

	_, err = l.Lock(context.Background(), "card-1")
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvisoryLockerDiscardsConnectionWhenReleaseFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewAdvisoryLocker(db, "test:", time.Second, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT GET_LOCK(?, ?)")).
		WillReturnRows(sqlmock.NewRows([]string{"got"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT RELEASE_LOCK(?)")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectClose()

	unlock, err := l.Lock(context.Background(), "card-1")
	require.NoError(t, err)
	unlock()

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 0, db.Stats().OpenConnections)
	assert.Equal(t, 0, db.Stats().Idle)
}
