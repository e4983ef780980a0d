package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestNewOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		o := newOptions()

		assert.Equal(t, defaultMaxOpenConns, o.maxOpenConns)
		assert.Equal(t, defaultMaxIdleConns, o.maxIdleConns)
		assert.Equal(t, defaultConnectAttempts, o.connectAttempts)
		assert.Equal(t, defaultConnectBackoff, o.connectBackoff)
	})

	t.Run("overrides", func(t *testing.T) {
		o := newOptions(
			WithConnMaxIdleTime(time.Minute),
			WithConnMaxLifetime(time.Hour),
			WithMaxIdleConns(2),
			WithMaxOpenConns(10),
			WithConnectRetry(3, 0),
		)

		assert.Equal(t, time.Minute, o.connMaxIdleTime)
		assert.Equal(t, time.Hour, o.connMaxLifetime)
		assert.Equal(t, 2, o.maxIdleConns)
		assert.Equal(t, 10, o.maxOpenConns)
		assert.Equal(t, 3, o.connectAttempts)
		assert.Zero(t, o.connectBackoff)
	})

	t.Run("non-positive retry attempts are ignored", func(t *testing.T) {
		o := newOptions(WithConnectRetry(0, -time.Second))

		assert.Equal(t, defaultConnectAttempts, o.connectAttempts)
		assert.Equal(t, defaultConnectBackoff, o.connectBackoff)
	})
}

func TestOptions_Apply(t *testing.T) {
	db, _ := newMockDB(t)

	newOptions(WithMaxOpenConns(7)).apply(db)

	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
}

func TestWaitForDB(t *testing.T) {
	errPing := errors.New("connection refused")

	t.Run("first ping succeeds", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectPing()

		err := waitForDB(context.Background(), db, newOptions(WithConnectRetry(3, 0)))

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("succeeds after retries", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectPing().WillReturnError(errPing)
		mock.ExpectPing().WillReturnError(errPing)
		mock.ExpectPing()

		err := waitForDB(context.Background(), db, newOptions(WithConnectRetry(3, 0)))

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("attempts exhausted", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectPing().WillReturnError(errPing)
		mock.ExpectPing().WillReturnError(errPing)

		err := waitForDB(context.Background(), db, newOptions(WithConnectRetry(2, 0)))

		assert.ErrorIs(t, err, errPing)
		assert.ErrorContains(t, err, "2 attempts")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("context canceled while waiting", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectPing().WillReturnError(errPing)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := waitForDB(ctx, db, newOptions(WithConnectRetry(3, time.Hour)))

		assert.ErrorIs(t, err, context.Canceled)
	})
}
