package repository_test

import (
	"context"
	"errors"
	"testing"

	"appraisal-backend/internal/config"
	"appraisal-backend/internal/database"
	"appraisal-backend/internal/model"
	"appraisal-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewConnection(config.DBConfig{Driver: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestRunInTxRollsBackNestedWork(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	accounts := repository.NewAccountRepository(db)
	tx := repository.NewTransactionManager(db)
	boom := errors.New("boom")

	err := tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := accounts.Create(txCtx, &model.Account{Username: "outer", Email: "outer@example.com", Password: "x"}); err != nil {
			return err
		}
		return tx.RunInTx(txCtx, func(innerCtx context.Context) error {
			if err := accounts.Create(innerCtx, &model.Account{Username: "inner", Email: "inner@example.com", Password: "x"}); err != nil {
				return err
			}
			return boom
		})
	})
	require.ErrorIs(t, err, boom)

	for _, username := range []string{"outer", "inner"} {
		_, err := accounts.FindByUsername(ctx, username)
		assert.True(t, repository.IsNotFound(err), username)
	}
}

func TestDuplicateKeyIsTranslated(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	accounts := repository.NewAccountRepository(db)

	require.NoError(t, accounts.Create(ctx, &model.Account{Username: "alice", Email: "alice@example.com", Password: "x"}))
	err := accounts.Create(ctx, &model.Account{Username: "alice", Email: "other@example.com", Password: "x"})
	assert.True(t, repository.IsDuplicate(err), "%v", err)
	assert.False(t, repository.IsNotFound(err))
}
