package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/testerwork/backend/internal/models"
	"github.com/testerwork/backend/internal/pkg/apperror"
)

func TestWalletRepository_GrantBonus_KeepsLaterExpiry(t *testing.T) {
	conn := testDB(t)
	ctx := context.Background()
	repo := NewWalletRepository(conn)

	userID := seedUser(t, conn, models.RoleTester)

	far := time.Now().Add(30 * 24 * time.Hour)
	wallet, err := repo.GrantBonus(ctx, userID, models.RoleTester, 100, &far)
	assert.NoError(t, err)
	assert.Equal(t, 100.0, wallet.BonusBalance)

	// Второй грант с более ранним сроком не укорачивает действующий.
	near := time.Now().Add(24 * time.Hour)
	wallet, err = repo.GrantBonus(ctx, userID, models.RoleTester, 50, &near)
	assert.NoError(t, err)
	assert.Equal(t, 150.0, wallet.BonusBalance)
	if assert.NotNil(t, wallet.BonusExpiresAt) {
		assert.WithinDuration(t, far, *wallet.BonusExpiresAt, time.Second)
	}

	// Бессрочный грант снимает срок вовсе.
	wallet, err = repo.GrantBonus(ctx, userID, models.RoleTester, 25, nil)
	assert.NoError(t, err)
	assert.Equal(t, 175.0, wallet.BonusBalance)
	assert.Nil(t, wallet.BonusExpiresAt)
}

func TestWalletRepository_GrantBonus_ExpiredRemainderBurns(t *testing.T) {
	conn := testDB(t)
	ctx := context.Background()
	repo := NewWalletRepository(conn)

	userID := seedUser(t, conn, models.RoleTester)

	past := time.Now().Add(-time.Hour)
	_, err := repo.GrantBonus(ctx, userID, models.RoleTester, 100, &past)
	assert.NoError(t, err)

	future := time.Now().Add(24 * time.Hour)
	wallet, err := repo.GrantBonus(ctx, userID, models.RoleTester, 40, &future)
	assert.NoError(t, err)

	// Истёкший остаток сгорел, новый грант не оживил его.
	assert.Equal(t, 40.0, wallet.BonusBalance)
	if assert.NotNil(t, wallet.BonusExpiresAt) {
		assert.WithinDuration(t, future, *wallet.BonusExpiresAt, time.Second)
	}
}

func TestWalletRepository_ReleaseEarnings_MovesPendingToBalance(t *testing.T) {
	conn := testDB(t)
	ctx := context.Background()

	posterID := seedUser(t, conn, models.RolePoster)
	testerID := seedUser(t, conn, models.RoleTester)
	fundWallet(t, conn, posterID, models.RolePoster, 100)

	jobs := NewJobRepository(conn)
	job, err := jobs.CreateJob(ctx, posterID, "Задание для выплаты", nil, 100, 1)
	assert.NoError(t, err)
	application, err := jobs.CreateApplication(ctx, job.ID, testerID)
	assert.NoError(t, err)
	_, err = jobs.SubmitWork(ctx, application.ID, testerID)
	assert.NoError(t, err)
	_, err = jobs.ApproveApplication(ctx, application.ID)
	assert.NoError(t, err)

	repo := NewWalletRepository(conn)
	wallet, err := repo.ReleaseEarnings(ctx, testerID, 100)
	assert.NoError(t, err)
	assert.Equal(t, 100.0, wallet.Balance)
	assert.Equal(t, 0.0, wallet.PendingBalance)

	// Вывести больше, чем лежит в ожидающих, нельзя.
	_, err = repo.ReleaseEarnings(ctx, testerID, 1)
	assert.ErrorIs(t, err, apperror.ErrInsufficientFunds)
}
