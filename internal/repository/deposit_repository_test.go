package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/testerwork/backend/internal/models"
	"github.com/testerwork/backend/internal/pkg/apperror"
)

func TestDepositRepository_NegotiationHappyPath(t *testing.T) {
	conn := testDB(t)
	ctx := context.Background()
	repo := NewDepositRepository(conn)

	userID := seedUser(t, conn, models.RolePoster)
	adminID := seedUser(t, conn, models.RoleAdmin)

	negotiation, err := repo.Create(ctx, userID, 300)
	assert.NoError(t, err)
	assert.Equal(t, "pending", negotiation.Status)

	negotiation, err = repo.StartNegotiation(ctx, negotiation.ID, adminID, "Ирина")
	assert.NoError(t, err)
	assert.Equal(t, "negotiating", negotiation.Status)

	negotiation, err = repo.ProposeTerms(ctx, negotiation.ID, 280, models.DepositMethodExpress, 5, "Реквизиты в чате")
	assert.NoError(t, err)
	assert.Equal(t, "awaiting_payment", negotiation.Status)
	if assert.NotNil(t, negotiation.AgreedAmount) {
		assert.Equal(t, 280.0, *negotiation.AgreedAmount)
	}
	if assert.NotNil(t, negotiation.AgreedMethod) {
		assert.Equal(t, models.DepositMethodExpress, *negotiation.AgreedMethod)
	}

	negotiation, err = repo.AttachProof(ctx, negotiation.ID, userID, "https://proof.example.com/receipt.png")
	assert.NoError(t, err)
	assert.Equal(t, "awaiting_proof", negotiation.Status)

	negotiation, err = repo.Approve(ctx, negotiation.ID, adminID, "Ирина")
	assert.NoError(t, err)
	assert.Equal(t, "approved", negotiation.Status)
	assert.NotNil(t, negotiation.CompletedAt)

	// Зачисляется согласованная сумма, не запрошенная.
	wallet := getWallet(t, conn, userID, models.RolePoster)
	assert.Equal(t, 280.0, wallet.Balance)
	assert.Equal(t, 280.0, wallet.TotalDeposits)
	assert.Equal(t, 1, countTransactions(t, conn, userID, models.TransactionTypeDeposit))
}

func TestDepositRepository_Approve_SecondCallNoDoubleCredit(t *testing.T) {
	conn := testDB(t)
	ctx := context.Background()
	repo := NewDepositRepository(conn)

	userID := seedUser(t, conn, models.RolePoster)
	adminID := seedUser(t, conn, models.RoleAdmin)

	negotiation, err := repo.Create(ctx, userID, 100)
	assert.NoError(t, err)
	_, err = repo.StartNegotiation(ctx, negotiation.ID, adminID, "Ирина")
	assert.NoError(t, err)
	_, err = repo.ProposeTerms(ctx, negotiation.ID, 100, models.DepositMethodExpress, 0, "")
	assert.NoError(t, err)
	_, err = repo.AttachProof(ctx, negotiation.ID, userID, "https://proof.example.com/receipt.png")
	assert.NoError(t, err)

	_, err = repo.Approve(ctx, negotiation.ID, adminID, "Ирина")
	assert.NoError(t, err)

	_, err = repo.Approve(ctx, negotiation.ID, adminID, "Ирина")
	assert.ErrorIs(t, err, apperror.ErrAlreadySettled)

	wallet := getWallet(t, conn, userID, models.RolePoster)
	assert.Equal(t, 100.0, wallet.Balance)
	assert.Equal(t, 1, countTransactions(t, conn, userID, models.TransactionTypeDeposit))
}

func TestDepositRepository_SkippedStepInvalidTransition(t *testing.T) {
	conn := testDB(t)
	ctx := context.Background()
	repo := NewDepositRepository(conn)

	userID := seedUser(t, conn, models.RolePoster)

	negotiation, err := repo.Create(ctx, userID, 100)
	assert.NoError(t, err)

	// Условия нельзя предложить до начала переговоров.
	_, err = repo.ProposeTerms(ctx, negotiation.ID, 100, models.DepositMethodExpress, 0, "")
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestDepositRepository_Reject_NeverCredits(t *testing.T) {
	conn := testDB(t)
	ctx := context.Background()
	repo := NewDepositRepository(conn)

	userID := seedUser(t, conn, models.RolePoster)
	adminID := seedUser(t, conn, models.RoleAdmin)

	negotiation, err := repo.Create(ctx, userID, 100)
	assert.NoError(t, err)

	negotiation, err = repo.Reject(ctx, negotiation.ID, adminID, "Ирина", "нет подтверждения оплаты")
	assert.NoError(t, err)
	assert.Equal(t, "rejected", negotiation.Status)
	if assert.NotNil(t, negotiation.RejectionReason) {
		assert.Equal(t, "нет подтверждения оплаты", *negotiation.RejectionReason)
	}

	wallet := getWallet(t, conn, userID, models.RolePoster)
	assert.Equal(t, 0.0, wallet.Balance)
	assert.Equal(t, 0, countTransactions(t, conn, userID, models.TransactionTypeDeposit))
}
