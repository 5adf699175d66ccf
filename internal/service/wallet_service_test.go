package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/testerwork/backend/internal/models"
)

type mockWalletRepo struct {
	mock.Mock
}

func (m *mockWalletRepo) GetWallet(ctx context.Context, userID uuid.UUID, role string) (*models.Wallet, error) {
	args := m.Called(ctx, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *mockWalletRepo) Credit(ctx context.Context, userID uuid.UUID, role string, amount float64, txType, description string, meta models.TransactionMetadata) (*models.Wallet, error) {
	args := m.Called(ctx, userID, role, amount, txType, description, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *mockWalletRepo) GrantBonus(ctx context.Context, userID uuid.UUID, role string, amount float64, expiresAt *time.Time) (*models.Wallet, error) {
	args := m.Called(ctx, userID, role, amount, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *mockWalletRepo) ReleaseEarnings(ctx context.Context, userID uuid.UUID, amount float64) (*models.Wallet, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *mockWalletRepo) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func TestWalletService_GetWallet_InvalidRole(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewWalletService(repo)

	_, err := svc.GetWallet(context.Background(), uuid.New(), "manager")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "роль")
	repo.AssertNotCalled(t, "GetWallet")
}

func TestWalletService_GetWallet_Success(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewWalletService(repo)

	userID := uuid.New()
	wallet := &models.Wallet{UserID: userID, Role: models.RolePoster, Balance: 1000}
	repo.On("GetWallet", mock.Anything, userID, models.RolePoster).Return(wallet, nil)

	got, err := svc.GetWallet(context.Background(), userID, models.RolePoster)

	assert.NoError(t, err)
	assert.Equal(t, wallet, got)
	repo.AssertExpectations(t)
}

func TestWalletService_AdminCredit_Success(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewWalletService(repo)

	userID := uuid.New()
	wallet := &models.Wallet{UserID: userID, Role: models.RolePoster, Balance: 1500}
	repo.On("Credit", mock.Anything, userID, models.RolePoster, 500.0, models.TransactionTypeAdminDeposit, "компенсация", models.TransactionMetadata{}).Return(wallet, nil)

	got, err := svc.AdminCredit(context.Background(), userID, models.RolePoster, 500, "компенсация")

	assert.NoError(t, err)
	assert.Equal(t, wallet, got)
	repo.AssertExpectations(t)
}

func TestWalletService_AdminCredit_InvalidRole(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewWalletService(repo)

	_, err := svc.AdminCredit(context.Background(), uuid.New(), "guest", 500, "")

	assert.Error(t, err)
	repo.AssertNotCalled(t, "Credit")
}

func TestWalletService_GrantBonus_SetsExpiry(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewWalletService(repo)

	userID := uuid.New()
	wallet := &models.Wallet{UserID: userID, Role: models.RoleTester, BonusBalance: 200}
	repo.On("GrantBonus", mock.Anything, userID, models.RoleTester, 200.0, mock.MatchedBy(func(expiresAt *time.Time) bool {
		return expiresAt != nil && expiresAt.After(time.Now())
	})).Return(wallet, nil)

	got, err := svc.GrantBonus(context.Background(), userID, models.RoleTester, 200, 48*time.Hour)

	assert.NoError(t, err)
	assert.Equal(t, wallet, got)
	repo.AssertExpectations(t)
}

func TestWalletService_GrantBonus_ZeroTTLMeansNoExpiry(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewWalletService(repo)

	userID := uuid.New()
	wallet := &models.Wallet{UserID: userID, Role: models.RoleTester, BonusBalance: 100}
	repo.On("GrantBonus", mock.Anything, userID, models.RoleTester, 100.0, (*time.Time)(nil)).Return(wallet, nil)

	_, err := svc.GrantBonus(context.Background(), userID, models.RoleTester, 100, 0)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestWalletService_GrantBonus_NonPositiveAmount(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewWalletService(repo)

	_, err := svc.GrantBonus(context.Background(), uuid.New(), models.RoleTester, -50, time.Hour)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "положительной")
	repo.AssertNotCalled(t, "GrantBonus")
}

func TestWalletService_ReleaseEarnings_NonPositiveAmount(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewWalletService(repo)

	_, err := svc.ReleaseEarnings(context.Background(), uuid.New(), 0)

	assert.Error(t, err)
	repo.AssertNotCalled(t, "ReleaseEarnings")
}

func TestWalletService_ListTransactions_ClampsLimit(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewWalletService(repo)

	userID := uuid.New()
	repo.On("ListTransactions", mock.Anything, userID, 20, 0).Return([]models.Transaction{}, nil)

	_, err := svc.ListTransactions(context.Background(), userID, 500, 0)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
