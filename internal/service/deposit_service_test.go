package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/testerwork/backend/internal/models"
	"github.com/testerwork/backend/internal/pkg/apperror"
)

type mockDepositRepo struct {
	mock.Mock
}

func (m *mockDepositRepo) Create(ctx context.Context, userID uuid.UUID, requestedAmount float64) (*models.DepositNegotiation, error) {
	args := m.Called(ctx, userID, requestedAmount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DepositNegotiation), args.Error(1)
}

func (m *mockDepositRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.DepositNegotiation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DepositNegotiation), args.Error(1)
}

func (m *mockDepositRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.DepositNegotiation, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DepositNegotiation), args.Error(1)
}

func (m *mockDepositRepo) ListByStatus(ctx context.Context, status string, limit, offset int) ([]models.DepositNegotiation, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DepositNegotiation), args.Error(1)
}

func (m *mockDepositRepo) StartNegotiation(ctx context.Context, id, adminID uuid.UUID, adminName string) (*models.DepositNegotiation, error) {
	args := m.Called(ctx, id, adminID, adminName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DepositNegotiation), args.Error(1)
}

func (m *mockDepositRepo) ProposeTerms(ctx context.Context, id uuid.UUID, amount float64, method string, fee float64, details string) (*models.DepositNegotiation, error) {
	args := m.Called(ctx, id, amount, method, fee, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DepositNegotiation), args.Error(1)
}

func (m *mockDepositRepo) AttachProof(ctx context.Context, id, userID uuid.UUID, proofURL string) (*models.DepositNegotiation, error) {
	args := m.Called(ctx, id, userID, proofURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DepositNegotiation), args.Error(1)
}

func (m *mockDepositRepo) Approve(ctx context.Context, id, adminID uuid.UUID, adminName string) (*models.DepositNegotiation, error) {
	args := m.Called(ctx, id, adminID, adminName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DepositNegotiation), args.Error(1)
}

func (m *mockDepositRepo) Reject(ctx context.Context, id, adminID uuid.UUID, adminName, reason string) (*models.DepositNegotiation, error) {
	args := m.Called(ctx, id, adminID, adminName, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DepositNegotiation), args.Error(1)
}

func (m *mockDepositRepo) Cancel(ctx context.Context, id, userID uuid.UUID) (*models.DepositNegotiation, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DepositNegotiation), args.Error(1)
}

func TestDepositService_Request_Success(t *testing.T) {
	repo := new(mockDepositRepo)
	svc := NewDepositService(repo, nil)

	userID := uuid.New()
	expected := &models.DepositNegotiation{ID: uuid.New(), UserID: userID, Status: "pending", RequestedAmount: 500}
	repo.On("Create", mock.Anything, userID, 500.0).Return(expected, nil)

	got, err := svc.Request(context.Background(), userID, 500)

	assert.NoError(t, err)
	assert.Equal(t, expected, got)
	repo.AssertExpectations(t)
}

func TestDepositService_Request_NonPositiveAmount(t *testing.T) {
	repo := new(mockDepositRepo)
	svc := NewDepositService(repo, nil)

	_, err := svc.Request(context.Background(), uuid.New(), 0)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "положительной")
	repo.AssertNotCalled(t, "Create")
}

func TestDepositService_Get_ForbiddenForStranger(t *testing.T) {
	repo := new(mockDepositRepo)
	svc := NewDepositService(repo, nil)

	ownerID := uuid.New()
	depositID := uuid.New()
	repo.On("GetByID", mock.Anything, depositID).Return(&models.DepositNegotiation{ID: depositID, UserID: ownerID}, nil)

	_, err := svc.Get(context.Background(), depositID, uuid.New(), false)

	assert.ErrorIs(t, err, apperror.ErrForbidden)
	repo.AssertExpectations(t)
}

func TestDepositService_Get_AdminSeesAny(t *testing.T) {
	repo := new(mockDepositRepo)
	svc := NewDepositService(repo, nil)

	depositID := uuid.New()
	deposit := &models.DepositNegotiation{ID: depositID, UserID: uuid.New()}
	repo.On("GetByID", mock.Anything, depositID).Return(deposit, nil)

	got, err := svc.Get(context.Background(), depositID, uuid.New(), true)

	assert.NoError(t, err)
	assert.Equal(t, deposit, got)
}

func TestDepositService_ProposeTerms_InvalidMethod(t *testing.T) {
	repo := new(mockDepositRepo)
	svc := NewDepositService(repo, nil)

	_, err := svc.ProposeTerms(context.Background(), uuid.New(), 500, "crypto", 0.02, "")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "способ оплаты")
	repo.AssertNotCalled(t, "ProposeTerms")
}

func TestDepositService_ProposeTerms_NegativeFee(t *testing.T) {
	repo := new(mockDepositRepo)
	svc := NewDepositService(repo, nil)

	_, err := svc.ProposeTerms(context.Background(), uuid.New(), 500, models.DepositMethodIBAN, -0.01, "")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "комиссия")
}

func TestDepositService_ProposeTerms_Success(t *testing.T) {
	repo := new(mockDepositRepo)
	svc := NewDepositService(repo, nil)

	depositID := uuid.New()
	expected := &models.DepositNegotiation{ID: depositID, UserID: uuid.New(), Status: "awaiting_payment"}
	repo.On("ProposeTerms", mock.Anything, depositID, 450.0, models.DepositMethodExpress, 0.03, "карта 1234").Return(expected, nil)

	got, err := svc.ProposeTerms(context.Background(), depositID, 450, models.DepositMethodExpress, 0.03, "карта 1234")

	assert.NoError(t, err)
	assert.Equal(t, expected, got)
	repo.AssertExpectations(t)
}

func TestDepositService_AttachProof_EmptyProof(t *testing.T) {
	repo := new(mockDepositRepo)
	svc := NewDepositService(repo, nil)

	_, err := svc.AttachProof(context.Background(), uuid.New(), uuid.New(), "   ")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "обязательно")
	repo.AssertNotCalled(t, "AttachProof")
}

func TestDepositService_Approve_AlreadySettled(t *testing.T) {
	repo := new(mockDepositRepo)
	svc := NewDepositService(repo, nil)

	depositID := uuid.New()
	adminID := uuid.New()
	repo.On("Approve", mock.Anything, depositID, adminID, "admin").Return(nil, apperror.ErrAlreadySettled)

	_, err := svc.Approve(context.Background(), depositID, adminID, "admin")

	assert.ErrorIs(t, err, apperror.ErrAlreadySettled)
	repo.AssertExpectations(t)
}

func TestDepositService_Reject_ReasonRequired(t *testing.T) {
	repo := new(mockDepositRepo)
	svc := NewDepositService(repo, nil)

	_, err := svc.Reject(context.Background(), uuid.New(), uuid.New(), "admin", "")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "причина")
	repo.AssertNotCalled(t, "Reject")
}
