package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/testerwork/backend/internal/models"
	"github.com/testerwork/backend/internal/pkg/apperror"
)

// WalletRepository описывает зависимости WalletService от слоя хранилища.
type WalletRepository interface {
	GetWallet(ctx context.Context, userID uuid.UUID, role string) (*models.Wallet, error)
	Credit(ctx context.Context, userID uuid.UUID, role string, amount float64, txType, description string, meta models.TransactionMetadata) (*models.Wallet, error)
	GrantBonus(ctx context.Context, userID uuid.UUID, role string, amount float64, expiresAt *time.Time) (*models.Wallet, error)
	ReleaseEarnings(ctx context.Context, userID uuid.UUID, amount float64) (*models.Wallet, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error)
}

type WalletService struct {
	repo WalletRepository
}

func NewWalletService(repo WalletRepository) *WalletService {
	return &WalletService{repo: repo}
}

// GetWallet возвращает кошелёк пользователя в рамках роли.
func (s *WalletService) GetWallet(ctx context.Context, userID uuid.UUID, role string) (*models.Wallet, error) {
	if _, ok := models.ValidRoles[role]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректная роль кошелька")
	}
	return s.repo.GetWallet(ctx, userID, role)
}

// AdminCredit зачисляет средства на денежный баланс вручную. Используется
// администратором для корректировок вне переговоров о пополнении.
func (s *WalletService) AdminCredit(ctx context.Context, userID uuid.UUID, role string, amount float64, comment string) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}
	if _, ok := models.ValidRoles[role]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректная роль кошелька")
	}
	if comment == "" {
		comment = "ручное зачисление администратором"
	}
	return s.repo.Credit(ctx, userID, role, amount, models.TransactionTypeAdminDeposit, comment, models.TransactionMetadata{})
}

// GrantBonus начисляет бонусные средства с ограниченным сроком.
func (s *WalletService) GrantBonus(ctx context.Context, userID uuid.UUID, role string, amount float64, ttl time.Duration) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}
	if _, ok := models.ValidRoles[role]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректная роль кошелька")
	}

	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}
	return s.repo.GrantBonus(ctx, userID, role, amount, expiresAt)
}

// ReleaseEarnings переводит заработанное тестировщиком из ожидающих средств
// в доступные к выводу.
func (s *WalletService) ReleaseEarnings(ctx context.Context, userID uuid.UUID, amount float64) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}
	return s.repo.ReleaseEarnings(ctx, userID, amount)
}

// ListTransactions возвращает историю транзакций.
func (s *WalletService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}
