package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/testerwork/backend/internal/models"
	"github.com/testerwork/backend/internal/pkg/apperror"
	"github.com/testerwork/backend/internal/repository/common"
)

// WalletRepository владеет балансами пользователей. Любая мутация кошелька —
// одна транзакция БД: строка кошелька блокируется, инварианты проверяются
// заново по актуальным значениям, затем запись и ровно одна строка журнала.
type WalletRepository struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetWallet возвращает кошелёк пользователя, создаёт если не существует.
func (r *WalletRepository) GetWallet(ctx context.Context, userID uuid.UUID, role string) (*models.Wallet, error) {
	var wallet models.Wallet
	query := `
		INSERT INTO wallets (user_id, role)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role) DO UPDATE SET updated_at = NOW()
		RETURNING user_id, role, balance, bonus_balance, bonus_expires_at,
		          pending_balance, total_deposits, total_earnings, updated_at
	`
	if err := r.db.GetContext(ctx, &wallet, query, userID, role); err != nil {
		return nil, common.WrapDBError(err)
	}
	return &wallet, nil
}

// Credit зачисляет средства на денежный баланс.
func (r *WalletRepository) Credit(ctx context.Context, userID uuid.UUID, role string, amount float64, txType, description string, meta models.TransactionMetadata) (*models.Wallet, error) {
	var result *models.Wallet
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return common.WrapDBError(err)
		}
		defer tx.Rollback()

		wallet, err := upsertWalletLocked(ctx, tx, userID, role)
		if err != nil {
			return common.WrapDBError(err)
		}

		wallet.Balance += amount
		if txType == models.TransactionTypeDeposit || txType == models.TransactionTypeAdminDeposit {
			wallet.TotalDeposits += amount
		}
		if err := writeWallet(ctx, tx, wallet); err != nil {
			return common.WrapDBError(err)
		}

		if err := appendTransaction(ctx, tx, userID, txType, amount, description, meta); err != nil {
			return common.WrapDBError(err)
		}

		result = wallet
		return common.WrapDBError(tx.Commit())
	})
	return result, err
}

// GrantBonus начисляет бонусные средства с ограниченным сроком действия.
// Бонус не выводится и тратится раньше денежного баланса.
func (r *WalletRepository) GrantBonus(ctx context.Context, userID uuid.UUID, role string, amount float64, expiresAt *time.Time) (*models.Wallet, error) {
	var result *models.Wallet
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return common.WrapDBError(err)
		}
		defer tx.Rollback()

		wallet, err := upsertWalletLocked(ctx, tx, userID, role)
		if err != nil {
			return common.WrapDBError(err)
		}

		// Истёкший бонус сгорает: новый грант не оживляет старый остаток.
		now := time.Now()
		if wallet.BonusExpiresAt != nil && !now.Before(*wallet.BonusExpiresAt) {
			wallet.BonusBalance = 0
			wallet.BonusExpiresAt = nil
		}

		hadBonus := wallet.BonusBalance > 0
		wallet.BonusBalance += amount

		// Срок действующего бонуса не укорачивается: остаётся более поздний
		// из сроков, nil означает бессрочный.
		switch {
		case !hadBonus:
			wallet.BonusExpiresAt = expiresAt
		case wallet.BonusExpiresAt == nil:
			// бессрочный остаток сохраняет бессрочность
		case expiresAt == nil || expiresAt.After(*wallet.BonusExpiresAt):
			wallet.BonusExpiresAt = expiresAt
		}

		if err := writeWallet(ctx, tx, wallet); err != nil {
			return common.WrapDBError(err)
		}

		if err := appendTransaction(ctx, tx, userID, models.TransactionTypeAdminDeposit, amount,
			"Начисление бонусных средств", models.TransactionMetadata{}); err != nil {
			return common.WrapDBError(err)
		}

		result = wallet
		return common.WrapDBError(tx.Commit())
	})
	return result, err
}

// ReleaseEarnings переводит заработанные средства тестировщика из ожидающих
// в доступные. Вызывается администратором после проверки вывода.
func (r *WalletRepository) ReleaseEarnings(ctx context.Context, userID uuid.UUID, amount float64) (*models.Wallet, error) {
	var result *models.Wallet
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return common.WrapDBError(err)
		}
		defer tx.Rollback()

		wallet, err := upsertWalletLocked(ctx, tx, userID, models.RoleTester)
		if err != nil {
			return common.WrapDBError(err)
		}

		if wallet.PendingBalance < amount {
			return apperror.ErrInsufficientFunds
		}

		wallet.PendingBalance -= amount
		wallet.Balance += amount
		if err := writeWallet(ctx, tx, wallet); err != nil {
			return common.WrapDBError(err)
		}

		released := true
		if err := appendTransaction(ctx, tx, userID, models.TransactionTypePayout, amount,
			"Заработанные средства доступны к выводу", models.TransactionMetadata{Released: &released}); err != nil {
			return common.WrapDBError(err)
		}

		result = wallet
		return common.WrapDBError(tx.Commit())
	})
	return result, err
}

// ListTransactions возвращает историю транзакций пользователя.
func (r *WalletRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT id, user_id, type, amount, currency, status, description, metadata, created_at, completed_at
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return transactions, err
}
