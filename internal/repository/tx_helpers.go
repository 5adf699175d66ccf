package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/testerwork/backend/internal/models"
)

// upsertWalletLocked возвращает кошелёк пользователя, создавая его при
// отсутствии. Строка блокируется до конца транзакции: INSERT ... ON CONFLICT
// DO UPDATE удерживает row-level lock, поэтому параллельные операции над тем
// же кошельком выстраиваются в очередь.
func upsertWalletLocked(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, role string) (*models.Wallet, error) {
	var wallet models.Wallet
	query := `
		INSERT INTO wallets (user_id, role)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role) DO UPDATE SET updated_at = NOW()
		RETURNING user_id, role, balance, bonus_balance, bonus_expires_at,
		          pending_balance, total_deposits, total_earnings, updated_at
	`
	if err := tx.GetContext(ctx, &wallet, query, userID, role); err != nil {
		return nil, fmt.Errorf("wallet upsert lock: %w", err)
	}
	return &wallet, nil
}

// writeWallet записывает новое состояние кошелька.
// Вызывается только под блокировкой, взятой upsertWalletLocked.
func writeWallet(ctx context.Context, tx *sqlx.Tx, w *models.Wallet) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = $3, bonus_balance = $4, bonus_expires_at = $5,
		    pending_balance = $6, total_deposits = $7, total_earnings = $8,
		    updated_at = NOW()
		WHERE user_id = $1 AND role = $2
	`, w.UserID, w.Role, w.Balance, w.BonusBalance, w.BonusExpiresAt,
		w.PendingBalance, w.TotalDeposits, w.TotalEarnings)
	if err != nil {
		return fmt.Errorf("wallet write: %w", err)
	}
	return nil
}

// appendTransaction добавляет запись в журнал транзакций.
// Журнал append-only: каждая балансовая операция оставляет ровно одну запись
// в той же транзакции БД, что и само изменение баланса.
func appendTransaction(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, txType string, amount float64, description string, meta models.TransactionMetadata) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (user_id, type, amount, currency, status, description, metadata, completed_at)
		VALUES ($1, $2, $3, $4, 'completed', $5, $6, NOW())
	`, userID, txType, amount, models.DefaultCurrency, description, meta)
	if err != nil {
		return fmt.Errorf("transaction append: %w", err)
	}
	return nil
}

// accrueReferralReward начисляет реферальную комиссию идемпотентно:
// уникальный settlement_key гарантирует не более одного начисления на одно
// расчётное событие. Повторная попытка молча пропускается.
func accrueReferralReward(ctx context.Context, tx *sqlx.Tx, affiliateID uuid.UUID, listingID *uuid.UUID, settlementKey uuid.UUID, saleAmount, rate float64) error {
	if rate <= 0 {
		rate = models.DefaultAffiliateCommissionRate
	}
	commission := saleAmount * rate

	var affiliateRole string
	if err := tx.GetContext(ctx, &affiliateRole, `SELECT role FROM users WHERE id = $1`, affiliateID); err != nil {
		return fmt.Errorf("referral reward: affiliate lookup: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO referral_rewards (affiliate_id, listing_id, settlement_key, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (settlement_key) DO NOTHING
	`, affiliateID, listingID, settlementKey, commission)
	if err != nil {
		return fmt.Errorf("referral reward insert: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if inserted == 0 {
		// Комиссия по этому событию уже была начислена.
		return nil
	}

	wallet, err := upsertWalletLocked(ctx, tx, affiliateID, affiliateRole)
	if err != nil {
		return err
	}
	wallet.Balance += commission
	if err := writeWallet(ctx, tx, wallet); err != nil {
		return err
	}

	return appendTransaction(ctx, tx, affiliateID, models.TransactionTypeReferralReward, commission,
		"Реферальное вознаграждение", models.TransactionMetadata{ListingID: listingID})
}

// nowPtr возвращает указатель на текущее время.
func nowPtr() *time.Time {
	now := time.Now()
	return &now
}
