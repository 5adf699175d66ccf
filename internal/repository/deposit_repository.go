package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/testerwork/backend/internal/domain/valueobject"
	"github.com/testerwork/backend/internal/models"
	"github.com/testerwork/backend/internal/pkg/apperror"
	"github.com/testerwork/backend/internal/repository/common"
)

// DepositRepository хранит заявки на пополнение и проводит зачисление.
type DepositRepository struct {
	db *sqlx.DB
}

func NewDepositRepository(db *sqlx.DB) *DepositRepository {
	return &DepositRepository{db: db}
}

// Create создаёт заявку в статусе pending.
func (r *DepositRepository) Create(ctx context.Context, userID uuid.UUID, requestedAmount float64) (*models.DepositNegotiation, error) {
	var negotiation models.DepositNegotiation
	err := r.db.GetContext(ctx, &negotiation, `
		INSERT INTO deposit_negotiations (user_id, status, requested_amount)
		VALUES ($1, 'pending', $2)
		RETURNING *
	`, userID, requestedAmount)
	if err != nil {
		return nil, fmt.Errorf("deposit repository: create %w", err)
	}
	return &negotiation, nil
}

// GetByID возвращает заявку по идентификатору.
func (r *DepositRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DepositNegotiation, error) {
	return common.GetByID[models.DepositNegotiation](ctx, r.db, "deposit_negotiations", id, apperror.ErrDepositNotFound)
}

// ListByUser возвращает заявки пользователя.
func (r *DepositRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.DepositNegotiation, error) {
	var negotiations []models.DepositNegotiation
	err := r.db.SelectContext(ctx, &negotiations, `
		SELECT * FROM deposit_negotiations WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return negotiations, err
}

// ListByStatus возвращает заявки в заданном статусе для админ-панели.
func (r *DepositRepository) ListByStatus(ctx context.Context, status string, limit, offset int) ([]models.DepositNegotiation, error) {
	var negotiations []models.DepositNegotiation
	err := r.db.SelectContext(ctx, &negotiations, `
		SELECT * FROM deposit_negotiations WHERE status = $1
		ORDER BY created_at ASC LIMIT $2 OFFSET $3
	`, status, limit, offset)
	return negotiations, err
}

// transition выполняет условный переход статуса: UPDATE срабатывает только
// если заявка всё ещё в ожидаемом исходном статусе. При нуле затронутых
// строк текущее состояние перечитывается для точной диагностики.
func (r *DepositRepository) transition(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from, to valueobject.DepositStatus, set string, args ...interface{}) error {
	query := fmt.Sprintf(`
		UPDATE deposit_negotiations SET status = $%d, updated_at = NOW()%s
		WHERE id = $1 AND status = $%d
	`, len(args)+1, set, len(args)+2)
	args = append(args, string(to), string(from))

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deposit repository: transition %s -> %s: %w", from, to, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	var current string
	if err := tx.GetContext(ctx, &current, `SELECT status FROM deposit_negotiations WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrDepositNotFound
		}
		return err
	}
	if valueobject.DepositStatus(current) == to || valueobject.DepositStatus(current) == valueobject.DepositStatusApproved {
		return apperror.ErrAlreadySettled
	}
	return apperror.ErrInvalidTransition
}

// StartNegotiation переводит заявку pending → negotiating и закрепляет админа.
func (r *DepositRepository) StartNegotiation(ctx context.Context, id, adminID uuid.UUID, adminName string) (*models.DepositNegotiation, error) {
	return r.withTransition(ctx, id, func(ctx context.Context, tx *sqlx.Tx) error {
		return r.transition(ctx, tx, id, valueobject.DepositStatusPending, valueobject.DepositStatusNegotiating,
			", admin_id = $2, admin_name = $3", id, adminID, adminName)
	})
}

// ProposeTerms фиксирует согласованные условия и переводит заявку
// negotiating → awaiting_payment.
func (r *DepositRepository) ProposeTerms(ctx context.Context, id uuid.UUID, amount float64, method string, fee float64, details string) (*models.DepositNegotiation, error) {
	return r.withTransition(ctx, id, func(ctx context.Context, tx *sqlx.Tx) error {
		return r.transition(ctx, tx, id, valueobject.DepositStatusNegotiating, valueobject.DepositStatusAwaitingPayment,
			", agreed_amount = $2, agreed_method = $3, agreed_fee = $4, agreed_details = $5", id, amount, method, fee, details)
	})
}

// AttachProof сохраняет подтверждение оплаты и переводит заявку
// awaiting_payment → awaiting_proof. Разрешено только владельцу заявки.
func (r *DepositRepository) AttachProof(ctx context.Context, id, userID uuid.UUID, proofURL string) (*models.DepositNegotiation, error) {
	return r.withTransition(ctx, id, func(ctx context.Context, tx *sqlx.Tx) error {
		var ownerID uuid.UUID
		if err := tx.GetContext(ctx, &ownerID, `SELECT user_id FROM deposit_negotiations WHERE id = $1`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrDepositNotFound
			}
			return err
		}
		if ownerID != userID {
			return apperror.ErrForbidden
		}

		return r.transition(ctx, tx, id, valueobject.DepositStatusAwaitingPayment, valueobject.DepositStatusAwaitingProof,
			", proof_url = $2", id, proofURL)
	})
}

// Approve проводит зачисление: заявка awaiting_proof → approved, кошелёк
// пользователя пополняется на согласованную сумму, total_deposits растёт,
// в журнал попадает одна запись типа deposit. Всё — одна транзакция БД,
// обусловленная исходным статусом: второй одновременный Approve увидит ноль
// затронутых строк и получит ErrAlreadySettled без повторного зачисления.
func (r *DepositRepository) Approve(ctx context.Context, id, adminID uuid.UUID, adminName string) (*models.DepositNegotiation, error) {
	var result *models.DepositNegotiation
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return common.WrapDBError(err)
		}
		defer tx.Rollback()

		var negotiation models.DepositNegotiation
		if err := tx.GetContext(ctx, &negotiation, `
			SELECT * FROM deposit_negotiations WHERE id = $1 FOR UPDATE
		`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrDepositNotFound
			}
			return common.WrapDBError(err)
		}

		status := valueobject.DepositStatus(negotiation.Status)
		if status == valueobject.DepositStatusApproved {
			return apperror.ErrAlreadySettled
		}
		if !status.CanTransitionTo(valueobject.DepositStatusApproved) {
			return apperror.ErrInvalidTransition
		}
		if negotiation.AgreedAmount == nil || *negotiation.AgreedAmount <= 0 {
			return apperror.New(apperror.ErrCodeValidation, "согласованная сумма не задана")
		}
		amount := *negotiation.AgreedAmount

		var userRole string
		if err := tx.GetContext(ctx, &userRole, `SELECT role FROM users WHERE id = $1`, negotiation.UserID); err != nil {
			return common.WrapDBError(err)
		}

		wallet, err := upsertWalletLocked(ctx, tx, negotiation.UserID, userRole)
		if err != nil {
			return common.WrapDBError(err)
		}
		wallet.Balance += amount
		wallet.TotalDeposits += amount
		if err := writeWallet(ctx, tx, wallet); err != nil {
			return common.WrapDBError(err)
		}

		if err := tx.GetContext(ctx, &negotiation, `
			UPDATE deposit_negotiations
			SET status = 'approved', admin_id = $2, admin_name = $3, updated_at = NOW(), completed_at = NOW()
			WHERE id = $1 AND status = 'awaiting_proof'
			RETURNING *
		`, id, adminID, adminName); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Статус сменился между SELECT FOR UPDATE и UPDATE — невозможно
				// при удержанной блокировке, но диагностируем как конфликт.
				return apperror.ErrContention
			}
			return common.WrapDBError(err)
		}

		if err := appendTransaction(ctx, tx, negotiation.UserID, models.TransactionTypeDeposit, amount,
			"Пополнение баланса", models.TransactionMetadata{}); err != nil {
			return common.WrapDBError(err)
		}

		result = &negotiation
		return common.WrapDBError(tx.Commit())
	})
	return result, err
}

// Reject отклоняет заявку. Балансы не затрагиваются; причина обязательна
// и валидируется на уровне сервиса.
func (r *DepositRepository) Reject(ctx context.Context, id, adminID uuid.UUID, adminName, reason string) (*models.DepositNegotiation, error) {
	var result *models.DepositNegotiation
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return common.WrapDBError(err)
		}
		defer tx.Rollback()

		var negotiation models.DepositNegotiation
		if err := tx.GetContext(ctx, &negotiation, `
			UPDATE deposit_negotiations
			SET status = 'rejected', admin_id = $2, admin_name = $3, rejection_reason = $4,
			    updated_at = NOW(), completed_at = NOW()
			WHERE id = $1 AND status NOT IN ('approved', 'rejected', 'cancelled')
			RETURNING *
		`, id, adminID, adminName, reason); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return r.diagnoseTerminal(ctx, tx, id)
			}
			return common.WrapDBError(err)
		}

		result = &negotiation
		return common.WrapDBError(tx.Commit())
	})
	return result, err
}

// Cancel отменяет заявку по инициативе пользователя.
func (r *DepositRepository) Cancel(ctx context.Context, id, userID uuid.UUID) (*models.DepositNegotiation, error) {
	var result *models.DepositNegotiation
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return common.WrapDBError(err)
		}
		defer tx.Rollback()

		var negotiation models.DepositNegotiation
		if err := tx.GetContext(ctx, &negotiation, `
			UPDATE deposit_negotiations
			SET status = 'cancelled', updated_at = NOW(), completed_at = NOW()
			WHERE id = $1 AND user_id = $2 AND status NOT IN ('approved', 'rejected', 'cancelled')
			RETURNING *
		`, id, userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return r.diagnoseTerminal(ctx, tx, id)
			}
			return common.WrapDBError(err)
		}

		result = &negotiation
		return common.WrapDBError(tx.Commit())
	})
	return result, err
}

// diagnoseTerminal объясняет, почему условный UPDATE не затронул строк.
func (r *DepositRepository) diagnoseTerminal(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	var current string
	if err := tx.GetContext(ctx, &current, `SELECT status FROM deposit_negotiations WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrDepositNotFound
		}
		return err
	}
	if valueobject.DepositStatus(current) == valueobject.DepositStatusApproved {
		return apperror.ErrAlreadySettled
	}
	return apperror.ErrInvalidTransition
}

// withTransition оборачивает одиночный переход статуса в транзакцию с
// повтором при конфликте и возвращает обновлённую заявку.
func (r *DepositRepository) withTransition(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, tx *sqlx.Tx) error) (*models.DepositNegotiation, error) {
	var result *models.DepositNegotiation
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return common.WrapDBError(err)
		}
		defer tx.Rollback()

		if err := fn(ctx, tx); err != nil {
			return common.WrapDBError(err)
		}

		var negotiation models.DepositNegotiation
		if err := tx.GetContext(ctx, &negotiation, `SELECT * FROM deposit_negotiations WHERE id = $1`, id); err != nil {
			return common.WrapDBError(err)
		}

		result = &negotiation
		return common.WrapDBError(tx.Commit())
	})
	return result, err
}
