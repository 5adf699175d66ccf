package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/testerwork/backend/internal/domain/valueobject"
	"github.com/testerwork/backend/internal/models"
	"github.com/testerwork/backend/internal/pkg/apperror"
	"github.com/testerwork/backend/internal/repository/common"
)

// JobRepository резервирует средства под задания и проводит выплаты по
// откликам. Резерв bounty × max_applicants снимается с кошелька заказчика
// целиком при создании задания: частичное резервирование не допускается.
type JobRepository struct {
	db *sqlx.DB
}

func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// CreateJob создаёт задание и резервирует полную стоимость из кошелька
// заказчика. Списание бонус-первое; вся сумма уходит в pending_balance
// как пул задания. При нехватке средств задание не создаётся вовсе.
func (r *JobRepository) CreateJob(ctx context.Context, posterID uuid.UUID, title string, description *string, bounty float64, maxApplicants int) (*models.Job, error) {
	var result *models.Job
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return common.WrapDBError(err)
		}
		defer tx.Rollback()

		wallet, err := upsertWalletLocked(ctx, tx, posterID, models.RolePoster)
		if err != nil {
			return common.WrapDBError(err)
		}

		total := bounty * float64(maxApplicants)
		plan, err := valueobject.PlanSpend(wallet.Balance, wallet.BonusBalance, wallet.BonusExpiresAt, total, time.Now())
		if err != nil {
			return err
		}

		wallet.Balance -= plan.CashUsed
		wallet.BonusBalance -= plan.BonusUsed
		wallet.PendingBalance += total
		if err := writeWallet(ctx, tx, wallet); err != nil {
			return common.WrapDBError(err)
		}

		var job models.Job
		if err := tx.GetContext(ctx, &job, `
			INSERT INTO jobs (poster_id, title, description, bounty, max_applicants, status)
			VALUES ($1, $2, $3, $4, $5, 'active')
			RETURNING *
		`, posterID, title, description, bounty, maxApplicants); err != nil {
			return common.WrapDBError(err)
		}

		meta := models.TransactionMetadata{JobID: &job.ID}
		if plan.BonusUsed > 0 {
			meta.BonusUsed = &plan.BonusUsed
		}
		if err := appendTransaction(ctx, tx, posterID, models.TransactionTypeEscrow, total,
			"Резервирование средств под задание", meta); err != nil {
			return common.WrapDBError(err)
		}

		result = &job
		return common.WrapDBError(tx.Commit())
	})
	return result, err
}

// GetByID возвращает задание.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return common.GetByID[models.Job](ctx, r.db, "jobs", id, apperror.ErrJobNotFound)
}

// ListByPoster возвращает задания заказчика.
func (r *JobRepository) ListByPoster(ctx context.Context, posterID uuid.UUID, limit, offset int) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.SelectContext(ctx, &jobs, `
		SELECT * FROM jobs WHERE poster_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, posterID, limit, offset)
	return jobs, err
}

// ListActive возвращает активные задания, доступные для откликов.
func (r *JobRepository) ListActive(ctx context.Context, limit, offset int) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.SelectContext(ctx, &jobs, `
		SELECT * FROM jobs WHERE status = 'active' AND applicant_count < max_applicants
		ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	return jobs, err
}

// CreateApplication записывает отклик. Проверка свободного места и инкремент
// счётчика выполняются одним условным UPDATE: два тестировщика, претендующие
// на последний слот, не смогут занять его оба.
func (r *JobRepository) CreateApplication(ctx context.Context, jobID, testerID uuid.UUID) (*models.Application, error) {
	var result *models.Application
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return common.WrapDBError(err)
		}
		defer tx.Rollback()

		res, err := tx.ExecContext(ctx, `
			UPDATE jobs SET applicant_count = applicant_count + 1, updated_at = NOW()
			WHERE id = $1 AND status = 'active' AND applicant_count < max_applicants
		`, jobID)
		if err != nil {
			return common.WrapDBError(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			var exists bool
			if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, jobID); err != nil {
				return common.WrapDBError(err)
			}
			if !exists {
				return apperror.ErrJobNotFound
			}
			return apperror.New(apperror.ErrCodeConflict, "свободных мест по заданию не осталось")
		}

		var application models.Application
		if err := tx.GetContext(ctx, &application, `
			INSERT INTO applications (job_id, tester_id, status)
			VALUES ($1, $2, 'applied')
			RETURNING *
		`, jobID, testerID); err != nil {
			return common.WrapDBError(err)
		}

		result = &application
		return common.WrapDBError(tx.Commit())
	})
	return result, err
}

// GetApplication возвращает отклик.
func (r *JobRepository) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	return common.GetByID[models.Application](ctx, r.db, "applications", id, apperror.ErrApplicationNotFound)
}

// ListApplications возвращает отклики по заданию.
func (r *JobRepository) ListApplications(ctx context.Context, jobID uuid.UUID) ([]models.Application, error) {
	var applications []models.Application
	err := r.db.SelectContext(ctx, &applications, `
		SELECT * FROM applications WHERE job_id = $1 ORDER BY created_at ASC
	`, jobID)
	return applications, err
}

// SubmitWork переводит отклик в статус submitted.
func (r *JobRepository) SubmitWork(ctx context.Context, applicationID, testerID uuid.UUID) (*models.Application, error) {
	var application models.Application
	err := r.db.GetContext(ctx, &application, `
		UPDATE applications SET status = 'submitted', submitted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND tester_id = $2 AND status IN ('applied', 'accepted')
		RETURNING *
	`, applicationID, testerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.diagnoseApplication(ctx, applicationID, valueobject.ApplicationStatusSubmitted)
		}
		return nil, fmt.Errorf("job repository: submit work %w", err)
	}
	return &application, nil
}

// ApproveApplication проводит выплату по отклику ровно один раз:
// submitted → approved, bounty уходит из пула заказчика в ожидающие средства
// тестировщика, в журнале появляется запись payout, рефереру тестировщика
// начисляется комиссия. Дебет и кредит фиксируются одной транзакцией БД —
// половинное применение невозможно.
func (r *JobRepository) ApproveApplication(ctx context.Context, applicationID uuid.UUID) (*models.Application, error) {
	var result *models.Application
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return common.WrapDBError(err)
		}
		defer tx.Rollback()

		var application models.Application
		if err := tx.GetContext(ctx, &application, `
			SELECT * FROM applications WHERE id = $1 FOR UPDATE
		`, applicationID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrApplicationNotFound
			}
			return common.WrapDBError(err)
		}

		status := valueobject.ApplicationStatus(application.Status)
		if status == valueobject.ApplicationStatusApproved {
			return apperror.ErrAlreadySettled
		}
		if !status.CanTransitionTo(valueobject.ApplicationStatusApproved) {
			return apperror.ErrInvalidTransition
		}

		var job models.Job
		if err := tx.GetContext(ctx, &job, `SELECT * FROM jobs WHERE id = $1 FOR UPDATE`, application.JobID); err != nil {
			return common.WrapDBError(err)
		}

		posterWallet, err := upsertWalletLocked(ctx, tx, job.PosterID, models.RolePoster)
		if err != nil {
			return common.WrapDBError(err)
		}
		if posterWallet.PendingBalance < job.Bounty {
			return apperror.ErrInsufficientFunds
		}
		posterWallet.PendingBalance -= job.Bounty
		if err := writeWallet(ctx, tx, posterWallet); err != nil {
			return common.WrapDBError(err)
		}

		testerWallet, err := upsertWalletLocked(ctx, tx, application.TesterID, models.RoleTester)
		if err != nil {
			return common.WrapDBError(err)
		}
		testerWallet.PendingBalance += job.Bounty
		testerWallet.TotalEarnings += job.Bounty
		if err := writeWallet(ctx, tx, testerWallet); err != nil {
			return common.WrapDBError(err)
		}

		if err := tx.GetContext(ctx, &application, `
			UPDATE applications SET status = 'approved', updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, applicationID); err != nil {
			return common.WrapDBError(err)
		}

		if err := appendTransaction(ctx, tx, application.TesterID, models.TransactionTypePayout, job.Bounty,
			"Выплата за выполненное задание",
			models.TransactionMetadata{JobID: &job.ID, ApplicationID: &application.ID}); err != nil {
			return common.WrapDBError(err)
		}

		// Последнее одобрение исчерпывает пул и закрывает задание.
		if _, err := tx.ExecContext(ctx, `
			UPDATE jobs SET status = 'completed', updated_at = NOW()
			WHERE id = $1 AND status IN ('active', 'paused')
			  AND (SELECT COUNT(*) FROM applications WHERE job_id = $1 AND status = 'approved') >= max_applicants
		`, job.ID); err != nil {
			return common.WrapDBError(err)
		}

		var referredBy uuid.NullUUID
		if err := tx.GetContext(ctx, &referredBy, `SELECT referred_by FROM users WHERE id = $1`, application.TesterID); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return common.WrapDBError(err)
		}
		if referredBy.Valid {
			if err := accrueReferralReward(ctx, tx, referredBy.UUID, nil, application.ID,
				job.Bounty, models.DefaultAffiliateCommissionRate); err != nil {
				return common.WrapDBError(err)
			}
		}

		result = &application
		return common.WrapDBError(tx.Commit())
	})
	return result, err
}

// RejectApplication отклоняет отклик. Для submitted-отклика bounty
// возвращается из пула задания на денежный баланс заказчика: бонус не
// восстанавливается отдельно, возврат всегда деньгами.
func (r *JobRepository) RejectApplication(ctx context.Context, applicationID uuid.UUID) (*models.Application, error) {
	var result *models.Application
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return common.WrapDBError(err)
		}
		defer tx.Rollback()

		var application models.Application
		if err := tx.GetContext(ctx, &application, `
			SELECT * FROM applications WHERE id = $1 FOR UPDATE
		`, applicationID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrApplicationNotFound
			}
			return common.WrapDBError(err)
		}

		status := valueobject.ApplicationStatus(application.Status)
		if status == valueobject.ApplicationStatusRejected {
			return apperror.ErrAlreadySettled
		}
		if !status.CanTransitionTo(valueobject.ApplicationStatusRejected) {
			return apperror.ErrInvalidTransition
		}

		// Для сданной работы резерв слота возвращается деньгами; отклик
		// без сданной работы лишь освобождает слот — деньги остаются в
		// пуле и ждут другого исполнителя.
		if status != valueobject.ApplicationStatusSubmitted {
			if _, err := tx.ExecContext(ctx, `
				UPDATE jobs SET applicant_count = applicant_count - 1, updated_at = NOW()
				WHERE id = $1 AND applicant_count > 0
			`, application.JobID); err != nil {
				return common.WrapDBError(err)
			}
		}

		if status == valueobject.ApplicationStatusSubmitted {
			var job models.Job
			if err := tx.GetContext(ctx, &job, `SELECT * FROM jobs WHERE id = $1 FOR UPDATE`, application.JobID); err != nil {
				return common.WrapDBError(err)
			}

			wallet, err := upsertWalletLocked(ctx, tx, job.PosterID, models.RolePoster)
			if err != nil {
				return common.WrapDBError(err)
			}
			if wallet.PendingBalance < job.Bounty {
				return apperror.ErrInsufficientFunds
			}
			wallet.PendingBalance -= job.Bounty
			wallet.Balance += job.Bounty
			if err := writeWallet(ctx, tx, wallet); err != nil {
				return common.WrapDBError(err)
			}

			if err := appendTransaction(ctx, tx, job.PosterID, models.TransactionTypeRefund, job.Bounty,
				"Возврат резерва по отклонённому отклику",
				models.TransactionMetadata{JobID: &job.ID, ApplicationID: &application.ID}); err != nil {
				return common.WrapDBError(err)
			}
		}

		if err := tx.GetContext(ctx, &application, `
			UPDATE applications SET status = 'rejected', updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, applicationID); err != nil {
			return common.WrapDBError(err)
		}

		result = &application
		return common.WrapDBError(tx.Commit())
	})
	return result, err
}

// CancelJob отменяет задание и возвращает заказчику невыплаченный остаток
// пула. Отмена допустима только когда по всем откликам принято решение:
// нерешённые отклики нужно сначала одобрить или отклонить.
func (r *JobRepository) CancelJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	var result *models.Job
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return common.WrapDBError(err)
		}
		defer tx.Rollback()

		var job models.Job
		if err := tx.GetContext(ctx, &job, `SELECT * FROM jobs WHERE id = $1 FOR UPDATE`, jobID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrJobNotFound
			}
			return common.WrapDBError(err)
		}

		status := valueobject.JobStatus(job.Status)
		if status == valueobject.JobStatusCancelled {
			return apperror.ErrAlreadySettled
		}
		if !status.CanTransitionTo(valueobject.JobStatusCancelled) {
			return apperror.ErrInvalidTransition
		}

		var undecided int
		if err := tx.GetContext(ctx, &undecided, `
			SELECT COUNT(*) FROM applications
			WHERE job_id = $1 AND status IN ('applied', 'accepted', 'submitted')
		`, jobID); err != nil {
			return common.WrapDBError(err)
		}
		if undecided > 0 {
			return apperror.New(apperror.ErrCodeConflict, "по заданию остались нерешённые отклики")
		}

		// Слот считается израсходованным после выплаты либо после возврата
		// по отклонённой сданной работе; остальное ещё лежит в пуле.
		var settled int
		if err := tx.GetContext(ctx, &settled, `
			SELECT COUNT(*) FROM applications
			WHERE job_id = $1 AND (status = 'approved' OR (status = 'rejected' AND submitted_at IS NOT NULL))
		`, jobID); err != nil {
			return common.WrapDBError(err)
		}

		refund := job.Bounty * float64(job.MaxApplicants-settled)
		if refund > 0 {
			wallet, err := upsertWalletLocked(ctx, tx, job.PosterID, models.RolePoster)
			if err != nil {
				return common.WrapDBError(err)
			}
			if wallet.PendingBalance < refund {
				return apperror.ErrInsufficientFunds
			}
			wallet.PendingBalance -= refund
			wallet.Balance += refund
			if err := writeWallet(ctx, tx, wallet); err != nil {
				return common.WrapDBError(err)
			}

			if err := appendTransaction(ctx, tx, job.PosterID, models.TransactionTypeRefund, refund,
				"Возврат неизрасходованного пула по отменённому заданию",
				models.TransactionMetadata{JobID: &job.ID}); err != nil {
				return common.WrapDBError(err)
			}
		}

		if err := tx.GetContext(ctx, &job, `
			UPDATE jobs SET status = 'cancelled', updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, jobID); err != nil {
			return common.WrapDBError(err)
		}

		result = &job
		return common.WrapDBError(tx.Commit())
	})
	return result, err
}

// SetJobStatus выполняет условный переход статуса задания: пауза скрывает
// задание из выдачи и блокирует новые отклики, возобновление возвращает его.
func (r *JobRepository) SetJobStatus(ctx context.Context, jobID uuid.UUID, from, to valueobject.JobStatus) (*models.Job, error) {
	var job models.Job
	err := r.db.GetContext(ctx, &job, `
		UPDATE jobs SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING *
	`, jobID, string(from), string(to))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var current string
			if err := r.db.GetContext(ctx, &current, `SELECT status FROM jobs WHERE id = $1`, jobID); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, apperror.ErrJobNotFound
				}
				return nil, err
			}
			if valueobject.JobStatus(current) == to {
				return nil, apperror.ErrAlreadySettled
			}
			return nil, apperror.ErrInvalidTransition
		}
		return nil, fmt.Errorf("job repository: set status %s -> %s: %w", from, to, err)
	}
	return &job, nil
}

// diagnoseApplication объясняет несработавший условный переход.
func (r *JobRepository) diagnoseApplication(ctx context.Context, id uuid.UUID, target valueobject.ApplicationStatus) error {
	var current string
	if err := r.db.GetContext(ctx, &current, `SELECT status FROM applications WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrApplicationNotFound
		}
		return err
	}
	if valueobject.ApplicationStatus(current) == target {
		return apperror.ErrAlreadySettled
	}
	return apperror.ErrInvalidTransition
}
