package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/testerwork/backend/internal/domain/valueobject"
	"github.com/testerwork/backend/internal/logger"
	"github.com/testerwork/backend/internal/models"
	"github.com/testerwork/backend/internal/pkg/apperror"
)

// JobRepository описывает зависимости JobService от слоя хранилища.
type JobRepository interface {
	CreateJob(ctx context.Context, posterID uuid.UUID, title string, description *string, bounty float64, maxApplicants int) (*models.Job, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListByPoster(ctx context.Context, posterID uuid.UUID, limit, offset int) ([]models.Job, error)
	ListActive(ctx context.Context, limit, offset int) ([]models.Job, error)
	CancelJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	SetJobStatus(ctx context.Context, jobID uuid.UUID, from, to valueobject.JobStatus) (*models.Job, error)
	CreateApplication(ctx context.Context, jobID, testerID uuid.UUID) (*models.Application, error)
	GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)
	ListApplications(ctx context.Context, jobID uuid.UUID) ([]models.Application, error)
	SubmitWork(ctx context.Context, applicationID, testerID uuid.UUID) (*models.Application, error)
	ApproveApplication(ctx context.Context, applicationID uuid.UUID) (*models.Application, error)
	RejectApplication(ctx context.Context, applicationID uuid.UUID) (*models.Application, error)
}

// JobService управляет заданиями: резервирование награды при создании,
// отклики и расчёт по одобренной работе.
type JobService struct {
	repo JobRepository
	hub  Notifier
}

func NewJobService(repo JobRepository, hub Notifier) *JobService {
	return &JobService{repo: repo, hub: hub}
}

// CreateJob создаёт задание, резервируя bounty × maxApplicants из кошелька
// заказчика. При нехватке средств задание не создаётся.
func (s *JobService) CreateJob(ctx context.Context, posterID uuid.UUID, title string, description *string, bounty float64, maxApplicants int) (*models.Job, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "название задания обязательно")
	}
	if bounty <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "награда должна быть положительной")
	}
	if maxApplicants < 1 {
		return nil, apperror.New(apperror.ErrCodeValidation, "число исполнителей должно быть не меньше одного")
	}

	job, err := s.repo.CreateJob(ctx, posterID, title, description, bounty, maxApplicants)
	if err != nil {
		return nil, err
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"op":        "job_create",
			"job_id":    job.ID,
			"poster_id": posterID,
			"reserved":  job.TotalCost(),
		}).Info("job created, bounty pool reserved")
	}
	return job, nil
}

// GetJob возвращает задание.
func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return s.repo.GetByID(ctx, id)
}

// ListMyJobs возвращает задания заказчика.
func (s *JobService) ListMyJobs(ctx context.Context, posterID uuid.UUID, limit, offset int) ([]models.Job, error) {
	return s.repo.ListByPoster(ctx, posterID, limit, offset)
}

// ListActiveJobs возвращает задания с открытыми слотами.
func (s *JobService) ListActiveJobs(ctx context.Context, limit, offset int) ([]models.Job, error) {
	return s.repo.ListActive(ctx, limit, offset)
}

// CancelJob отменяет задание и возвращает заказчику неизрасходованный пул.
// Доступно владельцу и администратору.
func (s *JobService) CancelJob(ctx context.Context, jobID, requesterID uuid.UUID, isAdmin bool) (*models.Job, error) {
	if err := s.authorizeJob(ctx, jobID, requesterID, isAdmin); err != nil {
		return nil, err
	}

	job, err := s.repo.CancelJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"op":        "job_cancel",
			"job_id":    job.ID,
			"poster_id": job.PosterID,
		}).Info("job cancelled, unspent pool refunded")
	}
	return job, nil
}

// PauseJob скрывает задание из выдачи и блокирует новые отклики.
func (s *JobService) PauseJob(ctx context.Context, jobID, requesterID uuid.UUID, isAdmin bool) (*models.Job, error) {
	if err := s.authorizeJob(ctx, jobID, requesterID, isAdmin); err != nil {
		return nil, err
	}
	return s.repo.SetJobStatus(ctx, jobID, valueobject.JobStatusActive, valueobject.JobStatusPaused)
}

// ResumeJob возвращает приостановленное задание в выдачу.
func (s *JobService) ResumeJob(ctx context.Context, jobID, requesterID uuid.UUID, isAdmin bool) (*models.Job, error) {
	if err := s.authorizeJob(ctx, jobID, requesterID, isAdmin); err != nil {
		return nil, err
	}
	return s.repo.SetJobStatus(ctx, jobID, valueobject.JobStatusPaused, valueobject.JobStatusActive)
}

// Apply записывает отклик тестировщика. Заказчик не может откликнуться
// на собственное задание.
func (s *JobService) Apply(ctx context.Context, jobID, testerID uuid.UUID) (*models.Application, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.PosterID == testerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "нельзя откликнуться на собственное задание")
	}
	return s.repo.CreateApplication(ctx, jobID, testerID)
}

// ListApplications возвращает отклики по заданию; доступно только владельцу.
func (s *JobService) ListApplications(ctx context.Context, jobID, requesterID uuid.UUID, isAdmin bool) ([]models.Application, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && job.PosterID != requesterID {
		return nil, apperror.ErrForbidden
	}
	return s.repo.ListApplications(ctx, jobID)
}

// SubmitWork сдаёт выполненную работу на проверку.
func (s *JobService) SubmitWork(ctx context.Context, applicationID, testerID uuid.UUID) (*models.Application, error) {
	return s.repo.SubmitWork(ctx, applicationID, testerID)
}

// ApproveApplication проводит выплату по отклику. Право решения — у владельца
// задания или администратора; повторное одобрение возвращает ErrAlreadySettled
// и не двигает балансы.
func (s *JobService) ApproveApplication(ctx context.Context, applicationID, requesterID uuid.UUID, isAdmin bool) (*models.Application, error) {
	if err := s.authorizeDecision(ctx, applicationID, requesterID, isAdmin); err != nil {
		return nil, err
	}

	application, err := s.repo.ApproveApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"op":             "application_approve",
			"application_id": application.ID,
			"job_id":         application.JobID,
			"tester_id":      application.TesterID,
		}).Info("application approved, bounty paid out")
	}

	notify(s.hub, application.TesterID, EventPayoutReceived, application)
	return application, nil
}

// RejectApplication отклоняет отклик; для сданной работы резерв слота
// возвращается заказчику.
func (s *JobService) RejectApplication(ctx context.Context, applicationID, requesterID uuid.UUID, isAdmin bool) (*models.Application, error) {
	if err := s.authorizeDecision(ctx, applicationID, requesterID, isAdmin); err != nil {
		return nil, err
	}
	return s.repo.RejectApplication(ctx, applicationID)
}

// authorizeJob проверяет, что заданием распоряжается владелец или
// администратор.
func (s *JobService) authorizeJob(ctx context.Context, jobID, requesterID uuid.UUID, isAdmin bool) error {
	if isAdmin {
		return nil
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.PosterID != requesterID {
		return apperror.ErrForbidden
	}
	return nil
}

// authorizeDecision проверяет, что решение по отклику принимает владелец
// задания или администратор.
func (s *JobService) authorizeDecision(ctx context.Context, applicationID, requesterID uuid.UUID, isAdmin bool) error {
	if isAdmin {
		return nil
	}
	application, err := s.repo.GetApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	job, err := s.repo.GetByID(ctx, application.JobID)
	if err != nil {
		return err
	}
	if job.PosterID != requesterID {
		return apperror.ErrForbidden
	}
	return nil
}
