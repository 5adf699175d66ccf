package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/testerwork/backend/internal/domain/valueobject"
	"github.com/testerwork/backend/internal/models"
	"github.com/testerwork/backend/internal/pkg/apperror"
)

type mockJobRepo struct {
	mock.Mock
}

func (m *mockJobRepo) CreateJob(ctx context.Context, posterID uuid.UUID, title string, description *string, bounty float64, maxApplicants int) (*models.Job, error) {
	args := m.Called(ctx, posterID, title, description, bounty, maxApplicants)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *mockJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *mockJobRepo) ListByPoster(ctx context.Context, posterID uuid.UUID, limit, offset int) ([]models.Job, error) {
	args := m.Called(ctx, posterID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Job), args.Error(1)
}

func (m *mockJobRepo) ListActive(ctx context.Context, limit, offset int) ([]models.Job, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Job), args.Error(1)
}

func (m *mockJobRepo) CancelJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *mockJobRepo) SetJobStatus(ctx context.Context, jobID uuid.UUID, from, to valueobject.JobStatus) (*models.Job, error) {
	args := m.Called(ctx, jobID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *mockJobRepo) CreateApplication(ctx context.Context, jobID, testerID uuid.UUID) (*models.Application, error) {
	args := m.Called(ctx, jobID, testerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *mockJobRepo) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *mockJobRepo) ListApplications(ctx context.Context, jobID uuid.UUID) ([]models.Application, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Application), args.Error(1)
}

func (m *mockJobRepo) SubmitWork(ctx context.Context, applicationID, testerID uuid.UUID) (*models.Application, error) {
	args := m.Called(ctx, applicationID, testerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *mockJobRepo) ApproveApplication(ctx context.Context, applicationID uuid.UUID) (*models.Application, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *mockJobRepo) RejectApplication(ctx context.Context, applicationID uuid.UUID) (*models.Application, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func TestJobService_CreateJob_Validation(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewJobService(repo, nil)
	ctx := context.Background()
	posterID := uuid.New()

	_, err := svc.CreateJob(ctx, posterID, "  ", nil, 100, 3)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "название")

	_, err = svc.CreateJob(ctx, posterID, "Проверить оплату", nil, 0, 3)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "награда")

	_, err = svc.CreateJob(ctx, posterID, "Проверить оплату", nil, 100, 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "исполнителей")

	repo.AssertNotCalled(t, "CreateJob")
}

func TestJobService_CreateJob_Success(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewJobService(repo, nil)

	posterID := uuid.New()
	job := &models.Job{ID: uuid.New(), PosterID: posterID, Title: "Проверить регистрацию", Bounty: 100, MaxApplicants: 3, Status: "active"}
	repo.On("CreateJob", mock.Anything, posterID, "Проверить регистрацию", (*string)(nil), 100.0, 3).Return(job, nil)

	got, err := svc.CreateJob(context.Background(), posterID, "Проверить регистрацию", nil, 100, 3)

	assert.NoError(t, err)
	assert.Equal(t, job, got)
	assert.Equal(t, 300.0, got.TotalCost())
	repo.AssertExpectations(t)
}

func TestJobService_Apply_OwnJobForbidden(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewJobService(repo, nil)

	posterID := uuid.New()
	jobID := uuid.New()
	repo.On("GetByID", mock.Anything, jobID).Return(&models.Job{ID: jobID, PosterID: posterID}, nil)

	_, err := svc.Apply(context.Background(), jobID, posterID)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "собственное задание")
	repo.AssertNotCalled(t, "CreateApplication")
}

func TestJobService_Apply_Success(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewJobService(repo, nil)

	jobID := uuid.New()
	testerID := uuid.New()
	repo.On("GetByID", mock.Anything, jobID).Return(&models.Job{ID: jobID, PosterID: uuid.New()}, nil)
	application := &models.Application{ID: uuid.New(), JobID: jobID, TesterID: testerID, Status: "applied"}
	repo.On("CreateApplication", mock.Anything, jobID, testerID).Return(application, nil)

	got, err := svc.Apply(context.Background(), jobID, testerID)

	assert.NoError(t, err)
	assert.Equal(t, application, got)
	repo.AssertExpectations(t)
}

func TestJobService_ListApplications_OnlyOwner(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewJobService(repo, nil)

	jobID := uuid.New()
	repo.On("GetByID", mock.Anything, jobID).Return(&models.Job{ID: jobID, PosterID: uuid.New()}, nil)

	_, err := svc.ListApplications(context.Background(), jobID, uuid.New(), false)

	assert.ErrorIs(t, err, apperror.ErrForbidden)
	repo.AssertNotCalled(t, "ListApplications")
}

func TestJobService_ApproveApplication_StrangerForbidden(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewJobService(repo, nil)

	applicationID := uuid.New()
	jobID := uuid.New()
	repo.On("GetApplication", mock.Anything, applicationID).Return(&models.Application{ID: applicationID, JobID: jobID}, nil)
	repo.On("GetByID", mock.Anything, jobID).Return(&models.Job{ID: jobID, PosterID: uuid.New()}, nil)

	_, err := svc.ApproveApplication(context.Background(), applicationID, uuid.New(), false)

	assert.ErrorIs(t, err, apperror.ErrForbidden)
	repo.AssertNotCalled(t, "ApproveApplication")
}

func TestJobService_ApproveApplication_AdminSkipsOwnershipCheck(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewJobService(repo, nil)

	applicationID := uuid.New()
	application := &models.Application{ID: applicationID, JobID: uuid.New(), TesterID: uuid.New(), Status: "approved"}
	repo.On("ApproveApplication", mock.Anything, applicationID).Return(application, nil)

	got, err := svc.ApproveApplication(context.Background(), applicationID, uuid.New(), true)

	assert.NoError(t, err)
	assert.Equal(t, application, got)
	repo.AssertNotCalled(t, "GetApplication")
	repo.AssertExpectations(t)
}

func TestJobService_ApproveApplication_AlreadySettled(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewJobService(repo, nil)

	applicationID := uuid.New()
	repo.On("ApproveApplication", mock.Anything, applicationID).Return(nil, apperror.ErrAlreadySettled)

	_, err := svc.ApproveApplication(context.Background(), applicationID, uuid.New(), true)

	assert.ErrorIs(t, err, apperror.ErrAlreadySettled)
	repo.AssertExpectations(t)
}

func TestJobService_CancelJob_StrangerForbidden(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewJobService(repo, nil)

	jobID := uuid.New()
	repo.On("GetByID", mock.Anything, jobID).Return(&models.Job{ID: jobID, PosterID: uuid.New()}, nil)

	_, err := svc.CancelJob(context.Background(), jobID, uuid.New(), false)

	assert.ErrorIs(t, err, apperror.ErrForbidden)
	repo.AssertNotCalled(t, "CancelJob")
}

func TestJobService_CancelJob_ByOwner(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewJobService(repo, nil)

	posterID := uuid.New()
	jobID := uuid.New()
	repo.On("GetByID", mock.Anything, jobID).Return(&models.Job{ID: jobID, PosterID: posterID, Status: "active"}, nil)
	cancelled := &models.Job{ID: jobID, PosterID: posterID, Status: "cancelled"}
	repo.On("CancelJob", mock.Anything, jobID).Return(cancelled, nil)

	got, err := svc.CancelJob(context.Background(), jobID, posterID, false)

	assert.NoError(t, err)
	assert.Equal(t, "cancelled", got.Status)
	repo.AssertExpectations(t)
}

func TestJobService_PauseResume(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewJobService(repo, nil)

	posterID := uuid.New()
	jobID := uuid.New()
	repo.On("GetByID", mock.Anything, jobID).Return(&models.Job{ID: jobID, PosterID: posterID}, nil)
	paused := &models.Job{ID: jobID, PosterID: posterID, Status: "paused"}
	repo.On("SetJobStatus", mock.Anything, jobID, valueobject.JobStatusActive, valueobject.JobStatusPaused).Return(paused, nil)
	resumed := &models.Job{ID: jobID, PosterID: posterID, Status: "active"}
	repo.On("SetJobStatus", mock.Anything, jobID, valueobject.JobStatusPaused, valueobject.JobStatusActive).Return(resumed, nil)

	got, err := svc.PauseJob(context.Background(), jobID, posterID, false)
	assert.NoError(t, err)
	assert.Equal(t, "paused", got.Status)

	got, err = svc.ResumeJob(context.Background(), jobID, posterID, false)
	assert.NoError(t, err)
	assert.Equal(t, "active", got.Status)
	repo.AssertExpectations(t)
}

func TestJobService_RejectApplication_ByOwner(t *testing.T) {
	repo := new(mockJobRepo)
	svc := NewJobService(repo, nil)

	posterID := uuid.New()
	jobID := uuid.New()
	applicationID := uuid.New()
	repo.On("GetApplication", mock.Anything, applicationID).Return(&models.Application{ID: applicationID, JobID: jobID}, nil)
	repo.On("GetByID", mock.Anything, jobID).Return(&models.Job{ID: jobID, PosterID: posterID}, nil)
	rejected := &models.Application{ID: applicationID, JobID: jobID, Status: "rejected"}
	repo.On("RejectApplication", mock.Anything, applicationID).Return(rejected, nil)

	got, err := svc.RejectApplication(context.Background(), applicationID, posterID, false)

	assert.NoError(t, err)
	assert.Equal(t, "rejected", got.Status)
	repo.AssertExpectations(t)
}
