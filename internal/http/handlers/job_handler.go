package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/testerwork/backend/internal/dto"
	"github.com/testerwork/backend/internal/http/handlers/common"
	"github.com/testerwork/backend/internal/models"
	"github.com/testerwork/backend/internal/service"
	"github.com/testerwork/backend/internal/validation"
)

// JobHandler предоставляет HTTP слой для заданий и откликов.
type JobHandler struct {
	jobs *service.JobService
}

// NewJobHandler создаёт хэндлер.
func NewJobHandler(jobs *service.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// Create обрабатывает POST /jobs.
func (h *JobHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if err := validation.ValidateTitle(req.Title); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if err := validation.ValidateDescription(req.Description); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if err := validation.ValidateAmount("награда", req.Bounty); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), userID, req.Title, req.Description, req.Bounty, req.MaxApplicants)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

// Get обрабатывает GET /jobs/:id.
func (h *JobHandler) Get(c *gin.Context) {
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), jobID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// List обрабатывает GET /jobs.
func (h *JobHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	jobs, err := h.jobs.ListActiveJobs(c.Request.Context(), limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// ListMine обрабатывает GET /jobs/mine.
func (h *JobHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	jobs, err := h.jobs.ListMyJobs(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// Cancel обрабатывает POST /jobs/:id/cancel.
func (h *JobHandler) Cancel(c *gin.Context) {
	h.changeJobStatus(c, h.jobs.CancelJob)
}

// Pause обрабатывает POST /jobs/:id/pause.
func (h *JobHandler) Pause(c *gin.Context) {
	h.changeJobStatus(c, h.jobs.PauseJob)
}

// Resume обрабатывает POST /jobs/:id/resume.
func (h *JobHandler) Resume(c *gin.Context) {
	h.changeJobStatus(c, h.jobs.ResumeJob)
}

func (h *JobHandler) changeJobStatus(c *gin.Context, op func(ctx context.Context, jobID, requesterID uuid.UUID, isAdmin bool) (*models.Job, error)) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	role, _ := common.CurrentUserRole(c)
	job, err := op(c.Request.Context(), jobID, userID, role == models.RoleAdmin)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// Apply обрабатывает POST /jobs/:id/apply.
func (h *JobHandler) Apply(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	application, err := h.jobs.Apply(c.Request.Context(), jobID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, application)
}

// ListApplications обрабатывает GET /jobs/:id/applications.
func (h *JobHandler) ListApplications(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	applications, err := h.jobs.ListApplications(c.Request.Context(), jobID, userID, role == models.RoleAdmin)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"applications": applications})
}

// SubmitWork обрабатывает POST /applications/:id/submit.
func (h *JobHandler) SubmitWork(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	applicationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	application, err := h.jobs.SubmitWork(c.Request.Context(), applicationID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, application)
}

// Approve обрабатывает POST /applications/:id/approve.
// Повторное одобрение не приводит ко второй выплате.
func (h *JobHandler) Approve(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	applicationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	application, err := h.jobs.ApproveApplication(c.Request.Context(), applicationID, userID, role == models.RoleAdmin)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, application)
}

// Reject обрабатывает POST /applications/:id/reject.
func (h *JobHandler) Reject(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	applicationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	application, err := h.jobs.RejectApplication(c.Request.Context(), applicationID, userID, role == models.RoleAdmin)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, application)
}
