package handlers

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/testerwork/backend/internal/dto"
	"github.com/testerwork/backend/internal/http/handlers/common"
	"github.com/testerwork/backend/internal/models"
	"github.com/testerwork/backend/internal/service"
	"github.com/testerwork/backend/internal/storage"
	"github.com/testerwork/backend/internal/validation"
)

// DepositHandler предоставляет HTTP слой для переговоров о пополнении.
// Пользовательские маршруты работают с собственными заявками, админские
// ведут переговоры и подтверждают зачисление.
type DepositHandler struct {
	deposits *service.DepositService
	proofs   *storage.ProofStorage
}

// NewDepositHandler создаёт хэндлер.
func NewDepositHandler(deposits *service.DepositService, proofs *storage.ProofStorage) *DepositHandler {
	return &DepositHandler{deposits: deposits, proofs: proofs}
}

// Create обрабатывает POST /deposits.
func (h *DepositHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if err := validation.ValidateAmount("сумма пополнения", req.RequestedAmount); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	deposit, err := h.deposits.Request(c.Request.Context(), userID, req.RequestedAmount)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, deposit)
}

// Get обрабатывает GET /deposits/:id.
func (h *DepositHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	depositID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	deposit, err := h.deposits.Get(c.Request.Context(), depositID, userID, role == models.RoleAdmin)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, deposit)
}

// ListMine обрабатывает GET /deposits.
func (h *DepositHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	deposits, err := h.deposits.ListMine(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deposits": deposits})
}

// UploadProof обрабатывает POST /deposits/:id/proof.
// Принимает файл подтверждения оплаты, проверяет его реальный тип по
// магическим байтам и прикрепляет к заявке.
func (h *DepositHandler) UploadProof(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	depositID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "поле file обязательно")
		return
	}
	if file.Size == 0 {
		common.RespondBadRequest(c, "файл не может быть пустым")
		return
	}

	src, err := file.Open()
	if err != nil {
		common.RespondInternalError(c, err.Error())
		return
	}
	defer src.Close()

	// Читаем первые 512 байт для проверки магических байтов
	head := make([]byte, 512)
	n, err := src.Read(head)
	if err != nil && err != io.EOF {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}

	if _, err := storage.SniffProofType(head[:n]); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if seeker, ok := src.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			common.RespondInternalError(c, "не удалось сбросить позицию файла")
			return
		}
	}

	relativePath, _, err := h.proofs.Save(c.Request.Context(), userID, file.Filename, src)
	if err != nil {
		common.RespondInternalError(c, err.Error())
		return
	}

	deposit, err := h.deposits.AttachProof(c.Request.Context(), depositID, userID, filepath.ToSlash(relativePath))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, deposit)
}

// AttachProofLink обрабатывает PATCH /deposits/:id/proof.
// Вариант для внешней ссылки вместо загрузки файла.
func (h *DepositHandler) AttachProofLink(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	depositID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.AttachProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	deposit, err := h.deposits.AttachProof(c.Request.Context(), depositID, userID, req.ProofURL)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, deposit)
}

// Cancel обрабатывает POST /deposits/:id/cancel.
func (h *DepositHandler) Cancel(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	depositID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	deposit, err := h.deposits.Cancel(c.Request.Context(), depositID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, deposit)
}

// ListByStatus обрабатывает GET /admin/deposits?status=...
func (h *DepositHandler) ListByStatus(c *gin.Context) {
	status := c.DefaultQuery("status", "pending")
	limit, offset := common.GetPagination(c)

	deposits, err := h.deposits.ListByStatus(c.Request.Context(), status, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deposits": deposits})
}

// StartNegotiation обрабатывает POST /admin/deposits/:id/negotiate.
func (h *DepositHandler) StartNegotiation(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	depositID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	deposit, err := h.deposits.StartNegotiation(c.Request.Context(), depositID, adminID, c.GetString("username"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, deposit)
}

// ProposeTerms обрабатывает POST /admin/deposits/:id/terms.
func (h *DepositHandler) ProposeTerms(c *gin.Context) {
	depositID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ProposeTermsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	details := ""
	if req.PaymentDetails != nil {
		details = *req.PaymentDetails
	}

	deposit, err := h.deposits.ProposeTerms(c.Request.Context(), depositID, req.AgreedAmount, req.Method, req.FeeRate, details)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, deposit)
}

// Approve обрабатывает POST /admin/deposits/:id/approve.
// Ровно одно подтверждение зачисляет средства; повторный вызов вернёт 409.
func (h *DepositHandler) Approve(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	depositID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	deposit, err := h.deposits.Approve(c.Request.Context(), depositID, adminID, c.GetString("username"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, deposit)
}

// Reject обрабатывает POST /admin/deposits/:id/reject.
func (h *DepositHandler) Reject(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	depositID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.RejectDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	deposit, err := h.deposits.Reject(c.Request.Context(), depositID, adminID, c.GetString("username"), req.Reason)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, deposit)
}
