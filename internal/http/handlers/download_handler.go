package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/testerwork/backend/internal/dto"
	"github.com/testerwork/backend/internal/http/handlers/common"
	"github.com/testerwork/backend/internal/models"
	"github.com/testerwork/backend/internal/service"
)

// DownloadHandler предоставляет HTTP слой одноразовых ссылок на скачивание.
type DownloadHandler struct {
	tokens *service.DownloadTokenService
}

// NewDownloadHandler создаёт хэндлер.
func NewDownloadHandler(tokens *service.DownloadTokenService) *DownloadHandler {
	return &DownloadHandler{tokens: tokens}
}

// Redeem обрабатывает POST /downloads/:token/redeem.
// Токен гаснет ровно один раз: повторный запрос получит 410.
func (h *DownloadHandler) Redeem(c *gin.Context) {
	token, err := h.tokens.Redeem(c.Request.Context(), c.Param("token"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.RedeemResponse{DownloadURL: token.DownloadURL})
}

// Peek обрабатывает GET /downloads/:token.
// Показывает состояние токена без гашения.
func (h *DownloadHandler) Peek(c *gin.Context) {
	token, err := h.tokens.Peek(c.Request.Context(), c.Param("token"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, token)
}

// Reissue обрабатывает POST /market/orders/:id/token.
// Выпускает свежий токен по доставленному заказу.
func (h *DownloadHandler) Reissue(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	token, err := h.tokens.Reissue(c.Request.Context(), orderID, userID, role == models.RoleAdmin)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":      token.Token,
		"expires_at": token.ExpiresAt,
	})
}
