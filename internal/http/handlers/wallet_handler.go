package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/testerwork/backend/internal/dto"
	"github.com/testerwork/backend/internal/http/handlers/common"
	"github.com/testerwork/backend/internal/service"
)

// WalletHandler предоставляет HTTP слой для кошельков и истории операций.
type WalletHandler struct {
	wallets *service.WalletService
}

// NewWalletHandler создаёт хэндлер.
func NewWalletHandler(wallets *service.WalletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

// GetWallet обрабатывает GET /wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	wallet, err := h.wallets.GetWallet(c.Request.Context(), userID, role)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.WalletResponse{
		Wallet:    wallet,
		Spendable: wallet.Spendable(time.Now()),
	})
}

// ListTransactions обрабатывает GET /wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	transactions, err := h.wallets.ListTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// AdminCredit обрабатывает POST /admin/wallets/credit.
// Ручное зачисление вне переговоров о пополнении.
func (h *WalletHandler) AdminCredit(c *gin.Context) {
	var req dto.AdminCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		common.RespondBadRequest(c, "неверный user_id")
		return
	}

	comment := ""
	if req.Comment != nil {
		comment = *req.Comment
	}
	wallet, err := h.wallets.AdminCredit(c.Request.Context(), userID, req.Role, req.Amount, comment)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, wallet)
}

// GrantBonus обрабатывает POST /admin/wallets/bonus.
func (h *WalletHandler) GrantBonus(c *gin.Context) {
	var req dto.GrantBonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		common.RespondBadRequest(c, "неверный user_id")
		return
	}

	ttl := time.Duration(req.TTLHours) * time.Hour
	wallet, err := h.wallets.GrantBonus(c.Request.Context(), userID, req.Role, req.Amount, ttl)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, wallet)
}

// ReleaseEarnings обрабатывает POST /admin/wallets/release.
// Переводит подтверждённый заработок тестировщика из pending в доступный
// баланс.
func (h *WalletHandler) ReleaseEarnings(c *gin.Context) {
	var req dto.ReleaseEarningsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		common.RespondBadRequest(c, "неверный user_id")
		return
	}

	wallet, err := h.wallets.ReleaseEarnings(c.Request.Context(), userID, req.Amount)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, wallet)
}
