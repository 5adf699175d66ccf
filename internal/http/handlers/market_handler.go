package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/testerwork/backend/internal/dto"
	"github.com/testerwork/backend/internal/http/handlers/common"
	"github.com/testerwork/backend/internal/models"
	"github.com/testerwork/backend/internal/service"
	"github.com/testerwork/backend/internal/validation"
)

// MarketHandler предоставляет HTTP слой маркетплейса: объявления, покупки,
// доставка и отмена заказов.
type MarketHandler struct {
	market *service.MarketService
	users  UserResolver
}

// UserResolver переводит реферальный код в пользователя.
type UserResolver interface {
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)
}

// NewMarketHandler создаёт хэндлер.
func NewMarketHandler(market *service.MarketService, users UserResolver) *MarketHandler {
	return &MarketHandler{market: market, users: users}
}

// CreateListing обрабатывает POST /market/listings.
func (h *MarketHandler) CreateListing(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if err := validation.ValidateTitle(req.Title); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if err := validation.ValidateAmount("цена", req.Price); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if err := validation.ValidateExternalLink(req.DownloadURL); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	listing, err := h.market.CreateListing(c.Request.Context(), userID, req.Title, req.Price, req.ProductType, req.DownloadURL, req.AutoDeliver, req.AffiliateCommissionRate)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, listing)
}

// GetListing обрабатывает GET /market/listings/:id.
func (h *MarketHandler) GetListing(c *gin.Context) {
	listingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	listing, err := h.market.GetListing(c.Request.Context(), listingID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

// ListListings обрабатывает GET /market/listings.
func (h *MarketHandler) ListListings(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	listings, err := h.market.ListListings(c.Request.Context(), limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

// Purchase обрабатывает POST /market/orders.
// Поле ref несёт реферальный код партнёра; самореферальные метки молча
// отбрасываются.
func (h *MarketHandler) Purchase(c *gin.Context) {
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

	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		common.RespondBadRequest(c, "неверный listing_id")
		return
	}

	var affiliateID *uuid.UUID
	if req.Ref != nil && *req.Ref != "" && h.users != nil {
		if referrer, err := h.users.GetByReferralCode(c.Request.Context(), *req.Ref); err == nil {
			affiliateID = &referrer.ID
		}
	}

	result, err := h.market.Purchase(c.Request.Context(), listingID, userID, role, affiliateID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := dto.PurchaseResponse{Order: result.Order}
	if result.Token != nil {
		resp.Token = &dto.TokenIssued{
			Token:     result.Token.Token,
			ExpiresAt: result.Token.ExpiresAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusCreated, resp)
}

// GetOrder обрабатывает GET /market/orders/:id.
func (h *MarketHandler) GetOrder(c *gin.Context) {
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

	order, err := h.market.GetOrder(c.Request.Context(), orderID, userID, role == models.RoleAdmin)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// ListMyOrders обрабатывает GET /market/orders.
func (h *MarketHandler) ListMyOrders(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	orders, err := h.market.ListMyOrders(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// Deliver обрабатывает POST /market/orders/:id/deliver.
func (h *MarketHandler) Deliver(c *gin.Context) {
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

	order, token, err := h.market.Deliver(c.Request.Context(), orderID, userID, role == models.RoleAdmin)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := dto.PurchaseResponse{Order: order}
	if token != nil {
		resp.Token = &dto.TokenIssued{
			Token:     token.Token,
			ExpiresAt: token.ExpiresAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Cancel обрабатывает POST /market/orders/:id/cancel.
func (h *MarketHandler) Cancel(c *gin.Context) {
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

	order, err := h.market.Cancel(c.Request.Context(), orderID, userID, role == models.RoleAdmin)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, order)
}
