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
	"github.com/testerwork/backend/internal/repository"
)

// MarketRepository описывает зависимости MarketService от слоя хранилища.
type MarketRepository interface {
	CreateListing(ctx context.Context, l *models.Listing) (*models.Listing, error)
	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	ListListings(ctx context.Context, limit, offset int) ([]models.Listing, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.MarketOrder, error)
	ListOrdersByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]models.MarketOrder, error)
	Purchase(ctx context.Context, listingID, buyerID uuid.UUID, buyerRole string, affiliateID *uuid.UUID) (*repository.PurchaseResult, error)
	Deliver(ctx context.Context, orderID uuid.UUID) (*models.MarketOrder, *models.DownloadToken, error)
	Cancel(ctx context.Context, orderID uuid.UUID) (*models.MarketOrder, error)
}

// MarketService управляет объявлениями и заказами маркетплейса.
type MarketService struct {
	repo MarketRepository
	hub  Notifier
}

func NewMarketService(repo MarketRepository, hub Notifier) *MarketService {
	return &MarketService{repo: repo, hub: hub}
}

// CreateListing публикует объявление продавца.
func (s *MarketService) CreateListing(ctx context.Context, sellerID uuid.UUID, title string, price float64, productType string, downloadURL *string, autoDeliver bool, commissionRate *float64) (*models.Listing, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "название товара обязательно")
	}
	if price <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "цена должна быть положительной")
	}
	if _, ok := models.ValidProductTypes[productType]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный тип товара")
	}
	if autoDeliver && productType != models.ProductTypeDigital {
		return nil, apperror.New(apperror.ErrCodeValidation, "автодоставка доступна только для цифровых товаров")
	}
	if autoDeliver && (downloadURL == nil || strings.TrimSpace(*downloadURL) == "") {
		return nil, apperror.New(apperror.ErrCodeValidation, "для автодоставки нужна ссылка на файл")
	}

	rate := models.DefaultAffiliateCommissionRate
	if commissionRate != nil {
		if *commissionRate < 0 || *commissionRate >= 1 {
			return nil, apperror.New(apperror.ErrCodeValidation, "ставка комиссии должна быть в диапазоне [0, 1)")
		}
		rate = *commissionRate
	}

	listing := &models.Listing{
		SellerID:                sellerID,
		Title:                   strings.TrimSpace(title),
		Price:                   price,
		Currency:                models.DefaultCurrency,
		ProductType:             productType,
		DownloadURL:             downloadURL,
		AutoDeliver:             autoDeliver,
		AffiliateCommissionRate: rate,
		IsActive:                true,
	}
	return s.repo.CreateListing(ctx, listing)
}

// GetListing возвращает объявление.
func (s *MarketService) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return s.repo.GetListing(ctx, id)
}

// ListListings возвращает активные объявления.
func (s *MarketService) ListListings(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListListings(ctx, limit, offset)
}

// Purchase оплачивает товар с кошелька покупателя. Продавец не может купить
// собственный товар. Реферальная метка игнорируется, если партнёр совпадает
// с покупателем или продавцом.
func (s *MarketService) Purchase(ctx context.Context, listingID, buyerID uuid.UUID, buyerRole string, affiliateID *uuid.UUID) (*repository.PurchaseResult, error) {
	listing, err := s.repo.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID == buyerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "нельзя купить собственный товар")
	}
	if affiliateID != nil && (*affiliateID == buyerID || *affiliateID == listing.SellerID) {
		affiliateID = nil
	}

	result, err := s.repo.Purchase(ctx, listingID, buyerID, buyerRole, affiliateID)
	if err != nil {
		return nil, err
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"op":         "order_purchase",
			"order_id":   result.Order.ID,
			"listing_id": listingID,
			"buyer_id":   buyerID,
			"status":     result.Order.Status,
		}).Info("order paid")
	}

	if result.Order.Status == string(valueobject.OrderStatusDelivered) {
		notify(s.hub, buyerID, EventOrderDelivered, result.Order)
	}
	return result, nil
}

// GetOrder возвращает заказ; доступен покупателю, продавцу и администратору.
func (s *MarketService) GetOrder(ctx context.Context, orderID, requesterID uuid.UUID, isAdmin bool) (*models.MarketOrder, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.BuyerID != requesterID && order.SellerID != requesterID {
		return nil, apperror.ErrForbidden
	}
	return order, nil
}

// ListMyOrders возвращает заказы покупателя.
func (s *MarketService) ListMyOrders(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]models.MarketOrder, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListOrdersByBuyer(ctx, buyerID, limit, offset)
}

// Deliver подтверждает доставку: средства уходят продавцу за вычетом комиссии
// площадки, для цифрового товара выпускается токен скачивания. Подтвердить
// может продавец или администратор; повторный вызов возвращает ErrAlreadySettled.
func (s *MarketService) Deliver(ctx context.Context, orderID, requesterID uuid.UUID, isAdmin bool) (*models.MarketOrder, *models.DownloadToken, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if !isAdmin && order.SellerID != requesterID {
		return nil, nil, apperror.ErrForbidden
	}

	delivered, token, err := s.repo.Deliver(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"op":       "order_deliver",
			"order_id": orderID,
			"buyer_id": delivered.BuyerID,
		}).Info("order delivered, seller credited")
	}

	notify(s.hub, delivered.BuyerID, EventOrderDelivered, delivered)
	return delivered, token, nil
}

// Cancel отменяет неисполненный заказ с возвратом средств покупателю.
// Доступно покупателю, продавцу и администратору.
func (s *MarketService) Cancel(ctx context.Context, orderID, requesterID uuid.UUID, isAdmin bool) (*models.MarketOrder, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.BuyerID != requesterID && order.SellerID != requesterID {
		return nil, apperror.ErrForbidden
	}
	return s.repo.Cancel(ctx, orderID)
}
