package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/testerwork/backend/internal/domain/valueobject"
	"github.com/testerwork/backend/internal/logger"
	"github.com/testerwork/backend/internal/models"
	"github.com/testerwork/backend/internal/pkg/apperror"
)

// TokenRepository описывает хранилище токенов скачивания.
type TokenRepository interface {
	Issue(ctx context.Context, listingID, buyerID uuid.UUID, downloadURL string, ttl time.Duration) (*models.DownloadToken, error)
	Redeem(ctx context.Context, tokenValue string) (*models.DownloadToken, error)
	Peek(ctx context.Context, tokenValue string) (*models.DownloadToken, error)
}

// DownloadOrderRepository — срез маркетплейса, нужный для перевыпуска токена.
type DownloadOrderRepository interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*models.MarketOrder, error)
	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// DownloadTokenService управляет одноразовыми ссылками на цифровые товары.
type DownloadTokenService struct {
	tokens   TokenRepository
	orders   DownloadOrderRepository
	tokenTTL time.Duration
}

func NewDownloadTokenService(tokens TokenRepository, orders DownloadOrderRepository, tokenTTL time.Duration) *DownloadTokenService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &DownloadTokenService{tokens: tokens, orders: orders, tokenTTL: tokenTTL}
}

// Redeem гасит токен и возвращает ссылку на файл. Токен сгорает ровно один
// раз: повторный вызов получает ErrTokenConsumed, просроченный — ErrTokenExpired.
func (s *DownloadTokenService) Redeem(ctx context.Context, tokenValue string) (*models.DownloadToken, error) {
	if tokenValue == "" {
		return nil, apperror.ErrTokenNotFound
	}

	token, err := s.tokens.Redeem(ctx, tokenValue)
	if err != nil {
		return nil, err
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"op":         "token_redeem",
			"listing_id": token.ListingID,
			"buyer_id":   token.BuyerID,
		}).Info("download token redeemed")
	}
	return token, nil
}

// Peek возвращает состояние токена без гашения.
func (s *DownloadTokenService) Peek(ctx context.Context, tokenValue string) (*models.DownloadToken, error) {
	if tokenValue == "" {
		return nil, apperror.ErrTokenNotFound
	}
	return s.tokens.Peek(ctx, tokenValue)
}

// Reissue выпускает новый токен по доставленному заказу. Доступно покупателю
// заказа и администратору; старые токены при этом не оживают.
func (s *DownloadTokenService) Reissue(ctx context.Context, orderID, requesterID uuid.UUID, isAdmin bool) (*models.DownloadToken, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.BuyerID != requesterID {
		return nil, apperror.ErrForbidden
	}
	if order.Status != string(valueobject.OrderStatusDelivered) {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "заказ ещё не доставлен")
	}

	listing, err := s.orders.GetListing(ctx, order.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.ProductType != models.ProductTypeDigital || listing.DownloadURL == nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "у товара нет файла для скачивания")
	}

	return s.tokens.Issue(ctx, listing.ID, order.BuyerID, *listing.DownloadURL, s.tokenTTL)
}
