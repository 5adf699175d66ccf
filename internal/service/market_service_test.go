package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/testerwork/backend/internal/models"
	"github.com/testerwork/backend/internal/pkg/apperror"
	"github.com/testerwork/backend/internal/repository"
)

type mockMarketRepo struct {
	mock.Mock
}

func (m *mockMarketRepo) CreateListing(ctx context.Context, l *models.Listing) (*models.Listing, error) {
	args := m.Called(ctx, l)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *mockMarketRepo) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *mockMarketRepo) ListListings(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *mockMarketRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.MarketOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MarketOrder), args.Error(1)
}

func (m *mockMarketRepo) ListOrdersByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]models.MarketOrder, error) {
	args := m.Called(ctx, buyerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MarketOrder), args.Error(1)
}

func (m *mockMarketRepo) Purchase(ctx context.Context, listingID, buyerID uuid.UUID, buyerRole string, affiliateID *uuid.UUID) (*repository.PurchaseResult, error) {
	args := m.Called(ctx, listingID, buyerID, buyerRole, affiliateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PurchaseResult), args.Error(1)
}

func (m *mockMarketRepo) Deliver(ctx context.Context, orderID uuid.UUID) (*models.MarketOrder, *models.DownloadToken, error) {
	args := m.Called(ctx, orderID)
	var order *models.MarketOrder
	var token *models.DownloadToken
	if args.Get(0) != nil {
		order = args.Get(0).(*models.MarketOrder)
	}
	if args.Get(1) != nil {
		token = args.Get(1).(*models.DownloadToken)
	}
	return order, token, args.Error(2)
}

func (m *mockMarketRepo) Cancel(ctx context.Context, orderID uuid.UUID) (*models.MarketOrder, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MarketOrder), args.Error(1)
}

func TestMarketService_CreateListing_Validation(t *testing.T) {
	repo := new(mockMarketRepo)
	svc := NewMarketService(repo, nil)
	ctx := context.Background()
	sellerID := uuid.New()

	_, err := svc.CreateListing(ctx, sellerID, "", 100, models.ProductTypeDigital, nil, false, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "название")

	_, err = svc.CreateListing(ctx, sellerID, "Шаблон отчёта", -5, models.ProductTypeDigital, nil, false, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "цена")

	_, err = svc.CreateListing(ctx, sellerID, "Шаблон отчёта", 100, "subscription", nil, false, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "тип товара")

	repo.AssertNotCalled(t, "CreateListing")
}

func TestMarketService_CreateListing_AutoDeliverRules(t *testing.T) {
	repo := new(mockMarketRepo)
	svc := NewMarketService(repo, nil)
	ctx := context.Background()
	sellerID := uuid.New()

	_, err := svc.CreateListing(ctx, sellerID, "Консультация", 100, models.ProductTypeService, nil, true, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "цифровых")

	_, err = svc.CreateListing(ctx, sellerID, "Архив кейсов", 100, models.ProductTypeDigital, nil, true, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ссылка на файл")
}

func TestMarketService_CreateListing_DefaultCommission(t *testing.T) {
	repo := new(mockMarketRepo)
	svc := NewMarketService(repo, nil)

	sellerID := uuid.New()
	repo.On("CreateListing", mock.Anything, mock.MatchedBy(func(l *models.Listing) bool {
		return l.SellerID == sellerID && l.AffiliateCommissionRate == models.DefaultAffiliateCommissionRate && l.IsActive
	})).Return(&models.Listing{ID: uuid.New()}, nil)

	_, err := svc.CreateListing(context.Background(), sellerID, "Шаблон отчёта", 250, models.ProductTypePhysical, nil, false, nil)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestMarketService_CreateListing_CommissionOutOfRange(t *testing.T) {
	repo := new(mockMarketRepo)
	svc := NewMarketService(repo, nil)

	rate := 1.0
	_, err := svc.CreateListing(context.Background(), uuid.New(), "Шаблон отчёта", 250, models.ProductTypeDigital, nil, false, &rate)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ставка комиссии")
}

func TestMarketService_Purchase_OwnListingForbidden(t *testing.T) {
	repo := new(mockMarketRepo)
	svc := NewMarketService(repo, nil)

	sellerID := uuid.New()
	listingID := uuid.New()
	repo.On("GetListing", mock.Anything, listingID).Return(&models.Listing{ID: listingID, SellerID: sellerID}, nil)

	_, err := svc.Purchase(context.Background(), listingID, sellerID, models.RolePoster, nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "собственный товар")
	repo.AssertNotCalled(t, "Purchase")
}

func TestMarketService_Purchase_SelfReferralStripped(t *testing.T) {
	repo := new(mockMarketRepo)
	svc := NewMarketService(repo, nil)

	listingID := uuid.New()
	buyerID := uuid.New()
	repo.On("GetListing", mock.Anything, listingID).Return(&models.Listing{ID: listingID, SellerID: uuid.New()}, nil)
	result := &repository.PurchaseResult{Order: &models.MarketOrder{ID: uuid.New(), BuyerID: buyerID, Status: "paid"}}
	repo.On("Purchase", mock.Anything, listingID, buyerID, models.RoleTester, (*uuid.UUID)(nil)).Return(result, nil)

	affiliate := buyerID
	got, err := svc.Purchase(context.Background(), listingID, buyerID, models.RoleTester, &affiliate)

	assert.NoError(t, err)
	assert.Nil(t, got.Order.AffiliateID)
	repo.AssertExpectations(t)
}

func TestMarketService_Purchase_SellerReferralStripped(t *testing.T) {
	repo := new(mockMarketRepo)
	svc := NewMarketService(repo, nil)

	listingID := uuid.New()
	buyerID := uuid.New()
	sellerID := uuid.New()
	repo.On("GetListing", mock.Anything, listingID).Return(&models.Listing{ID: listingID, SellerID: sellerID}, nil)
	result := &repository.PurchaseResult{Order: &models.MarketOrder{ID: uuid.New(), BuyerID: buyerID, Status: "paid"}}
	repo.On("Purchase", mock.Anything, listingID, buyerID, models.RoleTester, (*uuid.UUID)(nil)).Return(result, nil)

	affiliate := sellerID
	_, err := svc.Purchase(context.Background(), listingID, buyerID, models.RoleTester, &affiliate)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestMarketService_Purchase_KeepsHonestReferral(t *testing.T) {
	repo := new(mockMarketRepo)
	svc := NewMarketService(repo, nil)

	listingID := uuid.New()
	buyerID := uuid.New()
	affiliateID := uuid.New()
	repo.On("GetListing", mock.Anything, listingID).Return(&models.Listing{ID: listingID, SellerID: uuid.New()}, nil)
	result := &repository.PurchaseResult{Order: &models.MarketOrder{ID: uuid.New(), BuyerID: buyerID, AffiliateID: &affiliateID, Status: "paid"}}
	repo.On("Purchase", mock.Anything, listingID, buyerID, models.RoleTester, &affiliateID).Return(result, nil)

	got, err := svc.Purchase(context.Background(), listingID, buyerID, models.RoleTester, &affiliateID)

	assert.NoError(t, err)
	assert.Equal(t, &affiliateID, got.Order.AffiliateID)
	repo.AssertExpectations(t)
}

func TestMarketService_Purchase_InsufficientFunds(t *testing.T) {
	repo := new(mockMarketRepo)
	svc := NewMarketService(repo, nil)

	listingID := uuid.New()
	buyerID := uuid.New()
	repo.On("GetListing", mock.Anything, listingID).Return(&models.Listing{ID: listingID, SellerID: uuid.New()}, nil)
	repo.On("Purchase", mock.Anything, listingID, buyerID, models.RoleTester, (*uuid.UUID)(nil)).Return(nil, apperror.ErrInsufficientFunds)

	_, err := svc.Purchase(context.Background(), listingID, buyerID, models.RoleTester, nil)

	assert.ErrorIs(t, err, apperror.ErrInsufficientFunds)
}

func TestMarketService_Deliver_OnlySellerOrAdmin(t *testing.T) {
	repo := new(mockMarketRepo)
	svc := NewMarketService(repo, nil)

	orderID := uuid.New()
	order := &models.MarketOrder{ID: orderID, BuyerID: uuid.New(), SellerID: uuid.New(), Status: "paid"}
	repo.On("GetOrder", mock.Anything, orderID).Return(order, nil)

	_, _, err := svc.Deliver(context.Background(), orderID, order.BuyerID, false)

	assert.ErrorIs(t, err, apperror.ErrForbidden)
	repo.AssertNotCalled(t, "Deliver")
}

func TestMarketService_Deliver_BySeller(t *testing.T) {
	repo := new(mockMarketRepo)
	svc := NewMarketService(repo, nil)

	orderID := uuid.New()
	sellerID := uuid.New()
	order := &models.MarketOrder{ID: orderID, BuyerID: uuid.New(), SellerID: sellerID, Status: "paid"}
	repo.On("GetOrder", mock.Anything, orderID).Return(order, nil)
	delivered := &models.MarketOrder{ID: orderID, BuyerID: order.BuyerID, SellerID: sellerID, Status: "delivered"}
	token := &models.DownloadToken{Token: "abc", BuyerID: order.BuyerID}
	repo.On("Deliver", mock.Anything, orderID).Return(delivered, token, nil)

	gotOrder, gotToken, err := svc.Deliver(context.Background(), orderID, sellerID, false)

	assert.NoError(t, err)
	assert.Equal(t, "delivered", gotOrder.Status)
	assert.Equal(t, token, gotToken)
	repo.AssertExpectations(t)
}

func TestMarketService_Cancel_StrangerForbidden(t *testing.T) {
	repo := new(mockMarketRepo)
	svc := NewMarketService(repo, nil)

	orderID := uuid.New()
	order := &models.MarketOrder{ID: orderID, BuyerID: uuid.New(), SellerID: uuid.New(), Status: "paid"}
	repo.On("GetOrder", mock.Anything, orderID).Return(order, nil)

	_, err := svc.Cancel(context.Background(), orderID, uuid.New(), false)

	assert.ErrorIs(t, err, apperror.ErrForbidden)
	repo.AssertNotCalled(t, "Cancel")
}

func TestMarketService_GetOrder_VisibleToBothSides(t *testing.T) {
	repo := new(mockMarketRepo)
	svc := NewMarketService(repo, nil)

	orderID := uuid.New()
	order := &models.MarketOrder{ID: orderID, BuyerID: uuid.New(), SellerID: uuid.New()}
	repo.On("GetOrder", mock.Anything, orderID).Return(order, nil)

	got, err := svc.GetOrder(context.Background(), orderID, order.SellerID, false)
	assert.NoError(t, err)
	assert.Equal(t, order, got)

	got, err = svc.GetOrder(context.Background(), orderID, order.BuyerID, false)
	assert.NoError(t, err)
	assert.Equal(t, order, got)
}
