package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/testerwork/backend/internal/domain/valueobject"
	"github.com/testerwork/backend/internal/models"
	"github.com/testerwork/backend/internal/pkg/apperror"
	"github.com/testerwork/backend/internal/repository/common"
)

// OrderRepository проводит покупки на маркетплейсе: резервирование оплаты,
// доставку с выплатой продавцу и возвраты. Цифровой auto_deliver товар
// проходит pending → paid → delivered в одной транзакции БД с выпуском
// одноразовой ссылки на скачивание.
type OrderRepository struct {
	db       *sqlx.DB
	feeRate  float64
	tokenTTL time.Duration
}

func NewOrderRepository(db *sqlx.DB, feeRate float64, tokenTTL time.Duration) *OrderRepository {
	return &OrderRepository{db: db, feeRate: feeRate, tokenTTL: tokenTTL}
}

// CreateListing создаёт объявление продавца.
func (r *OrderRepository) CreateListing(ctx context.Context, l *models.Listing) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.GetContext(ctx, &listing, `
		INSERT INTO listings (seller_id, title, price, currency, product_type, download_url, auto_deliver, affiliate_commission_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *
	`, l.SellerID, l.Title, l.Price, l.Currency, l.ProductType, l.DownloadURL, l.AutoDeliver, l.AffiliateCommissionRate)
	if err != nil {
		return nil, fmt.Errorf("order repository: create listing %w", err)
	}
	return &listing, nil
}

// GetListing возвращает объявление.
func (r *OrderRepository) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return common.GetByID[models.Listing](ctx, r.db, "listings", id, apperror.ErrListingNotFound)
}

// ListListings возвращает активные объявления.
func (r *OrderRepository) ListListings(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	var listings []models.Listing
	err := r.db.SelectContext(ctx, &listings, `
		SELECT * FROM listings WHERE is_active ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	return listings, err
}

// GetOrder возвращает заказ.
func (r *OrderRepository) GetOrder(ctx context.Context, id uuid.UUID) (*models.MarketOrder, error) {
	return common.GetByID[models.MarketOrder](ctx, r.db, "market_orders", id, apperror.ErrOrderNotFound)
}

// ListOrdersByBuyer возвращает заказы покупателя.
func (r *OrderRepository) ListOrdersByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]models.MarketOrder, error) {
	var orders []models.MarketOrder
	err := r.db.SelectContext(ctx, &orders, `
		SELECT * FROM market_orders WHERE buyer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, buyerID, limit, offset)
	return orders, err
}

// PurchaseResult итог покупки: заказ и, для автодоставки, ссылка на скачивание.
type PurchaseResult struct {
	Order *models.MarketOrder
	Token *models.DownloadToken
}

// Purchase создаёт заказ и резервирует оплату: бонус-первое списание с
// кошелька покупателя, вся сумма — в pending_balance, заказ сразу paid.
// При нехватке средств ни одна запись не создаётся. Для цифрового
// auto_deliver товара доставка и выплата продавцу проводятся той же
// транзакцией БД.
func (r *OrderRepository) Purchase(ctx context.Context, listingID, buyerID uuid.UUID, buyerRole string, affiliateID *uuid.UUID) (*PurchaseResult, error) {
	var result *PurchaseResult
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return common.WrapDBError(err)
		}
		defer tx.Rollback()

		var listing models.Listing
		if err := tx.GetContext(ctx, &listing, `SELECT * FROM listings WHERE id = $1 AND is_active`, listingID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrListingNotFound
			}
			return common.WrapDBError(err)
		}

		wallet, err := upsertWalletLocked(ctx, tx, buyerID, buyerRole)
		if err != nil {
			return common.WrapDBError(err)
		}

		plan, err := valueobject.PlanSpend(wallet.Balance, wallet.BonusBalance, wallet.BonusExpiresAt, listing.Price, time.Now())
		if err != nil {
			return err
		}

		wallet.Balance -= plan.CashUsed
		wallet.BonusBalance -= plan.BonusUsed
		wallet.PendingBalance += listing.Price
		if err := writeWallet(ctx, tx, wallet); err != nil {
			return common.WrapDBError(err)
		}

		var order models.MarketOrder
		if err := tx.GetContext(ctx, &order, `
			INSERT INTO market_orders (listing_id, buyer_id, seller_id, affiliate_id, amount, currency, status)
			VALUES ($1, $2, $3, $4, $5, $6, 'paid')
			RETURNING *
		`, listing.ID, buyerID, listing.SellerID, affiliateID, listing.Price, listing.Currency); err != nil {
			return common.WrapDBError(err)
		}

		meta := models.TransactionMetadata{OrderID: &order.ID, ListingID: &listing.ID}
		if plan.BonusUsed > 0 {
			meta.BonusUsed = &plan.BonusUsed
		}
		if err := appendTransaction(ctx, tx, buyerID, models.TransactionTypeEscrow, listing.Price,
			"Оплата заказа на маркетплейсе", meta); err != nil {
			return common.WrapDBError(err)
		}

		var token *models.DownloadToken
		if listing.IsDigitalAutoDeliver() {
			token, err = r.settleDelivery(ctx, tx, &order, &listing, buyerRole)
			if err != nil {
				return err
			}
		}

		result = &PurchaseResult{Order: &order, Token: token}
		return common.WrapDBError(tx.Commit())
	})
	return result, err
}

// Deliver проводит доставку заказа ровно один раз: paid → delivered,
// оплата уходит из ожидающих средств покупателя продавцу за вычетом
// комиссии платформы. Повторный вызов возвращает ErrAlreadySettled.
func (r *OrderRepository) Deliver(ctx context.Context, orderID uuid.UUID) (*models.MarketOrder, *models.DownloadToken, error) {
	var (
		resultOrder *models.MarketOrder
		resultToken *models.DownloadToken
	)
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return common.WrapDBError(err)
		}
		defer tx.Rollback()

		var order models.MarketOrder
		if err := tx.GetContext(ctx, &order, `SELECT * FROM market_orders WHERE id = $1 FOR UPDATE`, orderID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrOrderNotFound
			}
			return common.WrapDBError(err)
		}

		status := valueobject.OrderStatus(order.Status)
		if status == valueobject.OrderStatusDelivered {
			return apperror.ErrAlreadySettled
		}
		if !status.CanTransitionTo(valueobject.OrderStatusDelivered) {
			return apperror.ErrInvalidTransition
		}

		var listing models.Listing
		if err := tx.GetContext(ctx, &listing, `SELECT * FROM listings WHERE id = $1`, order.ListingID); err != nil {
			return common.WrapDBError(err)
		}

		var buyerRole string
		if err := tx.GetContext(ctx, &buyerRole, `SELECT role FROM users WHERE id = $1`, order.BuyerID); err != nil {
			return common.WrapDBError(err)
		}

		token, err := r.settleDelivery(ctx, tx, &order, &listing, buyerRole)
		if err != nil {
			return err
		}

		resultOrder = &order
		resultToken = token
		return common.WrapDBError(tx.Commit())
	})
	return resultOrder, resultToken, err
}

// settleDelivery — общий расчётный шаг доставки. Вызывается только внутри
// открытой транзакции: из Deliver либо из Purchase при автодоставке.
func (r *OrderRepository) settleDelivery(ctx context.Context, tx *sqlx.Tx, order *models.MarketOrder, listing *models.Listing, buyerRole string) (*models.DownloadToken, error) {
	buyerWallet, err := upsertWalletLocked(ctx, tx, order.BuyerID, buyerRole)
	if err != nil {
		return nil, common.WrapDBError(err)
	}
	if buyerWallet.PendingBalance < order.Amount {
		return nil, apperror.ErrInsufficientFunds
	}
	buyerWallet.PendingBalance -= order.Amount
	if err := writeWallet(ctx, tx, buyerWallet); err != nil {
		return nil, common.WrapDBError(err)
	}

	fee := order.Amount * r.feeRate
	net := order.Amount - fee

	var sellerRole string
	if err := tx.GetContext(ctx, &sellerRole, `SELECT role FROM users WHERE id = $1`, order.SellerID); err != nil {
		return nil, common.WrapDBError(err)
	}

	sellerWallet, err := upsertWalletLocked(ctx, tx, order.SellerID, sellerRole)
	if err != nil {
		return nil, common.WrapDBError(err)
	}
	sellerWallet.Balance += net
	sellerWallet.TotalEarnings += net
	if err := writeWallet(ctx, tx, sellerWallet); err != nil {
		return nil, common.WrapDBError(err)
	}

	if err := tx.GetContext(ctx, order, `
		UPDATE market_orders SET status = 'delivered', updated_at = NOW(), delivered_at = NOW()
		WHERE id = $1
		RETURNING *
	`, order.ID); err != nil {
		return nil, common.WrapDBError(err)
	}

	meta := models.TransactionMetadata{OrderID: &order.ID, ListingID: &listing.ID, SellerID: &order.SellerID}
	if err := appendTransaction(ctx, tx, order.SellerID, models.TransactionTypePayout, net,
		"Оплата за проданный товар", meta); err != nil {
		return nil, common.WrapDBError(err)
	}

	// Комиссия платформы фиксируется отдельной записью, а не растворяется
	// в сумме выплаты.
	if fee > 0 {
		if err := appendTransaction(ctx, tx, order.SellerID, models.TransactionTypeFee, fee,
			"Комиссия платформы", meta); err != nil {
			return nil, common.WrapDBError(err)
		}
	}

	var token *models.DownloadToken
	if listing.ProductType == models.ProductTypeDigital && listing.DownloadURL != nil {
		token, err = insertDownloadToken(ctx, tx, listing.ID, order.BuyerID, *listing.DownloadURL, r.tokenTTL)
		if err != nil {
			return nil, common.WrapDBError(err)
		}
	}

	if order.AffiliateID != nil {
		if err := accrueReferralReward(ctx, tx, *order.AffiliateID, &listing.ID, order.ID,
			order.Amount, listing.AffiliateCommissionRate); err != nil {
			return nil, common.WrapDBError(err)
		}
	}

	return token, nil
}

// Cancel отменяет заказ. После paid полная сумма возвращается из ожидающих
// средств покупателя на денежный баланс; после delivered отмена запрещена —
// только через возвратный путь.
func (r *OrderRepository) Cancel(ctx context.Context, orderID uuid.UUID) (*models.MarketOrder, error) {
	var result *models.MarketOrder
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return common.WrapDBError(err)
		}
		defer tx.Rollback()

		var order models.MarketOrder
		if err := tx.GetContext(ctx, &order, `SELECT * FROM market_orders WHERE id = $1 FOR UPDATE`, orderID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrOrderNotFound
			}
			return common.WrapDBError(err)
		}

		status := valueobject.OrderStatus(order.Status)
		if status == valueobject.OrderStatusCancelled {
			return apperror.ErrAlreadySettled
		}
		if !status.CanTransitionTo(valueobject.OrderStatusCancelled) {
			return apperror.ErrInvalidTransition
		}

		if status == valueobject.OrderStatusPaid {
			var buyerRole string
			if err := tx.GetContext(ctx, &buyerRole, `SELECT role FROM users WHERE id = $1`, order.BuyerID); err != nil {
				return common.WrapDBError(err)
			}

			wallet, err := upsertWalletLocked(ctx, tx, order.BuyerID, buyerRole)
			if err != nil {
				return common.WrapDBError(err)
			}
			if wallet.PendingBalance < order.Amount {
				return apperror.ErrInsufficientFunds
			}
			wallet.PendingBalance -= order.Amount
			wallet.Balance += order.Amount
			if err := writeWallet(ctx, tx, wallet); err != nil {
				return common.WrapDBError(err)
			}

			if err := appendTransaction(ctx, tx, order.BuyerID, models.TransactionTypeRefund, order.Amount,
				"Возврат средств за отменённый заказ",
				models.TransactionMetadata{OrderID: &order.ID, ListingID: &order.ListingID}); err != nil {
				return common.WrapDBError(err)
			}
		}

		if err := tx.GetContext(ctx, &order, `
			UPDATE market_orders SET status = 'cancelled', updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, orderID); err != nil {
			return common.WrapDBError(err)
		}

		result = &order
		return common.WrapDBError(tx.Commit())
	})
	return result, err
}

// insertDownloadToken выпускает одноразовую ссылку на скачивание.
func insertDownloadToken(ctx context.Context, tx *sqlx.Tx, listingID, buyerID uuid.UUID, downloadURL string, ttl time.Duration) (*models.DownloadToken, error) {
	raw, err := generateTokenValue()
	if err != nil {
		return nil, err
	}

	var token models.DownloadToken
	if err := tx.GetContext(ctx, &token, `
		INSERT INTO download_tokens (token, listing_id, buyer_id, download_url, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, raw, listingID, buyerID, downloadURL, time.Now().Add(ttl)); err != nil {
		return nil, fmt.Errorf("download token insert: %w", err)
	}
	return &token, nil
}

// generateTokenValue возвращает неугадываемое значение токена.
func generateTokenValue() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token generate: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
