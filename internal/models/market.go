package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы товаров на маркетплейсе
const (
	ProductTypeDigital  = "digital"
	ProductTypePhysical = "physical"
	ProductTypeService  = "service"
)

// ValidProductTypes список валидных типов товаров
var ValidProductTypes = map[string]struct{}{
	ProductTypeDigital:  {},
	ProductTypePhysical: {},
	ProductTypeService:  {},
}

// DefaultAffiliateCommissionRate ставка реферальной комиссии по умолчанию.
const DefaultAffiliateCommissionRate = 0.05

// Listing описывает объявление продавца.
// Цифровой товар с auto_deliver доставляется в момент оплаты: заказ проходит
// pending → paid → delivered в одной операции с выпуском ссылки на скачивание.
type Listing struct {
	ID                      uuid.UUID `db:"id" json:"id"`
	SellerID                uuid.UUID `db:"seller_id" json:"seller_id"`
	Title                   string    `db:"title" json:"title"`
	Price                   float64   `db:"price" json:"price"`
	Currency                string    `db:"currency" json:"currency"`
	ProductType             string    `db:"product_type" json:"product_type"`
	DownloadURL             *string   `db:"download_url" json:"-"`
	AutoDeliver             bool      `db:"auto_deliver" json:"auto_deliver"`
	AffiliateCommissionRate float64   `db:"affiliate_commission_rate" json:"affiliate_commission_rate"`
	IsActive                bool      `db:"is_active" json:"is_active"`
	CreatedAt               time.Time `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time `db:"updated_at" json:"updated_at"`
}

// IsDigitalAutoDeliver сообщает, что товар доставляется автоматически.
func (l *Listing) IsDigitalAutoDeliver() bool {
	return l.ProductType == ProductTypeDigital && l.AutoDeliver && l.DownloadURL != nil
}

// MarketOrder представляет заказ покупателя.
type MarketOrder struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ListingID   uuid.UUID  `db:"listing_id" json:"listing_id"`
	BuyerID     uuid.UUID  `db:"buyer_id" json:"buyer_id"`
	SellerID    uuid.UUID  `db:"seller_id" json:"seller_id"`
	AffiliateID *uuid.UUID `db:"affiliate_id" json:"affiliate_id,omitempty"`
	Amount      float64    `db:"amount" json:"amount"`
	Currency    string     `db:"currency" json:"currency"`
	Status      string     `db:"status" json:"status"`
	Rating      *int       `db:"rating" json:"rating,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	DeliveredAt *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
}

// DownloadToken — одноразовая ссылка на цифровой товар с ограниченным сроком.
// Поле consumed переходит false → true ровно один раз.
type DownloadToken struct {
	Token       string    `db:"token" json:"token"`
	ListingID   uuid.UUID `db:"listing_id" json:"listing_id"`
	BuyerID     uuid.UUID `db:"buyer_id" json:"buyer_id"`
	DownloadURL string    `db:"download_url" json:"-"`
	ExpiresAt   time.Time `db:"expires_at" json:"expires_at"`
	Consumed    bool      `db:"consumed" json:"consumed"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ReferralReward фиксирует начисленную реферальную комиссию.
// settlement_key (id заказа или отклика) уникален: повторное начисление
// по тому же событию невозможно.
type ReferralReward struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AffiliateID   uuid.UUID  `db:"affiliate_id" json:"affiliate_id"`
	ListingID     *uuid.UUID `db:"listing_id" json:"listing_id,omitempty"`
	SettlementKey uuid.UUID  `db:"settlement_key" json:"settlement_key"`
	Amount        float64    `db:"amount" json:"amount"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}
