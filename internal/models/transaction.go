package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultCurrency валюта платформы. Конвертация не поддерживается.
const DefaultCurrency = "RUB"

// Типы транзакций
const (
	TransactionTypeDeposit        = "deposit"
	TransactionTypeAdminDeposit   = "admin_deposit"
	TransactionTypePayout         = "payout"
	TransactionTypeEscrow         = "escrow"
	TransactionTypeFee            = "fee"
	TransactionTypeReferralReward = "referral_reward"
	TransactionTypeRefund         = "refund"
)

// Статусы транзакций
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// TransactionMetadata связывает транзакцию с породившей её сущностью.
type TransactionMetadata struct {
	JobID         *uuid.UUID `json:"job_id,omitempty"`
	ApplicationID *uuid.UUID `json:"application_id,omitempty"`
	OrderID       *uuid.UUID `json:"order_id,omitempty"`
	ListingID     *uuid.UUID `json:"listing_id,omitempty"`
	SellerID      *uuid.UUID `json:"seller_id,omitempty"`
	BonusUsed     *float64   `json:"bonus_used,omitempty"`
	Released      *bool      `json:"released,omitempty"`
}

// Value сериализует метаданные в JSONB.
func (m TransactionMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan читает метаданные из JSONB.
func (m *TransactionMetadata) Scan(src interface{}) error {
	if src == nil {
		*m = TransactionMetadata{}
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("transaction metadata: неожиданный тип %T", src)
	}
	return json.Unmarshal(raw, m)
}

// Transaction представляет запись журнала балансовых операций.
// Журнал только пополняется: записи никогда не изменяются и не удаляются.
type Transaction struct {
	ID          uuid.UUID           `db:"id" json:"id"`
	UserID      uuid.UUID           `db:"user_id" json:"user_id"`
	Type        string              `db:"type" json:"type"`
	Amount      float64             `db:"amount" json:"amount"`
	Currency    string              `db:"currency" json:"currency"`
	Status      string              `db:"status" json:"status"`
	Description string              `db:"description" json:"description"`
	Metadata    TransactionMetadata `db:"metadata" json:"metadata"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
	CompletedAt *time.Time          `db:"completed_at" json:"completed_at,omitempty"`
}
