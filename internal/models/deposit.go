package models

import (
	"time"

	"github.com/google/uuid"
)

// Способы оплаты, согласуемые с администратором
const (
	DepositMethodExpress = "express"
	DepositMethodIBAN    = "iban"
	DepositMethodCustom  = "custom"
)

// ValidDepositMethods список валидных способов оплаты
var ValidDepositMethods = map[string]struct{}{
	DepositMethodExpress: {},
	DepositMethodIBAN:    {},
	DepositMethodCustom:  {},
}

// DepositNegotiation представляет заявку на пополнение баланса.
// Оплата происходит вне платформы: администратор и пользователь согласуют
// сумму и способ, пользователь присылает подтверждение, администратор
// зачисляет средства. Зачисление выполняется ровно один раз.
type DepositNegotiation struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	UserID          uuid.UUID  `db:"user_id" json:"user_id"`
	Status          string     `db:"status" json:"status"`
	RequestedAmount float64    `db:"requested_amount" json:"requested_amount"`
	AgreedAmount    *float64   `db:"agreed_amount" json:"agreed_amount,omitempty"`
	AgreedMethod    *string    `db:"agreed_method" json:"agreed_method,omitempty"`
	AgreedFee       *float64   `db:"agreed_fee" json:"agreed_fee,omitempty"`
	AgreedDetails   *string    `db:"agreed_details" json:"agreed_details,omitempty"`
	ProofURL        *string    `db:"proof_url" json:"proof_url,omitempty"`
	AdminID         *uuid.UUID `db:"admin_id" json:"admin_id,omitempty"`
	AdminName       *string    `db:"admin_name" json:"admin_name,omitempty"`
	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}
