package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet представляет кошелёк пользователя в рамках одной роли.
// Пользователь, работающий и заказчиком, и тестировщиком, имеет два
// независимых кошелька. Инварианты balance >= 0, bonus_balance >= 0,
// pending_balance >= 0 продублированы CHECK-ограничениями в схеме.
type Wallet struct {
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	Role           string     `db:"role" json:"role"`
	Balance        float64    `db:"balance" json:"balance"`
	BonusBalance   float64    `db:"bonus_balance" json:"bonus_balance"`
	BonusExpiresAt *time.Time `db:"bonus_expires_at" json:"bonus_expires_at,omitempty"`
	PendingBalance float64    `db:"pending_balance" json:"pending_balance"`
	TotalDeposits  float64    `db:"total_deposits" json:"total_deposits"`
	TotalEarnings  float64    `db:"total_earnings" json:"total_earnings"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Spendable возвращает сумму, доступную для трат с учётом срока бонуса.
func (w *Wallet) Spendable(now time.Time) float64 {
	bonus := w.BonusBalance
	if w.BonusExpiresAt != nil && !now.Before(*w.BonusExpiresAt) {
		bonus = 0
	}
	return w.Balance + bonus
}
