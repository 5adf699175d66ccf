package valueobject

import (
	"time"

	"github.com/testerwork/backend/internal/pkg/apperror"
)

// SpendPlan — разбивка исходящего списания по корзинам кошелька.
// Любая трата сначала выбирает бонусный баланс (если не истёк),
// остаток берётся из денежного.
type SpendPlan struct {
	BonusUsed float64
	CashUsed  float64
}

// PlanSpend считает бонус-первое списание. Истёкший бонус не участвует.
// Возвращает ErrInsufficientFunds, если суммарных доступных средств не хватает.
func PlanSpend(balance, bonusBalance float64, bonusExpiresAt *time.Time, amount float64, now time.Time) (SpendPlan, error) {
	if amount <= 0 {
		return SpendPlan{}, apperror.New(apperror.ErrCodeValidation, "сумма списания должна быть положительной")
	}

	bonus := bonusBalance
	if bonusExpiresAt != nil && !now.Before(*bonusExpiresAt) {
		bonus = 0
	}

	bonusUsed := bonus
	if bonusUsed > amount {
		bonusUsed = amount
	}

	cashUsed := amount - bonusUsed
	if cashUsed > balance {
		return SpendPlan{}, apperror.ErrInsufficientFunds
	}

	return SpendPlan{BonusUsed: bonusUsed, CashUsed: cashUsed}, nil
}
