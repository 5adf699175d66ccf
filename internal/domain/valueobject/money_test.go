package valueobject

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/testerwork/backend/internal/pkg/apperror"
)

func TestPlanSpend_BonusFirst(t *testing.T) {
	now := time.Now()
	exp := now.Add(24 * time.Hour)

	// Бонуса хватает на часть списания, остаток берётся из денег.
	plan, err := PlanSpend(100, 30, &exp, 50, now)
	assert.NoError(t, err)
	assert.Equal(t, 30.0, plan.BonusUsed)
	assert.Equal(t, 20.0, plan.CashUsed)
}

func TestPlanSpend_BonusCoversAll(t *testing.T) {
	now := time.Now()

	plan, err := PlanSpend(100, 80, nil, 50, now)
	assert.NoError(t, err)
	assert.Equal(t, 50.0, plan.BonusUsed)
	assert.Equal(t, 0.0, plan.CashUsed)
}

func TestPlanSpend_ExpiredBonusIgnored(t *testing.T) {
	now := time.Now()
	expired := now.Add(-time.Minute)

	plan, err := PlanSpend(100, 30, &expired, 50, now)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, plan.BonusUsed)
	assert.Equal(t, 50.0, plan.CashUsed)
}

func TestPlanSpend_InsufficientFunds(t *testing.T) {
	now := time.Now()
	exp := now.Add(time.Hour)

	_, err := PlanSpend(10, 30, &exp, 50, now)
	assert.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrInsufficientFunds)
}

func TestPlanSpend_ExpiredBonusInsufficient(t *testing.T) {
	now := time.Now()
	expired := now.Add(-time.Minute)

	// Денег хватило бы вместе с бонусом, но бонус истёк.
	_, err := PlanSpend(40, 30, &expired, 50, now)
	assert.ErrorIs(t, err, apperror.ErrInsufficientFunds)
}

func TestPlanSpend_NonPositiveAmount(t *testing.T) {
	now := time.Now()

	_, err := PlanSpend(100, 0, nil, 0, now)
	assert.Error(t, err)

	_, err = PlanSpend(100, 0, nil, -5, now)
	assert.Error(t, err)
}

func TestPlanSpend_ExactBalance(t *testing.T) {
	now := time.Now()

	plan, err := PlanSpend(50, 0, nil, 50, now)
	assert.NoError(t, err)
	assert.Equal(t, 50.0, plan.CashUsed)
}
