package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDepositStatus_HappyPath(t *testing.T) {
	assert.True(t, DepositStatusPending.CanTransitionTo(DepositStatusNegotiating))
	assert.True(t, DepositStatusNegotiating.CanTransitionTo(DepositStatusAwaitingPayment))
	assert.True(t, DepositStatusAwaitingPayment.CanTransitionTo(DepositStatusAwaitingProof))
	assert.True(t, DepositStatusAwaitingProof.CanTransitionTo(DepositStatusApproved))
}

func TestDepositStatus_NoBackwardOrSkip(t *testing.T) {
	assert.False(t, DepositStatusPending.CanTransitionTo(DepositStatusApproved))
	assert.False(t, DepositStatusNegotiating.CanTransitionTo(DepositStatusPending))
	assert.False(t, DepositStatusAwaitingProof.CanTransitionTo(DepositStatusNegotiating))
}

func TestDepositStatus_TerminalIsFrozen(t *testing.T) {
	for _, s := range []DepositStatus{DepositStatusApproved, DepositStatusRejected, DepositStatusCancelled} {
		assert.True(t, s.IsTerminal())
		for _, target := range []DepositStatus{DepositStatusPending, DepositStatusNegotiating, DepositStatusApproved, DepositStatusRejected} {
			assert.False(t, s.CanTransitionTo(target), "из %s нельзя в %s", s, target)
		}
	}
}

func TestDepositStatus_RejectOrCancelFromAnyActive(t *testing.T) {
	active := []DepositStatus{DepositStatusPending, DepositStatusNegotiating, DepositStatusAwaitingPayment, DepositStatusAwaitingProof}
	for _, s := range active {
		assert.True(t, s.CanTransitionTo(DepositStatusRejected), "из %s должен быть путь в rejected", s)
		assert.True(t, s.CanTransitionTo(DepositStatusCancelled), "из %s должен быть путь в cancelled", s)
	}
}

func TestNewDepositStatus(t *testing.T) {
	s, err := NewDepositStatus("awaiting_proof")
	assert.NoError(t, err)
	assert.Equal(t, DepositStatusAwaitingProof, s)

	_, err = NewDepositStatus("unknown")
	assert.Error(t, err)
}

func TestApplicationStatus_PayoutPath(t *testing.T) {
	assert.True(t, ApplicationStatusApplied.CanTransitionTo(ApplicationStatusSubmitted))
	assert.True(t, ApplicationStatusAccepted.CanTransitionTo(ApplicationStatusSubmitted))
	assert.True(t, ApplicationStatusSubmitted.CanTransitionTo(ApplicationStatusApproved))

	// Выплата возможна только из submitted.
	assert.False(t, ApplicationStatusApplied.CanTransitionTo(ApplicationStatusApproved))
	assert.False(t, ApplicationStatusAccepted.CanTransitionTo(ApplicationStatusApproved))
	assert.False(t, ApplicationStatusApproved.CanTransitionTo(ApplicationStatusRejected))
}

func TestOrderStatus_ForwardOnly(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusPaid))
	assert.True(t, OrderStatusPaid.CanTransitionTo(OrderStatusDelivered))
	assert.True(t, OrderStatusPaid.CanTransitionTo(OrderStatusCancelled))

	assert.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusCancelled.CanTransitionTo(OrderStatusPaid))
	assert.False(t, OrderStatusPending.CanTransitionTo(OrderStatusDelivered))
}

func TestJobStatus_PauseResume(t *testing.T) {
	assert.True(t, JobStatusActive.CanTransitionTo(JobStatusPaused))
	assert.True(t, JobStatusPaused.CanTransitionTo(JobStatusActive))
	assert.False(t, JobStatusCompleted.CanTransitionTo(JobStatusActive))
	assert.False(t, JobStatusCancelled.CanTransitionTo(JobStatusActive))
}
