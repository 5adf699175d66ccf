package valueobject

import "github.com/testerwork/backend/internal/pkg/apperror"

// DepositStatus — статус заявки на пополнение.
// Движение только вперёд, кроме явного отклонения или отмены.
type DepositStatus string

const (
	DepositStatusPending         DepositStatus = "pending"
	DepositStatusNegotiating     DepositStatus = "negotiating"
	DepositStatusAwaitingPayment DepositStatus = "awaiting_payment"
	DepositStatusAwaitingProof   DepositStatus = "awaiting_proof"
	DepositStatusApproved        DepositStatus = "approved"
	DepositStatusRejected        DepositStatus = "rejected"
	DepositStatusCancelled       DepositStatus = "cancelled"
)

func (s DepositStatus) IsValid() bool {
	switch s {
	case DepositStatusPending, DepositStatusNegotiating, DepositStatusAwaitingPayment,
		DepositStatusAwaitingProof, DepositStatusApproved, DepositStatusRejected, DepositStatusCancelled:
		return true
	}
	return false
}

// IsTerminal сообщает, что заявка больше не может менять статус.
func (s DepositStatus) IsTerminal() bool {
	return s == DepositStatusApproved || s == DepositStatusRejected || s == DepositStatusCancelled
}

func (s DepositStatus) CanTransitionTo(newStatus DepositStatus) bool {
	transitions := map[DepositStatus][]DepositStatus{
		DepositStatusPending:         {DepositStatusNegotiating, DepositStatusRejected, DepositStatusCancelled},
		DepositStatusNegotiating:     {DepositStatusAwaitingPayment, DepositStatusRejected, DepositStatusCancelled},
		DepositStatusAwaitingPayment: {DepositStatusAwaitingProof, DepositStatusRejected, DepositStatusCancelled},
		DepositStatusAwaitingProof:   {DepositStatusApproved, DepositStatusRejected, DepositStatusCancelled},
		DepositStatusApproved:        {},
		DepositStatusRejected:        {},
		DepositStatusCancelled:       {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewDepositStatus(status string) (DepositStatus, error) {
	s := DepositStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заявки на пополнение")
	}
	return s, nil
}

// JobStatus — статус задания.
type JobStatus string

const (
	JobStatusActive    JobStatus = "active"
	JobStatusPaused    JobStatus = "paused"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
)

func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusActive, JobStatusPaused, JobStatusCompleted, JobStatusCancelled:
		return true
	}
	return false
}

func (s JobStatus) CanTransitionTo(newStatus JobStatus) bool {
	transitions := map[JobStatus][]JobStatus{
		JobStatusActive:    {JobStatusPaused, JobStatusCompleted, JobStatusCancelled},
		JobStatusPaused:    {JobStatusActive, JobStatusCancelled},
		JobStatusCompleted: {},
		JobStatusCancelled: {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

// ApplicationStatus — статус отклика тестировщика на задание.
// Выплату запускает только переход submitted → approved.
type ApplicationStatus string

const (
	ApplicationStatusApplied   ApplicationStatus = "applied"
	ApplicationStatusAccepted  ApplicationStatus = "accepted"
	ApplicationStatusSubmitted ApplicationStatus = "submitted"
	ApplicationStatusApproved  ApplicationStatus = "approved"
	ApplicationStatusRejected  ApplicationStatus = "rejected"
)

func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationStatusApplied, ApplicationStatusAccepted, ApplicationStatusSubmitted,
		ApplicationStatusApproved, ApplicationStatusRejected:
		return true
	}
	return false
}

func (s ApplicationStatus) CanTransitionTo(newStatus ApplicationStatus) bool {
	transitions := map[ApplicationStatus][]ApplicationStatus{
		ApplicationStatusApplied:   {ApplicationStatusAccepted, ApplicationStatusSubmitted, ApplicationStatusRejected},
		ApplicationStatusAccepted:  {ApplicationStatusSubmitted, ApplicationStatusRejected},
		ApplicationStatusSubmitted: {ApplicationStatusApproved, ApplicationStatusRejected},
		ApplicationStatusApproved:  {},
		ApplicationStatusRejected:  {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

// OrderStatus — статус заказа на маркетплейсе.
// Строго вперёд: delivered и cancelled — терминальные.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	transitions := map[OrderStatus][]OrderStatus{
		OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled},
		OrderStatusPaid:      {OrderStatusDelivered, OrderStatusCancelled},
		OrderStatusDelivered: {},
		OrderStatusCancelled: {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewOrderStatus(status string) (OrderStatus, error) {
	s := OrderStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заказа")
	}
	return s, nil
}
