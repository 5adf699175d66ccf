package service

import (
	"github.com/google/uuid"

	"github.com/testerwork/backend/internal/goroutine"
)

// События, отправляемые пользователям через WebSocket.
const (
	EventDepositStatusChanged = "deposit_status_changed"
	EventDepositApproved      = "deposit_approved"
	EventPayoutReceived       = "payout_received"
	EventOrderDelivered       = "order_delivered"
)

// Notifier доставляет событие конкретному пользователю.
// Реализуется WebSocket-хабом; доставка не участвует в расчётной
// транзакции и её сбой не откатывает проведённую операцию.
type Notifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// notify шлёт событие, если хаб подключён. Отправка уходит в отдельную
// горутину, чтобы не задерживать ответ; ошибки доставки игнорируются.
func notify(n Notifier, userID uuid.UUID, event string, data any) {
	if n == nil {
		return
	}
	goroutine.SafeGo(func() {
		_ = n.BroadcastToUser(userID, event, data)
	})
}
