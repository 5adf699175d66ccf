package common

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/testerwork/backend/internal/pkg/apperror"
)

// MaxRetries ограничивает число повторов при конфликте одновременного доступа.
const MaxRetries = 3

// Коды PostgreSQL, означающие, что транзакцию можно безопасно повторить:
// 40001 — serialization_failure, 40P01 — deadlock_detected.
func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

// WrapDBError переводит повторяемые ошибки БД в ErrContention,
// остальные возвращает как есть.
func WrapDBError(err error) error {
	if err == nil {
		return nil
	}
	if isRetryable(err) {
		return apperror.Wrap(err, apperror.ErrCodeContention, "конфликт одновременного доступа, повторите попытку")
	}
	return err
}

// WithRetry выполняет fn до MaxRetries раз, повторяя только при ErrContention.
// Каждый повтор — полный цикл «прочитать-проверить-записать»: fn обязана
// заново читать текущее состояние, а не переиспользовать прошлое.
func WithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		err = fn(ctx)
		if err == nil || !apperror.IsContention(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 20 * time.Millisecond):
		}
	}
	return err
}
