package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/testerwork/backend/internal/models"
	"github.com/testerwork/backend/internal/pkg/apperror"
	"github.com/testerwork/backend/internal/repository/common"
)

// TokenRepository хранит одноразовые ссылки на цифровые товары.
type TokenRepository struct {
	db *sqlx.DB
}

func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Issue выпускает новую ссылку вне расчётной транзакции (повторный выпуск
// администратором взамен истёкшей).
func (r *TokenRepository) Issue(ctx context.Context, listingID, buyerID uuid.UUID, downloadURL string, ttl time.Duration) (*models.DownloadToken, error) {
	raw, err := generateTokenValue()
	if err != nil {
		return nil, err
	}

	var token models.DownloadToken
	if err := r.db.GetContext(ctx, &token, `
		INSERT INTO download_tokens (token, listing_id, buyer_id, download_url, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, raw, listingID, buyerID, downloadURL, time.Now().Add(ttl)); err != nil {
		return nil, fmt.Errorf("token repository: issue %w", err)
	}
	return &token, nil
}

// Redeem погашает ссылку. Проверка и установка consumed — один условный
// UPDATE: из двух одновременных попыток ровно одна получит строку, вторая —
// ErrTokenConsumed.
func (r *TokenRepository) Redeem(ctx context.Context, tokenValue string) (*models.DownloadToken, error) {
	var token models.DownloadToken
	err := r.db.GetContext(ctx, &token, `
		UPDATE download_tokens SET consumed = TRUE
		WHERE token = $1 AND NOT consumed AND expires_at > NOW()
		RETURNING *
	`, tokenValue)
	if err == nil {
		return &token, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, common.WrapDBError(err)
	}

	// Погасить не удалось: различаем отсутствие, истечение и повторное
	// использование по текущему состоянию строки.
	var existing models.DownloadToken
	if err := r.db.GetContext(ctx, &existing, `SELECT * FROM download_tokens WHERE token = $1`, tokenValue); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrTokenNotFound
		}
		return nil, common.WrapDBError(err)
	}
	if existing.Consumed {
		return nil, apperror.ErrTokenConsumed
	}
	return nil, apperror.ErrTokenExpired
}

// Peek возвращает состояние ссылки без погашения (для предпросмотра в UI).
func (r *TokenRepository) Peek(ctx context.Context, tokenValue string) (*models.DownloadToken, error) {
	var token models.DownloadToken
	if err := r.db.GetContext(ctx, &token, `SELECT * FROM download_tokens WHERE token = $1`, tokenValue); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrTokenNotFound
		}
		return nil, common.WrapDBError(err)
	}
	return &token, nil
}
