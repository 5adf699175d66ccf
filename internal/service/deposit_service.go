package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/testerwork/backend/internal/logger"
	"github.com/testerwork/backend/internal/models"
	"github.com/testerwork/backend/internal/pkg/apperror"
)

// DepositRepository описывает зависимости DepositService от слоя хранилища.
type DepositRepository interface {
	Create(ctx context.Context, userID uuid.UUID, requestedAmount float64) (*models.DepositNegotiation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.DepositNegotiation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.DepositNegotiation, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]models.DepositNegotiation, error)
	StartNegotiation(ctx context.Context, id, adminID uuid.UUID, adminName string) (*models.DepositNegotiation, error)
	ProposeTerms(ctx context.Context, id uuid.UUID, amount float64, method string, fee float64, details string) (*models.DepositNegotiation, error)
	AttachProof(ctx context.Context, id, userID uuid.UUID, proofURL string) (*models.DepositNegotiation, error)
	Approve(ctx context.Context, id, adminID uuid.UUID, adminName string) (*models.DepositNegotiation, error)
	Reject(ctx context.Context, id, adminID uuid.UUID, adminName, reason string) (*models.DepositNegotiation, error)
	Cancel(ctx context.Context, id, userID uuid.UUID) (*models.DepositNegotiation, error)
}

// DepositService ведёт заявку на пополнение от запроса пользователя до
// зачисления. Оплата происходит вне платформы, поэтому каждая смена статуса —
// отдельный атомарный шаг, а не часть долгой транзакции.
type DepositService struct {
	repo DepositRepository
	hub  Notifier
}

func NewDepositService(repo DepositRepository, hub Notifier) *DepositService {
	return &DepositService{repo: repo, hub: hub}
}

// Request создаёт заявку на пополнение.
func (s *DepositService) Request(ctx context.Context, userID uuid.UUID, amount float64) (*models.DepositNegotiation, error) {
	if amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}
	return s.repo.Create(ctx, userID, amount)
}

// Get возвращает заявку; пользователю доступны только собственные заявки.
func (s *DepositService) Get(ctx context.Context, id, requesterID uuid.UUID, isAdmin bool) (*models.DepositNegotiation, error) {
	negotiation, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && negotiation.UserID != requesterID {
		return nil, apperror.ErrForbidden
	}
	return negotiation, nil
}

// ListMine возвращает заявки пользователя.
func (s *DepositService) ListMine(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.DepositNegotiation, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// ListByStatus возвращает заявки в заданном статусе для админ-панели.
func (s *DepositService) ListByStatus(ctx context.Context, status string, limit, offset int) ([]models.DepositNegotiation, error) {
	return s.repo.ListByStatus(ctx, status, limit, offset)
}

// StartNegotiation закрепляет заявку за администратором.
func (s *DepositService) StartNegotiation(ctx context.Context, id, adminID uuid.UUID, adminName string) (*models.DepositNegotiation, error) {
	negotiation, err := s.repo.StartNegotiation(ctx, id, adminID, adminName)
	if err != nil {
		return nil, err
	}
	notify(s.hub, negotiation.UserID, EventDepositStatusChanged, negotiation)
	return negotiation, nil
}

// ProposeTerms фиксирует согласованные сумму, способ и комиссию.
func (s *DepositService) ProposeTerms(ctx context.Context, id uuid.UUID, amount float64, method string, fee float64, details string) (*models.DepositNegotiation, error) {
	if amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}
	if fee < 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "комиссия не может быть отрицательной")
	}
	if _, ok := models.ValidDepositMethods[method]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректный способ оплаты")
	}

	negotiation, err := s.repo.ProposeTerms(ctx, id, amount, method, fee, details)
	if err != nil {
		return nil, err
	}
	notify(s.hub, negotiation.UserID, EventDepositStatusChanged, negotiation)
	return negotiation, nil
}

// AttachProof сохраняет подтверждение оплаты.
func (s *DepositService) AttachProof(ctx context.Context, id, userID uuid.UUID, proofURL string) (*models.DepositNegotiation, error) {
	if strings.TrimSpace(proofURL) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "подтверждение оплаты обязательно")
	}
	return s.repo.AttachProof(ctx, id, userID, proofURL)
}

// Approve зачисляет согласованную сумму. Повторное одобрение — мягкий
// no-op c ErrAlreadySettled, без второго зачисления.
func (s *DepositService) Approve(ctx context.Context, id, adminID uuid.UUID, adminName string) (*models.DepositNegotiation, error) {
	negotiation, err := s.repo.Approve(ctx, id, adminID, adminName)
	if err != nil {
		return nil, err
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"op":         "deposit_approve",
			"deposit_id": negotiation.ID,
			"user_id":    negotiation.UserID,
			"amount":     negotiation.AgreedAmount,
			"admin_id":   adminID,
		}).Info("deposit approved and credited")
	}

	notify(s.hub, negotiation.UserID, EventDepositApproved, negotiation)
	return negotiation, nil
}

// Reject отклоняет заявку. Причина обязательна; балансы не меняются.
func (s *DepositService) Reject(ctx context.Context, id, adminID uuid.UUID, adminName, reason string) (*models.DepositNegotiation, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "причина отклонения обязательна")
	}

	negotiation, err := s.repo.Reject(ctx, id, adminID, adminName, reason)
	if err != nil {
		return nil, err
	}
	notify(s.hub, negotiation.UserID, EventDepositStatusChanged, negotiation)
	return negotiation, nil
}

// Cancel отменяет заявку по инициативе пользователя.
func (s *DepositService) Cancel(ctx context.Context, id, userID uuid.UUID) (*models.DepositNegotiation, error) {
	return s.repo.Cancel(ctx, id, userID)
}
