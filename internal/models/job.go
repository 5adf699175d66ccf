package models

import (
	"time"

	"github.com/google/uuid"
)

// Job описывает задание с наградой за каждый принятый отклик.
// Полная стоимость bounty × max_applicants резервируется из кошелька
// заказчика при создании и далее не пересчитывается.
type Job struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PosterID       uuid.UUID `db:"poster_id" json:"poster_id"`
	Title          string    `db:"title" json:"title"`
	Description    *string   `db:"description" json:"description,omitempty"`
	Bounty         float64   `db:"bounty" json:"bounty"`
	MaxApplicants  int       `db:"max_applicants" json:"max_applicants"`
	ApplicantCount int       `db:"applicant_count" json:"applicant_count"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// TotalCost возвращает сумму, зарезервированную под задание.
func (j *Job) TotalCost() float64 {
	return j.Bounty * float64(j.MaxApplicants)
}

// Application представляет отклик тестировщика на задание.
type Application struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	JobID       uuid.UUID  `db:"job_id" json:"job_id"`
	TesterID    uuid.UUID  `db:"tester_id" json:"tester_id"`
	Status      string     `db:"status" json:"status"`
	SubmittedAt *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
