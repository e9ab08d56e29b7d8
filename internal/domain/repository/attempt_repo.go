package repository

import (
	"time"

	"github.com/yourusername/training-api/internal/domain/entity"
)

// AttemptRepository определяет методы для работы с попытками прохождения
type AttemptRepository interface {
	// Create создает попытку. Unique index по link_id гарантирует не более
	// одной попытки на ссылку: при конфликте возвращается ErrConflict,
	// и вызывающий перечитывает существующую попытку через GetByLinkID.
	Create(attempt *entity.AssessmentAttempt) error
	GetByID(id string) (*entity.AssessmentAttempt, error)
	// GetByLinkID возвращает попытку по ссылке вместе с сохраненными
	// ответами и выбранными вариантами
	GetByLinkID(linkID string) (*entity.AssessmentAttempt, error)
	// ReplaceAnswers полностью заменяет сохраненные ответы попытки.
	// Автосохранение присылает полное множество, а не дифф, поэтому
	// замена — единственная корректная семантика записи.
	ReplaceAnswers(attemptID string, answers []entity.AttemptAnswer) error
	// MarkSubmitted атомарно переводит in_progress → submitted.
	// RowsAffected == 0 означает, что попытка уже отправлена.
	MarkSubmitted(attemptID string, submittedAt time.Time) error
	ListByAssessment(assessmentID string) ([]entity.AssessmentAttempt, error)
}
