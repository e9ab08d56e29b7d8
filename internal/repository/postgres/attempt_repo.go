package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/yourusername/training-api/internal/domain/entity"
	"github.com/yourusername/training-api/internal/domain/repository"
	apperrors "github.com/yourusername/training-api/internal/pkg/errors"
)

// AttemptRepo реализует repository.AttemptRepository
type AttemptRepo struct {
	db *gorm.DB
}

// NewAttemptRepo создает новый репозиторий попыток прохождения
func NewAttemptRepo(db *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Create создает попытку прохождения.
// Unique index по link_id гарантирует не более одной попытки на ссылку:
// - 23505 (unique violation) → ErrConflict, вызывающий перечитывает через GetByLinkID
// - Другая DB ошибка → возвращается как есть
func (r *AttemptRepo) Create(attempt *entity.AssessmentAttempt) error {
	if err := r.db.Create(attempt).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: attempt for link %s already exists", apperrors.ErrConflict, attempt.LinkID)
		}
		return err
	}
	return nil
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}

// GetByID возвращает попытку по ID вместе с сохраненными ответами
func (r *AttemptRepo) GetByID(id string) (*entity.AssessmentAttempt, error) {
	var attempt entity.AssessmentAttempt
	err := r.db.
		Preload("Answers").
		Preload("Answers.SelectedChoices").
		First(&attempt, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// GetByLinkID возвращает попытку по ссылке доступа вместе с сохраненными
// ответами и выбранными вариантами
func (r *AttemptRepo) GetByLinkID(linkID string) (*entity.AssessmentAttempt, error) {
	var attempt entity.AssessmentAttempt
	err := r.db.
		Preload("Answers").
		Preload("Answers.SelectedChoices").
		First(&attempt, "link_id = ?", linkID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// ReplaceAnswers полностью заменяет сохраненные ответы попытки в одной
// транзакции. Автосохранение присылает полное множество полных ответов,
// поэтому старые записи удаляются целиком, включая связки many2many.
func (r *AttemptRepo) ReplaceAnswers(attemptID string, answers []entity.AttemptAnswer) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing []entity.AttemptAnswer
		if err := tx.Where("attempt_id = ?", attemptID).Find(&existing).Error; err != nil {
			return err
		}

		for i := range existing {
			if err := tx.Model(&existing[i]).Association("SelectedChoices").Clear(); err != nil {
				return err
			}
		}

		if err := tx.Where("attempt_id = ?", attemptID).Delete(&entity.AttemptAnswer{}).Error; err != nil {
			return err
		}

		if len(answers) == 0 {
			return nil
		}

		for i := range answers {
			answers[i].AttemptID = attemptID
		}
		return tx.Create(&answers).Error
	})
}

// MarkSubmitted атомарно переводит in_progress → submitted.
// Условие по статусу в WHERE защищает от двойной отправки:
// RowsAffected == 0 → попытка уже отправлена.
func (r *AttemptRepo) MarkSubmitted(attemptID string, submittedAt time.Time) error {
	result := r.db.Model(&entity.AssessmentAttempt{}).
		Where("id = ? AND status = ?", attemptID, entity.AttemptStatusInProgress).
		Updates(map[string]interface{}{
			"status":       entity.AttemptStatusSubmitted,
			"submitted_at": submittedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("mark attempt %s submitted failed: %w", attemptID, result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: attempt %s", repository.ErrAttemptAlreadySubmitted, attemptID)
	}

	return nil
}

// ListByAssessment возвращает все попытки по аттестации вместе с ответами
// (используется выгрузкой результатов)
func (r *AttemptRepo) ListByAssessment(assessmentID string) ([]entity.AssessmentAttempt, error) {
	var attempts []entity.AssessmentAttempt
	err := r.db.
		Preload("Answers").
		Preload("Answers.SelectedChoices").
		Where("assessment_id = ?", assessmentID).
		Order("created_at").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}
