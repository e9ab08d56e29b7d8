package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/training-api/internal/domain/entity"
	apperrors "github.com/yourusername/training-api/internal/pkg/errors"
)

// AccessLinkRepo реализует repository.AccessLinkRepository
type AccessLinkRepo struct {
	db *gorm.DB
}

// NewAccessLinkRepo создает новый репозиторий ссылок доступа
func NewAccessLinkRepo(db *gorm.DB) *AccessLinkRepo {
	return &AccessLinkRepo{db: db}
}

// Create создает новую ссылку доступа
func (r *AccessLinkRepo) Create(link *entity.AccessLink) error {
	return r.db.Create(link).Error
}

// GetByID возвращает ссылку по ID без содержимого аттестации
func (r *AccessLinkRepo) GetByID(id string) (*entity.AccessLink, error) {
	var link entity.AccessLink
	err := r.db.First(&link, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &link, nil
}

// GetWithAssessment возвращает ссылку вместе с полным содержимым аттестации
func (r *AccessLinkRepo) GetWithAssessment(id string) (*entity.AccessLink, error) {
	var link entity.AccessLink
	err := r.db.
		Preload("Assessment").
		Preload("Assessment.Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("sections.sequence")
		}).
		Preload("Assessment.Sections.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.sequence")
		}).
		Preload("Assessment.Sections.Questions.Choices").
		First(&link, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &link, nil
}

// ListByAssessment возвращает ссылки, выданные по аттестации
func (r *AccessLinkRepo) ListByAssessment(assessmentID string) ([]entity.AccessLink, error) {
	var links []entity.AccessLink
	err := r.db.
		Where("assessment_id = ?", assessmentID).
		Order("created_at").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

// Update сохраняет изменения ссылки доступа
func (r *AccessLinkRepo) Update(link *entity.AccessLink) error {
	result := r.db.Save(link)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}