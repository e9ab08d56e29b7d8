package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/training-api/internal/domain/entity"
	"github.com/yourusername/training-api/internal/domain/repository"
	apperrors "github.com/yourusername/training-api/internal/pkg/errors"
)

// AssessmentRepo реализует repository.AssessmentRepository
type AssessmentRepo struct {
	db *gorm.DB
}

// NewAssessmentRepo создает новый репозиторий аттестаций
func NewAssessmentRepo(db *gorm.DB) *AssessmentRepo {
	return &AssessmentRepo{db: db}
}

// Create создает новую аттестацию вместе с секциями, вопросами и вариантами
func (r *AssessmentRepo) Create(assessment *entity.Assessment) error {
	return r.db.Create(assessment).Error
}

// GetByID возвращает аттестацию по ID без вложенного содержимого
func (r *AssessmentRepo) GetByID(id string) (*entity.Assessment, error) {
	var assessment entity.Assessment
	err := r.db.First(&assessment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &assessment, nil
}

// GetWithContent возвращает аттестацию вместе с секциями, вопросами и вариантами.
// Порядок секций и вопросов фиксируется на уровне запроса: слой сессии
// полагается на детерминированный обход (секция, вопрос).
func (r *AssessmentRepo) GetWithContent(id string) (*entity.Assessment, error) {
	var assessment entity.Assessment
	err := r.db.
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("sections.sequence")
		}).
		Preload("Sections.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.sequence")
		}).
		Preload("Sections.Questions.Choices").
		First(&assessment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &assessment, nil
}

// Update обновляет информацию об аттестации
func (r *AssessmentRepo) Update(assessment *entity.Assessment) error {
	return r.db.Save(assessment).Error
}

// List возвращает список аттестаций с пагинацией
func (r *AssessmentRepo) List(limit, offset int) ([]entity.Assessment, error) {
	var assessments []entity.Assessment
	err := r.db.Limit(limit).Offset(offset).Order("created_at DESC").Find(&assessments).Error
	return assessments, err
}

// ListWithFilters возвращает список аттестаций с фильтрами и total count
func (r *AssessmentRepo) ListWithFilters(filters repository.AssessmentFilters, limit, offset int) ([]entity.Assessment, int64, error) {
	var assessments []entity.Assessment
	var total int64

	query := r.db.Model(&entity.Assessment{})

	if filters.Search != "" {
		search := "%" + filters.Search + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", search, search)
	}

	if filters.Timed != nil {
		query = query.Where("timed = ?", *filters.Timed)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Limit(limit).Offset(offset).Order("created_at DESC").Find(&assessments).Error
	if err != nil {
		return nil, 0, err
	}

	return assessments, total, nil
}

// Delete удаляет аттестацию
func (r *AssessmentRepo) Delete(id string) error {
	return r.db.Delete(&entity.Assessment{}, "id = ?", id).Error
}
