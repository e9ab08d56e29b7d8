package repository

import (
	"github.com/yourusername/training-api/internal/domain/entity"
)

// AssessmentFilters определяет фильтры для поиска аттестаций
type AssessmentFilters struct {
	Search string // Поиск по названию/описанию
	Timed  *bool  // Фильтр по наличию лимита времени
}

// AssessmentRepository определяет методы для работы с аттестациями
type AssessmentRepository interface {
	Create(assessment *entity.Assessment) error
	GetByID(id string) (*entity.Assessment, error)
	// GetWithContent возвращает аттестацию вместе с секциями, вопросами
	// и вариантами ответов
	GetWithContent(id string) (*entity.Assessment, error)
	Update(assessment *entity.Assessment) error
	List(limit, offset int) ([]entity.Assessment, error)
	ListWithFilters(filters AssessmentFilters, limit, offset int) ([]entity.Assessment, int64, error) // Возвращает также total count
	Delete(id string) error
}
