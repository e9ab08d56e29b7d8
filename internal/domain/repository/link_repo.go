package repository

import (
	"github.com/yourusername/training-api/internal/domain/entity"
)

// AccessLinkRepository определяет методы для работы со ссылками доступа
type AccessLinkRepository interface {
	Create(link *entity.AccessLink) error
	GetByID(id string) (*entity.AccessLink, error)
	// GetWithAssessment возвращает ссылку вместе с полным содержимым
	// аттестации (секции, вопросы, варианты)
	GetWithAssessment(id string) (*entity.AccessLink, error)
	ListByAssessment(assessmentID string) ([]entity.AccessLink, error)
	Update(link *entity.AccessLink) error
}
