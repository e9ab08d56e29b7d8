package repository

import (
	"github.com/yourusername/training-api/internal/domain/entity"
)

// CertificateRepository определяет методы для работы с сертификатами
type CertificateRepository interface {
	Create(certificate *entity.Certificate) error
	GetByID(id string) (*entity.Certificate, error)
	GetByAttemptID(attemptID string) (*entity.Certificate, error)
}
