package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/training-api/internal/domain/entity"
	apperrors "github.com/yourusername/training-api/internal/pkg/errors"
)

// CertificateRepo реализует repository.CertificateRepository
type CertificateRepo struct {
	db *gorm.DB
}

// NewCertificateRepo создает новый репозиторий сертификатов
func NewCertificateRepo(db *gorm.DB) *CertificateRepo {
	return &CertificateRepo{db: db}
}

// Create создает сертификат. Unique index по attempt_id гарантирует не более
// одного сертификата на попытку.
func (r *CertificateRepo) Create(certificate *entity.Certificate) error {
	if err := r.db.Create(certificate).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return err
	}
	return nil
}

// GetByID возвращает сертификат по ID
func (r *CertificateRepo) GetByID(id string) (*entity.Certificate, error) {
	var certificate entity.Certificate
	err := r.db.First(&certificate, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &certificate, nil
}

// GetByAttemptID возвращает сертификат, выданный по попытке
func (r *CertificateRepo) GetByAttemptID(attemptID string) (*entity.Certificate, error) {
	var certificate entity.Certificate
	err := r.db.First(&certificate, "attempt_id = ?", attemptID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &certificate, nil
}
