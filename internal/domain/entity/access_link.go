package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Типы ссылок доступа
const (
	LinkTypeAssessment  = "assessment"
	LinkTypeCertificate = "certificate"
)

// AccessLink представляет ссылку доступа, выданную слушателю для прохождения
// аттестации (или получения сертификата). Ссылка ограничена по времени и
// привязана к одной попытке.
type AccessLink struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	AssessmentID string     `gorm:"size:36;not null;index" json:"assessment_id"`
	TraineeName  string     `gorm:"size:200;not null" json:"trainee_name"`
	TraineeEmail string     `gorm:"size:200;not null;default:''" json:"trainee_email,omitempty"`
	LinkType     string     `gorm:"size:20;not null;default:'assessment'" json:"link_type"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Assessment   Assessment `gorm:"foreignKey:AssessmentID" json:"assessment,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (AccessLink) TableName() string {
	return "access_links"
}

// BeforeCreate назначает UUID, если идентификатор не задан
func (l *AccessLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// IsExpired проверяет, истекла ли ссылка
func (l *AccessLink) IsExpired() bool {
	return l.ExpiresAt != nil && time.Now().After(*l.ExpiresAt)
}

// IsAssessmentLink проверяет, выдана ли ссылка для прохождения аттестации
func (l *AccessLink) IsAssessmentLink() bool {
	return l.LinkType == LinkTypeAssessment
}
