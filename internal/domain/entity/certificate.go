package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Certificate представляет сертификат, выданный по факту отправки попытки.
// Отрисовка сертификата — вне зоны ответственности этого сервиса,
// здесь фиксируется только факт выдачи.
type Certificate struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	AttemptID      string    `gorm:"size:36;not null;uniqueIndex" json:"attempt_id"`
	TraineeName    string    `gorm:"size:200;not null" json:"trainee_name"`
	AssessmentName string    `gorm:"size:200;not null" json:"assessment_name"`
	IssuedAt       time.Time `gorm:"not null" json:"issued_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Certificate) TableName() string {
	return "certificates"
}

// BeforeCreate назначает UUID, если идентификатор не задан
func (c *Certificate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
