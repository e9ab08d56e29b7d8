package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Assessment представляет аттестацию (структурированный набор секций с вопросами).
// Структура неизменна на протяжении попытки прохождения.
type Assessment struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	Name            string    `gorm:"size:200;not null" json:"name"`
	Description     string    `gorm:"size:1000;not null;default:''" json:"description,omitempty"`
	Timed           bool      `gorm:"not null;default:false" json:"timed"`
	DurationMinutes int       `gorm:"not null;default:0" json:"duration_minutes"`
	Sections        []Section `gorm:"foreignKey:AssessmentID" json:"sections,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Assessment) TableName() string {
	return "assessments"
}

// BeforeCreate назначает UUID, если идентификатор не задан
func (a *Assessment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Duration возвращает продолжительность аттестации как time.Duration.
// Имеет смысл только при Timed == true.
func (a *Assessment) Duration() time.Duration {
	return time.Duration(a.DurationMinutes) * time.Minute
}

// QuestionCount возвращает общее количество вопросов по всем секциям
func (a *Assessment) QuestionCount() int {
	total := 0
	for i := range a.Sections {
		total += len(a.Sections[i].Questions)
	}
	return total
}

// Section представляет секцию аттестации с упорядоченным набором вопросов.
// Порядок секций фиксирован полем Sequence и не меняется в течение попытки.
type Section struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	AssessmentID string     `gorm:"size:36;not null;index" json:"assessment_id"`
	Sequence     int        `gorm:"not null;default:0" json:"sequence"`
	Title        string     `gorm:"size:200;not null" json:"title"`
	Description  string     `gorm:"size:1000;not null;default:''" json:"description,omitempty"`
	Questions    []Question `gorm:"foreignKey:SectionID" json:"questions,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Section) TableName() string {
	return "sections"
}

// BeforeCreate назначает UUID, если идентификатор не задан
func (s *Section) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
