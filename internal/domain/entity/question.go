package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Типы вопросов (закрытый набор)
const (
	QuestionTypeSingleChoice = "single_choice"
	QuestionTypeMultiChoice  = "multi_choice"
	QuestionTypeFreeText     = "free_text"
)

// Question представляет вопрос внутри секции аттестации
type Question struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	SectionID string    `gorm:"size:36;not null;index" json:"section_id"`
	Sequence  int       `gorm:"not null;default:0" json:"sequence"`
	Type      string    `gorm:"size:20;not null" json:"type"`
	Prompt    string    `gorm:"size:2000;not null" json:"prompt"`
	Weight    float64   `gorm:"not null;default:1" json:"weight"`
	Choices   []Choice  `gorm:"foreignKey:QuestionID" json:"choices,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// BeforeCreate назначает UUID, если идентификатор не задан
func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// IsChoiceBased проверяет, является ли вопрос вопросом с вариантами ответа
func (q *Question) IsChoiceBased() bool {
	return q.Type == QuestionTypeSingleChoice || q.Type == QuestionTypeMultiChoice
}

// IsValidType проверяет, входит ли тип вопроса в закрытый набор
func (q *Question) IsValidType() bool {
	switch q.Type {
	case QuestionTypeSingleChoice, QuestionTypeMultiChoice, QuestionTypeFreeText:
		return true
	}
	return false
}

// Choice представляет вариант ответа на вопрос.
// Флаг правильности скрыт от проходящего аттестацию (json:"-").
type Choice struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	QuestionID string    `gorm:"size:36;not null;index" json:"question_id"`
	Label      string    `gorm:"size:1000;not null" json:"label"`
	ImageURL   string    `gorm:"size:500;not null;default:''" json:"image_url,omitempty"`
	IsCorrect  bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Choice) TableName() string {
	return "choices"
}

// BeforeCreate назначает UUID, если идентификатор не задан
func (c *Choice) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
