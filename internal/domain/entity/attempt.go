package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Константы статусов попытки прохождения аттестации
const (
	AttemptStatusNotStarted = "not_started"
	AttemptStatusInProgress = "in_progress"
	AttemptStatusSubmitted  = "submitted"
)

// AssessmentAttempt представляет попытку прохождения аттестации по ссылке доступа.
// StartedAt назначается сервером ровно один раз при создании попытки и
// никогда не перезаписывается при повторном входе (resume).
type AssessmentAttempt struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	LinkID       string          `gorm:"size:36;not null;uniqueIndex" json:"link_id"`
	AssessmentID string          `gorm:"size:36;not null;index" json:"assessment_id"`
	Status       string          `gorm:"size:20;not null;default:'in_progress'" json:"status"`
	StartedAt    *time.Time      `gorm:"not null" json:"started_at"`
	SubmittedAt  *time.Time      `json:"submitted_at,omitempty"`
	Answers      []AttemptAnswer `gorm:"foreignKey:AttemptID" json:"answers,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (AssessmentAttempt) TableName() string {
	return "assessment_attempts"
}

// BeforeCreate назначает UUID, если идентификатор не задан
func (a *AssessmentAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// IsSubmitted проверяет, завершена ли попытка отправкой
func (a *AssessmentAttempt) IsSubmitted() bool {
	return a.Status == AttemptStatusSubmitted
}

// Deadline возвращает момент истечения времени попытки.
// Вторым значением возвращает false, если аттестация без лимита времени
// или StartedAt еще не назначен.
func (a *AssessmentAttempt) Deadline(assessment *Assessment) (time.Time, bool) {
	if assessment == nil || !assessment.Timed || a.StartedAt == nil {
		return time.Time{}, false
	}
	return a.StartedAt.Add(assessment.Duration()), true
}

// AttemptAnswer представляет сохраненный ответ на вопрос в рамках попытки.
// Для вопросов с вариантами хранит выбранные варианты как объекты (many2many),
// для текстовых — свободный текст. Ровно одна из двух ветвей значима.
type AttemptAnswer struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	AttemptID       string    `gorm:"size:36;not null;index;uniqueIndex:idx_attempt_question" json:"attempt_id"`
	QuestionID      string    `gorm:"size:36;not null;uniqueIndex:idx_attempt_question" json:"question_id"`
	TextResponse    string    `gorm:"type:text;not null;default:''" json:"text_response,omitempty"`
	SelectedChoices []Choice  `gorm:"many2many:attempt_answer_choices" json:"selected_choices,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}

// BeforeCreate назначает UUID, если идентификатор не задан
func (a *AttemptAnswer) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
