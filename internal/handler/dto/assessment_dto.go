package dto

import (
	"time"

	"github.com/yourusername/training-api/internal/domain/entity"
)

// ChoiceResponse представляет вариант ответа в формате для клиента.
// Флаг правильности намеренно отсутствует: проходящий аттестацию никогда
// не должен видеть разметку правильных ответов.
type ChoiceResponse struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	ImageURL string `json:"image_url,omitempty"`
}

// QuestionResponse представляет вопрос в формате для клиента
type QuestionResponse struct {
	ID       string           `json:"id"`
	Sequence int              `json:"sequence"`
	Type     string           `json:"type"`
	Prompt   string           `json:"prompt"`
	Weight   float64          `json:"weight"`
	Choices  []ChoiceResponse `json:"choices,omitempty"`
}

// SectionResponse представляет секцию в формате для клиента
type SectionResponse struct {
	ID          string             `json:"id"`
	Sequence    int                `json:"sequence"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Questions   []QuestionResponse `json:"questions"`
}

// AssessmentResponse представляет аттестацию в формате для клиента
type AssessmentResponse struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	Timed           bool              `json:"timed"`
	DurationMinutes int               `json:"duration_minutes"`
	QuestionCount   int               `json:"question_count"`
	Sections        []SectionResponse `json:"sections,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// PaginatedAssessmentResponse представляет пагинированный список аттестаций
type PaginatedAssessmentResponse struct {
	Assessments []*AssessmentResponse `json:"assessments"`
	Total       int64                 `json:"total"`
	Page        int                   `json:"page"`
	PerPage     int                   `json:"per_page"`
}

// NewQuestionResponse создает DTO для вопроса
func NewQuestionResponse(q *entity.Question) QuestionResponse {
	choices := make([]ChoiceResponse, len(q.Choices))
	for i, choice := range q.Choices {
		choices[i] = ChoiceResponse{
			ID:       choice.ID,
			Label:    choice.Label,
			ImageURL: choice.ImageURL,
		}
	}
	return QuestionResponse{
		ID:       q.ID,
		Sequence: q.Sequence,
		Type:     q.Type,
		Prompt:   q.Prompt,
		Weight:   q.Weight,
		Choices:  choices,
	}
}

// NewAssessmentResponse создает DTO для аттестации
func NewAssessmentResponse(assessment *entity.Assessment, includeContent bool) *AssessmentResponse {
	if assessment == nil {
		return nil
	}

	var sections []SectionResponse
	if includeContent {
		sections = make([]SectionResponse, len(assessment.Sections))
		for i := range assessment.Sections {
			section := &assessment.Sections[i]
			questions := make([]QuestionResponse, len(section.Questions))
			for j := range section.Questions {
				questions[j] = NewQuestionResponse(&section.Questions[j])
			}
			sections[i] = SectionResponse{
				ID:          section.ID,
				Sequence:    section.Sequence,
				Title:       section.Title,
				Description: section.Description,
				Questions:   questions,
			}
		}
	}

	return &AssessmentResponse{
		ID:              assessment.ID,
		Name:            assessment.Name,
		Description:     assessment.Description,
		Timed:           assessment.Timed,
		DurationMinutes: assessment.DurationMinutes,
		QuestionCount:   assessment.QuestionCount(),
		Sections:        sections,
		CreatedAt:       assessment.CreatedAt,
		UpdatedAt:       assessment.UpdatedAt,
	}
}

// NewPaginatedAssessmentResponse создает DTO для пагинированного списка аттестаций
func NewPaginatedAssessmentResponse(assessments []entity.Assessment, total int64, page, perPage int) *PaginatedAssessmentResponse {
	list := make([]*AssessmentResponse, len(assessments))
	for i := range assessments {
		list[i] = NewAssessmentResponse(&assessments[i], false)
	}
	return &PaginatedAssessmentResponse{
		Assessments: list,
		Total:       total,
		Page:        page,
		PerPage:     perPage,
	}
}

// AccessLinkResponse представляет ссылку доступа в формате для клиента.
// Token присутствует только в ответе на создание ссылки.
type AccessLinkResponse struct {
	ID           string     `json:"id"`
	AssessmentID string     `json:"assessment_id"`
	TraineeName  string     `json:"trainee_name"`
	TraineeEmail string     `json:"trainee_email,omitempty"`
	LinkType     string     `json:"link_type"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Token        string     `json:"token,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewAccessLinkResponse создает DTO для ссылки доступа
func NewAccessLinkResponse(link *entity.AccessLink, token string) *AccessLinkResponse {
	if link == nil {
		return nil
	}
	return &AccessLinkResponse{
		ID:           link.ID,
		AssessmentID: link.AssessmentID,
		TraineeName:  link.TraineeName,
		TraineeEmail: link.TraineeEmail,
		LinkType:     link.LinkType,
		ExpiresAt:    link.ExpiresAt,
		Token:        token,
		CreatedAt:    link.CreatedAt,
	}
}

// NewListAccessLinkResponse создает слайс DTO для списка ссылок (без токенов)
func NewListAccessLinkResponse(links []entity.AccessLink) []*AccessLinkResponse {
	list := make([]*AccessLinkResponse, len(links))
	for i := range links {
		list[i] = NewAccessLinkResponse(&links[i], "")
	}
	return list
}
