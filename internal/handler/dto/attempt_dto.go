package dto

import (
	"time"

	"github.com/yourusername/training-api/internal/domain/entity"
)

// LinkValidityResponse представляет результат проверки ссылки доступа
type LinkValidityResponse struct {
	Valid       bool                `json:"valid"`
	TraineeName string              `json:"trainee_name,omitempty"`
	Assessment  *AssessmentResponse `json:"assessment,omitempty"`
}

// AttemptResponse представляет попытку прохождения в формате для клиента
type AttemptResponse struct {
	ID          string                  `json:"id"`
	Status      string                  `json:"status"`
	StartedAt   *time.Time              `json:"started_at,omitempty"`
	SubmittedAt *time.Time              `json:"submitted_at,omitempty"`
	Answers     []AttemptAnswerResponse `json:"answers"`
}

// AttemptAnswerResponse представляет сохраненный ответ в формате для клиента
type AttemptAnswerResponse struct {
	QuestionID        string   `json:"question_id"`
	SelectedChoiceIDs []string `json:"selected_choice_ids,omitempty"`
	Text              string   `json:"text,omitempty"`
}

// CertificateResponse представляет сертификат в формате для клиента
type CertificateResponse struct {
	ID             string    `json:"id"`
	AttemptID      string    `json:"attempt_id"`
	TraineeName    string    `json:"trainee_name"`
	AssessmentName string    `json:"assessment_name"`
	IssuedAt       time.Time `json:"issued_at"`
}

// NewAttemptResponse создает DTO для попытки прохождения
func NewAttemptResponse(attempt *entity.AssessmentAttempt) *AttemptResponse {
	if attempt == nil {
		return nil
	}

	answers := make([]AttemptAnswerResponse, len(attempt.Answers))
	for i := range attempt.Answers {
		answer := &attempt.Answers[i]
		choiceIDs := make([]string, 0, len(answer.SelectedChoices))
		for _, choice := range answer.SelectedChoices {
			choiceIDs = append(choiceIDs, choice.ID)
		}
		answers[i] = AttemptAnswerResponse{
			QuestionID:        answer.QuestionID,
			SelectedChoiceIDs: choiceIDs,
			Text:              answer.TextResponse,
		}
	}

	return &AttemptResponse{
		ID:          attempt.ID,
		Status:      attempt.Status,
		StartedAt:   attempt.StartedAt,
		SubmittedAt: attempt.SubmittedAt,
		Answers:     answers,
	}
}

// NewCertificateResponse создает DTO для сертификата
func NewCertificateResponse(certificate *entity.Certificate) *CertificateResponse {
	if certificate == nil {
		return nil
	}
	return &CertificateResponse{
		ID:             certificate.ID,
		AttemptID:      certificate.AttemptID,
		TraineeName:    certificate.TraineeName,
		AssessmentName: certificate.AssessmentName,
		IssuedAt:       certificate.IssuedAt,
	}
}
