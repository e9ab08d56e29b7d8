package service

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/training-api/internal/domain/entity"
	"github.com/yourusername/training-api/internal/domain/repository"
	apperrors "github.com/yourusername/training-api/internal/pkg/errors"
)

// AssessmentService предоставляет методы для работы с аттестациями
// и выдачей ссылок доступа
type AssessmentService struct {
	assessmentRepo repository.AssessmentRepository
	linkRepo       repository.AccessLinkRepository
	attemptRepo    repository.AttemptRepository
}

// NewAssessmentService создает новый сервис аттестаций
func NewAssessmentService(
	assessmentRepo repository.AssessmentRepository,
	linkRepo repository.AccessLinkRepository,
	attemptRepo repository.AttemptRepository,
) *AssessmentService {
	return &AssessmentService{
		assessmentRepo: assessmentRepo,
		linkRepo:       linkRepo,
		attemptRepo:    attemptRepo,
	}
}

// CreateAssessment валидирует и создает аттестацию вместе с секциями,
// вопросами и вариантами ответов
func (s *AssessmentService) CreateAssessment(assessment *entity.Assessment) (*entity.Assessment, error) {
	if strings.TrimSpace(assessment.Name) == "" {
		return nil, fmt.Errorf("%w: assessment name is required", apperrors.ErrValidation)
	}
	if assessment.Timed && assessment.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: timed assessment requires positive duration", apperrors.ErrValidation)
	}
	if len(assessment.Sections) == 0 {
		return nil, fmt.Errorf("%w: assessment requires at least one section", apperrors.ErrValidation)
	}

	for i := range assessment.Sections {
		section := &assessment.Sections[i]
		if section.Sequence == 0 {
			section.Sequence = i + 1
		}
		if len(section.Questions) == 0 {
			return nil, fmt.Errorf("%w: section %q has no questions", apperrors.ErrValidation, section.Title)
		}

		for j := range section.Questions {
			question := &section.Questions[j]
			if question.Sequence == 0 {
				question.Sequence = j + 1
			}
			if !question.IsValidType() {
				return nil, fmt.Errorf("%w: unknown question type %q", apperrors.ErrValidation, question.Type)
			}
			if question.IsChoiceBased() && len(question.Choices) == 0 {
				return nil, fmt.Errorf("%w: choice question %q has no choices", apperrors.ErrValidation, question.Prompt)
			}
			if !question.IsChoiceBased() && len(question.Choices) > 0 {
				return nil, fmt.Errorf("%w: free text question %q cannot have choices", apperrors.ErrValidation, question.Prompt)
			}
			if question.Weight <= 0 {
				question.Weight = 1
			}
		}
	}

	if err := s.assessmentRepo.Create(assessment); err != nil {
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}

	log.Printf("[AssessmentService] Создана аттестация %s (%d вопросов)",
		assessment.ID, assessment.QuestionCount())
	return assessment, nil
}

// GetAssessment возвращает аттестацию без вложенного содержимого
func (s *AssessmentService) GetAssessment(id string) (*entity.Assessment, error) {
	return s.assessmentRepo.GetByID(id)
}

// GetAssessmentWithContent возвращает аттестацию вместе с секциями,
// вопросами и вариантами
func (s *AssessmentService) GetAssessmentWithContent(id string) (*entity.Assessment, error) {
	return s.assessmentRepo.GetWithContent(id)
}

// ListAssessments возвращает список аттестаций с фильтрацией и пагинацией
func (s *AssessmentService) ListAssessments(page, pageSize int, filters repository.AssessmentFilters) ([]entity.Assessment, int64, error) {
	offset := (page - 1) * pageSize
	return s.assessmentRepo.ListWithFilters(filters, pageSize, offset)
}

// DeleteAssessment удаляет аттестацию, если по ней нет попыток
func (s *AssessmentService) DeleteAssessment(id string) error {
	attempts, err := s.attemptRepo.ListByAssessment(id)
	if err != nil {
		return err
	}
	if len(attempts) > 0 {
		return fmt.Errorf("%w: assessment has %d attempts", apperrors.ErrConflict, len(attempts))
	}
	return s.assessmentRepo.Delete(id)
}

// CreateAccessLink выдает ссылку доступа для прохождения аттестации.
// validFor ограничивает срок жизни ссылки; ноль означает бессрочную ссылку.
func (s *AssessmentService) CreateAccessLink(assessmentID, traineeName, traineeEmail string, validFor time.Duration) (*entity.AccessLink, error) {
	if strings.TrimSpace(traineeName) == "" {
		return nil, fmt.Errorf("%w: trainee name is required", apperrors.ErrValidation)
	}

	if _, err := s.assessmentRepo.GetByID(assessmentID); err != nil {
		return nil, err
	}

	link := &entity.AccessLink{
		AssessmentID: assessmentID,
		TraineeName:  strings.TrimSpace(traineeName),
		TraineeEmail: strings.TrimSpace(traineeEmail),
		LinkType:     entity.LinkTypeAssessment,
	}
	if validFor > 0 {
		expiresAt := time.Now().Add(validFor)
		link.ExpiresAt = &expiresAt
	}

	if err := s.linkRepo.Create(link); err != nil {
		return nil, fmt.Errorf("failed to create access link: %w", err)
	}

	log.Printf("[AssessmentService] Выдана ссылка %s на аттестацию %s для %s",
		link.ID, assessmentID, link.TraineeName)
	return link, nil
}

// ListAccessLinks возвращает ссылки, выданные по аттестации
func (s *AssessmentService) ListAccessLinks(assessmentID string) ([]entity.AccessLink, error) {
	return s.linkRepo.ListByAssessment(assessmentID)
}

// RevokeAccessLink отзывает ссылку доступа, выставляя истечение на текущий
// момент. Ссылка не удаляется: на нее может ссылаться попытка, и история
// выдачи должна сохраняться для выгрузки результатов. Идемпотентен.
func (s *AssessmentService) RevokeAccessLink(linkID string) error {
	link, err := s.linkRepo.GetByID(linkID)
	if err != nil {
		return err
	}
	if link.IsExpired() {
		return nil
	}

	now := time.Now()
	link.ExpiresAt = &now
	if err := s.linkRepo.Update(link); err != nil {
		return err
	}

	log.Printf("[AssessmentService] Ссылка %s отозвана", linkID)
	return nil
}

// AssessmentResults агрегирует данные для выгрузки результатов
type AssessmentResults struct {
	Assessment *entity.Assessment
	Links      []entity.AccessLink
	Attempts   []entity.AssessmentAttempt
}

// GetResults собирает попытки и ссылки аттестации для выгрузки результатов
func (s *AssessmentService) GetResults(assessmentID string) (*AssessmentResults, error) {
	assessment, err := s.assessmentRepo.GetWithContent(assessmentID)
	if err != nil {
		return nil, err
	}

	links, err := s.linkRepo.ListByAssessment(assessmentID)
	if err != nil {
		return nil, err
	}

	attempts, err := s.attemptRepo.ListByAssessment(assessmentID)
	if err != nil {
		return nil, err
	}

	return &AssessmentResults{
		Assessment: assessment,
		Links:      links,
		Attempts:   attempts,
	}, nil
}
