package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/training-api/internal/domain/entity"
	"github.com/yourusername/training-api/internal/domain/repository"
	apperrors "github.com/yourusername/training-api/internal/pkg/errors"
	"github.com/yourusername/training-api/internal/service/attemptsession"
)

const (
	// linkCacheTTL — время жизни кеша ссылки доступа
	linkCacheTTL = 5 * time.Minute
	// deadlineGrace — допуск на сетевую задержку при проверке дедлайна:
	// автосохранение, отправленное за мгновение до истечения, не должно
	// отклоняться из-за времени в пути
	deadlineGrace = 5 * time.Second
)

// AttemptService — серверная сторона жизненного цикла попытки прохождения.
// Реализует attemptsession.Gateway и является единственным источником истины:
// назначает StartedAt, хранит ответы и фиксирует отправку.
type AttemptService struct {
	linkRepo        repository.AccessLinkRepository
	attemptRepo     repository.AttemptRepository
	certificateRepo repository.CertificateRepository
	cacheRepo       repository.CacheRepository
	emailService    EmailService
}

// NewAttemptService создает новый сервис попыток прохождения
func NewAttemptService(
	linkRepo repository.AccessLinkRepository,
	attemptRepo repository.AttemptRepository,
	certificateRepo repository.CertificateRepository,
	cacheRepo repository.CacheRepository,
	emailService EmailService,
) *AttemptService {
	return &AttemptService{
		linkRepo:        linkRepo,
		attemptRepo:     attemptRepo,
		certificateRepo: certificateRepo,
		cacheRepo:       cacheRepo,
		emailService:    emailService,
	}
}

// CheckLinkValidity проверяет ссылку доступа и возвращает содержимое
// аттестации. Несуществующая или истекшая ссылка — не ошибка, а валидный
// отрицательный результат.
func (s *AttemptService) CheckLinkValidity(ctx context.Context, linkID string) (*attemptsession.LinkInfo, error) {
	link, err := s.getLinkCached(linkID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &attemptsession.LinkInfo{Valid: false}, nil
		}
		return nil, err
	}

	if link.IsExpired() {
		log.Printf("[AttemptService] Ссылка %s истекла (%v)", linkID, link.ExpiresAt)
		return &attemptsession.LinkInfo{Valid: false}, nil
	}

	return &attemptsession.LinkInfo{
		Valid:       true,
		Assessment:  &link.Assessment,
		TraineeName: link.TraineeName,
		LinkType:    link.LinkType,
	}, nil
}

// getLinkCached возвращает ссылку вместе с содержимым аттестации,
// используя Redis как кеш первого уровня. Сбой кеша не фатален.
func (s *AttemptService) getLinkCached(linkID string) (*entity.AccessLink, error) {
	cacheKey := fmt.Sprintf("access_link:%s", linkID)

	var cached entity.AccessLink
	if err := s.cacheRepo.GetJSON(cacheKey, &cached); err == nil && cached.ID == linkID {
		return &cached, nil
	}

	link, err := s.linkRepo.GetWithAssessment(linkID)
	if err != nil {
		return nil, err
	}

	if err := s.cacheRepo.SetJSON(cacheKey, link, linkCacheTTL); err != nil {
		log.Printf("[AttemptService] Не удалось закешировать ссылку %s: %v", linkID, err)
	}
	return link, nil
}

// StartOrResumeAttempt создает попытку по ссылке или возвращает существующую.
// StartedAt назначается ровно один раз при создании: unique index по link_id
// гарантирует, что гонка двух одновременных стартов сходится к одной попытке,
// и проигравший перечитывает ее из БД.
func (s *AttemptService) StartOrResumeAttempt(ctx context.Context, linkID string) (*entity.AssessmentAttempt, error) {
	link, err := s.getLinkCached(linkID)
	if err != nil {
		return nil, err
	}
	if link.IsExpired() {
		return nil, ErrLinkExpired
	}
	if !link.IsAssessmentLink() {
		return nil, ErrWrongLinkType
	}

	attempt, err := s.attemptRepo.GetByLinkID(linkID)
	if err == nil {
		if attempt.IsSubmitted() {
			return nil, repository.ErrAttemptAlreadySubmitted
		}
		log.Printf("[AttemptService] Возобновление попытки %s по ссылке %s (%d сохраненных ответов)",
			attempt.ID, linkID, len(attempt.Answers))
		return attempt, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	attempt = &entity.AssessmentAttempt{
		LinkID:       linkID,
		AssessmentID: link.AssessmentID,
		Status:       entity.AttemptStatusInProgress,
		StartedAt:    &now,
	}

	if err := s.attemptRepo.Create(attempt); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Проиграли гонку создания — попытка уже есть, перечитываем
			return s.attemptRepo.GetByLinkID(linkID)
		}
		return nil, err
	}

	log.Printf("[AttemptService] Создана попытка %s по ссылке %s, started_at=%v",
		attempt.ID, linkID, now)
	return attempt, nil
}

// SaveAnswers полностью заменяет сохраненные ответы попытки. Принимает
// полное множество полных ответов: повтор устаревшего вызова безопасен,
// следующий вызов перезапишет его целиком.
// Ответы фильтруются по структуре аттестации до записи: чужой идентификатор
// вопроса или варианта сорвал бы транзакцию полной замены по внешнему ключу
// и тем самым похоронил бы весь набор, включая валидные ответы.
func (s *AttemptService) SaveAnswers(ctx context.Context, linkID string, answers []attemptsession.Answer) error {
	link, err := s.getLinkCached(linkID)
	if err != nil {
		return err
	}

	attempt, err := s.attemptRepo.GetByLinkID(linkID)
	if err != nil {
		return err
	}
	if attempt.IsSubmitted() {
		return repository.ErrAttemptAlreadySubmitted
	}
	if deadline, ok := attempt.Deadline(&link.Assessment); ok && time.Now().After(deadline.Add(deadlineGrace)) {
		return repository.ErrAttemptDeadlinePassed
	}

	known := knownChoicesByQuestion(&link.Assessment)
	records := make([]entity.AttemptAnswer, 0, len(answers))
	for _, answer := range answers {
		choiceSet, ok := known[answer.QuestionID]
		if !ok {
			log.Printf("[AttemptService] Ответ на чужой вопрос %s по ссылке %s отброшен", answer.QuestionID, linkID)
			continue
		}

		record := entity.AttemptAnswer{
			QuestionID:   answer.QuestionID,
			TextResponse: answer.Text,
		}
		for _, choiceID := range answer.SelectedChoiceIDs {
			if !choiceSet[choiceID] {
				log.Printf("[AttemptService] Чужой вариант %s для вопроса %s по ссылке %s отброшен", choiceID, answer.QuestionID, linkID)
				continue
			}
			record.SelectedChoices = append(record.SelectedChoices, entity.Choice{ID: choiceID})
		}
		// Ответ, оставшийся после фильтрации пустым, не сохраняется
		if strings.TrimSpace(record.TextResponse) == "" && len(record.SelectedChoices) == 0 {
			continue
		}
		records = append(records, record)
	}

	return s.attemptRepo.ReplaceAnswers(attempt.ID, records)
}

// knownChoicesByQuestion строит индекс вопрос → множество его вариантов
// по структуре аттестации
func knownChoicesByQuestion(assessment *entity.Assessment) map[string]map[string]bool {
	known := make(map[string]map[string]bool)
	for i := range assessment.Sections {
		for j := range assessment.Sections[i].Questions {
			question := &assessment.Sections[i].Questions[j]
			choiceSet := make(map[string]bool, len(question.Choices))
			for k := range question.Choices {
				choiceSet[question.Choices[k].ID] = true
			}
			known[question.ID] = choiceSet
		}
	}
	return known
}

// SubmitAttempt фиксирует отправку попытки. Сервер повторяет проверку
// полноты независимо от клиента: неполная попытка отклоняется, отправленная —
// не отправляется повторно. После фиксации выдается сертификат, и слушателю
// асинхронно уходит письмо.
func (s *AttemptService) SubmitAttempt(ctx context.Context, linkID string) error {
	link, err := s.linkRepo.GetWithAssessment(linkID)
	if err != nil {
		return err
	}

	attempt, err := s.attemptRepo.GetByLinkID(linkID)
	if err != nil {
		return err
	}
	if attempt.IsSubmitted() {
		return repository.ErrAttemptAlreadySubmitted
	}
	if deadline, ok := attempt.Deadline(&link.Assessment); ok && time.Now().After(deadline.Add(deadlineGrace)) {
		return repository.ErrAttemptDeadlinePassed
	}

	if err := s.validateCompleteness(&link.Assessment, attempt); err != nil {
		return err
	}

	now := time.Now()
	if err := s.attemptRepo.MarkSubmitted(attempt.ID, now); err != nil {
		return err
	}
	log.Printf("[AttemptService] Попытка %s по ссылке %s отправлена", attempt.ID, linkID)

	certificate := &entity.Certificate{
		AttemptID:      attempt.ID,
		TraineeName:    link.TraineeName,
		AssessmentName: link.Assessment.Name,
		IssuedAt:       now,
	}
	if err := s.certificateRepo.Create(certificate); err != nil && !errors.Is(err, apperrors.ErrConflict) {
		// Отправка уже зафиксирована, сертификат можно довыдать позже
		log.Printf("[AttemptService] Не удалось создать сертификат для попытки %s: %v", attempt.ID, err)
	}

	if link.TraineeEmail != "" {
		go s.sendCertificateEmail(link, attempt.ID)
	}

	// Инвалидируем кеш ссылки: следующая проверка увидит отправленную попытку
	if err := s.cacheRepo.Delete(fmt.Sprintf("access_link:%s", linkID)); err != nil {
		log.Printf("[AttemptService] Не удалось инвалидировать кеш ссылки %s: %v", linkID, err)
	}

	return nil
}

// validateCompleteness проверяет, что каждый вопрос каждой секции имеет
// полный сохраненный ответ
func (s *AttemptService) validateCompleteness(assessment *entity.Assessment, attempt *entity.AssessmentAttempt) error {
	saved := make(map[string]*entity.AttemptAnswer, len(attempt.Answers))
	for i := range attempt.Answers {
		saved[attempt.Answers[i].QuestionID] = &attempt.Answers[i]
	}

	for i := range assessment.Sections {
		for j := range assessment.Sections[i].Questions {
			questionID := assessment.Sections[i].Questions[j].ID
			answer, ok := saved[questionID]
			if !ok || !isAnswerComplete(answer) {
				return fmt.Errorf("%w: question %s has no complete answer", apperrors.ErrValidation, questionID)
			}
		}
	}
	return nil
}

// isAnswerComplete повторяет клиентский критерий полноты на серверной форме:
// непустой текст после trim или непустой набор выбранных вариантов
func isAnswerComplete(answer *entity.AttemptAnswer) bool {
	return strings.TrimSpace(answer.TextResponse) != "" || len(answer.SelectedChoices) > 0
}

// GetCertificate возвращает сертификат, выданный по попытке этой ссылки
func (s *AttemptService) GetCertificate(ctx context.Context, linkID string) (*entity.Certificate, error) {
	attempt, err := s.attemptRepo.GetByLinkID(linkID)
	if err != nil {
		return nil, err
	}
	return s.certificateRepo.GetByAttemptID(attempt.ID)
}

// sendCertificateEmail отправляет письмо о выдаче сертификата в фоне.
// AttemptID служит ключом идемпотентности: ретраи не дублируют письмо.
func (s *AttemptService) sendCertificateEmail(link *entity.AccessLink, attemptID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.emailService.SendCertificate(ctx, link.TraineeEmail, link.TraineeName,
		link.Assessment.Name, fmt.Sprintf("certificate-%s", attemptID))
	if err != nil {
		log.Printf("[AttemptService] Не удалось отправить письмо о сертификате для попытки %s: %v", attemptID, err)
	}
}
