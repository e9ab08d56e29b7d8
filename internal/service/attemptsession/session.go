package attemptsession

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/yourusername/training-api/internal/domain/entity"
)

// Session — машина состояний одной попытки прохождения аттестации.
// Владеет жизненным циклом попытки (not_started → in_progress →
// expired/submitted), посредничает во всех мутирующих операциях и является
// единственным компонентом, которому разрешено вызывать Gateway.
//
// Модель конкурентности — один писатель: каждая мутация (действие
// пользователя или тик часов) выполняется до конца под общим мьютексом.
// При логической гонке правки и истечения времени приоритет у истечения:
// однажды истекшая сессия истекла навсегда.
type Session struct {
	config *Config
	deps   *Dependencies
	linkID string

	mu          sync.Mutex
	status      string
	timeUp      bool
	assessment  *entity.Assessment
	attempt     *entity.AssessmentAttempt
	traineeName string
	store       *AnswerStore
	cursor      *Cursor
	clock       *ExpiryClock
}

// State — срез состояния сессии для слоя представления
type State struct {
	Status           string            `json:"status"`
	TraineeName      string            `json:"trainee_name,omitempty"`
	AssessmentName   string            `json:"assessment_name,omitempty"`
	SectionIndex     int               `json:"section_index"`
	QuestionIndex    int               `json:"question_index"`
	Answers          map[string]Answer `json:"answers"`
	RemainingSeconds *int              `json:"remaining_seconds,omitempty"`
	TimeUp           bool              `json:"time_up"`
	AnsweredCount    int               `json:"answered_count"`
	TotalCount       int               `json:"total_count"`
	CanSubmit        bool              `json:"can_submit"`
}

// NewSession создает сессию для ссылки доступа. Состояние остается
// not_started до успешного вызова Start.
func NewSession(linkID string, config *Config, deps *Dependencies) *Session {
	if config == nil {
		config = DefaultConfig()
	}
	if deps.Sink == nil {
		deps.Sink = NoOpSink{}
	}
	return &Session{
		config: config,
		deps:   deps,
		linkID: linkID,
		status: StatusNotStarted,
		store:  NewAnswerStore(),
	}
}

// LinkID возвращает идентификатор ссылки доступа сессии
func (s *Session) LinkID() string {
	return s.linkID
}

// Start проверяет ссылку, создает или возобновляет попытку и переводит
// сессию в in_progress. Посев состояния атомарный: при любом сбое локальное
// состояние не меняется (seed-or-nothing), и слушатель может повторить
// запуск вручную.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusNotStarted {
		return ErrAlreadyStarted
	}

	info, err := s.deps.Gateway.CheckLinkValidity(ctx, s.linkID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLinkInvalid, err)
	}
	if !info.Valid || info.LinkType != entity.LinkTypeAssessment || info.Assessment == nil {
		return ErrLinkInvalid
	}

	attempt, err := s.deps.Gateway.StartOrResumeAttempt(ctx, s.linkID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStartFailed, err)
	}

	// Посев: серверная форма ответов транслируется во внутреннюю,
	// курсор встает на (0,0)
	s.assessment = info.Assessment
	s.attempt = attempt
	s.traineeName = info.TraineeName
	s.store = SeedAnswers(attempt.Answers)
	s.cursor = NewCursor(info.Assessment)
	s.status = StatusInProgress

	// Часы взводятся только для аттестации с лимитом времени и при наличии
	// назначенного сервером StartedAt. endTime выводится из StartedAt,
	// поэтому восстановление сессии после перезагрузки не сдвигает дедлайн.
	if info.Assessment.Timed && attempt.StartedAt != nil {
		s.clock = NewExpiryClock(
			*attempt.StartedAt,
			info.Assessment.Duration(),
			s.config.TickInterval,
			s.handleTick,
			s.handleExpiry,
		)
		s.clock.Start()
	}

	log.Printf("[Session] Сессия по ссылке %s запущена (попытка %s, статус %s)",
		s.linkID, attempt.ID, attempt.Status)

	s.publish(Event{Type: EventStarted, Data: s.stateDataLocked()})
	return nil
}

// SetAnswer заменяет локальный ответ на вопрос и запускает автосохранение.
// После истечения времени отклоняется без изменения состояния.
// Идентификаторы вопроса и вариантов сверяются со структурой аттестации:
// чужой идентификатор не попадает в хранилище и, значит, в набор
// автосохранения.
func (s *Session) SetAnswer(questionID string, answer Answer) error {
	s.mu.Lock()

	if s.timeUp {
		s.mu.Unlock()
		s.notice("Время вышло, ответ не принят")
		return ErrTimeUp
	}
	if s.status != StatusInProgress {
		s.mu.Unlock()
		return ErrNotActive
	}

	question := s.findQuestionLocked(questionID)
	if question == nil {
		s.mu.Unlock()
		return ErrUnknownQuestion
	}
	for _, choiceID := range answer.SelectedChoiceIDs {
		if !questionHasChoice(question, choiceID) {
			s.mu.Unlock()
			return ErrUnknownChoice
		}
	}

	s.store.Set(questionID, answer)

	// Каждое автосохранение заново отправляет ПОЛНОЕ текущее подмножество
	// полных ответов, а не дифф: потерянный вызов самоисцеляется следующей
	// правкой, а опоздавший устаревший ответ сходится к корректному значению.
	snapshot := s.store.Complete()
	data := s.stateDataLocked()
	s.mu.Unlock()

	go s.persistAnswers(snapshot)

	s.publish(Event{Type: EventProgress, Data: data})
	return nil
}

// persistAnswers выполняет автосохранение fire-and-forget. Сбой сохранения
// логируется и гасится: редактирование никогда не блокируется временной
// сетевой ошибкой, риск потери ограничен самой последней правкой.
func (s *Session) persistAnswers(answers []Answer) {
	if err := s.deps.Gateway.SaveAnswers(context.Background(), s.linkID, answers); err != nil {
		log.Printf("[Session] Автосохранение для ссылки %s не удалось (%d ответов): %v",
			s.linkID, len(answers), err)
	}
}

// Next переходит к следующему вопросу
func (s *Session) Next() error {
	return s.navigate(func(c *Cursor) bool { return c.Next() })
}

// Previous переходит к предыдущему вопросу
func (s *Session) Previous() error {
	return s.navigate(func(c *Cursor) bool { return c.Previous() })
}

// JumpTo выполняет абсолютное позиционирование курсора
func (s *Session) JumpTo(sectionIndex, questionIndex int) error {
	return s.navigate(func(c *Cursor) bool {
		c.JumpTo(sectionIndex, questionIndex)
		return true
	})
}

func (s *Session) navigate(move func(*Cursor) bool) error {
	s.mu.Lock()

	if s.timeUp {
		s.mu.Unlock()
		s.notice("Время вышло, навигация недоступна")
		return ErrTimeUp
	}
	if s.status != StatusInProgress {
		s.mu.Unlock()
		return ErrNotActive
	}

	moved := move(s.cursor)
	data := s.stateDataLocked()
	s.mu.Unlock()

	if moved {
		s.publish(Event{Type: EventPosition, Data: data})
	}
	return nil
}

// Submit отправляет попытку. Разрешено только когда каждый вопрос каждой
// секции имеет полный ответ и время не истекло; иначе отказ возвращается до
// обращения к внешнему коллаборатору. При сбое отправки сессия остается
// in_progress, и слушатель может повторить отправку.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timeUp {
		return ErrTimeUp
	}
	if s.status != StatusInProgress {
		return ErrNotActive
	}
	if !s.allAnsweredLocked() {
		return ErrIncomplete
	}

	if err := s.deps.Gateway.SubmitAttempt(ctx, s.linkID); err != nil {
		return fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	s.status = StatusSubmitted
	if s.clock != nil {
		s.clock.Stop()
	}

	log.Printf("[Session] Попытка по ссылке %s отправлена", s.linkID)
	s.publish(Event{Type: EventSubmitted, Data: s.stateDataLocked()})
	return nil
}

// handleTick публикует обратный отсчет для слоя представления
func (s *Session) handleTick(remainingSeconds int) {
	s.publish(Event{
		Type: EventCountdown,
		Data: map[string]interface{}{"remaining_seconds": remainingSeconds},
	})
}

// handleExpiry — обработчик одноразового события истечения. Флаг timeUp
// защелкивается навсегда: в рамках сессии он не возвращается в false
// независимо от дальнейших тиков и попыток мутаций.
func (s *Session) handleExpiry() {
	s.mu.Lock()
	if s.timeUp || s.status == StatusSubmitted {
		s.mu.Unlock()
		return
	}
	s.timeUp = true
	s.status = StatusExpired
	clock := s.clock
	data := s.stateDataLocked()
	s.mu.Unlock()

	if clock != nil {
		clock.Stop()
	}

	log.Printf("[Session] Время попытки по ссылке %s истекло", s.linkID)
	s.publish(Event{Type: EventTimeUp, Data: data})
}

// State возвращает срез текущего состояния сессии
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	state := State{
		Status:        s.status,
		TraineeName:   s.traineeName,
		Answers:       s.store.All(),
		TimeUp:        s.timeUp,
		AnsweredCount: s.store.CompleteCount(),
	}
	if s.assessment != nil {
		state.AssessmentName = s.assessment.Name
		// Счетчики всегда пересчитываются из текущих данных
		state.TotalCount = s.assessment.QuestionCount()
	}
	if s.cursor != nil {
		state.SectionIndex, state.QuestionIndex = s.cursor.Position()
	}
	if s.clock != nil {
		remaining := s.clock.RemainingSeconds()
		state.RemainingSeconds = &remaining
	}
	state.CanSubmit = s.status == StatusInProgress && !s.timeUp && s.allAnsweredLocked()
	return state
}

// stateDataLocked сериализует срез состояния в данные события
func (s *Session) stateDataLocked() map[string]interface{} {
	state := s.stateLocked()
	data := map[string]interface{}{
		"status":         state.Status,
		"section_index":  state.SectionIndex,
		"question_index": state.QuestionIndex,
		"answered_count": state.AnsweredCount,
		"total_count":    state.TotalCount,
		"can_submit":     state.CanSubmit,
		"time_up":        state.TimeUp,
	}
	if state.RemainingSeconds != nil {
		data["remaining_seconds"] = *state.RemainingSeconds
	}
	return data
}

// findQuestionLocked возвращает вопрос аттестации по идентификатору
func (s *Session) findQuestionLocked(questionID string) *entity.Question {
	if s.assessment == nil {
		return nil
	}
	for i := range s.assessment.Sections {
		for j := range s.assessment.Sections[i].Questions {
			question := &s.assessment.Sections[i].Questions[j]
			if question.ID == questionID {
				return question
			}
		}
	}
	return nil
}

func questionHasChoice(question *entity.Question, choiceID string) bool {
	for i := range question.Choices {
		if question.Choices[i].ID == choiceID {
			return true
		}
	}
	return false
}

// allAnsweredLocked проверяет глобальный гейт отправки: полный ответ на
// каждый вопрос каждой секции
func (s *Session) allAnsweredLocked() bool {
	if s.assessment == nil {
		return false
	}
	for i := range s.assessment.Sections {
		for j := range s.assessment.Sections[i].Questions {
			if !s.store.HasComplete(s.assessment.Sections[i].Questions[j].ID) {
				return false
			}
		}
	}
	return true
}

// Close освобождает ресурсы сессии (таймер часов) на любом пути выхода:
// отправка, уход со страницы, разрыв соединения. Идемпотентен.
func (s *Session) Close() {
	s.mu.Lock()
	clock := s.clock
	s.mu.Unlock()

	if clock != nil {
		clock.Stop()
	}
}

func (s *Session) publish(event Event) {
	s.deps.Sink.Publish(event)
}

func (s *Session) notice(message string) {
	s.publish(Event{
		Type: EventNotice,
		Data: map[string]interface{}{"message": message},
	})
}
