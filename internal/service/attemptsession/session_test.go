package attemptsession

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/training-api/internal/domain/entity"
)

// ============================================================================
// Моки и вспомогательные типы
// ============================================================================

// MockGateway реализует Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CheckLinkValidity(ctx context.Context, linkID string) (*LinkInfo, error) {
	args := m.Called(ctx, linkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LinkInfo), args.Error(1)
}

func (m *MockGateway) StartOrResumeAttempt(ctx context.Context, linkID string) (*entity.AssessmentAttempt, error) {
	args := m.Called(ctx, linkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AssessmentAttempt), args.Error(1)
}

func (m *MockGateway) SaveAnswers(ctx context.Context, linkID string, answers []Answer) error {
	args := m.Called(ctx, linkID, answers)
	return args.Error(0)
}

func (m *MockGateway) SubmitAttempt(ctx context.Context, linkID string) error {
	args := m.Called(ctx, linkID)
	return args.Error(0)
}

// captureSink накапливает опубликованные события
type captureSink struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
}

func newCaptureSink() *captureSink {
	return &captureSink{ch: make(chan Event, 64)}
}

func (s *captureSink) Publish(event Event) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	select {
	case s.ch <- event:
	default:
	}
}

// waitFor блокируется до появления события заданного типа
func (s *captureSink) waitFor(t *testing.T, eventType string, timeout time.Duration) Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case event := <-s.ch:
			if event.Type == eventType {
				return event
			}
		case <-deadline:
			t.Fatalf("Событие %s не пришло за %v", eventType, timeout)
			return Event{}
		}
	}
}

// ============================================================================
// Фикстуры
// ============================================================================

// gatingAssessment строит аттестацию из двух секций по одному вопросу
func gatingAssessment(timed bool, durationMinutes int) *entity.Assessment {
	return &entity.Assessment{
		ID:              "a1",
		Name:            "Охрана труда",
		Timed:           timed,
		DurationMinutes: durationMinutes,
		Sections: []entity.Section{
			{
				ID:       "s1",
				Sequence: 1,
				Title:    "Теория",
				Questions: []entity.Question{
					{
						ID: "q1", SectionID: "s1", Type: entity.QuestionTypeSingleChoice,
						Prompt:  "Что обязательно перед началом работ?",
						Choices: []entity.Choice{{ID: "c1"}, {ID: "c2"}},
					},
				},
			},
			{
				ID:       "s2",
				Sequence: 2,
				Title:    "Практика",
				Questions: []entity.Question{
					{
						ID: "q2", SectionID: "s2", Type: entity.QuestionTypeFreeText,
						Prompt: "Опишите порядок действий при аварии",
					},
				},
			},
		},
	}
}

func attemptFixture(startedAt time.Time, answers []entity.AttemptAnswer) *entity.AssessmentAttempt {
	return &entity.AssessmentAttempt{
		ID:           "at1",
		LinkID:       "link-1",
		AssessmentID: "a1",
		Status:       entity.AttemptStatusInProgress,
		StartedAt:    &startedAt,
		Answers:      answers,
	}
}

// startedSession создает и запускает сессию поверх моков
func startedSession(t *testing.T, gateway *MockGateway, sink *captureSink, assessment *entity.Assessment, attempt *entity.AssessmentAttempt) *Session {
	t.Helper()

	gateway.On("CheckLinkValidity", mock.Anything, "link-1").Return(&LinkInfo{
		Valid:       true,
		Assessment:  assessment,
		TraineeName: "Иванов И.И.",
		LinkType:    entity.LinkTypeAssessment,
	}, nil)
	gateway.On("StartOrResumeAttempt", mock.Anything, "link-1").Return(attempt, nil)

	config := DefaultConfig()
	config.TickInterval = 10 * time.Millisecond

	session := NewSession("link-1", config, &Dependencies{Gateway: gateway, Sink: sink})
	require.NoError(t, session.Start(context.Background()))
	t.Cleanup(session.Close)
	return session
}

// ============================================================================
// Тесты запуска сессии
// ============================================================================

func TestSession_Start_SeedsStateFromResume(t *testing.T) {
	// Arrange: сервер возвращает один ранее сохраненный ответ в форме
	// "выбранные варианты как объекты"
	gateway := new(MockGateway)
	sink := newCaptureSink()
	priorAnswers := []entity.AttemptAnswer{
		{QuestionID: "q1", SelectedChoices: []entity.Choice{{ID: "c1"}}},
	}

	// Act
	session := startedSession(t, gateway, sink,
		gatingAssessment(false, 0), attemptFixture(time.Now(), priorAnswers))

	// Assert
	state := session.State()
	assert.Equal(t, StatusInProgress, state.Status)
	assert.Equal(t, 0, state.SectionIndex, "Курсор должен встать на (0,0)")
	assert.Equal(t, 0, state.QuestionIndex)
	assert.Equal(t, 1, state.AnsweredCount)
	assert.Equal(t, 2, state.TotalCount)
	assert.Equal(t, []string{"c1"}, state.Answers["q1"].SelectedChoiceIDs)
	assert.Nil(t, state.RemainingSeconds, "Без лимита времени счетчик отсутствует")
	sink.waitFor(t, EventStarted, time.Second)
}

func TestSession_Start_LinkInvalid(t *testing.T) {
	// Arrange
	gateway := new(MockGateway)
	gateway.On("CheckLinkValidity", mock.Anything, "link-1").Return(&LinkInfo{Valid: false}, nil)

	session := NewSession("link-1", nil, &Dependencies{Gateway: gateway})

	// Act
	err := session.Start(context.Background())

	// Assert: попытка не создается
	assert.ErrorIs(t, err, ErrLinkInvalid)
	gateway.AssertNotCalled(t, "StartOrResumeAttempt", mock.Anything, mock.Anything)
	assert.Equal(t, StatusNotStarted, session.State().Status)
}

func TestSession_Start_WrongLinkType(t *testing.T) {
	// Arrange: ссылка для получения сертификата, не для прохождения
	gateway := new(MockGateway)
	gateway.On("CheckLinkValidity", mock.Anything, "link-1").Return(&LinkInfo{
		Valid:      true,
		Assessment: gatingAssessment(false, 0),
		LinkType:   entity.LinkTypeCertificate,
	}, nil)

	session := NewSession("link-1", nil, &Dependencies{Gateway: gateway})

	// Act & Assert
	assert.ErrorIs(t, session.Start(context.Background()), ErrLinkInvalid)
}

func TestSession_Start_FailureLeavesNoPartialState(t *testing.T) {
	// Arrange: проверка ссылки прошла, создание попытки упало
	gateway := new(MockGateway)
	gateway.On("CheckLinkValidity", mock.Anything, "link-1").Return(&LinkInfo{
		Valid:      true,
		Assessment: gatingAssessment(true, 30),
		LinkType:   entity.LinkTypeAssessment,
	}, nil)
	gateway.On("StartOrResumeAttempt", mock.Anything, "link-1").
		Return(nil, errors.New("db unavailable")).Once()

	session := NewSession("link-1", nil, &Dependencies{Gateway: gateway})

	// Act
	err := session.Start(context.Background())

	// Assert: атомарный посев — либо все, либо ничего
	assert.ErrorIs(t, err, ErrStartFailed)
	state := session.State()
	assert.Equal(t, StatusNotStarted, state.Status)
	assert.Equal(t, 0, state.TotalCount)

	// Ручной повтор запуска допустим и может завершиться успехом
	gateway.On("StartOrResumeAttempt", mock.Anything, "link-1").
		Return(attemptFixture(time.Now(), nil), nil)
	require.NoError(t, session.Start(context.Background()))
	defer session.Close()
	assert.Equal(t, StatusInProgress, session.State().Status)
}

func TestSession_Start_Twice(t *testing.T) {
	// Arrange
	gateway := new(MockGateway)
	session := startedSession(t, gateway, newCaptureSink(),
		gatingAssessment(false, 0), attemptFixture(time.Now(), nil))

	// Act & Assert
	assert.ErrorIs(t, session.Start(context.Background()), ErrAlreadyStarted)
}

// ============================================================================
// Тесты ответов и автосохранения
// ============================================================================

func TestSession_SetAnswer_ResendsFullCompleteSet(t *testing.T) {
	// Arrange
	gateway := new(MockGateway)
	saveCh := make(chan []Answer, 8)
	gateway.On("SaveAnswers", mock.Anything, "link-1", mock.Anything).
		Run(func(args mock.Arguments) {
			saveCh <- args.Get(2).([]Answer)
		}).
		Return(nil)

	session := startedSession(t, gateway, newCaptureSink(),
		gatingAssessment(false, 0), attemptFixture(time.Now(), nil))

	// Act: первый ответ
	require.NoError(t, session.SetAnswer("q1", Answer{SelectedChoiceIDs: []string{"c2"}}))
	saved := waitForSave(t, saveCh)

	// Assert
	require.Len(t, saved, 1)
	assert.Equal(t, "q1", saved[0].QuestionID)

	// Act: второй ответ — уходит ПОЛНОЕ множество, а не дифф
	require.NoError(t, session.SetAnswer("q2", Answer{Text: "вызвать ответственного"}))
	saved = waitForSave(t, saveCh)

	require.Len(t, saved, 2)
	assert.Equal(t, "q1", saved[0].QuestionID)
	assert.Equal(t, "q2", saved[1].QuestionID)

	// Act: повтор того же ответа — множество не меняется (идемпотентность)
	require.NoError(t, session.SetAnswer("q2", Answer{Text: "вызвать ответственного"}))
	repeated := waitForSave(t, saveCh)
	assert.Equal(t, saved, repeated)
}

func TestSession_SetAnswer_IncompleteNotEligibleForPersist(t *testing.T) {
	// Arrange
	gateway := new(MockGateway)
	saveCh := make(chan []Answer, 8)
	gateway.On("SaveAnswers", mock.Anything, "link-1", mock.Anything).
		Run(func(args mock.Arguments) {
			saveCh <- args.Get(2).([]Answer)
		}).
		Return(nil)

	session := startedSession(t, gateway, newCaptureSink(),
		gatingAssessment(false, 0), attemptFixture(time.Now(), nil))

	// Act: тронутый, но неполный ответ
	require.NoError(t, session.SetAnswer("q2", Answer{Text: "   "}))

	// Assert: в сохранение уходит пустое множество, прогресс не растет
	saved := waitForSave(t, saveCh)
	assert.Empty(t, saved)
	state := session.State()
	assert.Equal(t, 0, state.AnsweredCount)
	assert.Contains(t, state.Answers, "q2", "Локально тронутый ответ хранится")
}

func TestSession_SetAnswer_SaveFailureDoesNotBlockEditing(t *testing.T) {
	// Arrange: автосохранение стабильно падает
	gateway := new(MockGateway)
	saveCalled := make(chan struct{}, 8)
	gateway.On("SaveAnswers", mock.Anything, "link-1", mock.Anything).
		Run(func(args mock.Arguments) { saveCalled <- struct{}{} }).
		Return(errors.New("network unreachable"))

	session := startedSession(t, gateway, newCaptureSink(),
		gatingAssessment(false, 0), attemptFixture(time.Now(), nil))

	// Act & Assert: сбой гасится, редактирование продолжается
	require.NoError(t, session.SetAnswer("q1", Answer{SelectedChoiceIDs: []string{"c1"}}))
	<-saveCalled
	require.NoError(t, session.SetAnswer("q2", Answer{Text: "ответ"}))
	<-saveCalled

	assert.Equal(t, 2, session.State().AnsweredCount)
}

func TestSession_SetAnswer_UnknownQuestionRejected(t *testing.T) {
	// Arrange
	gateway := new(MockGateway)
	saveCh := make(chan []Answer, 8)
	gateway.On("SaveAnswers", mock.Anything, "link-1", mock.Anything).
		Run(func(args mock.Arguments) {
			saveCh <- args.Get(2).([]Answer)
		}).
		Return(nil)

	session := startedSession(t, gateway, newCaptureSink(),
		gatingAssessment(false, 0), attemptFixture(time.Now(), nil))

	// Act: ответ на вопрос, которого нет в аттестации
	err := session.SetAnswer("q-ghost", Answer{Text: "подложный ответ"})

	// Assert: отклонен до хранилища и до автосохранения
	assert.ErrorIs(t, err, ErrUnknownQuestion)
	gateway.AssertNotCalled(t, "SaveAnswers", mock.Anything, mock.Anything, mock.Anything)
	assert.NotContains(t, session.State().Answers, "q-ghost")

	// Последующие автосохранения не несут чужой идентификатор:
	// один подложный ответ не должен отравить полный набор
	require.NoError(t, session.SetAnswer("q2", Answer{Text: "штатный ответ"}))
	saved := waitForSave(t, saveCh)
	require.Len(t, saved, 1)
	assert.Equal(t, "q2", saved[0].QuestionID)
}

func TestSession_SetAnswer_UnknownChoiceRejected(t *testing.T) {
	// Arrange
	gateway := new(MockGateway)
	session := startedSession(t, gateway, newCaptureSink(),
		gatingAssessment(false, 0), attemptFixture(time.Now(), nil))

	// Act: вариант c9 не принадлежит q1
	err := session.SetAnswer("q1", Answer{SelectedChoiceIDs: []string{"c1", "c9"}})

	// Assert
	assert.ErrorIs(t, err, ErrUnknownChoice)
	gateway.AssertNotCalled(t, "SaveAnswers", mock.Anything, mock.Anything, mock.Anything)
	assert.NotContains(t, session.State().Answers, "q1")
}

func waitForSave(t *testing.T, ch chan []Answer) []Answer {
	t.Helper()
	select {
	case answers := <-ch:
		return answers
	case <-time.After(time.Second):
		t.Fatal("SaveAnswers не был вызван")
		return nil
	}
}

// ============================================================================
// Тесты гейта отправки
// ============================================================================

func TestSession_SubmitGating(t *testing.T) {
	// Arrange: две секции по одному вопросу
	gateway := new(MockGateway)
	gateway.On("SaveAnswers", mock.Anything, "link-1", mock.Anything).Return(nil)

	session := startedSession(t, gateway, newCaptureSink(),
		gatingAssessment(false, 0), attemptFixture(time.Now(), nil))

	// Act & Assert: без ответов отправка отклоняется до обращения к серверу
	err := session.Submit(context.Background())
	assert.ErrorIs(t, err, ErrIncomplete)
	gateway.AssertNotCalled(t, "SubmitAttempt", mock.Anything, mock.Anything)

	// Ответ только на первый вопрос — гейт закрыт
	require.NoError(t, session.SetAnswer("q1", Answer{SelectedChoiceIDs: []string{"c1"}}))
	assert.False(t, session.State().CanSubmit)
	assert.ErrorIs(t, session.Submit(context.Background()), ErrIncomplete)

	// Ответ на второй — гейт открыт
	require.NoError(t, session.SetAnswer("q2", Answer{Text: "эвакуация по инструкции"}))
	assert.True(t, session.State().CanSubmit)

	gateway.On("SubmitAttempt", mock.Anything, "link-1").Return(nil)
	require.NoError(t, session.Submit(context.Background()))
	assert.Equal(t, StatusSubmitted, session.State().Status)
}

func TestSession_Submit_FailureStaysInProgress(t *testing.T) {
	// Arrange
	gateway := new(MockGateway)
	gateway.On("SaveAnswers", mock.Anything, "link-1", mock.Anything).Return(nil)

	session := startedSession(t, gateway, newCaptureSink(),
		gatingAssessment(false, 0), attemptFixture(time.Now(), nil))

	require.NoError(t, session.SetAnswer("q1", Answer{SelectedChoiceIDs: []string{"c1"}}))
	require.NoError(t, session.SetAnswer("q2", Answer{Text: "ответ"}))

	gateway.On("SubmitAttempt", mock.Anything, "link-1").
		Return(errors.New("server rejected")).Once()

	// Act: первый submit падает
	err := session.Submit(context.Background())

	// Assert: сессия остается активной, ручной повтор успешен
	assert.ErrorIs(t, err, ErrSubmitFailed)
	assert.Equal(t, StatusInProgress, session.State().Status)

	gateway.On("SubmitAttempt", mock.Anything, "link-1").Return(nil)
	require.NoError(t, session.Submit(context.Background()))
	assert.Equal(t, StatusSubmitted, session.State().Status)
}

// ============================================================================
// Тесты навигации
// ============================================================================

func TestSession_Navigation(t *testing.T) {
	// Arrange
	gateway := new(MockGateway)
	session := startedSession(t, gateway, newCaptureSink(),
		gatingAssessment(false, 0), attemptFixture(time.Now(), nil))

	// Act & Assert: вперед через границу секции
	require.NoError(t, session.Next())
	state := session.State()
	assert.Equal(t, 1, state.SectionIndex)
	assert.Equal(t, 0, state.QuestionIndex)

	// На последнем вопросе Next — no-op без ошибки
	require.NoError(t, session.Next())
	state = session.State()
	assert.Equal(t, 1, state.SectionIndex)

	// Абсолютный переход
	require.NoError(t, session.JumpTo(0, 0))
	state = session.State()
	assert.Equal(t, 0, state.SectionIndex)

	// Previous в (0,0) — no-op
	require.NoError(t, session.Previous())
	state = session.State()
	assert.Equal(t, 0, state.SectionIndex)
	assert.Equal(t, 0, state.QuestionIndex)
}

// ============================================================================
// Тесты истечения времени
// ============================================================================

func TestSession_Expiry_ReconstructedPastDeadline(t *testing.T) {
	// Arrange: попытка стартовала 31 минуту назад при лимите 30 —
	// симуляция перезагрузки страницы после дедлайна. Истечение должно
	// сработать немедленно, а не через новые 30 минут.
	gateway := new(MockGateway)
	sink := newCaptureSink()

	session := startedSession(t, gateway, sink,
		gatingAssessment(true, 30),
		attemptFixture(time.Now().Add(-31*time.Minute), nil))

	// Act: ждем событие истечения
	sink.waitFor(t, EventTimeUp, time.Second)

	// Assert: все мутации отклоняются, timeUp защелкнут
	state := session.State()
	assert.True(t, state.TimeUp)
	assert.Equal(t, StatusExpired, state.Status)
	require.NotNil(t, state.RemainingSeconds)
	assert.Equal(t, 0, *state.RemainingSeconds)

	assert.ErrorIs(t, session.SetAnswer("q1", Answer{SelectedChoiceIDs: []string{"c1"}}), ErrTimeUp)
	assert.ErrorIs(t, session.Next(), ErrTimeUp)
	assert.ErrorIs(t, session.Submit(context.Background()), ErrTimeUp)
	gateway.AssertNotCalled(t, "SaveAnswers", mock.Anything, mock.Anything, mock.Anything)
	gateway.AssertNotCalled(t, "SubmitAttempt", mock.Anything, mock.Anything)

	// Монотонность: timeUp не возвращается в false
	time.Sleep(30 * time.Millisecond)
	assert.True(t, session.State().TimeUp)
}

func TestSession_Expiry_PublishesCountdownBefore(t *testing.T) {
	// Arrange: лимит не истек — должен идти обратный отсчет
	gateway := new(MockGateway)
	sink := newCaptureSink()

	session := startedSession(t, gateway, sink,
		gatingAssessment(true, 30), attemptFixture(time.Now(), nil))
	defer session.Close()

	// Act
	event := sink.waitFor(t, EventCountdown, time.Second)

	// Assert
	remaining, ok := event.Data["remaining_seconds"].(int)
	require.True(t, ok)
	assert.Greater(t, remaining, 0)

	state := session.State()
	require.NotNil(t, state.RemainingSeconds)
	assert.Greater(t, *state.RemainingSeconds, 1700)
}

func TestSession_Close_Idempotent(t *testing.T) {
	// Arrange
	gateway := new(MockGateway)
	session := startedSession(t, gateway, newCaptureSink(),
		gatingAssessment(true, 30), attemptFixture(time.Now(), nil))

	// Act & Assert: повторное закрытие безопасно
	session.Close()
	session.Close()
}
