package attemptsession

import (
	"context"
	"time"

	"github.com/yourusername/training-api/internal/domain/entity"
)

// Константы статусов сессии прохождения.
// EXPIRED и SUBMITTED — терминальные состояния.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusExpired    = "expired"
	StatusSubmitted  = "submitted"
)

// Config содержит настройки компонентов сессии
type Config struct {
	// TickInterval — период тика часов обратного отсчета
	TickInterval time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		TickInterval: 1 * time.Second,
	}
}

// LinkInfo описывает результат проверки ссылки доступа
type LinkInfo struct {
	Valid       bool
	Assessment  *entity.Assessment
	TraineeName string
	LinkType    string
}

// Gateway определяет четыре внешние операции, которые потребляет сессия.
// Сервер — единственный источник истины: сессия лишь удобный слой поверх него.
type Gateway interface {
	CheckLinkValidity(ctx context.Context, linkID string) (*LinkInfo, error)
	StartOrResumeAttempt(ctx context.Context, linkID string) (*entity.AssessmentAttempt, error)
	SaveAnswers(ctx context.Context, linkID string, answers []Answer) error
	SubmitAttempt(ctx context.Context, linkID string) error
}

// Типы событий, публикуемых сессией для слоя представления
const (
	EventStarted   = "session:started"
	EventProgress  = "session:progress"
	EventPosition  = "session:position"
	EventCountdown = "session:countdown"
	EventTimeUp    = "session:time_up"
	EventSubmitted = "session:submitted"
	EventNotice    = "session:notice"
)

// Event представляет событие изменения состояния сессии
type Event struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// EventSink получает события сессии. Слой представления подписывается через
// этот контракт — никакой скрытой реактивности.
type EventSink interface {
	Publish(event Event)
}

// Dependencies содержит зависимости сессии
type Dependencies struct {
	Gateway Gateway
	Sink    EventSink
}

// NoOpSink — заглушка для случаев, когда подписчик не нужен (например, в тестах)
type NoOpSink struct{}

// Publish игнорирует событие
func (NoOpSink) Publish(event Event) {}
