package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/yourusername/training-api/internal/domain/repository"
	"github.com/yourusername/training-api/internal/service/attemptsession"
)

// sessionLockTTL — время жизни распределенной блокировки сессии.
// Блокировка снимается явно при закрытии сессии; TTL страхует от
// зависших блокировок после падения инстанса.
const sessionLockTTL = 4 * time.Hour

// SessionManager владеет активными сессиями прохождения на инстансе.
// Одна ссылка — не более одной активной сессии: локальная карта закрывает
// гонки внутри процесса, Redis SETNX — между инстансами.
type SessionManager struct {
	gateway   attemptsession.Gateway
	cacheRepo repository.CacheRepository
	config    *attemptsession.Config

	mu       sync.Mutex
	sessions map[string]*attemptsession.Session
}

// NewSessionManager создает новый менеджер сессий
func NewSessionManager(gateway attemptsession.Gateway, cacheRepo repository.CacheRepository, config *attemptsession.Config) *SessionManager {
	return &SessionManager{
		gateway:   gateway,
		cacheRepo: cacheRepo,
		config:    config,
		sessions:  make(map[string]*attemptsession.Session),
	}
}

// Open создает и запускает сессию по ссылке доступа. События сессии
// публикуются в переданный sink (обычно это WebSocket-соединение).
func (m *SessionManager) Open(ctx context.Context, linkID string, sink attemptsession.EventSink) (*attemptsession.Session, error) {
	m.mu.Lock()
	if _, exists := m.sessions[linkID]; exists {
		m.mu.Unlock()
		return nil, ErrAnotherSessionActive
	}
	session := attemptsession.NewSession(linkID, m.config, &attemptsession.Dependencies{
		Gateway: m.gateway,
		Sink:    sink,
	})
	m.sessions[linkID] = session
	m.mu.Unlock()

	acquired, err := m.cacheRepo.SetNX(m.lockKey(linkID), 1, sessionLockTTL)
	if err != nil {
		// Недоступность Redis не блокирует прохождение: локальная карта
		// продолжает защищать от дублей внутри процесса
		log.Printf("[SessionManager] Не удалось взять блокировку сессии %s: %v", linkID, err)
	} else if !acquired {
		m.evict(linkID)
		return nil, ErrAnotherSessionActive
	}

	if err := session.Start(ctx); err != nil {
		m.evict(linkID)
		m.releaseLock(linkID)
		return nil, err
	}

	log.Printf("[SessionManager] Сессия по ссылке %s открыта", linkID)
	return session, nil
}

// Close закрывает сессию и освобождает ее блокировку. Идемпотентен.
func (m *SessionManager) Close(linkID string) {
	m.mu.Lock()
	session, exists := m.sessions[linkID]
	delete(m.sessions, linkID)
	m.mu.Unlock()

	if !exists {
		return
	}

	session.Close()
	m.releaseLock(linkID)
	log.Printf("[SessionManager] Сессия по ссылке %s закрыта", linkID)
}

// ActiveCount возвращает количество активных сессий на инстансе
func (m *SessionManager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown закрывает все активные сессии при остановке инстанса
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	linkIDs := make([]string, 0, len(m.sessions))
	for linkID := range m.sessions {
		linkIDs = append(linkIDs, linkID)
	}
	m.mu.Unlock()

	for _, linkID := range linkIDs {
		m.Close(linkID)
	}
	log.Printf("[SessionManager] Менеджер сессий остановлен (%d сессий закрыто)", len(linkIDs))
}

func (m *SessionManager) evict(linkID string) {
	m.mu.Lock()
	delete(m.sessions, linkID)
	m.mu.Unlock()
}

func (m *SessionManager) releaseLock(linkID string) {
	if err := m.cacheRepo.Delete(m.lockKey(linkID)); err != nil {
		log.Printf("[SessionManager] Не удалось снять блокировку сессии %s: %v", linkID, err)
	}
}

func (m *SessionManager) lockKey(linkID string) string {
	return fmt.Sprintf("session_lock:%s", linkID)
}
