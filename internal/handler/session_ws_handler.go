package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yourusername/training-api/internal/service"
	"github.com/yourusername/training-api/internal/service/attemptsession"
	"github.com/yourusername/training-api/pkg/auth"
)

// Типы входящих команд WebSocket-клиента
const (
	wsCmdAnswer   = "session:answer"
	wsCmdNext     = "session:next"
	wsCmdPrevious = "session:previous"
	wsCmdJump     = "session:jump"
	wsCmdSubmit   = "session:submit"
	wsCmdState    = "session:state"
)

// Исходящие события уровня соединения (в дополнение к событиям сессии)
const (
	wsEventError = "session:error"
	wsEventState = "session:state"
)

// SessionWSHandler поднимает WebSocket-соединение для живой сессии
// прохождения: одна ссылка — одно соединение — одна сессия. События сессии
// уходят клиенту как есть, команды клиента транслируются в операции сессии.
type SessionWSHandler struct {
	sessionManager *service.SessionManager
	linkTokens     *auth.LinkTokenService
	upgrader       websocket.Upgrader
}

// NewSessionWSHandler создает новый WebSocket-обработчик сессий
func NewSessionWSHandler(sessionManager *service.SessionManager, linkTokens *auth.LinkTokenService, allowedOrigins []string) *SessionWSHandler {
	return &SessionWSHandler{
		sessionManager: sessionManager,
		linkTokens:     linkTokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    4096,
			WriteBufferSize:   4096,
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					// Нативные клиенты не шлют Origin
					return true
				}
				for _, allowed := range allowedOrigins {
					if strings.EqualFold(origin, allowed) {
						return true
					}
				}
				log.Printf("[SessionWS] Отклонен origin: %s", origin)
				return false
			},
		},
	}
}

// connSink транслирует события сессии в WebSocket-соединение через
// буферизованный канал. Publish не блокирует сессию: при переполненном
// буфере событие отбрасывается — следующее событие состояния его перекроет,
// потому что каждое несет полный срез, а не дифф.
//
// Флаг closed закрывает гонку остановки часов и разрыва соединения:
// тик, уже прошедший select в момент teardown, публикует в закрытый sink
// и должен быть молча отброшен, а не уронить процесс записью в закрытый канал.
type connSink struct {
	mu     sync.Mutex
	closed bool
	events chan attemptsession.Event
}

func newConnSink() *connSink {
	return &connSink{events: make(chan attemptsession.Event, 64)}
}

// Publish реализует attemptsession.EventSink. Безопасен после close.
func (s *connSink) Publish(event attemptsession.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.events <- event:
	default:
		log.Printf("[SessionWS] Буфер событий переполнен, событие %s отброшено", event.Type)
	}
}

// close останавливает доставку и закрывает канал писателя. Идемпотентен.
func (s *connSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}

// wsCommand представляет входящую команду клиента
type wsCommand struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// HandleConnection обслуживает WebSocket-соединение сессии прохождения.
// Токен ссылки передается query-параметром token: браузерный WebSocket API
// не умеет выставлять заголовок Authorization.
// GET /ws/session?token=...
func (h *SessionWSHandler) HandleConnection(c *gin.Context) {
	claims, err := h.linkTokens.Parse(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired link token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[SessionWS] Не удалось поднять WebSocket для ссылки %s: %v", claims.LinkID, err)
		return
	}

	sink := newConnSink()
	session, err := h.sessionManager.Open(c.Request.Context(), claims.LinkID, sink)
	if err != nil {
		h.writeOpenError(conn, err)
		sink.close()
		conn.Close()
		return
	}

	defer func() {
		h.sessionManager.Close(claims.LinkID)
		sink.close()
		conn.Close()
	}()

	// Писатель: единственная горутина, пишущая в соединение
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range sink.events {
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("[SessionWS] Ошибка записи для ссылки %s: %v", claims.LinkID, err)
				return
			}
		}
	}()

	h.readLoop(c, conn, session, sink)
	<-done
}

// writeOpenError отправляет клиенту причину отказа в открытии сессии
// и закрывает соединение штатным фреймом
func (h *SessionWSHandler) writeOpenError(conn *websocket.Conn, err error) {
	message := "Failed to open session"
	switch {
	case errors.Is(err, service.ErrAnotherSessionActive):
		message = "Another session is already active for this link"
	case errors.Is(err, attemptsession.ErrLinkInvalid):
		message = "Access link is invalid or expired"
	case errors.Is(err, attemptsession.ErrStartFailed):
		message = "Failed to start attempt"
	}

	if writeErr := conn.WriteJSON(attemptsession.Event{
		Type: wsEventError,
		Data: map[string]interface{}{"message": message},
	}); writeErr != nil {
		log.Printf("[SessionWS] Не удалось отправить ошибку открытия: %v", writeErr)
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message))
}

// readLoop читает команды клиента до разрыва соединения. Цикл синхронный:
// он держит запрос живым, а значит и контекст, переданный в сессию.
func (h *SessionWSHandler) readLoop(c *gin.Context, conn *websocket.Conn, session *attemptsession.Session, sink *connSink) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[SessionWS] Соединение для ссылки %s разорвано: %v", session.LinkID(), err)
			}
			return
		}

		var cmd wsCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			sink.Publish(attemptsession.Event{
				Type: wsEventError,
				Data: map[string]interface{}{"message": "Invalid message format"},
			})
			continue
		}

		if err := h.dispatch(c, session, sink, cmd); err != nil {
			sink.Publish(attemptsession.Event{
				Type: wsEventError,
				Data: map[string]interface{}{"message": err.Error(), "command": cmd.Type},
			})
		}
	}
}

// dispatch транслирует команду клиента в операцию сессии
func (h *SessionWSHandler) dispatch(c *gin.Context, session *attemptsession.Session, sink *connSink, cmd wsCommand) error {
	switch cmd.Type {
	case wsCmdAnswer:
		var payload struct {
			QuestionID        string   `json:"question_id"`
			SelectedChoiceIDs []string `json:"selected_choice_ids"`
			Text              string   `json:"text"`
		}
		if err := json.Unmarshal(cmd.Data, &payload); err != nil || payload.QuestionID == "" {
			return errors.New("answer requires question_id")
		}
		return session.SetAnswer(payload.QuestionID, attemptsession.Answer{
			QuestionID:        payload.QuestionID,
			SelectedChoiceIDs: payload.SelectedChoiceIDs,
			Text:              payload.Text,
		})

	case wsCmdNext:
		return session.Next()

	case wsCmdPrevious:
		return session.Previous()

	case wsCmdJump:
		var payload struct {
			SectionIndex  int `json:"section_index"`
			QuestionIndex int `json:"question_index"`
		}
		if err := json.Unmarshal(cmd.Data, &payload); err != nil {
			return errors.New("jump requires section_index and question_index")
		}
		return session.JumpTo(payload.SectionIndex, payload.QuestionIndex)

	case wsCmdSubmit:
		return session.Submit(c.Request.Context())

	case wsCmdState:
		data, err := stateToEventData(session.State())
		if err != nil {
			return err
		}
		sink.Publish(attemptsession.Event{Type: wsEventState, Data: data})
		return nil

	default:
		return errors.New("unknown command type")
	}
}

// stateToEventData сериализует полный срез состояния (включая ответы)
// в данные события
func stateToEventData(state attemptsession.State) (map[string]interface{}, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}
