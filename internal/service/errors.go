package service

import "errors"

// Определяем кастомные ошибки для сервисов
var (
	// ErrLinkExpired означает, что срок действия ссылки доступа истек.
	ErrLinkExpired = errors.New("access link is expired")
	// ErrWrongLinkType означает, что ссылка выдана не для этой операции.
	ErrWrongLinkType = errors.New("access link has wrong type")
	// ErrAnotherSessionActive означает, что по ссылке уже открыта активная сессия.
	ErrAnotherSessionActive = errors.New("another session is already active for this link")
)
