package repository

import "errors"

var (
	// ErrAttemptAlreadySubmitted означает, что попытка уже находится в статусе submitted.
	ErrAttemptAlreadySubmitted = errors.New("attempt is already submitted")
	// ErrAttemptDeadlinePassed означает, что дедлайн попытки с лимитом времени уже прошел.
	ErrAttemptDeadlinePassed = errors.New("attempt deadline has passed")
)
