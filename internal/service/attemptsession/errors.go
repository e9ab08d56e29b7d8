package attemptsession

import "errors"

// Ошибки сессии прохождения аттестации.
// Каждая из них — дискретный сигнал для слоя представления,
// а не исключение, всплывающее в несвязанное состояние UI.
var (
	// ErrLinkInvalid — ссылка отсутствует, истекла или имеет неверный тип.
	// Фатальна для сессии: попытка не создается.
	ErrLinkInvalid = errors.New("access link is invalid or expired")

	// ErrStartFailed — сбой при создании/возобновлении попытки.
	// Слушатель может повторить запуск вручную; локальное состояние не меняется.
	ErrStartFailed = errors.New("failed to start or resume attempt")

	// ErrSubmitFailed — сбой при отправке попытки. Сессия остается активной.
	ErrSubmitFailed = errors.New("failed to submit attempt")

	// ErrTimeUp — мутация после истечения времени. Не ошибка восстановления,
	// а сигнал о том, что действие проигнорировано.
	ErrTimeUp = errors.New("time is up")

	// ErrIncomplete — попытка отправки при неотвеченных вопросах.
	ErrIncomplete = errors.New("not all questions are answered")

	// ErrUnknownQuestion — ответ на вопрос, которого нет в аттестации.
	// Отклоняется до записи в хранилище: один чужой идентификатор в полном
	// наборе автосохранения отравил бы каждую последующую отправку.
	ErrUnknownQuestion = errors.New("question is not part of the assessment")

	// ErrUnknownChoice — выбран вариант, не принадлежащий вопросу.
	ErrUnknownChoice = errors.New("choice is not part of the question")

	// ErrNotActive — операция над сессией вне состояния in_progress.
	ErrNotActive = errors.New("session is not active")

	// ErrAlreadyStarted — повторный вызов Start для уже запущенной сессии.
	ErrAlreadyStarted = errors.New("session already started")
)
