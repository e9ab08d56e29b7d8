package attemptsession

import (
	"sync"
	"time"
)

// ExpiryClock — часы истечения времени попытки. Момент окончания вычисляется
// из назначенного сервером StartedAt и фиксированной продолжительности,
// поэтому перезагрузка страницы посреди попытки восстанавливает тот же
// endTime, а не отсчитывает время заново от свежего "now".
//
// Часы — ресурс с явным владением: Stop обязателен на каждом пути выхода
// сессии, чтобы периодическая задача не пережила свою сессию.
type ExpiryClock struct {
	endTime  time.Time
	interval time.Duration

	// onTick вызывается на каждом тике с оставшимися секундами
	onTick func(remainingSeconds int)
	// onExpire вызывается ровно один раз в момент истечения
	onExpire func()

	mu    sync.Mutex
	fired bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewExpiryClock создает часы для попытки, начатой в startedAt с заданной
// продолжительностью. interval задает разрешение тиков (обычно 1 секунда).
func NewExpiryClock(startedAt time.Time, duration, interval time.Duration, onTick func(int), onExpire func()) *ExpiryClock {
	if interval <= 0 {
		interval = time.Second
	}
	return &ExpiryClock{
		endTime:  startedAt.Add(duration),
		interval: interval,
		onTick:   onTick,
		onExpire: onExpire,
		stopCh:   make(chan struct{}),
	}
}

// RemainingSeconds возвращает оставшееся время в секундах (ceil, не ниже 0)
func (c *ExpiryClock) RemainingSeconds() int {
	remaining := time.Until(c.endTime)
	if remaining <= 0 {
		return 0
	}
	// Округление вверх: 29.2с осталось — показываем 30
	return int((remaining + time.Second - 1) / time.Second)
}

// Start запускает тики в фоновой горутине. Первая проверка выполняется
// немедленно: сессия, восстановленная уже после дедлайна, истекает на первом
// же тике, а не спустя еще одну полную продолжительность.
func (c *ExpiryClock) Start() {
	go c.run()
}

func (c *ExpiryClock) run() {
	if c.tick() {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if c.tick() {
				return
			}
		case <-c.stopCh:
			return
		}
	}
}

// tick выполняет одну проверку времени. Возвращает true, когда время истекло
// и дальнейшие тики не нужны.
func (c *ExpiryClock) tick() bool {
	remaining := c.RemainingSeconds()
	if remaining > 0 {
		if c.onTick != nil {
			c.onTick(remaining)
		}
		return false
	}

	// Событие истечения срабатывает ровно один раз, далее идемпотентно
	c.mu.Lock()
	alreadyFired := c.fired
	c.fired = true
	c.mu.Unlock()

	if !alreadyFired && c.onExpire != nil {
		c.onExpire()
	}
	return true
}

// Stop останавливает часы и освобождает таймер. Идемпотентен.
func (c *ExpiryClock) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}
