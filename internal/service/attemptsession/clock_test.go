package attemptsession

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpiryClock_RemainingSecondsCeil(t *testing.T) {
	// Arrange: попытка началась только что, лимит 30 минут
	clock := NewExpiryClock(time.Now(), 30*time.Minute, time.Second, nil, nil)

	// Assert: округление вверх — сразу после старта показываем полные 30 минут
	assert.InDelta(t, 1800, clock.RemainingSeconds(), 1)
}

func TestExpiryClock_RemainingSecondsNeverNegative(t *testing.T) {
	// Arrange: дедлайн давно позади
	clock := NewExpiryClock(time.Now().Add(-2*time.Hour), 30*time.Minute, time.Second, nil, nil)

	// Assert
	assert.Equal(t, 0, clock.RemainingSeconds())
}

func TestExpiryClock_FiresImmediatelyWhenPastDeadline(t *testing.T) {
	// Arrange: сессия восстановлена через 31 минуту после старта при лимите 30.
	// Истечение должно сработать на первом же тике, а не через еще 30 минут.
	expired := make(chan struct{}, 1)
	var fireCount int32

	clock := NewExpiryClock(
		time.Now().Add(-31*time.Minute),
		30*time.Minute,
		10*time.Millisecond,
		nil,
		func() {
			atomic.AddInt32(&fireCount, 1)
			expired <- struct{}{}
		},
	)
	defer clock.Stop()

	// Act
	clock.Start()

	// Assert
	select {
	case <-expired:
		// Событие пришло практически сразу
	case <-time.After(1 * time.Second):
		t.Fatal("Истечение не сработало на первом тике")
	}
	assert.Equal(t, 0, clock.RemainingSeconds())

	// Даем часам шанс выстрелить повторно — не должны
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fireCount), "Истечение должно сработать ровно один раз")
}

func TestExpiryClock_TicksWhileRunning(t *testing.T) {
	// Arrange: дедлайн далеко, часы должны тикать
	var tickCount int32
	clock := NewExpiryClock(
		time.Now(),
		time.Hour,
		10*time.Millisecond,
		func(remaining int) {
			atomic.AddInt32(&tickCount, 1)
			assert.Greater(t, remaining, 0)
		},
		nil,
	)

	// Act
	clock.Start()
	time.Sleep(60 * time.Millisecond)
	clock.Stop()

	// Даем возможный незавершенный тик дотикать
	time.Sleep(20 * time.Millisecond)

	// Assert
	ticked := atomic.LoadInt32(&tickCount)
	assert.Greater(t, ticked, int32(0), "Часы должны тикать до остановки")

	// После Stop тики прекращаются
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, ticked, atomic.LoadInt32(&tickCount), "После Stop тиков быть не должно")
}

func TestExpiryClock_StopIdempotent(t *testing.T) {
	clock := NewExpiryClock(time.Now(), time.Hour, 10*time.Millisecond, nil, nil)
	clock.Start()

	// Повторная остановка не должна паниковать
	clock.Stop()
	clock.Stop()
}
