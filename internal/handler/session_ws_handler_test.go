package handler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/training-api/internal/service/attemptsession"
)

func TestConnSink_DeliversEvents(t *testing.T) {
	// Arrange
	sink := newConnSink()

	// Act
	sink.Publish(attemptsession.Event{Type: attemptsession.EventStarted})
	sink.Publish(attemptsession.Event{Type: attemptsession.EventCountdown})

	// Assert: события доставлены в порядке публикации
	assert.Equal(t, attemptsession.EventStarted, (<-sink.events).Type)
	assert.Equal(t, attemptsession.EventCountdown, (<-sink.events).Type)
}

func TestConnSink_PublishAfterCloseIsDropped(t *testing.T) {
	// Arrange: teardown соединения закрывает sink, пока часы сессии еще могут
	// тикать — поздний тик обязан быть отброшен, а не уронить процесс
	sink := newConnSink()
	sink.Publish(attemptsession.Event{Type: attemptsession.EventStarted})
	sink.close()

	// Act & Assert
	assert.NotPanics(t, func() {
		sink.Publish(attemptsession.Event{
			Type: attemptsession.EventCountdown,
			Data: map[string]interface{}{"remaining_seconds": 42},
		})
	})

	// Канал писателя закрыт: доставленное до close читается, дальше — закрытие
	event, ok := <-sink.events
	require.True(t, ok)
	assert.Equal(t, attemptsession.EventStarted, event.Type)
	_, ok = <-sink.events
	assert.False(t, ok)
}

func TestConnSink_ConcurrentPublishAndClose(t *testing.T) {
	// Arrange: публикации с потока часов наперегонки с teardown
	sink := newConnSink()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			sink.Publish(attemptsession.Event{Type: attemptsession.EventCountdown})
		}
	}()

	// Act & Assert: close посреди потока публикаций не паникует
	assert.NotPanics(t, func() { sink.close() })
	wg.Wait()
}

func TestConnSink_CloseIdempotent(t *testing.T) {
	// Arrange
	sink := newConnSink()

	// Act & Assert: повторный close — no-op (teardown выполняется и в defer,
	// и на пути отказа открытия сессии)
	sink.close()
	assert.NotPanics(t, func() { sink.close() })
}

func TestConnSink_DropsWhenBufferFull(t *testing.T) {
	// Arrange: никто не читает канал
	sink := newConnSink()

	// Act: переполняем буфер с запасом
	assert.NotPanics(t, func() {
		for i := 0; i < cap(sink.events)+10; i++ {
			sink.Publish(attemptsession.Event{Type: attemptsession.EventProgress})
		}
	})

	// Assert: доставлено ровно cap, излишек отброшен без блокировки
	assert.Len(t, sink.events, cap(sink.events))
}
