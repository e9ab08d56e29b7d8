package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/training-api/internal/domain/entity"
	"github.com/yourusername/training-api/internal/service/attemptsession"
)

// MockSessionGateway реализует attemptsession.Gateway
type MockSessionGateway struct {
	mock.Mock
}

func (m *MockSessionGateway) CheckLinkValidity(ctx context.Context, linkID string) (*attemptsession.LinkInfo, error) {
	args := m.Called(ctx, linkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*attemptsession.LinkInfo), args.Error(1)
}

func (m *MockSessionGateway) StartOrResumeAttempt(ctx context.Context, linkID string) (*entity.AssessmentAttempt, error) {
	args := m.Called(ctx, linkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AssessmentAttempt), args.Error(1)
}

func (m *MockSessionGateway) SaveAnswers(ctx context.Context, linkID string, answers []attemptsession.Answer) error {
	args := m.Called(ctx, linkID, answers)
	return args.Error(0)
}

func (m *MockSessionGateway) SubmitAttempt(ctx context.Context, linkID string) error {
	args := m.Called(ctx, linkID)
	return args.Error(0)
}

// stubManagedStart настраивает шлюз на успешный запуск сессии без лимита времени
func stubManagedStart(gateway *MockSessionGateway, linkID string) {
	startedAt := time.Now()
	gateway.On("CheckLinkValidity", mock.Anything, linkID).Return(&attemptsession.LinkInfo{
		Valid:    true,
		LinkType: entity.LinkTypeAssessment,
		Assessment: &entity.Assessment{
			ID:   "a1",
			Name: "Электробезопасность",
			Sections: []entity.Section{
				{ID: "s1", Sequence: 1, Questions: []entity.Question{
					{ID: "q1", SectionID: "s1", Type: entity.QuestionTypeFreeText},
				}},
			},
		},
	}, nil)
	gateway.On("StartOrResumeAttempt", mock.Anything, linkID).Return(&entity.AssessmentAttempt{
		ID: "at1", LinkID: linkID, Status: entity.AttemptStatusInProgress, StartedAt: &startedAt,
	}, nil)
}

func TestSessionManager_OpenAndClose(t *testing.T) {
	// Arrange
	gateway := new(MockSessionGateway)
	cacheRepo := new(MockCacheRepository)
	stubManagedStart(gateway, "link-1")
	cacheRepo.On("SetNX", "session_lock:link-1", mock.Anything, mock.Anything).Return(true, nil)
	cacheRepo.On("Delete", "session_lock:link-1").Return(nil)

	manager := NewSessionManager(gateway, cacheRepo, nil)

	// Act
	session, err := manager.Open(context.Background(), "link-1", attemptsession.NoOpSink{})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, attemptsession.StatusInProgress, session.State().Status)
	assert.Equal(t, 1, manager.ActiveCount())

	manager.Close("link-1")
	assert.Equal(t, 0, manager.ActiveCount())
	cacheRepo.AssertCalled(t, "Delete", "session_lock:link-1")
}

func TestSessionManager_SecondOpenRejected(t *testing.T) {
	// Arrange
	gateway := new(MockSessionGateway)
	cacheRepo := new(MockCacheRepository)
	stubManagedStart(gateway, "link-1")
	cacheRepo.On("SetNX", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	cacheRepo.On("Delete", mock.Anything).Return(nil)

	manager := NewSessionManager(gateway, cacheRepo, nil)
	_, err := manager.Open(context.Background(), "link-1", attemptsession.NoOpSink{})
	require.NoError(t, err)
	defer manager.Close("link-1")

	// Act: повторное открытие той же ссылки
	_, err = manager.Open(context.Background(), "link-1", attemptsession.NoOpSink{})

	// Assert
	assert.ErrorIs(t, err, ErrAnotherSessionActive)
	assert.Equal(t, 1, manager.ActiveCount())
}

func TestSessionManager_LockHeldByAnotherInstance(t *testing.T) {
	// Arrange: SETNX не прошел — сессия открыта на другом инстансе
	gateway := new(MockSessionGateway)
	cacheRepo := new(MockCacheRepository)
	cacheRepo.On("SetNX", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	manager := NewSessionManager(gateway, cacheRepo, nil)

	// Act
	_, err := manager.Open(context.Background(), "link-1", attemptsession.NoOpSink{})

	// Assert: до шлюза дело не дошло
	assert.ErrorIs(t, err, ErrAnotherSessionActive)
	assert.Equal(t, 0, manager.ActiveCount())
	gateway.AssertNotCalled(t, "CheckLinkValidity", mock.Anything, mock.Anything)
}

func TestSessionManager_StartFailureReleasesLock(t *testing.T) {
	// Arrange: ссылка невалидна, запуск сессии падает
	gateway := new(MockSessionGateway)
	cacheRepo := new(MockCacheRepository)
	gateway.On("CheckLinkValidity", mock.Anything, "link-1").Return(&attemptsession.LinkInfo{Valid: false}, nil)
	cacheRepo.On("SetNX", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	cacheRepo.On("Delete", "session_lock:link-1").Return(nil)

	manager := NewSessionManager(gateway, cacheRepo, nil)

	// Act
	_, err := manager.Open(context.Background(), "link-1", attemptsession.NoOpSink{})

	// Assert: блокировка снята, слот свободен
	assert.ErrorIs(t, err, attemptsession.ErrLinkInvalid)
	assert.Equal(t, 0, manager.ActiveCount())
	cacheRepo.AssertCalled(t, "Delete", "session_lock:link-1")
}

func TestSessionManager_Shutdown(t *testing.T) {
	// Arrange: две активные сессии
	gateway := new(MockSessionGateway)
	cacheRepo := new(MockCacheRepository)
	stubManagedStart(gateway, "link-1")
	stubManagedStart(gateway, "link-2")
	cacheRepo.On("SetNX", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	cacheRepo.On("Delete", mock.Anything).Return(nil)

	manager := NewSessionManager(gateway, cacheRepo, nil)
	_, err := manager.Open(context.Background(), "link-1", attemptsession.NoOpSink{})
	require.NoError(t, err)
	_, err = manager.Open(context.Background(), "link-2", attemptsession.NoOpSink{})
	require.NoError(t, err)

	// Act
	manager.Shutdown()

	// Assert
	assert.Equal(t, 0, manager.ActiveCount())
}
