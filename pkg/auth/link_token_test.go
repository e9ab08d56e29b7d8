package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/training-api/internal/domain/entity"
)

func TestLinkTokenService_GenerateAndParse(t *testing.T) {
	// Arrange
	svc, err := NewLinkTokenService("test-secret", 24)
	require.NoError(t, err)

	link := &entity.AccessLink{
		ID:       "link-1",
		LinkType: entity.LinkTypeAssessment,
	}

	// Act
	token, err := svc.Generate(link)
	require.NoError(t, err)
	claims, err := svc.Parse(token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "link-1", claims.LinkID)
	assert.Equal(t, entity.LinkTypeAssessment, claims.LinkType)
	assert.Equal(t, "training-api", claims.Issuer)
}

func TestLinkTokenService_TokenExpiryFollowsLink(t *testing.T) {
	// Arrange: срок токена совпадает со сроком ссылки
	svc, err := NewLinkTokenService("test-secret", 24)
	require.NoError(t, err)

	expiresAt := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	link := &entity.AccessLink{
		ID:        "link-1",
		LinkType:  entity.LinkTypeAssessment,
		ExpiresAt: &expiresAt,
	}

	// Act
	token, err := svc.Generate(link)
	require.NoError(t, err)
	claims, err := svc.Parse(token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, expiresAt.Unix(), claims.ExpiresAt.Unix())
}

func TestLinkTokenService_RejectsExpiredToken(t *testing.T) {
	// Arrange: ссылка истекла час назад
	svc, err := NewLinkTokenService("test-secret", 24)
	require.NoError(t, err)

	expiresAt := time.Now().Add(-time.Hour)
	link := &entity.AccessLink{
		ID:        "link-1",
		LinkType:  entity.LinkTypeAssessment,
		ExpiresAt: &expiresAt,
	}
	token, err := svc.Generate(link)
	require.NoError(t, err)

	// Act & Assert
	_, err = svc.Parse(token)
	assert.Error(t, err)
}

func TestLinkTokenService_RejectsForeignSignature(t *testing.T) {
	// Arrange: токен подписан другим секретом
	issuer, err := NewLinkTokenService("secret-a", 24)
	require.NoError(t, err)
	verifier, err := NewLinkTokenService("secret-b", 24)
	require.NoError(t, err)

	token, err := issuer.Generate(&entity.AccessLink{ID: "link-1", LinkType: entity.LinkTypeAssessment})
	require.NoError(t, err)

	// Act & Assert
	_, err = verifier.Parse(token)
	assert.Error(t, err)
}

func TestLinkTokenService_RequiresSecret(t *testing.T) {
	_, err := NewLinkTokenService("", 24)
	assert.Error(t, err)
}
