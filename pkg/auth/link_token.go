package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/yourusername/training-api/internal/domain/entity"
)

// LinkClaims содержит поля токена ссылки доступа
type LinkClaims struct {
	LinkID   string `json:"link_id"`
	LinkType string `json:"link_type"`
	jwt.RegisteredClaims
}

// LinkTokenService выпускает и проверяет подписанные токены ссылок доступа.
// Токен — это то, что реально попадает в URL слушателя: он самодостаточен
// для аутентификации, но авторитетная проверка ссылки (отзыв, истечение)
// всегда выполняется по БД.
type LinkTokenService struct {
	secret     []byte
	defaultTTL time.Duration
}

// NewLinkTokenService создает сервис токенов ссылок.
// defaultTTLHours используется для ссылок без явного срока действия.
func NewLinkTokenService(secret string, defaultTTLHours int) (*LinkTokenService, error) {
	if secret == "" {
		return nil, errors.New("link token secret is required")
	}
	ttl := time.Duration(defaultTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &LinkTokenService{
		secret:     []byte(secret),
		defaultTTL: ttl,
	}, nil
}

// Generate выпускает подписанный токен для ссылки доступа. Срок жизни токена
// совпадает со сроком жизни ссылки; бессрочная ссылка получает defaultTTL.
func (s *LinkTokenService) Generate(link *entity.AccessLink) (string, error) {
	if link == nil || link.ID == "" {
		return "", errors.New("access link with ID is required for token generation")
	}

	expiresAt := time.Now().Add(s.defaultTTL)
	if link.ExpiresAt != nil {
		expiresAt = *link.ExpiresAt
	}

	claims := &LinkClaims{
		LinkID:   link.ID,
		LinkType: link.LinkType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "training-api",
			Subject:   link.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse проверяет подпись и срок действия токена ссылки
func (s *LinkTokenService) Parse(tokenString string) (*LinkClaims, error) {
	claims := &LinkClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid link token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid link token")
	}
	if claims.LinkID == "" {
		return nil, errors.New("link token has no link_id claim")
	}

	return claims, nil
}
