package repository

import (
	"time"
)

// CacheRepository определяет методы для работы с кешем.
// Используется для кеширования ссылок доступа и сессионных блокировок.
type CacheRepository interface {
	Set(key string, value interface{}, expiration time.Duration) error
	Get(key string) (string, error)
	Delete(key string) error
	SetJSON(key string, value interface{}, expiration time.Duration) error
	GetJSON(key string, dest interface{}) error
	// SetNX устанавливает значение, только если ключ не существует
	SetNX(key string, value interface{}, expiration time.Duration) (bool, error)
}
