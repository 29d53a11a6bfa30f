package cache

import (
	"errors"
	"time"
)

// ErrMiss indica que a chave não existe no cache
var ErrMiss = errors.New("cache: chave não encontrada")

// CacheService representa um cache chave/valor com expiração
type CacheService interface {
	// Get busca um valor; retorna ErrMiss quando a chave não existe
	Get(key string) ([]byte, error)

	// Set grava um valor com tempo de expiração
	Set(key string, value []byte, expiration time.Duration) error

	// Delete remove um valor
	Delete(key string) error
}
