package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked indica que outra execução ainda segura a trava
var ErrLocked = errors.New("execução anterior ainda em andamento")

// só apaga a chave se o token ainda for o nosso
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock impede que duas execuções do cron enviem mensagens ao mesmo tempo
type RunLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	token  string
}

// NewRunLock conecta ao Redis em addr
func NewRunLock(addr string, db int, key string, ttl time.Duration) *RunLock {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RunLock{
		client: client,
		key:    key,
		ttl:    ttl,
		token:  uuid.NewString(),
	}
}

// Acquire tenta pegar a trava; devolve ErrLocked se ela já tem dono
func (l *RunLock) Acquire(ctx context.Context) error {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// Release solta a trava se ela ainda pertence a esta execução
func (l *RunLock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}

// Ping verifica a conexão com o Redis
func (l *RunLock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close fecha a conexão com o Redis
func (l *RunLock) Close() error {
	return l.client.Close()
}
