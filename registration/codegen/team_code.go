// registration/codegen/team_code.go
package codegen

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	redisu "github.com/Ftotnem/HACKATHON-SERVICES/shared/redis"
	"github.com/redis/go-redis/v9"
)

// Charset is the alphabet team codes are drawn from.
const Charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	DefaultLength      = 6
	DefaultMaxAttempts = 10
)

var ErrExhausted = fmt.Errorf("no free team code after retries")

// Reserver claims a code so no other team can be handed the same one.
type Reserver interface {
	Reserve(ctx context.Context, code string) (bool, error)
}

// Generator produces unique uppercase team codes.
type Generator struct {
	length      int
	maxAttempts int
	reserver    Reserver
	intn        func(n int) int
}

// NewGenerator returns a Generator producing codes of the given length.
// A length below 1 falls back to DefaultLength.
func NewGenerator(length int, reserver Reserver) *Generator {
	if length < 1 {
		length = DefaultLength
	}
	return &Generator{
		length:      length,
		maxAttempts: DefaultMaxAttempts,
		reserver:    reserver,
		intn:        rand.Intn,
	}
}

// Generate draws random codes until one can be reserved.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code := g.random()
		ok, err := g.reserver.Reserve(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to reserve team code: %w", err)
		}
		if ok {
			return code, nil
		}
	}
	return "", ErrExhausted
}

func (g *Generator) random() string {
	var sb strings.Builder
	sb.Grow(g.length)
	for i := 0; i < g.length; i++ {
		sb.WriteByte(Charset[g.intn(len(Charset))])
	}
	return sb.String()
}

// setNXer is the slice of the redis client RedisReserver needs.
type setNXer interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisReserver reserves codes with SETNX so concurrent service instances
// never hand out the same code.
type RedisReserver struct {
	client setNXer
	ttl    time.Duration
}

// NewRedisReserver creates a RedisReserver. A zero ttl keeps reservations forever.
func NewRedisReserver(client redis.UniversalClient, ttl time.Duration) *RedisReserver {
	return &RedisReserver{client: client, ttl: ttl}
}

func (r *RedisReserver) Reserve(ctx context.Context, code string) (bool, error) {
	ok, err := r.client.SetNX(ctx, redisu.TeamCodeKey(code), time.Now().Unix(), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX for team code %s: %w", code, err)
	}
	return ok, nil
}

// LocalReserver reserves codes in process memory.
type LocalReserver struct {
	mu    sync.Mutex
	taken map[string]struct{}
}

func NewLocalReserver() *LocalReserver {
	return &LocalReserver{taken: make(map[string]struct{})}
}

func (l *LocalReserver) Reserve(_ context.Context, code string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.taken[code]; ok {
		return false, nil
	}
	l.taken[code] = struct{}{}
	return true, nil
}
