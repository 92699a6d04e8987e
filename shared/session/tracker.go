// shared/session/tracker.go
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ftotnem/HACKATHON-SERVICES/shared/logger"
	redisu "github.com/Ftotnem/HACKATHON-SERVICES/shared/redis"
	"github.com/redis/go-redis/v9"
)

// DefaultSessionTTL applies to tokens without an expiry.
const DefaultSessionTTL = 24 * time.Hour

type EventType string

const SignedIn EventType = "signed_in"

// Event notifies subscribers that an identity became active.
type Event struct {
	Type     EventType
	Identity Identity
	At       time.Time
}

// Marker records that an identity has been seen, reporting true only the
// first time within ttl.
type Marker interface {
	MarkSeen(ctx context.Context, email string, ttl time.Duration) (bool, error)
}

// Tracker fans out SignedIn events the first time a token's identity is seen.
type Tracker struct {
	marker Marker
	log    *logger.Logger

	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func NewTracker(marker Marker, log *logger.Logger) *Tracker {
	return &Tracker{marker: marker, log: log, subs: make(map[int]chan Event)}
}

// Subscribe registers a listener. The returned func unsubscribes and closes
// the channel. Events are dropped for listeners whose buffer is full.
func (t *Tracker) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	t.mu.Lock()
	id := t.next
	t.next++
	t.subs[id] = ch
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
			close(ch)
		})
	}
}

// Observe marks id as seen until expires and emits SignedIn if it was new.
func (t *Tracker) Observe(ctx context.Context, id Identity, expires time.Time) {
	ttl := DefaultSessionTTL
	if !expires.IsZero() {
		ttl = time.Until(expires)
	}
	if ttl <= 0 {
		return
	}

	fresh, err := t.marker.MarkSeen(ctx, id.Email, ttl)
	if err != nil {
		t.log.Warn("failed to mark session seen", "email", id.Email, "error", err)
		return
	}
	if !fresh {
		return
	}

	ev := Event{Type: SignedIn, Identity: id, At: time.Now()}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.subs {
		select {
		case ch <- ev:
		default:
			t.log.Warn("dropping session event for slow subscriber", "email", id.Email)
		}
	}
}

type setNXer interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisMarker stores first-seen markers in Redis with SETNX.
type RedisMarker struct {
	client setNXer
}

func NewRedisMarker(client redis.Cmdable) *RedisMarker {
	return &RedisMarker{client: client}
}

func (m *RedisMarker) MarkSeen(ctx context.Context, email string, ttl time.Duration) (bool, error) {
	ok, err := m.client.SetNX(ctx, redisu.SessionKey(email), time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX for session %s: %w", email, err)
	}
	return ok, nil
}

// LocalMarker keeps first-seen markers in process memory.
type LocalMarker struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

func NewLocalMarker() *LocalMarker {
	return &LocalMarker{expires: make(map[string]time.Time), now: time.Now}
}

func (m *LocalMarker) MarkSeen(_ context.Context, email string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if exp, ok := m.expires[email]; ok && now.Before(exp) {
		return false, nil
	}
	m.expires[email] = now.Add(ttl)
	return true, nil
}
