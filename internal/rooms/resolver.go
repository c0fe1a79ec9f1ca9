package rooms

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MembershipSource источник актуального состава комнаты (справочник комнат)
type MembershipSource interface {
	RoomMemberIDs(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error)
}

type cacheEntry struct {
	members   []uuid.UUID
	expiresAt time.Time
}

// Resolver отдает состав комнаты с коротким TTL-кэшем, чтобы не ходить в
// справочник на каждое сообщение при всплесках трафика. Устаревание
// ограничено TTL; при явном изменении состава кэш сбрасывается через
// Invalidate.
type Resolver struct {
	source MembershipSource
	ttl    time.Duration

	mu      sync.RWMutex
	entries map[uuid.UUID]cacheEntry
}

func NewResolver(source MembershipSource, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Resolver{
		source:  source,
		ttl:     ttl,
		entries: make(map[uuid.UUID]cacheEntry),
	}
}

// MembersOf возвращает состав комнаты, из кэша если запись еще свежая
func (r *Resolver) MembersOf(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.RLock()
	entry, ok := r.entries[roomID]
	r.mu.RUnlock()

	if ok && time.Now().Before(entry.expiresAt) {
		return entry.members, nil
	}

	members, err := r.source.RoomMemberIDs(ctx, roomID)
	if err != nil {
		// Ошибки не кэшируем: несуществующая комната может появиться
		return nil, err
	}

	r.mu.Lock()
	r.entries[roomID] = cacheEntry{
		members:   members,
		expiresAt: time.Now().Add(r.ttl),
	}
	r.mu.Unlock()

	return members, nil
}

// Invalidate сбрасывает кэш комнаты при изменении её состава
func (r *Resolver) Invalidate(roomID uuid.UUID) {
	r.mu.Lock()
	delete(r.entries, roomID)
	r.mu.Unlock()
}
