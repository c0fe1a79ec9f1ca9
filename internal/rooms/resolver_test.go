package rooms

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	mu      sync.Mutex
	calls   int
	members map[uuid.UUID][]uuid.UUID
}

func (s *countingSource) RoomMemberIDs(_ context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	members, ok := s.members[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return members, nil
}

func (s *countingSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestResolver_CachesWithinTTL(t *testing.T) {
	req := require.New(t)

	roomID := uuid.New()
	member := uuid.New()
	source := &countingSource{members: map[uuid.UUID][]uuid.UUID{roomID: {member}}}
	resolver := NewResolver(source, time.Minute)

	// When the room is resolved twice in a row
	first, err := resolver.MembersOf(context.Background(), roomID)
	req.NoError(err)
	second, err := resolver.MembersOf(context.Background(), roomID)
	req.NoError(err)

	// Then the source is hit only once
	req.Equal(1, source.callCount())
	req.Equal(first, second)
	req.Contains(first, member)
}

func TestResolver_RefetchesAfterTTL(t *testing.T) {
	req := require.New(t)

	roomID := uuid.New()
	source := &countingSource{members: map[uuid.UUID][]uuid.UUID{roomID: {uuid.New()}}}
	resolver := NewResolver(source, 10*time.Millisecond)

	_, err := resolver.MembersOf(context.Background(), roomID)
	req.NoError(err)

	time.Sleep(30 * time.Millisecond)

	_, err = resolver.MembersOf(context.Background(), roomID)
	req.NoError(err)

	// Staleness is bounded by the TTL
	req.Equal(2, source.callCount())
}

func TestResolver_InvalidateForcesRefetch(t *testing.T) {
	req := require.New(t)

	roomID := uuid.New()
	oldMember := uuid.New()
	newMember := uuid.New()
	source := &countingSource{members: map[uuid.UUID][]uuid.UUID{roomID: {oldMember}}}
	resolver := NewResolver(source, time.Minute)

	members, err := resolver.MembersOf(context.Background(), roomID)
	req.NoError(err)
	req.Equal([]uuid.UUID{oldMember}, members)

	// When the roster changes and the cache is invalidated
	source.mu.Lock()
	source.members[roomID] = []uuid.UUID{oldMember, newMember}
	source.mu.Unlock()
	resolver.Invalidate(roomID)

	members, err = resolver.MembersOf(context.Background(), roomID)
	req.NoError(err)
	req.Len(members, 2)
	req.Equal(2, source.callCount())
}

func TestResolver_UnknownRoomNotCached(t *testing.T) {
	req := require.New(t)

	roomID := uuid.New()
	source := &countingSource{members: map[uuid.UUID][]uuid.UUID{}}
	resolver := NewResolver(source, time.Minute)

	_, err := resolver.MembersOf(context.Background(), roomID)
	req.ErrorIs(err, ErrRoomNotFound)

	// The room appears later and must be visible immediately
	source.mu.Lock()
	source.members[roomID] = []uuid.UUID{uuid.New()}
	source.mu.Unlock()

	members, err := resolver.MembersOf(context.Background(), roomID)
	req.NoError(err)
	req.Len(members, 1)
}
