package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/chatline/internal/models"
	"github.com/thereayou/chatline/internal/rooms"
)

type memStore struct {
	mu       sync.Mutex
	messages []*models.Message
	seq      map[uuid.UUID]int64
	failing  bool
}

func newMemStore() *memStore {
	return &memStore{seq: make(map[uuid.UUID]int64)}
}

func (s *memStore) AppendMessage(_ context.Context, message *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failing {
		return errors.New("store is down")
	}

	s.seq[message.RoomID]++
	message.ID = uuid.New()
	message.Sequence = s.seq[message.RoomID]
	s.messages = append(s.messages, message)
	return nil
}

func (s *memStore) roomMessages(roomID uuid.UUID) []*models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Message
	for _, m := range s.messages {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	return out
}

type staticResolver struct {
	members map[uuid.UUID][]uuid.UUID
}

func (r staticResolver) MembersOf(_ context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	members, ok := r.members[roomID]
	if !ok {
		return nil, rooms.ErrRoomNotFound
	}
	return members, nil
}

func TestPipeline_Submit_BuildsAlarmsForOtherMembers(t *testing.T) {
	req := require.New(t)

	roomID := uuid.New()
	sender := uuid.New()
	memberA := uuid.New()
	memberB := uuid.New()
	memberC := uuid.New()

	store := newMemStore()
	pipeline := NewPipeline(store, staticResolver{members: map[uuid.UUID][]uuid.UUID{
		roomID: {sender, memberA, memberB, memberC},
	}})

	// When the sender submits a text message
	message, deliveries, err := pipeline.Submit(context.Background(), Inbound{
		RoomID:     roomID,
		Sender:     sender,
		SenderName: "alice",
		Content:    "hello everyone",
		Kind:       models.KindText,
	})

	// Then one message is persisted with sequence 1
	req.NoError(err)
	req.EqualValues(1, message.Sequence)
	req.Len(store.roomMessages(roomID), 1)

	// And exactly one alarm per other member, never one for the sender
	req.Len(deliveries.Alarms, 3)
	receivers := make(map[uuid.UUID]bool)
	for _, alarm := range deliveries.Alarms {
		req.NotEqual(sender, alarm.Receiver)
		req.Equal("alice", alarm.SenderName)
		req.Equal(roomID, alarm.RoomID)
		receivers[alarm.Receiver] = true
	}
	req.Len(receivers, 3)

	// And the broadcast carries the assigned sequence
	req.EqualValues(1, deliveries.Broadcast.Sequence)
	req.Equal("hello everyone", deliveries.Broadcast.Content)
}

func TestPipeline_Submit_NonMemberRejectedWithoutSideEffects(t *testing.T) {
	req := require.New(t)

	roomID := uuid.New()
	outsider := uuid.New()

	store := newMemStore()
	pipeline := NewPipeline(store, staticResolver{members: map[uuid.UUID][]uuid.UUID{
		roomID: {uuid.New(), uuid.New()},
	}})

	_, deliveries, err := pipeline.Submit(context.Background(), Inbound{
		RoomID:     roomID,
		Sender:     outsider,
		SenderName: "mallory",
		Content:    "let me in",
		Kind:       models.KindText,
	})

	req.ErrorIs(err, ErrNotAMember)
	req.Nil(deliveries)
	req.Empty(store.messages)
}

func TestPipeline_Submit_UnknownRoom(t *testing.T) {
	req := require.New(t)

	store := newMemStore()
	pipeline := NewPipeline(store, staticResolver{members: map[uuid.UUID][]uuid.UUID{}})

	_, _, err := pipeline.Submit(context.Background(), Inbound{
		RoomID:     uuid.New(),
		Sender:     uuid.New(),
		SenderName: "alice",
		Content:    "anyone here?",
		Kind:       models.KindText,
	})

	req.ErrorIs(err, rooms.ErrRoomNotFound)
	req.Empty(store.messages)
}

func TestPipeline_Submit_ValidationErrors(t *testing.T) {
	roomID := uuid.New()
	sender := uuid.New()

	store := newMemStore()
	pipeline := NewPipeline(store, staticResolver{members: map[uuid.UUID][]uuid.UUID{
		roomID: {sender},
	}})

	cases := []struct {
		name    string
		inbound Inbound
		wantErr error
	}{
		{
			name: "empty text",
			inbound: Inbound{
				RoomID: roomID, Sender: sender, SenderName: "alice",
				Content: "   ", Kind: models.KindText,
			},
			wantErr: ErrEmptyMessage,
		},
		{
			name: "image without reference",
			inbound: Inbound{
				RoomID: roomID, Sender: sender, SenderName: "alice",
				Content: "", Kind: models.KindImage,
			},
			wantErr: ErrMissingAttachment,
		},
		{
			name: "unknown kind",
			inbound: Inbound{
				RoomID: roomID, Sender: sender, SenderName: "alice",
				Content: "hi", Kind: models.MessageKind("sticker"),
			},
			wantErr: ErrInvalidKind,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)

			_, _, err := pipeline.Submit(context.Background(), tc.inbound)

			req.ErrorIs(err, tc.wantErr)
			req.Empty(store.messages)
		})
	}
}

func TestPipeline_Submit_StoreFailureIsRetryable(t *testing.T) {
	req := require.New(t)

	roomID := uuid.New()
	sender := uuid.New()

	store := newMemStore()
	store.failing = true
	pipeline := NewPipeline(store, staticResolver{members: map[uuid.UUID][]uuid.UUID{
		roomID: {sender, uuid.New()},
	}})

	in := Inbound{
		RoomID: roomID, Sender: sender, SenderName: "alice",
		Content: "first try", Kind: models.KindText,
	}

	_, deliveries, err := pipeline.Submit(context.Background(), in)

	// The failure is surfaced as a persistence error and nothing is dispatched
	req.ErrorIs(err, ErrPersistence)
	req.Nil(deliveries)

	// A fresh attempt by the caller succeeds once the store recovers
	store.failing = false
	message, _, err := pipeline.Submit(context.Background(), in)
	req.NoError(err)
	req.EqualValues(1, message.Sequence)
}

func TestPipeline_Submit_ConcurrentSequencesContiguous(t *testing.T) {
	req := require.New(t)

	roomID := uuid.New()
	senderA := uuid.New()
	senderB := uuid.New()

	store := newMemStore()
	pipeline := NewPipeline(store, staticResolver{members: map[uuid.UUID][]uuid.UUID{
		roomID: {senderA, senderB},
	}})

	const perSender = 25

	var wg sync.WaitGroup
	for _, sender := range []uuid.UUID{senderA, senderB} {
		wg.Add(1)
		go func(sender uuid.UUID) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				_, _, err := pipeline.Submit(context.Background(), Inbound{
					RoomID: roomID, Sender: sender, SenderName: "someone",
					Content: "msg", Kind: models.KindText,
				})
				require.NoError(t, err)
			}
		}(sender)
	}
	wg.Wait()

	// Sequence numbers form a contiguous strictly increasing series from 1
	messages := store.roomMessages(roomID)
	req.Len(messages, 2*perSender)

	seen := make(map[int64]bool)
	for _, m := range messages {
		req.False(seen[m.Sequence], "sequence %d assigned twice", m.Sequence)
		seen[m.Sequence] = true
	}
	for i := int64(1); i <= 2*perSender; i++ {
		req.True(seen[i], "sequence %d missing", i)
	}
}

func TestContentPreview_TruncatesLongText(t *testing.T) {
	req := require.New(t)

	long := strings.Repeat("я", 200)
	preview := contentPreview(Inbound{Content: long, Kind: models.KindText})

	req.Less(len([]rune(preview)), 200)
	req.True(strings.HasSuffix(preview, "…"))

	// Attachments never leak the raw reference into the alarm
	imgPreview := contentPreview(Inbound{
		SenderName: "alice", Content: "/uploads/abc.png", Kind: models.KindImage,
	})
	req.NotContains(imgPreview, "/uploads/")
}
