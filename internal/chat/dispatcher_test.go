package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/chatline/internal/models"
	ws "github.com/thereayou/chatline/internal/websocket"
)

type push struct {
	room    bool
	target  uuid.UUID
	payload []byte
}

// fakeRegistry записывает все отправки в порядке поступления
type fakeRegistry struct {
	mu         sync.Mutex
	pushes     []push
	userOnline map[uuid.UUID]int
	roomOnline map[uuid.UUID]int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		userOnline: make(map[uuid.UUID]int),
		roomOnline: make(map[uuid.UUID]int),
	}
}

func (r *fakeRegistry) SendToRoom(roomID uuid.UUID, payload []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, push{room: true, target: roomID, payload: payload})
	return r.roomOnline[roomID]
}

func (r *fakeRegistry) SendToUser(userID uuid.UUID, payload []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, push{room: false, target: userID, payload: payload})
	return r.userOnline[userID]
}

func decodeEnvelope(t *testing.T, payload []byte) ws.Message {
	t.Helper()
	var msg ws.Message
	require.NoError(t, json.Unmarshal(payload, &msg))
	return msg
}

func TestDispatcher_BroadcastPrecedesAlarms(t *testing.T) {
	req := require.New(t)

	roomID := uuid.New()
	sender := uuid.New()
	receiver := uuid.New()

	registry := newFakeRegistry()
	registry.roomOnline[roomID] = 2
	registry.userOnline[receiver] = 1

	dispatcher := NewDispatcher(registry)

	report := dispatcher.Dispatch(&DeliverySet{
		Message: &models.Message{ID: uuid.New(), RoomID: roomID, UserID: sender, Sequence: 1},
		Broadcast: BroadcastPayload{
			RoomID: roomID, UserID: sender, Content: "hi", Sequence: 1,
		},
		Alarms: []Alarm{
			{Receiver: receiver, SenderName: "alice", RoomID: roomID, Content: "hi"},
		},
	})

	req.Len(registry.pushes, 2)
	req.True(registry.pushes[0].room, "broadcast must be pushed before any alarm")
	req.False(registry.pushes[1].room)

	req.Equal(2, report.BroadcastTargets)
	req.Equal(1, report.AlarmsDelivered)
	req.Equal(0, report.AlarmsDropped)

	req.Equal(ws.TypeMessage, decodeEnvelope(t, registry.pushes[0].payload).Type)
	req.Equal(ws.TypeAlarm, decodeEnvelope(t, registry.pushes[1].payload).Type)
}

func TestDispatcher_OfflineRecipientAlarmDropped(t *testing.T) {
	req := require.New(t)

	roomID := uuid.New()
	offline := uuid.New()

	registry := newFakeRegistry()
	dispatcher := NewDispatcher(registry)

	report := dispatcher.Dispatch(&DeliverySet{
		Message:   &models.Message{ID: uuid.New(), RoomID: roomID, UserID: uuid.New(), Sequence: 7},
		Broadcast: BroadcastPayload{RoomID: roomID, Sequence: 7},
		Alarms: []Alarm{
			{Receiver: offline, SenderName: "alice", RoomID: roomID},
		},
	})

	// No subscribers and no live channels: everything is a silent no-op
	req.Equal(0, report.BroadcastTargets)
	req.Equal(0, report.AlarmsDelivered)
	req.Equal(1, report.AlarmsDropped)
}

// Сценарий: в комнате alice, bob и carol; у alice нет живого соединения у
// bob и carol по одному. Должно быть одно сообщение с sequence=1, одна
// рассылка в комнату и ровно два уведомления.
func TestDispatcher_RoomScenario(t *testing.T) {
	req := require.New(t)

	roomID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()

	store := newMemStore()
	pipeline := NewPipeline(store, staticResolver{members: map[uuid.UUID][]uuid.UUID{
		roomID: {alice, bob, carol},
	}})

	registry := newFakeRegistry()
	registry.roomOnline[roomID] = 2
	registry.userOnline[bob] = 1
	registry.userOnline[carol] = 1

	dispatcher := NewDispatcher(registry)

	message, deliveries, err := pipeline.Submit(context.Background(), Inbound{
		RoomID: roomID, Sender: alice, SenderName: "alice",
		Content: "hi", Kind: models.KindText,
	})
	req.NoError(err)
	req.EqualValues(1, message.Sequence)
	req.Len(store.roomMessages(roomID), 1)

	report := dispatcher.Dispatch(deliveries)

	req.Equal(2, report.BroadcastTargets)
	req.Equal(2, report.AlarmsDelivered)
	req.Equal(0, report.AlarmsDropped)

	// Alarms went to bob and carol only
	alarmTargets := make(map[uuid.UUID]bool)
	for _, p := range registry.pushes[1:] {
		req.False(p.room)
		alarmTargets[p.target] = true
	}
	req.True(alarmTargets[bob])
	req.True(alarmTargets[carol])
	req.False(alarmTargets[alice])
}

func TestDispatcher_RelayTypingNeverPersisted(t *testing.T) {
	req := require.New(t)

	roomID := uuid.New()
	sender := uuid.New()

	store := newMemStore()
	registry := newFakeRegistry()
	registry.roomOnline[roomID] = 3
	dispatcher := NewDispatcher(registry)

	for i := 0; i < 5; i++ {
		dispatcher.RelayTyping(roomID, sender, json.RawMessage(`{"typing":true}`))
	}

	// Typing events reach subscribers but leave no durable trace
	req.Len(registry.pushes, 5)
	for _, p := range registry.pushes {
		req.True(p.room)
		req.Equal(ws.TypeTyping, decodeEnvelope(t, p.payload).Type)
	}
	req.Empty(store.messages)
}
