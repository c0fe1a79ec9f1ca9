package websocket

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, userID uuid.UUID) *Client {
	// Conn остается nil: пампы в юнит-тестах не запускаются
	return NewClient(hub, nil, userID)
}

func TestHub_SendToUserReachesAllDevices(t *testing.T) {
	req := require.New(t)

	hub := NewHub()
	userID := uuid.New()

	// Given a user with two live connections
	first := newTestClient(hub, userID)
	second := newTestClient(hub, userID)
	hub.registerClient(first)
	hub.registerClient(second)

	delivered := hub.SendToUser(userID, []byte("alarm"))

	req.Equal(2, delivered)
	req.Len(first.Send, 1)
	req.Len(second.Send, 1)
}

func TestHub_SendToRoomOnlySubscribers(t *testing.T) {
	req := require.New(t)

	hub := NewHub()
	roomID := uuid.New()

	subscriber := newTestClient(hub, uuid.New())
	bystander := newTestClient(hub, uuid.New())
	hub.registerClient(subscriber)
	hub.registerClient(bystander)

	// Only one of the two clients subscribes to the room
	hub.JoinRoom(subscriber, roomID)

	delivered := hub.SendToRoom(roomID, []byte("message"))

	req.Equal(1, delivered)
	req.Empty(bystander.Send)
}

func TestHub_UnregisteredClientTreatedAsAbsent(t *testing.T) {
	req := require.New(t)

	hub := NewHub()
	roomID := uuid.New()
	userID := uuid.New()

	client := newTestClient(hub, userID)
	hub.registerClient(client)
	hub.JoinRoom(client, roomID)

	// When the client disconnects
	hub.unregisterClient(client)

	// Then pushes become safe no-ops, not errors
	req.Equal(0, hub.SendToRoom(roomID, []byte("message")))
	req.Equal(0, hub.SendToUser(userID, []byte("alarm")))
	req.Empty(hub.GetRoomUsers(roomID))
}

func TestHub_UnregisterTwiceIsSafe(t *testing.T) {
	req := require.New(t)

	hub := NewHub()
	client := newTestClient(hub, uuid.New())
	hub.registerClient(client)

	hub.unregisterClient(client)
	req.NotPanics(func() {
		hub.unregisterClient(client)
	})
}

func TestHub_FullQueueDropsWithoutBlocking(t *testing.T) {
	req := require.New(t)

	hub := NewHub()
	roomID := uuid.New()

	stalled := newTestClient(hub, uuid.New())
	healthy := newTestClient(hub, uuid.New())
	hub.registerClient(stalled)
	hub.registerClient(healthy)
	hub.JoinRoom(stalled, roomID)
	hub.JoinRoom(healthy, roomID)

	// Given the stalled client's send queue is completely full
	for len(stalled.Send) < cap(stalled.Send) {
		stalled.Send <- []byte("backlog")
	}

	delivered := hub.SendToRoom(roomID, []byte("message"))

	// The slow client is skipped, the healthy one still gets the message
	req.Equal(1, delivered)
}

func TestClient_SendMessageAfterCloseFails(t *testing.T) {
	req := require.New(t)

	hub := NewHub()
	client := newTestClient(hub, uuid.New())
	hub.registerClient(client)
	hub.unregisterClient(client)

	err := client.SendMessage(TypeMessage, map[string]string{"content": "hi"})
	req.ErrorIs(err, ErrClientClosed)
}

func TestHub_GetRoomUsersDistinctByUser(t *testing.T) {
	req := require.New(t)

	hub := NewHub()
	roomID := uuid.New()
	userID := uuid.New()

	// Two connections of the same user in one room count as one user
	first := newTestClient(hub, userID)
	second := newTestClient(hub, userID)
	hub.registerClient(first)
	hub.registerClient(second)
	hub.JoinRoom(first, roomID)
	hub.JoinRoom(second, roomID)

	req.Len(hub.GetRoomUsers(roomID), 1)
	req.Len(hub.GetOnlineUsers(), 1)
}
