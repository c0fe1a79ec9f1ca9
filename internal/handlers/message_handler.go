package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/samber/lo"
	"github.com/thereayou/chatline/internal/chat"
	"github.com/thereayou/chatline/internal/database"
	"github.com/thereayou/chatline/internal/handlers/dto"
	"github.com/thereayou/chatline/internal/models"
	"github.com/thereayou/chatline/internal/rooms"
	"github.com/thereayou/chatline/internal/websocket"
)

// MessageHandler маршрутизирует входящие WebSocket-события: сообщения в
// конвейер, typing напрямую в диспетчер, подписки в hub после проверки
// членства
type MessageHandler struct {
	db         *database.Database
	hub        *websocket.Hub
	pipeline   *chat.Pipeline
	dispatcher *chat.Dispatcher
	resolver   *rooms.Resolver
}

func NewMessageHandler(db *database.Database, hub *websocket.Hub, pipeline *chat.Pipeline, dispatcher *chat.Dispatcher, resolver *rooms.Resolver) *MessageHandler {
	return &MessageHandler{
		db:         db,
		hub:        hub,
		pipeline:   pipeline,
		dispatcher: dispatcher,
		resolver:   resolver,
	}
}

func (h *MessageHandler) HandleMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypeMessage:
		return h.handleChatMessage(client, msg)

	case websocket.TypeTyping:
		return h.handleTyping(client, msg)

	case websocket.TypeRoomJoin:
		return h.handleRoomJoin(client, msg)

	case websocket.TypeRoomLeave:
		return h.handleRoomLeave(client, msg)

	default:
		log.Printf("Unknown message type: %s", msg.Type)
		return nil
	}
}

func (h *MessageHandler) handleChatMessage(client *websocket.Client, msg *websocket.Message) error {
	if msg.RoomID == nil {
		return websocket.ErrInvalidMessage
	}

	var payload dto.MessagePayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return err
	}

	kind := payload.Kind
	if kind == "" {
		kind = models.KindText
	}

	user, err := h.db.GetUser(client.UserID.String())
	if err != nil {
		log.Printf("Failed to get user info: %v", err)
		return err
	}

	_, deliveries, err := h.pipeline.Submit(context.Background(), chat.Inbound{
		RoomID:       *msg.RoomID,
		Sender:       client.UserID,
		SenderName:   user.Username,
		Content:      payload.Content,
		Kind:         kind,
		SenderAvatar: user.AvatarURL,
	})
	if err != nil {
		// Отправитель узнает только об ошибках до записи включительно;
		// дальше всё best-effort
		return err
	}

	report := h.dispatcher.Dispatch(deliveries)
	log.Printf("Dispatched message %d in room %s: %d broadcast, %d alarms (%d dropped)",
		deliveries.Message.Sequence, msg.RoomID, report.BroadcastTargets, report.AlarmsDelivered, report.AlarmsDropped)

	go h.db.UpdateLastSeen(client.UserID.String())

	return nil
}

func (h *MessageHandler) handleTyping(client *websocket.Client, msg *websocket.Message) error {
	if msg.RoomID == nil {
		return websocket.ErrInvalidMessage
	}

	if !client.IsInRoom(*msg.RoomID) {
		return websocket.ErrNotSubscribed
	}

	h.dispatcher.RelayTyping(*msg.RoomID, client.UserID, msg.Data)
	return nil
}

// handleRoomJoin подписывает соединение на комнату. Подписка отличается от
// членства: участник может быть не подписан, но подписчик обязан быть
// участником.
func (h *MessageHandler) handleRoomJoin(client *websocket.Client, msg *websocket.Message) error {
	if msg.RoomID == nil {
		return websocket.ErrInvalidMessage
	}

	members, err := h.resolver.MembersOf(context.Background(), *msg.RoomID)
	if err != nil {
		if errors.Is(err, rooms.ErrRoomNotFound) {
			return err
		}
		log.Printf("Failed to resolve members of %s: %v", msg.RoomID, err)
		return err
	}

	if !lo.Contains(members, client.UserID) {
		return chat.ErrNotAMember
	}

	h.hub.JoinRoom(client, *msg.RoomID)
	return nil
}

func (h *MessageHandler) handleRoomLeave(client *websocket.Client, msg *websocket.Message) error {
	if msg.RoomID == nil {
		return websocket.ErrInvalidMessage
	}

	h.hub.LeaveRoom(client, *msg.RoomID)
	return nil
}
