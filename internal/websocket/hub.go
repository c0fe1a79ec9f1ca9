package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// MessageType определяет типы сообщений
type MessageType string

const (
	// Системные типы
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"

	// Доставка
	TypeMessage MessageType = "message"
	TypeTyping  MessageType = "typing"
	TypeAlarm   MessageType = "alarm"

	// Подписки на комнаты
	TypeRoomJoin  MessageType = "room_join"
	TypeRoomLeave MessageType = "room_leave"
	TypeRoomUsers MessageType = "room_users"
)

// Message конверт для всех сообщений по WebSocket
type Message struct {
	Type      MessageType     `json:"type"`
	RoomID    *uuid.UUID      `json:"room_id,omitempty"`
	UserID    uuid.UUID       `json:"user_id"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type Client struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
	Rooms  map[uuid.UUID]bool
	Hub    *Hub

	mu     sync.RWMutex
	closed bool
}

// Hub владеет отображением пользователь -> живые соединения и
// комната -> подписанные соединения. Все рассылки берут снимок под
// RLock, мутации держат полный Lock, поэтому отправка никогда не видит
// набор каналов в процессе изменения.
type Hub struct {
	clients map[uuid.UUID]*Client

	// Клиенты по UserID (один пользователь может иметь несколько соединений)
	userClients map[uuid.UUID]map[uuid.UUID]*Client

	// Клиенты, подписанные на комнаты
	rooms map[uuid.UUID]map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Контекст для graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub создает новый Hub
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[uuid.UUID]map[uuid.UUID]*Client),
		rooms:       make(map[uuid.UUID]map[uuid.UUID]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run запускает hub
func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.ping()
		}
	}
}

// Stop останавливает hub и закрывает все соединения
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		client.markClosed()
		close(client.Send)
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
	h.clients = make(map[uuid.UUID]*Client)
	h.userClients = make(map[uuid.UUID]map[uuid.UUID]*Client)
	h.rooms = make(map[uuid.UUID]map[uuid.UUID]*Client)
}

// Register регистрирует нового клиента
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister отменяет регистрацию клиента
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client

	if _, ok := h.userClients[client.UserID]; !ok {
		h.userClients[client.UserID] = make(map[uuid.UUID]*Client)
	}
	h.userClients[client.UserID][client.ID] = client

	log.Printf("Client registered: %s (User: %s)", client.ID, client.UserID)
}

// unregisterClient снимает клиента со всех подписок и закрывает его канал.
// Последующие рассылки этого клиента уже не увидят.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	client.mu.Lock()
	clientRooms := make([]uuid.UUID, 0, len(client.Rooms))
	for roomID := range client.Rooms {
		clientRooms = append(clientRooms, roomID)
	}
	client.mu.Unlock()

	for _, roomID := range clientRooms {
		h.removeFromRoomUnsafe(client, roomID)
	}

	if userClients, ok := h.userClients[client.UserID]; ok {
		delete(userClients, client.ID)
		if len(userClients) == 0 {
			delete(h.userClients, client.UserID)
		}
	}

	delete(h.clients, client.ID)
	client.markClosed()
	close(client.Send)

	log.Printf("Client unregistered: %s (User: %s)", client.ID, client.UserID)
}

// JoinRoom подписывает клиента на комнату
func (h *Hub) JoinRoom(client *Client, roomID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[uuid.UUID]*Client)
	}

	h.rooms[roomID][client.ID] = client
	client.mu.Lock()
	client.Rooms[roomID] = true
	client.mu.Unlock()

	// Отправляем список подписчиков новому клиенту
	h.sendRoomUsers(client, roomID)
}

// LeaveRoom отписывает клиента от комнаты
func (h *Hub) LeaveRoom(client *Client, roomID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoomUnsafe(client, roomID)
}

func (h *Hub) removeFromRoomUnsafe(client *Client, roomID uuid.UUID) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}

	if _, ok := room[client.ID]; !ok {
		return
	}

	delete(room, client.ID)
	client.mu.Lock()
	delete(client.Rooms, roomID)
	client.mu.Unlock()

	if len(room) == 0 {
		delete(h.rooms, roomID)
	}
}

// trySend кладет сообщение в очередь клиента. Закрытый клиент или полная
// очередь означают недоставку, но никогда не блокируют рассылку остальным.
func (h *Hub) trySend(client *Client, message []byte) bool {
	client.mu.RLock()
	defer client.mu.RUnlock()

	if client.closed {
		return false
	}

	select {
	case client.Send <- message:
		return true
	default:
		log.Printf("Client %s send queue full, dropping message", client.ID)
		return false
	}
}

// SendToUser отправляет сообщение на все живые соединения пользователя.
// Возвращает число соединений, принявших сообщение в очередь.
func (h *Hub) SendToUser(userID uuid.UUID, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	if clients, ok := h.userClients[userID]; ok {
		for _, client := range clients {
			if h.trySend(client, message) {
				delivered++
			}
		}
	}
	return delivered
}

// SendToRoom отправляет сообщение всем подписчикам комнаты.
// Возвращает число соединений, принявших сообщение в очередь.
func (h *Hub) SendToRoom(roomID uuid.UUID, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	if room, ok := h.rooms[roomID]; ok {
		for _, client := range room {
			if h.trySend(client, message) {
				delivered++
			}
		}
	}
	return delivered
}

func (h *Hub) sendRoomUsers(client *Client, roomID uuid.UUID) {
	users := make([]uuid.UUID, 0)

	if room, ok := h.rooms[roomID]; ok {
		userMap := make(map[uuid.UUID]bool)
		for _, c := range room {
			userMap[c.UserID] = true
		}

		for userID := range userMap {
			users = append(users, userID)
		}
	}

	msg := Message{
		Type:      TypeRoomUsers,
		RoomID:    &roomID,
		UserID:    client.UserID,
		Timestamp: time.Now(),
	}

	if data, err := json.Marshal(users); err == nil {
		msg.Data = data
		if msgData, err := json.Marshal(msg); err == nil {
			h.trySend(client, msgData)
		}
	}
}

func (h *Hub) ping() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msg := Message{
		Type:      TypePing,
		Timestamp: time.Now(),
	}

	if data, err := json.Marshal(msg); err == nil {
		for _, client := range h.clients {
			h.trySend(client, data)
		}
	}
}

// GetOnlineUsers возвращает список онлайн пользователей
func (h *Hub) GetOnlineUsers() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]uuid.UUID, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}

// GetRoomUsers возвращает список пользователей, подписанных на комнату
func (h *Hub) GetRoomUsers(roomID uuid.UUID) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	userMap := make(map[uuid.UUID]bool)
	if room, ok := h.rooms[roomID]; ok {
		for _, client := range room {
			userMap[client.UserID] = true
		}
	}

	users := make([]uuid.UUID, 0, len(userMap))
	for userID := range userMap {
		users = append(users, userID)
	}
	return users
}
