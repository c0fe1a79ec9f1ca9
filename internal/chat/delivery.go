package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/chatline/internal/models"
)

// BroadcastPayload тело широковещательного сообщения для подписчиков комнаты
type BroadcastPayload struct {
	ID        uuid.UUID          `json:"id"`
	RoomID    uuid.UUID          `json:"room_id"`
	UserID    uuid.UUID          `json:"user_id"`
	Username  string             `json:"username"`
	Content   string             `json:"content"`
	Kind      models.MessageKind `json:"kind"`
	Sequence  int64              `json:"sequence"`
	CreatedAt time.Time          `json:"created_at"`
}

// Alarm персональное уведомление участнику комнаты о новом сообщении.
// Никогда не сохраняется: строится и отбрасывается в рамках одной рассылки.
type Alarm struct {
	Receiver           uuid.UUID `json:"receiver"`
	SenderName         string    `json:"sender_name"`
	RoomID             uuid.UUID `json:"room_id"`
	Content            string    `json:"content"`
	SenderProfileImage string    `json:"sender_profile_image,omitempty"`
}

// DeliverySet результат конвейера: одно широковещательное сообщение плюс
// по одному уведомлению на каждого участника кроме отправителя
type DeliverySet struct {
	Message   *models.Message
	Broadcast BroadcastPayload
	Alarms    []Alarm
}
