package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/chatline/internal/models"
)

// MessagePayload структура для входящих сообщений
type MessagePayload struct {
	Content string             `json:"content"`
	Kind    models.MessageKind `json:"kind,omitempty"` // text, image, file
}

// MessageResponse структура для исходящих сообщений
type MessageResponse struct {
	ID        uuid.UUID          `json:"id"`
	RoomID    uuid.UUID          `json:"room_id"`
	UserID    uuid.UUID          `json:"user_id"`
	Content   string             `json:"content"`
	Kind      models.MessageKind `json:"kind"`
	Sequence  int64              `json:"sequence"`
	CreatedAt time.Time          `json:"created_at"`
	User      UserInfo           `json:"user"`
}

type UserInfo struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}
