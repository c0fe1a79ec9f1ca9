package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageKind закрытый набор видов сообщений
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindFile  MessageKind = "file"
)

// Valid проверяет, что вид сообщения входит в закрытый набор
func (k MessageKind) Valid() bool {
	switch k {
	case KindText, KindImage, KindFile:
		return true
	}
	return false
}

// Message неизменяемая единица переписки. Sequence назначается хранилищем
// при записи и строго возрастает в пределах комнаты.
type Message struct {
	ID         uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RoomID     uuid.UUID   `gorm:"not null;uniqueIndex:idx_room_sequence"`
	Sequence   int64       `gorm:"not null;uniqueIndex:idx_room_sequence"`
	UserID     uuid.UUID   `gorm:"not null"`
	SenderName string      `gorm:"not null"`
	Content    string      `gorm:"not null"`
	Kind       MessageKind `gorm:"type:varchar(16);not null;default:'text'"`
	CreatedAt  time.Time

	// Связи
	User User `gorm:"foreignKey:UserID"`
	Room Room `gorm:"foreignKey:RoomID"`
}
