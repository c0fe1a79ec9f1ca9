package models

import (
	"time"

	"github.com/google/uuid"
)

// User профиль пользователя. Username используется как отображаемое имя
// в рассылках и уведомлениях.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	AvatarURL    string
	LastSeenAt   time.Time
	CreatedAt    time.Time
}
