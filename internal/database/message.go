package database

import (
	"context"
	"time"

	"github.com/thereayou/chatline/internal/models"
	"gorm.io/gorm"
)

// AppendMessage записывает сообщение и назначает ему следующий sequence
// комнаты. Конкурентные записи в одну комнату сериализуются пер-комнатной
// блокировкой, поэтому серия sequence непрерывна и строго возрастает с 1.
func (d *Database) AppendMessage(ctx context.Context, message *models.Message) error {
	lock := d.roomLock(message.RoomID)
	lock.Lock()
	defer lock.Unlock()

	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int64
		err := tx.Model(&models.Message{}).
			Where("room_id = ?", message.RoomID).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&last).Error
		if err != nil {
			return err
		}

		message.Sequence = last + 1
		if message.CreatedAt.IsZero() {
			message.CreatedAt = time.Now()
		}

		return tx.Create(message).Error
	})
}

func (d *Database) GetMessage(id string) (*models.Message, error) {
	var message models.Message
	if err := d.db.First(&message, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// GetRoomMessages получает историю комнаты по sequence с пагинацией
func (d *Database) GetRoomMessages(roomID string, limit int, beforeSeq int64) ([]models.Message, error) {
	var messages []models.Message

	query := d.db.Where("room_id = ?", roomID)

	// Если указан beforeSeq, получаем сообщения до него
	if beforeSeq > 0 {
		query = query.Where("sequence < ?", beforeSeq)
	}

	err := query.
		Order("sequence DESC").
		Limit(limit).
		Preload("User").
		Find(&messages).Error

	if err != nil {
		return nil, err
	}

	// Разворачиваем порядок, чтобы старые сообщения были первыми
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
