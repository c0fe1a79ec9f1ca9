package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/thereayou/chatline/internal/models"
	"github.com/thereayou/chatline/internal/rooms"
	"gorm.io/gorm"
)

func (d *Database) CreateRoom(room *models.Room) error {
	return d.db.Create(room).Error
}

func (d *Database) GetRoom(id string) (*models.Room, error) {
	var room models.Room
	if err := d.db.Preload("Members").First(&room, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (d *Database) GetUserRooms(userID string) ([]models.Room, error) {
	var user models.User
	if err := d.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}

	var roomList []models.Room
	err := d.db.
		Joins("JOIN room_members rm ON rm.room_id = rooms.id").
		Where("rm.user_id = ?", userID).
		Preload("Members").
		Find(&roomList).Error
	if err != nil {
		return nil, err
	}

	return roomList, nil
}

// RoomMemberIDs возвращает актуальный состав комнаты для рассылки уведомлений
func (d *Database) RoomMemberIDs(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	var room models.Room
	err := d.db.WithContext(ctx).First(&room, "id = ?", roomID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rooms.ErrRoomNotFound
		}
		return nil, err
	}

	var ids []uuid.UUID
	err = d.db.WithContext(ctx).
		Table("room_members").
		Where("room_id = ?", roomID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (d *Database) AddUserToRoom(userID, roomID string) error {
	var user models.User
	var room models.Room

	if err := d.db.First(&user, "id = ?", userID).Error; err != nil {
		return err
	}

	if err := d.db.First(&room, "id = ?", roomID).Error; err != nil {
		return err
	}

	return d.db.Model(&room).Association("Members").Append(&user)
}

func (d *Database) RemoveUserFromRoom(userID, roomID string) error {
	var user models.User
	var room models.Room

	if err := d.db.First(&user, "id = ?", userID).Error; err != nil {
		return err
	}

	if err := d.db.First(&room, "id = ?", roomID).Error; err != nil {
		return err
	}

	return d.db.Model(&room).Association("Members").Delete(&user)
}

func (d *Database) UpdateRoom(room *models.Room) error {
	return d.db.Save(room).Error
}

func (d *Database) DeleteRoom(id string) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Message{}, "room_id = ?", id).Error; err != nil {
			return err
		}

		var room models.Room
		if err := tx.First(&room, "id = ?", id).Error; err != nil {
			return err
		}

		if err := tx.Model(&room).Association("Members").Clear(); err != nil {
			return err
		}

		return tx.Delete(&room).Error
	})
}
