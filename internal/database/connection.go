package database

import (
	"errors"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/thereayou/chatline/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func (d *Database) Connect() error {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return errors.New("DATABASE_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return err
	}

	err = db.AutoMigrate(&models.User{}, &models.Room{}, &models.Message{})
	if err != nil {
		return err
	}

	d.db = db
	if d.seqLocks == nil {
		d.seqLocks = make(map[uuid.UUID]*sync.Mutex)
	}

	return nil
}
