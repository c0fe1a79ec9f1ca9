package database

import (
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB

	// Пер-комнатные блокировки для назначения sequence.
	// Глобальной блокировки нет: разные комнаты не ждут друг друга.
	mu       sync.Mutex
	seqLocks map[uuid.UUID]*sync.Mutex
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{
		db:       db,
		seqLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// roomLock возвращает блокировку для конкретной комнаты, создавая её при
// первом обращении
func (d *Database) roomLock(roomID uuid.UUID) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()

	lock, ok := d.seqLocks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		d.seqLocks[roomID] = lock
	}
	return lock
}
