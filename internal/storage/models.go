package storage

import "time"

// Records are private to the storage package; the rest of the system only
// ever sees domain types.

type userRecord struct {
	ID           string `gorm:"primaryKey;size:36"`
	Username     string `gorm:"size:36;uniqueIndex;not null"`
	Email        string `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	CreatedAt    time.Time
}

func (userRecord) TableName() string { return "users" }

type roomRecord struct {
	ID           string `gorm:"primaryKey;size:36"`
	Name         string `gorm:"size:50;not null"`
	Code         string `gorm:"size:6;uniqueIndex;not null"`
	CreatedBy    string `gorm:"size:36;not null;index"`
	CreatedAt    time.Time
	LastActivity time.Time
}

func (roomRecord) TableName() string { return "rooms" }

// memberRecord is durable membership, distinct from live presence.
// The composite key makes AddMember naturally idempotent.
type memberRecord struct {
	RoomID string `gorm:"primaryKey;size:36"`
	UserID string `gorm:"primaryKey;size:36;index"`
}

func (memberRecord) TableName() string { return "room_members" }

// messageRecord keys on an autoincrement Seq so that listing order is
// store-write order even when timestamps collide.
type messageRecord struct {
	Seq       int64  `gorm:"primaryKey;autoIncrement"`
	ID        string `gorm:"size:36;uniqueIndex;not null"`
	RoomID    string `gorm:"size:36;index;not null"`
	UserID    string `gorm:"size:36;not null"`
	Username  string `gorm:"size:36;not null"`
	Text      string `gorm:"size:500;not null"`
	CreatedAt time.Time
}

func (messageRecord) TableName() string { return "messages" }
