// Package storage persists users, rooms, durable room membership and the
// append-only message log behind a small interface the services consume.
// NotFound and uniqueness conflicts are surfaced as sentinel errors; anything
// else is a transient I/O failure the caller should treat as retryable.
package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/khadijauser/chat-app/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the sqlite database at dsn and migrates the schema.
// TranslateError makes gorm map driver unique-violations to ErrDuplicatedKey,
// which is what the room-code allocation retry relies on.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&userRecord{}, &roomRecord{}, &memberRecord{}, &messageRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	default:
		return err
	}
}

// --- users ---

func (s *Store) CreateUser(u *domain.User) error {
	rec := userRecord{
		ID:           string(u.ID),
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
	return mapErr(s.db.Create(&rec).Error)
}

func (s *Store) UserByEmail(email string) (*domain.User, error) {
	var rec userRecord
	if err := s.db.First(&rec, "email = ?", email).Error; err != nil {
		return nil, mapErr(err)
	}
	return rec.toDomain(), nil
}

func (s *Store) UserByID(id domain.UserID) (*domain.User, error) {
	var rec userRecord
	if err := s.db.First(&rec, "id = ?", string(id)).Error; err != nil {
		return nil, mapErr(err)
	}
	return rec.toDomain(), nil
}

func (r userRecord) toDomain() *domain.User {
	return &domain.User{
		ID:           domain.UserID(r.ID),
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}

// UserStats is what the profile screen renders.
type UserStats struct {
	RoomsCount    int64     `json:"roomsCount"`
	MessagesCount int64     `json:"messagesCount"`
	JoinedAt      time.Time `json:"joinedAt"`
}

func (s *Store) StatsOfUser(id domain.UserID) (*UserStats, error) {
	u, err := s.UserByID(id)
	if err != nil {
		return nil, err
	}
	var stats UserStats
	stats.JoinedAt = u.CreatedAt
	if err := s.db.Model(&memberRecord{}).Where("user_id = ?", string(id)).Count(&stats.RoomsCount).Error; err != nil {
		return nil, mapErr(err)
	}
	if err := s.db.Model(&messageRecord{}).Where("user_id = ?", string(id)).Count(&stats.MessagesCount).Error; err != nil {
		return nil, mapErr(err)
	}
	return &stats, nil
}

// --- rooms ---

// CreateRoom inserts the room and its creator membership atomically.
// A code collision surfaces as ErrConflict; the caller redraws and retries
// rather than checking first, so two concurrent creates can never share a code.
func (s *Store) CreateRoom(room *domain.Room) error {
	rec := roomRecord{
		ID:           string(room.ID),
		Name:         room.Name,
		Code:         room.Code,
		CreatedBy:    string(room.CreatedBy),
		CreatedAt:    room.CreatedAt,
		LastActivity: room.LastActivity,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		m := memberRecord{RoomID: rec.ID, UserID: rec.CreatedBy}
		return tx.Create(&m).Error
	})
	return mapErr(err)
}

func (s *Store) RoomByCode(code string) (*domain.Room, error) {
	var rec roomRecord
	if err := s.db.First(&rec, "code = ?", code).Error; err != nil {
		return nil, mapErr(err)
	}
	return s.withMembers(&rec)
}

func (s *Store) RoomByID(id domain.RoomID) (*domain.Room, error) {
	var rec roomRecord
	if err := s.db.First(&rec, "id = ?", string(id)).Error; err != nil {
		return nil, mapErr(err)
	}
	return s.withMembers(&rec)
}

func (s *Store) withMembers(rec *roomRecord) (*domain.Room, error) {
	var ids []string
	if err := s.db.Model(&memberRecord{}).Where("room_id = ?", rec.ID).Pluck("user_id", &ids).Error; err != nil {
		return nil, mapErr(err)
	}
	room := &domain.Room{
		ID:           domain.RoomID(rec.ID),
		Name:         rec.Name,
		Code:         rec.Code,
		CreatedBy:    domain.UserID(rec.CreatedBy),
		Members:      make([]domain.UserID, 0, len(ids)),
		CreatedAt:    rec.CreatedAt,
		LastActivity: rec.LastActivity,
	}
	for _, id := range ids {
		room.Members = append(room.Members, domain.UserID(id))
	}
	return room, nil
}

// AddMember is idempotent; membership only ever grows.
func (s *Store) AddMember(roomID domain.RoomID, userID domain.UserID) error {
	var count int64
	if err := s.db.Model(&roomRecord{}).Where("id = ?", string(roomID)).Count(&count).Error; err != nil {
		return mapErr(err)
	}
	if count == 0 {
		return ErrNotFound
	}
	m := memberRecord{RoomID: string(roomID), UserID: string(userID)}
	return mapErr(s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error)
}

// IsMember reports durable membership. A missing room is ErrNotFound, never
// just "not a member", so callers can tell the two apart.
func (s *Store) IsMember(roomID domain.RoomID, userID domain.UserID) (bool, error) {
	var count int64
	if err := s.db.Model(&roomRecord{}).Where("id = ?", string(roomID)).Count(&count).Error; err != nil {
		return false, mapErr(err)
	}
	if count == 0 {
		return false, ErrNotFound
	}
	err := s.db.Model(&memberRecord{}).
		Where("room_id = ? AND user_id = ?", string(roomID), string(userID)).
		Count(&count).Error
	if err != nil {
		return false, mapErr(err)
	}
	return count > 0, nil
}

// RoomsOfUser lists the rooms a user durably belongs to, most recently
// active first.
func (s *Store) RoomsOfUser(userID domain.UserID) ([]*domain.Room, error) {
	var recs []roomRecord
	err := s.db.
		Joins("JOIN room_members ON room_members.room_id = rooms.id").
		Where("room_members.user_id = ?", string(userID)).
		Order("rooms.last_activity DESC").
		Find(&recs).Error
	if err != nil {
		return nil, mapErr(err)
	}
	rooms := make([]*domain.Room, 0, len(recs))
	for i := range recs {
		room, err := s.withMembers(&recs[i])
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (s *Store) TouchActivity(roomID domain.RoomID, at time.Time) error {
	res := s.db.Model(&roomRecord{}).Where("id = ?", string(roomID)).Update("last_activity", at)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- messages ---

func (s *Store) AppendMessage(msg *domain.Message) error {
	rec := messageRecord{
		ID:        string(msg.ID),
		RoomID:    string(msg.RoomID),
		UserID:    string(msg.UserID),
		Username:  msg.Username,
		Text:      msg.Text,
		CreatedAt: msg.Timestamp,
	}
	return mapErr(s.db.Create(&rec).Error)
}

// ListMessages returns the last limit messages of a room in store-write
// order, oldest first.
func (s *Store) ListMessages(roomID domain.RoomID, limit int) ([]*domain.Message, error) {
	var recs []messageRecord
	err := s.db.Where("room_id = ?", string(roomID)).
		Order("seq DESC").Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, mapErr(err)
	}
	msgs := make([]*domain.Message, len(recs))
	for i := range recs {
		rec := &recs[len(recs)-1-i]
		msgs[i] = &domain.Message{
			ID:        domain.MessageID(rec.ID),
			RoomID:    domain.RoomID(rec.RoomID),
			UserID:    domain.UserID(rec.UserID),
			Username:  rec.Username,
			Text:      rec.Text,
			Timestamp: rec.CreatedAt,
		}
	}
	return msgs, nil
}
