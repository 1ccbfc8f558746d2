package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserOwnedBy filters records by owning user
type UserOwnedBy struct {
	UserID uuid.UUID
}

func (s UserOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// BySessionID filters artifacts by their research session
type BySessionID struct {
	SessionID uuid.UUID
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

// ByStatus filters sessions by lifecycle status
type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// ByRelativePath filters generated files by their session-relative path
type ByRelativePath struct {
	Path string
}

func (s ByRelativePath) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("relative_path = ?", s.Path)
}
