package model

import (
	"time"

	"github.com/google/uuid"
)

type GeneratedFile struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_files_session_path"`
	Name         string    `gorm:"type:text;not null"`
	Type         string    `gorm:"type:varchar(20);not null"`
	Content      string    `gorm:"type:text;not null"`
	RelativePath string    `gorm:"type:text;not null;uniqueIndex:idx_files_session_path"`
	AbsolutePath string    `gorm:"type:text;not null"`
	Size         int64     `gorm:"not null"`
	IsPublic     bool      `gorm:"default:false"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (GeneratedFile) TableName() string {
	return "generated_files"
}
