package entity

import (
	"time"

	"github.com/google/uuid"
)

type GeneratedFile struct {
	Id           uuid.UUID
	SessionId    uuid.UUID
	Name         string
	Type         string // "markdown" | "html" | "json"
	Content      string
	RelativePath string
	AbsolutePath string
	Size         int64
	IsPublic     bool
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}
