package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ResearchSession struct {
	Id              uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId          uuid.UUID      `gorm:"type:uuid;not null;index"` // User ownership for data isolation
	Question        string         `gorm:"type:text;not null"`
	Status          string         `gorm:"type:varchar(20);not null;index"`
	Progress        int            `gorm:"default:0"`
	StateData       datatypes.JSON `gorm:"type:jsonb"`
	OutputPath      string         `gorm:"type:text"`
	FinalReportFile *string        `gorm:"type:text"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
}

func (ResearchSession) TableName() string {
	return "research_sessions"
}
