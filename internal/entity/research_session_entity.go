package entity

import (
	"time"

	"github.com/google/uuid"
)

type ResearchSession struct {
	Id              uuid.UUID
	UserId          uuid.UUID
	Question        string
	Status          string
	Progress        int
	StateData       []byte // serialized pipeline state snapshot
	OutputPath      string
	FinalReportFile *string
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}
