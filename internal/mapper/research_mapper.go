package mapper

import (
	"time"

	"deepresearch-be/internal/entity"
	"deepresearch-be/internal/model"

	"gorm.io/datatypes"
)

type ResearchMapper struct{}

func NewResearchMapper() *ResearchMapper {
	return &ResearchMapper{}
}

// Session Mappers

func (m *ResearchMapper) SessionToEntity(s *model.ResearchSession) *entity.ResearchSession {
	if s == nil {
		return nil
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.ResearchSession{
		Id:              s.Id,
		UserId:          s.UserId,
		Question:        s.Question,
		Status:          s.Status,
		Progress:        s.Progress,
		StateData:       []byte(s.StateData),
		OutputPath:      s.OutputPath,
		FinalReportFile: s.FinalReportFile,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       updatedAt,
	}
}

func (m *ResearchMapper) SessionToModel(s *entity.ResearchSession) *model.ResearchSession {
	if s == nil {
		return nil
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ResearchSession{
		Id:              s.Id,
		UserId:          s.UserId,
		Question:        s.Question,
		Status:          s.Status,
		Progress:        s.Progress,
		StateData:       datatypes.JSON(s.StateData),
		OutputPath:      s.OutputPath,
		FinalReportFile: s.FinalReportFile,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       updatedAt,
	}
}

// File Mappers

func (m *ResearchMapper) FileToEntity(f *model.GeneratedFile) *entity.GeneratedFile {
	if f == nil {
		return nil
	}

	var updatedAt *time.Time
	if !f.UpdatedAt.IsZero() {
		t := f.UpdatedAt
		updatedAt = &t
	}

	return &entity.GeneratedFile{
		Id:           f.Id,
		SessionId:    f.SessionId,
		Name:         f.Name,
		Type:         f.Type,
		Content:      f.Content,
		RelativePath: f.RelativePath,
		AbsolutePath: f.AbsolutePath,
		Size:         f.Size,
		IsPublic:     f.IsPublic,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    updatedAt,
	}
}

func (m *ResearchMapper) FileToModel(f *entity.GeneratedFile) *model.GeneratedFile {
	if f == nil {
		return nil
	}

	var updatedAt time.Time
	if f.UpdatedAt != nil {
		updatedAt = *f.UpdatedAt
	}

	return &model.GeneratedFile{
		Id:           f.Id,
		SessionId:    f.SessionId,
		Name:         f.Name,
		Type:         f.Type,
		Content:      f.Content,
		RelativePath: f.RelativePath,
		AbsolutePath: f.AbsolutePath,
		Size:         f.Size,
		IsPublic:     f.IsPublic,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    updatedAt,
	}
}
