package dto

import (
	"time"

	"deepresearch-be/pkg/files"
	"deepresearch-be/pkg/research"
)

type StartResearchRequest struct {
	Question string `json:"question" validate:"required,min=4"`
}

type StartResearchResponse struct {
	SessionId string `json:"sessionId"`
	Message   string `json:"message"`
}

// StreamEvent is one SSE frame of a research stream. Type is one of
// session_started, progress, completed, cancelled or error; the
// optional fields are populated depending on the type.
type StreamEvent struct {
	Type             string                     `json:"type"`
	SessionId        string                     `json:"sessionId"`
	Question         string                     `json:"question,omitempty"`
	Status           string                     `json:"status,omitempty"`
	Progress         int                        `json:"progress"`
	Analysis         *research.QuestionAnalysis `json:"analysis,omitempty"`
	Plan             *research.ResearchPlan     `json:"plan,omitempty"`
	GeneratedContent []research.ContentSection  `json:"generatedContent,omitempty"`
	FinalReport      string                     `json:"finalReport,omitempty"`
	HtmlFile         string                     `json:"htmlFile,omitempty"`
	FileTree         *files.TreeNode            `json:"fileTree,omitempty"`
	Error            string                     `json:"error,omitempty"`
}

type SessionStatusResponse struct {
	SessionId     string          `json:"sessionId"`
	UserId        string          `json:"userId"`
	Question      string          `json:"question"`
	Status        string          `json:"status"`
	Progress      int             `json:"progress"`
	OutputPath    string          `json:"outputPath"`
	FinalHtmlFile *string         `json:"finalHtmlFile"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     *time.Time      `json:"updatedAt"`
	State         *research.State `json:"state,omitempty"`
	FileTree      *files.TreeNode `json:"fileTree,omitempty"`
	Files         []FileSummary   `json:"files"`
}

type SessionSummary struct {
	Id        string     `json:"id"`
	Question  string     `json:"question"`
	Status    string     `json:"status"`
	Progress  int        `json:"progress"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

type HistoryResponse struct {
	Sessions []SessionSummary `json:"sessions"`
	Total    int              `json:"total"`
}

type CancelResponse struct {
	SessionId string `json:"sessionId"`
	Message   string `json:"message"`
}

type FileSummary struct {
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	RelativePath string    `json:"relativePath"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
}

type FileListResponse struct {
	SessionId string          `json:"sessionId"`
	Files     []FileSummary   `json:"files"`
	FileTree  *files.TreeNode `json:"fileTree"`
}
