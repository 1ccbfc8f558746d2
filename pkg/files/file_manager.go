package files

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"deepresearch-be/internal/entity"
	"deepresearch-be/internal/pkg/logger"
	"deepresearch-be/internal/repository/contract"
	"deepresearch-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// TreeNode is one entry of a session's file tree. Directories carry
// children, files carry path and size.
type TreeNode struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Path     string      `json:"path,omitempty"`
	Size     int64       `json:"size,omitempty"`
	FileType string      `json:"fileType,omitempty"`
	Children []*TreeNode `json:"children,omitempty"`
}

// FileManager writes research artifacts for one session to disk under
// <outputDir>/<sessionId>/ and mirrors each write into the generated
// files table so listings survive restarts.
type FileManager struct {
	outputDir string
	fileRepo  contract.GeneratedFileRepository
	markdown  goldmark.Markdown
	log       logger.ILogger
}

func NewFileManager(outputDir string, fileRepo contract.GeneratedFileRepository, log logger.ILogger) *FileManager {
	return &FileManager{
		outputDir: outputDir,
		fileRepo:  fileRepo,
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
		log:       log,
	}
}

func (f *FileManager) sessionDir(sessionId uuid.UUID) string {
	return filepath.Join(f.outputDir, sessionId.String())
}

// EnsureSessionDir creates the session directory and its standard
// subdirectories (assets, data, sections).
func (f *FileManager) EnsureSessionDir(sessionId uuid.UUID) error {
	base := f.sessionDir(sessionId)
	for _, dir := range []string{base, filepath.Join(base, "assets"), filepath.Join(base, "data"), filepath.Join(base, "sections")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create session directory: %w", err)
		}
	}
	return nil
}

// Save writes content to disk at the session-relative path and upserts
// the matching database record. Saving the same path twice replaces the
// previous version.
func (f *FileManager) Save(ctx context.Context, sessionId uuid.UUID, relativePath, name, fileType, content string) (*entity.GeneratedFile, error) {
	absolutePath := filepath.Join(f.sessionDir(sessionId), filepath.FromSlash(relativePath))
	if err := os.MkdirAll(filepath.Dir(absolutePath), 0o755); err != nil {
		return nil, fmt.Errorf("create file directory: %w", err)
	}
	if err := os.WriteFile(absolutePath, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	file := &entity.GeneratedFile{
		Id:           uuid.New(),
		SessionId:    sessionId,
		Name:         name,
		Type:         fileType,
		Content:      content,
		RelativePath: relativePath,
		AbsolutePath: absolutePath,
		Size:         int64(len(content)),
		IsPublic:     true,
	}
	if err := f.fileRepo.Upsert(ctx, file); err != nil {
		return nil, fmt.Errorf("record file: %w", err)
	}
	return file, nil
}

// Read returns the on-disk content of a session file, or nil when the
// file does not exist.
func (f *FileManager) Read(sessionId uuid.UUID, relativePath string) ([]byte, error) {
	absolutePath := filepath.Join(f.sessionDir(sessionId), filepath.FromSlash(relativePath))
	data, err := os.ReadFile(absolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (f *FileManager) List(ctx context.Context, sessionId uuid.UUID) ([]*entity.GeneratedFile, error) {
	return f.fileRepo.FindAll(ctx, specification.BySessionID{SessionID: sessionId}, specification.OrderBy{Field: "relative_path"})
}

// FileTree builds the nested directory view of a session's files from
// their relative paths.
func (f *FileManager) FileTree(ctx context.Context, sessionId uuid.UUID) (*TreeNode, error) {
	fileList, err := f.List(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	root := &TreeNode{Name: sessionId.String(), Type: "directory"}
	for _, file := range fileList {
		parts := strings.Split(file.RelativePath, "/")
		current := root
		for i, part := range parts {
			if i == len(parts)-1 {
				current.Children = append(current.Children, &TreeNode{
					Name:     part,
					Type:     "file",
					Path:     file.RelativePath,
					Size:     file.Size,
					FileType: file.Type,
				})
				continue
			}
			var dir *TreeNode
			for _, child := range current.Children {
				if child.Type == "directory" && child.Name == part {
					dir = child
					break
				}
			}
			if dir == nil {
				dir = &TreeNode{Name: part, Type: "directory"}
				current.Children = append(current.Children, dir)
			}
			current = dir
		}
	}
	sortTree(root)
	return root, nil
}

func sortTree(node *TreeNode) {
	sort.Slice(node.Children, func(i, j int) bool {
		a, b := node.Children[i], node.Children[j]
		if a.Type != b.Type {
			return a.Type == "directory"
		}
		return a.Name < b.Name
	})
	for _, child := range node.Children {
		if child.Type == "directory" {
			sortTree(child)
		}
	}
}

// AssembleFinalBundle renders the report markdown into a standalone
// HTML bundle (index.html plus assets/styles.css and assets/script.js)
// and returns the relative path of the entry page.
func (f *FileManager) AssembleFinalBundle(ctx context.Context, sessionId uuid.UUID, title, reportMarkdown string) (string, error) {
	if err := f.EnsureSessionDir(sessionId); err != nil {
		return "", err
	}

	var rendered bytes.Buffer
	if err := f.markdown.Convert([]byte(reportMarkdown), &rendered); err != nil {
		return "", fmt.Errorf("render report markdown: %w", err)
	}

	htmlContent := fmt.Sprintf(reportHTMLTemplate,
		html.EscapeString(title),
		html.EscapeString(title),
		time.Now().Format("2006-01-02 15:04"),
		sessionId.String(),
		rendered.String(),
	)

	if _, err := f.Save(ctx, sessionId, "index.html", "index.html", "html", htmlContent); err != nil {
		return "", err
	}
	if _, err := f.Save(ctx, sessionId, "assets/styles.css", "styles.css", "css", reportCSS); err != nil {
		return "", err
	}
	if _, err := f.Save(ctx, sessionId, "assets/script.js", "script.js", "js", reportJS); err != nil {
		return "", err
	}

	// Keep the raw markdown next to the rendered page for export.
	if _, err := f.Save(ctx, sessionId, "data/report.md", "report.md", "markdown", reportMarkdown); err != nil {
		return "", err
	}

	return "index.html", nil
}

// SaveSection persists one researched section as a markdown artifact
// under sections/.
func (f *FileManager) SaveSection(ctx context.Context, sessionId uuid.UUID, sectionIndex int, title, content string) error {
	if err := f.EnsureSessionDir(sessionId); err != nil {
		return err
	}
	name := fmt.Sprintf("section-%d.md", sectionIndex)
	body := fmt.Sprintf("# %s\n\n%s\n", title, content)
	_, err := f.Save(ctx, sessionId, "sections/"+name, name, "markdown", body)
	return err
}

// DeleteAll removes the session directory and its database records.
func (f *FileManager) DeleteAll(ctx context.Context, sessionId uuid.UUID) error {
	if err := os.RemoveAll(f.sessionDir(sessionId)); err != nil {
		f.log.Warn("files", "failed to remove session directory", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}
	return f.fileRepo.DeleteBySessionId(ctx, sessionId)
}
