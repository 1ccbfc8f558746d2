package files

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"

	"deepresearch-be/internal/entity"
	"deepresearch-be/internal/repository/specification"
)

// fakeFileRepository keeps records in memory keyed by (session, path),
// mirroring the upsert semantics of the real table.
type fakeFileRepository struct {
	records map[string]*entity.GeneratedFile
}

func newFakeFileRepository() *fakeFileRepository {
	return &fakeFileRepository{records: make(map[string]*entity.GeneratedFile)}
}

func (r *fakeFileRepository) key(sessionId uuid.UUID, relativePath string) string {
	return sessionId.String() + "|" + relativePath
}

func (r *fakeFileRepository) Upsert(_ context.Context, file *entity.GeneratedFile) error {
	r.records[r.key(file.SessionId, file.RelativePath)] = file
	return nil
}

func (r *fakeFileRepository) FindOne(_ context.Context, specs ...specification.Specification) (*entity.GeneratedFile, error) {
	files := r.match(specs)
	if len(files) == 0 {
		return nil, nil
	}
	return files[0], nil
}

func (r *fakeFileRepository) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.GeneratedFile, error) {
	files := r.match(specs)
	sort.Slice(files, func(i, j int) bool { return files[i].RelativePath < files[j].RelativePath })
	return files, nil
}

func (r *fakeFileRepository) match(specs []specification.Specification) []*entity.GeneratedFile {
	var out []*entity.GeneratedFile
	for _, file := range r.records {
		keep := true
		for _, spec := range specs {
			if bySession, ok := spec.(specification.BySessionID); ok && file.SessionId != bySession.SessionID {
				keep = false
			}
		}
		if keep {
			out = append(out, file)
		}
	}
	return out
}

func (r *fakeFileRepository) DeleteBySessionId(_ context.Context, sessionId uuid.UUID) error {
	for key := range r.records {
		if strings.HasPrefix(key, sessionId.String()+"|") {
			delete(r.records, key)
		}
	}
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

func newTestManager(t *testing.T) (*FileManager, *fakeFileRepository) {
	t.Helper()
	repo := newFakeFileRepository()
	return NewFileManager(t.TempDir(), repo, nopLogger{}), repo
}

func TestSaveThenReadRoundTrip(t *testing.T) {
	fm, _ := newTestManager(t)
	sessionId := uuid.New()

	file, err := fm.Save(context.Background(), sessionId, "data/notes.md", "notes.md", "markdown", "# notes")
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if file.Size != int64(len("# notes")) {
		t.Errorf("Size = %d, want %d", file.Size, len("# notes"))
	}
	if !file.IsPublic {
		t.Error("saved artifact not marked public")
	}

	data, err := fm.Read(sessionId, "data/notes.md")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if string(data) != "# notes" {
		t.Errorf("Read() = %q, want %q", data, "# notes")
	}
}

func TestReadMissingFileReturnsNil(t *testing.T) {
	fm, _ := newTestManager(t)

	data, err := fm.Read(uuid.New(), "does/not/exist.md")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if data != nil {
		t.Errorf("Read() = %q, want nil", data)
	}
}

func TestSaveSamePathReplaces(t *testing.T) {
	fm, repo := newTestManager(t)
	sessionId := uuid.New()
	ctx := context.Background()

	if _, err := fm.Save(ctx, sessionId, "index.html", "index.html", "html", "v1"); err != nil {
		t.Fatalf("first Save() error: %v", err)
	}
	if _, err := fm.Save(ctx, sessionId, "index.html", "index.html", "html", "v2"); err != nil {
		t.Fatalf("second Save() error: %v", err)
	}

	files, err := fm.List(ctx, sessionId)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("List() returned %d records, want 1", len(files))
	}
	if files[0].Content != "v2" {
		t.Errorf("Content = %q, want %q", files[0].Content, "v2")
	}

	data, _ := fm.Read(sessionId, "index.html")
	if string(data) != "v2" {
		t.Errorf("on-disk content = %q, want %q", data, "v2")
	}
	if len(repo.records) != 1 {
		t.Errorf("repository holds %d records, want 1", len(repo.records))
	}
}

func TestFileTreeNesting(t *testing.T) {
	fm, _ := newTestManager(t)
	sessionId := uuid.New()
	ctx := context.Background()

	paths := []string{"index.html", "assets/styles.css", "assets/script.js", "sections/section-0.md"}
	for _, p := range paths {
		if _, err := fm.Save(ctx, sessionId, p, filepath.Base(p), "html", "x"); err != nil {
			t.Fatalf("Save(%q) error: %v", p, err)
		}
	}

	tree, err := fm.FileTree(ctx, sessionId)
	if err != nil {
		t.Fatalf("FileTree() error: %v", err)
	}
	if tree.Type != "directory" || tree.Name != sessionId.String() {
		t.Fatalf("root = %+v", tree)
	}
	if len(tree.Children) != 3 {
		t.Fatalf("root has %d children, want 3 (assets, sections, index.html)", len(tree.Children))
	}

	// Directories sort before files.
	if tree.Children[0].Name != "assets" || tree.Children[0].Type != "directory" {
		t.Errorf("child 0 = %+v, want assets directory", tree.Children[0])
	}
	if tree.Children[1].Name != "sections" || tree.Children[1].Type != "directory" {
		t.Errorf("child 1 = %+v, want sections directory", tree.Children[1])
	}
	if tree.Children[2].Name != "index.html" || tree.Children[2].Type != "file" {
		t.Errorf("child 2 = %+v, want index.html file", tree.Children[2])
	}

	assets := tree.Children[0]
	if len(assets.Children) != 2 {
		t.Fatalf("assets has %d children, want 2", len(assets.Children))
	}
	if assets.Children[0].Name != "script.js" || assets.Children[1].Name != "styles.css" {
		t.Errorf("assets children = %s, %s", assets.Children[0].Name, assets.Children[1].Name)
	}
	if assets.Children[0].Path != "assets/script.js" {
		t.Errorf("file path = %q, want %q", assets.Children[0].Path, "assets/script.js")
	}
}

func TestAssembleFinalBundle(t *testing.T) {
	fm, _ := newTestManager(t)
	sessionId := uuid.New()
	ctx := context.Background()

	entry, err := fm.AssembleFinalBundle(ctx, sessionId, "Go <Concurrency>", "# Report\n\nSome **bold** text.")
	if err != nil {
		t.Fatalf("AssembleFinalBundle() error: %v", err)
	}
	if entry != "index.html" {
		t.Errorf("entry = %q, want index.html", entry)
	}

	page, err := fm.Read(sessionId, "index.html")
	if err != nil || page == nil {
		t.Fatalf("Read(index.html) = %v, %v", page, err)
	}
	rendered := string(page)
	if !strings.Contains(rendered, "Go &lt;Concurrency&gt;") {
		t.Error("title not HTML-escaped in the rendered page")
	}
	if !strings.Contains(rendered, "<strong>bold</strong>") {
		t.Error("markdown body not rendered to HTML")
	}

	for _, artifact := range []string{"assets/styles.css", "assets/script.js", "data/report.md"} {
		data, err := fm.Read(sessionId, artifact)
		if err != nil || data == nil {
			t.Errorf("missing bundle artifact %q", artifact)
		}
	}

	raw, _ := fm.Read(sessionId, "data/report.md")
	if string(raw) != "# Report\n\nSome **bold** text." {
		t.Errorf("raw markdown altered: %q", raw)
	}
}

func TestDeleteAllRemovesDiskAndRecords(t *testing.T) {
	fm, repo := newTestManager(t)
	sessionId := uuid.New()
	ctx := context.Background()

	if err := fm.SaveSection(ctx, sessionId, 0, "Intro", "content"); err != nil {
		t.Fatalf("SaveSection() error: %v", err)
	}
	dir := filepath.Join(fm.outputDir, sessionId.String())
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("session dir missing before delete: %v", err)
	}

	if err := fm.DeleteAll(ctx, sessionId); err != nil {
		t.Fatalf("DeleteAll() error: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("session dir still present after delete")
	}
	if len(repo.records) != 0 {
		t.Errorf("repository still holds %d records", len(repo.records))
	}
}
