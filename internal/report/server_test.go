package report_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrWong99/narralign/internal/report"
)

func writeChapter(t *testing.T, baseDir, name string) {
	t.Helper()
	dir := filepath.Join(baseDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(filepath.Join(dir, name+report.ReportSuffix))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rep := sampleReport()
	rep.ChapterName = name
	rep.Created = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	if err := report.Render(f, rep); err != nil {
		t.Fatal(err)
	}
}

func newTestServer(t *testing.T) (*report.Server, string) {
	t.Helper()
	baseDir := t.TempDir()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return report.NewServer(baseDir, log), baseDir
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != 200 {
		t.Fatalf("GET /health = %d, want 200", rec.Code)
	}
}

func TestServer_ChaptersNaturalOrder(t *testing.T) {
	t.Parallel()

	srv, baseDir := newTestServer(t)
	for _, name := range []string{"10 - the return", "2 - the door", "1 - the forest", "appendix"} {
		writeChapter(t, baseDir, name)
	}
	// Directories without a report file are not chapters.
	if err := os.MkdirAll(filepath.Join(baseDir, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/chapters", nil))
	if rec.Code != 200 {
		t.Fatalf("GET /api/chapters = %d, want 200", rec.Code)
	}

	var chapters []struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&chapters); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	want := []string{"1 - the forest", "2 - the door", "10 - the return", "appendix"}
	if len(chapters) != len(want) {
		t.Fatalf("got %d chapters, want %d", len(chapters), len(want))
	}
	for i, w := range want {
		if chapters[i].Name != w {
			t.Errorf("chapters[%d] = %q, want %q", i, chapters[i].Name, w)
		}
	}
}

func TestServer_Report(t *testing.T) {
	t.Parallel()

	srv, baseDir := newTestServer(t)
	writeChapter(t, baseDir, "1 - the forest")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/report/1%20-%20the%20forest", nil))
	if rec.Code != 200 {
		t.Fatalf("GET /api/report = %d, want 200", rec.Code)
	}

	var rep report.Report
	if err := json.NewDecoder(rec.Body).Decode(&rep); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rep.ChapterName != "1 - the forest" {
		t.Errorf("ChapterName = %q, want %q", rep.ChapterName, "1 - the forest")
	}
	if rep.Stats.SentenceCount != 2 {
		t.Errorf("Stats.SentenceCount = %d, want 2", rep.Stats.SentenceCount)
	}
}

func TestServer_ReportNotFound(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/report/nope", nil))
	if rec.Code != 404 {
		t.Fatalf("GET /api/report/nope = %d, want 404", rec.Code)
	}
}

func TestServer_ReportRejectsTraversal(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/report/..%2Fsecrets", nil))
	if rec.Code != 400 && rec.Code != 404 {
		t.Fatalf("traversal request = %d, want 400 or 404", rec.Code)
	}
}
