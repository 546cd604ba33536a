package report

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves validation reports from per-chapter directories with a
// minimal JSON API: the QA dashboard consumes /api/chapters and
// /api/report/{chapter}.
type Server struct {
	router  chi.Router
	baseDir string
	log     *slog.Logger
}

// NewServer creates a report viewer rooted at baseDir. Each chapter is a
// directory <baseDir>/<name> containing <name>.validate.report.txt.
func NewServer(baseDir string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{baseDir: baseDir, log: log}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/chapters", s.handleChapters)
	r.Get("/api/report/{chapter}", s.handleReport)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// chapterEntry is one row of the chapter list.
type chapterEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

func (s *Server) handleChapters(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	var chapters []chapterEntry
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		reportPath := filepath.Join(s.baseDir, e.Name(), e.Name()+ReportSuffix)
		if _, err := os.Stat(reportPath); err != nil {
			continue
		}
		chapters = append(chapters, chapterEntry{Name: e.Name(), Path: e.Name()})
	}
	sortChapters(chapters)

	s.writeJSON(w, chapters)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "chapter")
	if strings.Contains(name, "/") || strings.Contains(name, "..") {
		s.writeError(w, http.StatusBadRequest, nil)
		return
	}

	path := filepath.Join(s.baseDir, name, name+ReportSuffix)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.writeError(w, http.StatusNotFound, err)
		} else {
			s.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	defer f.Close()

	rep, err := Parse(f, name)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, rep)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("report: encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	if err != nil {
		s.log.Warn("report: request failed", "code", code, "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": http.StatusText(code)})
}

var leadingNumberRe = regexp.MustCompile(`\d+`)

// sortChapters orders chapters naturally: by the first number block in the
// name (chapters typically lead with one), then lexicographically.
func sortChapters(chapters []chapterEntry) {
	sort.SliceStable(chapters, func(i, j int) bool {
		ni, oki := firstNumber(chapters[i].Name)
		nj, okj := firstNumber(chapters[j].Name)
		switch {
		case oki && okj && ni != nj:
			return ni < nj
		case oki != okj:
			return oki
		default:
			return strings.ToLower(chapters[i].Name) < strings.ToLower(chapters[j].Name)
		}
	})
}

func firstNumber(name string) (int, bool) {
	m := leadingNumberRe.FindString(name)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	return n, err == nil
}

// requestLogger logs each request with its duration at debug level.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"took", time.Since(start),
			)
		})
	}
}
