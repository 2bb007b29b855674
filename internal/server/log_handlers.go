package server

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const (
	defaultLogLines = 100
	defaultErrLines = 500
	maxLogLines     = 10000
	maxLogLineBytes = 1024 * 1024
)

// LogHandlers serves the tail of the application log file
type LogHandlers struct {
	logFile string
	log     zerolog.Logger
}

// NewLogHandlers creates a new log handlers instance. An empty logFile means
// logs only go to stderr and the endpoints return no lines.
func NewLogHandlers(logFile string, log zerolog.Logger) *LogHandlers {
	return &LogHandlers{
		logFile: logFile,
		log:     log.With().Str("component", "log_handlers").Logger(),
	}
}

// LogContentResponse represents log content
type LogContentResponse struct {
	Lines  []string `json:"lines"`
	Total  int      `json:"total"`
	Status string   `json:"status"`
}

// HandleGetLogs handles GET /api/system/logs?lines=&level=&search=
func (h *LogHandlers) HandleGetLogs(w http.ResponseWriter, r *http.Request) {
	lines := parseLines(r.URL.Query().Get("lines"), defaultLogLines)
	level := strings.ToUpper(r.URL.Query().Get("level"))
	search := r.URL.Query().Get("search")

	h.log.Debug().
		Int("lines", lines).
		Str("level", level).
		Str("search", search).
		Msg("Getting log content")

	h.serve(w, lines, level, search)
}

// HandleGetErrors handles GET /api/system/logs/errors
func (h *LogHandlers) HandleGetErrors(w http.ResponseWriter, r *http.Request) {
	lines := parseLines(r.URL.Query().Get("lines"), defaultErrLines)
	h.log.Debug().Int("lines", lines).Msg("Getting error logs")
	h.serve(w, lines, "ERROR", "")
}

func (h *LogHandlers) serve(w http.ResponseWriter, lines int, level, search string) {
	logLines, err := tailFile(h.logFile, lines)
	if err != nil {
		h.log.Error().Err(err).Str("file", h.logFile).Msg("Failed to read log file")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Err: "failed to read logs"}, h.log)
		return
	}

	writeJSON(w, http.StatusOK, LogContentResponse{
		Lines:  filterLogs(logLines, level, search),
		Total:  len(logLines),
		Status: "ok",
	}, h.log)
}

func parseLines(param string, def int) int {
	if param == "" {
		return def
	}
	n, err := strconv.Atoi(param)
	if err != nil || n <= 0 {
		return def
	}
	return min(n, maxLogLines)
}

// tailFile returns the last n lines of path. A missing file or empty path
// yields no lines.
func tailFile(path string, n int) ([]string, error) {
	if path == "" {
		return []string{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	ring := make([]string, 0, n)
	start := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLogLineBytes)
	for scanner.Scan() {
		if len(ring) < n {
			ring = append(ring, scanner.Text())
			continue
		}
		ring[start] = scanner.Text()
		start = (start + 1) % n
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	return append(ring[start:], ring[:start]...), nil
}

// filterLogs filters log lines by level and search term
func filterLogs(lines []string, level string, search string) []string {
	if level == "" && search == "" {
		return lines
	}

	filtered := make([]string, 0)
	search = strings.ToLower(search)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if level != "" && !lineMatchesLevel(line, level) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(line), search) {
			continue
		}
		filtered = append(filtered, line)
	}
	return filtered
}

// lineMatchesLevel accepts zerolog JSON lines ({"level":"error"}) and
// console lines (ERR, [ERROR], ERROR:).
func lineMatchesLevel(line string, level string) bool {
	if strings.Contains(line, `"level"`) {
		return strings.Contains(strings.ToLower(line), `"level":"`+strings.ToLower(level)+`"`)
	}

	upperLine := strings.ToUpper(line)
	upperLevel := strings.ToUpper(level)
	short := upperLevel
	if len(short) > 3 {
		short = short[:3]
	}

	return strings.Contains(upperLine, upperLevel+":") ||
		strings.Contains(upperLine, "["+upperLevel+"]") ||
		strings.Contains(upperLine, " "+upperLevel+" ") ||
		strings.Contains(upperLine, " "+short+" ")
}
