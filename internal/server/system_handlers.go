package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/tickerdash/internal/database"
	"github.com/aristath/tickerdash/internal/scheduler"
	"github.com/aristath/tickerdash/internal/session"
)

const pingTimeout = 10 * time.Second

// Pinger reports whether the upstream data source is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemDeps are the collaborators behind the system endpoints. Any of them
// may be nil; the matching fields are then left out of responses.
type SystemDeps struct {
	Pinger    Pinger
	Sessions  *session.Manager
	Scheduler *scheduler.Scheduler
	Databases map[string]*database.DB
	DataDir   string
}

// SystemHandlers handles liveness and maintenance endpoints
type SystemHandlers struct {
	deps      SystemDeps
	log       zerolog.Logger
	startedAt time.Time
	stats     func() (float64, float64)
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(deps SystemDeps, log zerolog.Logger) *SystemHandlers {
	h := &SystemHandlers{
		deps:      deps,
		log:       log.With().Str("component", "system_handlers").Logger(),
		startedAt: time.Now(),
	}
	h.stats = h.getSystemStats
	return h
}

// PingResponse is the body of a successful GET /api/ping
type PingResponse struct {
	Success  bool    `json:"success"`
	Upstream string  `json:"upstream"`
	CPU      float64 `json:"cpu"`
	Memory   float64 `json:"memory"`
}

// SystemStatusResponse represents system status
type SystemStatusResponse struct {
	Status         string   `json:"status"`
	UptimeSeconds  int64    `json:"uptime_seconds"`
	ActiveSessions int      `json:"active_sessions"`
	Jobs           []string `json:"jobs"`
	CPU            float64  `json:"cpu"`
	Memory         float64  `json:"memory"`
}

// DatabaseStat describes one sqlite file
type DatabaseStat struct {
	Name   string  `json:"name"`
	Path   string  `json:"path"`
	SizeMB float64 `json:"size_mb"`
	WALMB  float64 `json:"wal_mb"`
	OK     bool    `json:"ok"`
}

// DiskUsageResponse represents disk usage
type DiskUsageResponse struct {
	DataDirMB float64 `json:"data_dir_mb"`
	LogsDirMB float64 `json:"logs_dir_mb"`
	TotalMB   float64 `json:"total_mb"`
}

// HandlePing handles GET /api/ping
func (h *SystemHandlers) HandlePing(w http.ResponseWriter, r *http.Request) {
	if h.deps.Pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		if err := h.deps.Pinger.Ping(ctx); err != nil {
			h.log.Error().Err(err).Msg("Upstream ping failed")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Err: "could not ping server"}, h.log)
			return
		}
	}

	cpuPct, memPct := h.stats()
	writeJSON(w, http.StatusOK, PingResponse{
		Success:  true,
		Upstream: "ok",
		CPU:      cpuPct,
		Memory:   memPct,
	}, h.log)
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := h.stats()

	resp := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Jobs:          []string{},
		CPU:           cpuPct,
		Memory:        memPct,
	}
	if h.deps.Sessions != nil {
		resp.ActiveSessions = h.deps.Sessions.Active()
	}
	if h.deps.Scheduler != nil {
		resp.Jobs = h.deps.Scheduler.Jobs()
		slices.Sort(resp.Jobs)
	}

	writeJSON(w, http.StatusOK, resp, h.log)
}

// HandleDatabaseStats handles GET /api/system/databases
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.deps.Databases))
	for name := range h.deps.Databases {
		names = append(names, name)
	}
	slices.Sort(names)

	stats := make([]DatabaseStat, 0, len(names))
	for _, name := range names {
		db := h.deps.Databases[name]
		if db == nil {
			continue
		}
		stat := DatabaseStat{
			Name:   name,
			Path:   db.Path(),
			SizeMB: fileSizeMB(db.Path()),
			WALMB:  fileSizeMB(db.Path() + "-wal"),
		}
		if err := db.QuickCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Database quick check failed")
		} else {
			stat.OK = true
		}
		stats = append(stats, stat)
	}

	writeJSON(w, http.StatusOK, stats, h.log)
}

// HandleDiskUsage handles GET /api/system/disk
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	dataDirSize := h.getDirSize(h.deps.DataDir)
	logsDirSize := h.getDirSize(filepath.Join(h.deps.DataDir, "logs"))

	writeJSON(w, http.StatusOK, DiskUsageResponse{
		DataDirMB: dataDirSize,
		LogsDirMB: logsDirSize,
		TotalMB:   dataDirSize,
	}, h.log)
}

// HandleRunJob handles POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.deps.Scheduler == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Err: "scheduler not configured"}, h.log)
		return
	}

	if err := h.deps.Scheduler.RunByName(name); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Err: err.Error()}, h.log)
			return
		}
		h.log.Error().Err(err).Str("job", name).Msg("Job failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Err: err.Error()}, h.log)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"job":     name,
	}, h.log)
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	if dirPath == "" {
		return 0
	}

	var totalSize int64
	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats returns CPU and RAM usage percentages. The CPU sample
// blocks for 100ms.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

func fileSizeMB(path string) float64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return float64(info.Size()) / 1024 / 1024
}

type errorResponse struct {
	Success bool   `json:"success"`
	Err     string `json:"err"`
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
