package handler

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eduquiz/eduquiz-backend/internal/config"
	"github.com/eduquiz/eduquiz-backend/internal/response"
	"github.com/eduquiz/eduquiz-backend/internal/session"
)

// SystemHandler reports process health for the teacher dashboard.
type SystemHandler struct {
	rdb       *redis.Client
	sessions  *session.Manager
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(rdb *redis.Client, sessions *session.Manager, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		rdb:       rdb,
		sessions:  sessions,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

// Metrics godoc
// GET /api/v1/teacher/system/metrics
// Snapshot of runtime stats, live attempt count, and queue depths.
func (h *SystemHandler) Metrics(c *gin.Context) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	ctx := c.Request.Context()
	var queueAnswers, queueResults int64
	pipe := h.rdb.Pipeline()
	answersCmd := pipe.LLen(ctx, config.WorkerKey.PersistAnswersQueue)
	resultsCmd := pipe.LLen(ctx, config.WorkerKey.PersistResultsQueue)
	if _, err := pipe.Exec(ctx); err == nil {
		queueAnswers, _ = answersCmd.Result()
		queueResults, _ = resultsCmd.Result()
	} else {
		h.log.Warn().Err(err).Msg("Queue depth read failed")
	}

	response.Success(c, http.StatusOK, gin.H{
		"uptime":        formatDuration(time.Since(h.startTime)),
		"go_version":    runtime.Version(),
		"goroutines":    runtime.NumGoroutine(),
		"heap_alloc":    ms.HeapAlloc,
		"num_gc":        ms.NumGC,
		"live_attempts": h.sessions.Count(),
		"queue_answers": queueAnswers,
		"queue_results": queueResults,
	})
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
