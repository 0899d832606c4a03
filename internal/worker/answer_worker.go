package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eduquiz/eduquiz-backend/internal/config"
)

// answersTTL bounds how long an orphaned snapshot survives in Redis.
// Live attempts refresh it on every autosave.
const answersTTL = 12 * time.Hour

// SnapshotSource exposes the live answer snapshot of an attempt.
type SnapshotSource interface {
	Snapshot(attemptID uuid.UUID) (map[string]string, bool)
}

// AnswerWorker consumes persist_answers_queue (attempt ids) and mirrors
// each attempt's live snapshot into a Redis hash. The mirror lets a
// crashed frontend restore its answers and keeps the write off the
// request path.
type AnswerWorker struct {
	source SnapshotSource
	rdb    *redis.Client
	log    zerolog.Logger
}

// NewAnswerWorker creates a new AnswerWorker.
func NewAnswerWorker(source SnapshotSource, rdb *redis.Client, log zerolog.Logger) *AnswerWorker {
	return &AnswerWorker{
		source: source,
		rdb:    rdb,
		log:    log.With().Str("component", "answer_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *AnswerWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AnswerWorker) processNext(ctx context.Context) {
	item, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistAnswersQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}
	if len(item) < 2 {
		return
	}
	w.mirror(ctx, item[1])
}

// mirror writes the current snapshot for one attempt. The queue may
// hold the same attempt id many times; each pass writes the latest
// state, so duplicates are harmless.
func (w *AnswerWorker) mirror(ctx context.Context, rawID string) {
	attemptID, err := uuid.Parse(rawID)
	if err != nil {
		w.log.Error().Str("item", rawID).Msg("Invalid attempt id, dropping item")
		return
	}

	snapshot, ok := w.source.Snapshot(attemptID)
	if !ok {
		// Attempt already submitted or destroyed; nothing to mirror.
		return
	}

	key := config.CacheKey.AttemptAnswersKey(attemptID.String())
	pipe := w.rdb.Pipeline()
	pipe.Del(ctx, key)
	if len(snapshot) > 0 {
		flat := make(map[string]interface{}, len(snapshot))
		for k, v := range snapshot {
			flat[k] = v
		}
		pipe.HSet(ctx, key, flat)
		pipe.Expire(ctx, key, answersTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("Snapshot mirror failed")
	}
}

// drain flushes whatever is still queued before shutdown.
func (w *AnswerWorker) drain(ctx context.Context) {
	drained := 0
	for {
		item, err := w.rdb.LPop(ctx, config.WorkerKey.PersistAnswersQueue).Result()
		if err != nil {
			break
		}
		w.mirror(ctx, item)
		drained++
	}
	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
