package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eduquiz/eduquiz-backend/internal/config"
	"github.com/eduquiz/eduquiz-backend/internal/model"
	"github.com/eduquiz/eduquiz-backend/internal/repository"
)

// QueueResultStore queues finished attempts to Redis instead of
// writing Postgres on the submit path. The session engine treats the
// write as fire-and-forget; the ResultWorker makes it durable.
type QueueResultStore struct {
	rdb *redis.Client
}

// NewQueueResultStore creates the queueing store.
func NewQueueResultStore(rdb *redis.Client) *QueueResultStore {
	return &QueueResultStore{rdb: rdb}
}

// CreateResult pushes the result onto the persistence queue.
func (s *QueueResultStore) CreateResult(ctx context.Context, r *model.Result) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, payload).Err()
}

// ResultWorker consumes persist_results_queue and inserts results into
// PostgreSQL, requeueing on failure.
type ResultWorker struct {
	results *repository.ResultRepository
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewResultWorker creates a new ResultWorker.
func NewResultWorker(results *repository.ResultRepository, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		results: results,
		rdb:     rdb,
		log:     log.With().Str("component", "result_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *ResultWorker) processNext(ctx context.Context) {
	item, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistResultsQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}
	if len(item) < 2 {
		return
	}

	if err := w.persist(ctx, []byte(item[1])); err != nil {
		w.log.Error().Err(err).Msg("Persist error, requeueing and backing off")
		w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, item[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *ResultWorker) persist(ctx context.Context, raw []byte) error {
	var result model.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		// Malformed payloads are dropped, not requeued, or they would
		// loop forever.
		w.log.Error().Err(err).Msg("Unmarshal error, dropping item")
		return nil
	}
	return w.results.CreateResult(ctx, &result)
}

// drain processes all remaining items in the queue before shutdown.
func (w *ResultWorker) drain(ctx context.Context) {
	drained := 0
	for {
		item, err := w.rdb.LPop(ctx, config.WorkerKey.PersistResultsQueue).Result()
		if err != nil {
			break
		}

		if err := w.persist(ctx, []byte(item)); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, item)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
