// internal/historian/historian.go is the asynchronous results archiver: the
// game server pushes one record per finished game onto a Redis queue, and the
// historian service pops, batches, and persists them to Postgres.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/emojihunt/emojihunt/internal/models"
)

// DefaultQueueName is the Redis list the game server enqueues results onto.
const DefaultQueueName = "emojihunt_results"

// GameResultRecord is the archived summary of one finished game.
type GameResultRecord struct {
	LobbyID      string         `json:"lobby_id"`
	RoundsPlayed int            `json:"rounds_played"`
	Players      []PlayerResult `json:"players"`
	FinishedAt   int64          `json:"finished_at"` // epoch ms
}

// PlayerResult is one player's final standing.
type PlayerResult struct {
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
}

// RecordFromLobby builds the archive record from a finished lobby.
func RecordFromLobby(l *models.Lobby, finishedAt time.Time) GameResultRecord {
	rec := GameResultRecord{
		LobbyID:      l.ID,
		RoundsPlayed: len(l.Rounds),
		FinishedAt:   finishedAt.UnixMilli(),
	}
	for _, p := range l.Players {
		rec.Players = append(rec.Players, PlayerResult{
			PlayerID: p.ID,
			Nickname: p.Nickname,
			Score:    p.Score,
		})
	}
	return rec
}

// Enqueue pushes a result record onto the historian queue. Fire-and-forget
// from the game's perspective; a lost record never blocks play.
func Enqueue(ctx context.Context, rdb *redis.Client, rec GameResultRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal game result: %w", err)
	}
	queue := getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
	if err := rdb.RPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("rpush game result to %s: %w", queue, err)
	}
	return nil
}

// Service consumes the queue and writes batches into Postgres.
type Service struct {
	rdb  *redis.Client
	pool *pgxpool.Pool
	log  *logrus.Logger

	batchSize  int
	flushDelay time.Duration

	batchMu sync.Mutex
	batch   []GameResultRecord
}

// NewService builds a historian from environment configuration:
//   - HISTORIAN_BATCH_SIZE (default 20)
//   - HISTORIAN_FLUSH_MS (default 500)
func NewService(rdb *redis.Client, pool *pgxpool.Pool, log *logrus.Logger) *Service {
	batchSize := getEnvInt("HISTORIAN_BATCH_SIZE", 20)
	return &Service{
		rdb:        rdb,
		pool:       pool,
		log:        log,
		batchSize:  batchSize,
		flushDelay: time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		batch:      make([]GameResultRecord, 0, batchSize),
	}
}

// Run consumes the queue until the context is cancelled, flushing on batch
// size and on a timer. The final flush happens before return.
func (s *Service) Run(ctx context.Context) {
	queue := getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
	ticker := time.NewTicker(s.flushDelay)
	defer ticker.Stop()
	defer s.flush(context.Background())

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.flush(ctx)
		default:
			// BLPop with a short timeout so cancellation is noticed.
			res, err := s.rdb.BLPop(ctx, 3*time.Second, queue).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) || ctx.Err() != nil {
					continue
				}
				s.log.WithError(err).Error("BLPop failed")
				continue
			}
			if len(res) < 2 {
				continue
			}
			var rec GameResultRecord
			if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
				s.log.WithError(err).Warn("dropping malformed result record")
				continue
			}
			s.append(ctx, rec)
		}
	}
}

func (s *Service) append(ctx context.Context, rec GameResultRecord) {
	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.batchSize
	s.batchMu.Unlock()
	if full {
		s.flush(ctx)
	}
}

// flush writes the pending batch in one transaction, one row per player.
func (s *Service) flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	pending := make([]GameResultRecord, len(s.batch))
	copy(pending, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range pending {
			for _, p := range rec.Players {
				_, err := tx.Exec(ctx, `
					INSERT INTO game_results (lobby_id, player_id, nickname, score, rounds_played, finished_at)
					VALUES ($1, $2, $3, $4, $5, to_timestamp($6::double precision / 1000))`,
					rec.LobbyID, p.PlayerID, p.Nickname, p.Score, rec.RoundsPlayed, rec.FinishedAt,
				)
				if err != nil {
					return fmt.Errorf("insert result for %s: %w", p.PlayerID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		s.log.WithError(err).Error("flush to Postgres failed")
		return
	}
	s.log.WithField("games", len(pending)).Debug("flushed results")
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
