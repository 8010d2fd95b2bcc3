package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jinford/gwc-jobctl/internal/core/job"
	"github.com/jinford/gwc-jobctl/internal/platform/database"
	"github.com/jinford/gwc-jobctl/pkg/lock"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS job_progress (
    id                UUID PRIMARY KEY,
    job_id            BIGINT NOT NULL,
    state             TEXT NOT NULL,
    tiles_done        BIGINT NOT NULL,
    tiles_total       BIGINT NOT NULL,
    failed_tile_count BIGINT NOT NULL,
    throughput        DOUBLE PRECISION NOT NULL,
    observed_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_job_progress_job_observed ON job_progress (job_id, observed_at DESC);
CREATE INDEX IF NOT EXISTS idx_job_progress_observed ON job_progress (observed_at);
`

var progressColumns = []string{
	"id", "job_id", "state", "tiles_done", "tiles_total", "failed_tile_count", "throughput", "observed_at",
}

// HistoryRepository は job.HistoryRepository インターフェースを実装する PostgreSQL リポジトリです
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository は新しい HistoryRepository を作成します
func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// コンパイル時の型チェック
var _ job.HistoryRepository = (*HistoryRepository)(nil)

// EnsureSchema は進捗履歴テーブルを作成します。複数プロセスからの同時実行はロックで直列化されます
func (r *HistoryRepository) EnsureSchema(ctx context.Context) error {
	_, err := database.Transact(ctx, r.pool, func(tx pgx.Tx) (struct{}, error) {
		if err := lock.Acquire(ctx, tx, lock.GenerateLockID("gwc-jobctl", "job_progress", "schema")); err != nil {
			return struct{}{}, err
		}
		if _, err := tx.Exec(ctx, schemaSQL); err != nil {
			return struct{}{}, fmt.Errorf("failed to create job_progress table: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}

// RecordProgress はスナップショットを COPY でまとめて保存します
func (r *HistoryRepository) RecordProgress(ctx context.Context, points []*job.ProgressPoint) error {
	if len(points) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(points))
	for _, p := range points {
		rows = append(rows, []any{
			UUIDToPgtype(p.ID),
			p.JobID,
			string(p.State),
			p.TilesDone,
			p.TilesTotal,
			p.FailedTileCount,
			p.Throughput,
			TimeToPgtype(p.ObservedAt),
		})
	}

	if _, err := r.pool.CopyFrom(ctx, pgx.Identifier{"job_progress"}, progressColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("failed to record progress: %w", err)
	}
	return nil
}

// ListProgress は指定ジョブのスナップショットを新しい順に最大 limit 件返します
func (r *HistoryRepository) ListProgress(ctx context.Context, jobID int64, limit int) ([]*job.ProgressPoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, job_id, state, tiles_done, tiles_total, failed_tile_count, throughput, observed_at
		FROM job_progress
		WHERE job_id = $1
		ORDER BY observed_at DESC, id
		LIMIT $2`, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	result := make([]*job.ProgressPoint, 0, limit)
	for rows.Next() {
		var (
			id         pgtype.UUID
			state      string
			observedAt pgtype.Timestamptz
			p          job.ProgressPoint
		)
		if err := rows.Scan(&id, &p.JobID, &state, &p.TilesDone, &p.TilesTotal, &p.FailedTileCount, &p.Throughput, &observedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		p.ID = PgtypeToUUID(id)
		p.State = job.State(state)
		p.ObservedAt = PgtypeToTime(observedAt)
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate progress: %w", err)
	}

	return result, nil
}

// PruneBefore は指定時刻より古いスナップショットを削除し、削除件数を返します
func (r *HistoryRepository) PruneBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM job_progress WHERE observed_at < $1`, TimeToPgtype(before))
	if err != nil {
		return 0, fmt.Errorf("failed to prune progress: %w", err)
	}
	return tag.RowsAffected(), nil
}
