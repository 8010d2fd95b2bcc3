package job

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProgressPoint はある時点で観測したジョブ進捗のスナップショット
type ProgressPoint struct {
	ID              uuid.UUID
	JobID           int64
	State           State
	TilesDone       int64
	TilesTotal      int64
	FailedTileCount int64
	Throughput      float64
	ObservedAt      time.Time
}

// HistoryRepository は進捗スナップショットの永続化インターフェース
type HistoryRepository interface {
	// RecordProgress はスナップショットをまとめて保存する
	RecordProgress(ctx context.Context, points []*ProgressPoint) error

	// ListProgress は指定ジョブのスナップショットを新しい順に最大 limit 件返す
	ListProgress(ctx context.Context, jobID int64, limit int) ([]*ProgressPoint, error)

	// PruneBefore は指定時刻より古いスナップショットを削除し、削除件数を返す
	PruneBefore(ctx context.Context, before time.Time) (int64, error)
}

// NewProgressPoints はロードしたジョブ一覧からスナップショットを作成する
func NewProgressPoints(jobs []*Job, observedAt time.Time) []*ProgressPoint {
	points := make([]*ProgressPoint, 0, len(jobs))
	for _, j := range jobs {
		if j.IsNew() {
			continue
		}
		points = append(points, &ProgressPoint{
			ID:              uuid.New(),
			JobID:           j.JobID,
			State:           j.State,
			TilesDone:       j.TilesDone,
			TilesTotal:      j.TilesTotal,
			FailedTileCount: j.FailedTileCount,
			Throughput:      j.Throughput,
			ObservedAt:      observedAt,
		})
	}
	return points
}
