package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/samber/mo"
)

// Service はUIとサーバーの間の唯一の窓口。
// ジョブ・ジョブログ・タスクの各ストアを保持し、CRUD要求を発行する。
// 変更系の操作はストアを書き換えないため、結果を反映するには呼び出し側が再ロードする。
type Service struct {
	client  Client
	jobs    *Store[*Job]
	logs    *Store[*JobLog]
	tasks   *Store[*Task]
	history HistoryRepository
	logger  *slog.Logger
	now     func() time.Time

	logJobID atomic.Int64
}

type serviceOptions struct {
	logger  *slog.Logger
	history HistoryRepository
	now     func() time.Time
}

// ServiceOption は Service 構築時のオプション
type ServiceOption func(*serviceOptions)

// WithLogger はロガーを差し替える
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(opts *serviceOptions) {
		opts.logger = logger
	}
}

// WithHistoryRepository はジョブロード成功時に進捗を記録するリポジトリを設定する
func WithHistoryRepository(repo HistoryRepository) ServiceOption {
	return func(opts *serviceOptions) {
		opts.history = repo
	}
}

// WithClock は現在時刻の取得関数を差し替える
func WithClock(now func() time.Time) ServiceOption {
	return func(opts *serviceOptions) {
		opts.now = now
	}
}

// NewService は新しい Service を作成する
func NewService(client Client, opts ...ServiceOption) *Service {
	options := serviceOptions{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}

	s := &Service{
		client:  client,
		jobs:    NewStore(CompareJobs),
		logs:    NewStore(CompareJobLogs),
		tasks:   NewStore(CompareTasks),
		history: options.history,
		logger:  options.logger,
		now:     options.now,
	}
	s.jobs.now = options.now
	s.logs.now = options.now
	s.tasks.now = options.now
	s.logJobID.Store(UnsetID)
	return s
}

// Jobs はジョブストアを返す
func (s *Service) Jobs() *Store[*Job] { return s.jobs }

// Logs はジョブログストアを返す
func (s *Service) Logs() *Store[*JobLog] { return s.logs }

// Tasks はタスクストアを返す
func (s *Service) Tasks() *Store[*Task] { return s.tasks }

// LogJobID はログストアが現在対象としているジョブIDを返す
func (s *Service) LogJobID() int64 { return s.logJobID.Load() }

// HistoryEnabled は進捗履歴が構成されているかを返す
func (s *Service) HistoryEnabled() bool { return s.history != nil }

// FindJob はジョブストアからIDでジョブを探す
func (s *Service) FindJob(jobID int64) mo.Option[*Job] {
	return s.jobs.Find(func(j *Job) bool { return j.JobID == jobID })
}

// LoadJobs はジョブ一覧を取得してジョブストアを全置換する。
// 失敗時はストアの内容を保持したまま失敗を記録し、エラーを返す。
func (s *Service) LoadJobs(ctx context.Context) error {
	jobs, err := s.client.ListJobs(ctx)
	if err != nil {
		s.jobs.MarkFailed(err)
		s.logger.Warn("ジョブ一覧の取得に失敗しました", "error", err)
		return fmt.Errorf("failed to load jobs: %w", err)
	}

	s.jobs.Replace(jobs)
	s.logger.Debug("ジョブ一覧をロードしました", "count", len(jobs))

	if s.history != nil {
		points := NewProgressPoints(jobs, s.jobs.LoadedAt())
		if err := s.history.RecordProgress(ctx, points); err != nil {
			s.logger.Warn("進捗履歴の記録に失敗しました", "error", err)
		}
	}
	return nil
}

// LoadLogs は指定ジョブのログを取得してログストアを全置換する。
// 他ジョブのログが混入していた場合は破棄する。
func (s *Service) LoadLogs(ctx context.Context, jobID int64) error {
	s.logJobID.Store(jobID)

	logs, err := s.client.ListJobLogs(ctx, jobID)
	if err != nil {
		s.logs.MarkFailed(err)
		s.logger.Warn("ジョブログの取得に失敗しました", "jobID", jobID, "error", err)
		return fmt.Errorf("failed to load logs for job %d: %w", jobID, err)
	}

	scoped := make([]*JobLog, 0, len(logs))
	for _, l := range logs {
		if l.JobID != jobID {
			s.logger.Warn("対象外のジョブログを破棄しました", "jobID", jobID, "logJobID", l.JobID, "jobLogID", l.JobLogID)
			continue
		}
		scoped = append(scoped, l)
	}

	s.logs.Replace(scoped)
	return nil
}

// LoadTasks はタスク一覧を取得してタスクストアを全置換する
func (s *Service) LoadTasks(ctx context.Context) error {
	tasks, err := s.client.ListTasks(ctx)
	if err != nil {
		s.tasks.MarkFailed(err)
		s.logger.Warn("タスク一覧の取得に失敗しました", "error", err)
		return fmt.Errorf("failed to load tasks: %w", err)
	}

	s.tasks.Replace(tasks)
	return nil
}

// AddJob はジョブの作成を要求する。jobId は -1 でなければならない
func (s *Service) AddJob(ctx context.Context, job *Job) error {
	if !job.IsNew() {
		return fmt.Errorf("%w: got %d", ErrJobIDAssigned, job.JobID)
	}
	if err := s.client.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}
	s.logger.Info("ジョブの作成を要求しました", "layer", job.LayerName, "type", job.EffectiveType())
	return nil
}

// UpdateJob はジョブの更新を要求する
func (s *Service) UpdateJob(ctx context.Context, job *Job) error {
	if job.IsNew() {
		return ErrJobIDUnset
	}
	if err := s.client.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to update job %d: %w", job.JobID, err)
	}
	s.logger.Info("ジョブの更新を要求しました", "jobID", job.JobID, "state", job.State)
	return nil
}

// StopJob は実行中のジョブに KILLED への遷移を要求する
func (s *Service) StopJob(ctx context.Context, job *Job) error {
	if !job.ContextActions().CanStop {
		return fmt.Errorf("%w: cannot stop job %d in state %s (%s)", ErrActionNotAllowed, job.JobID, job.State, job.JobType)
	}
	stop := job.Copy()
	stop.State = StateKilled
	return s.UpdateJob(ctx, stop)
}

// CloneJob はジョブの設定を引き継いだ新規ジョブの作成を要求する（Clone/Rerun）
func (s *Service) CloneJob(ctx context.Context, job *Job) error {
	return s.AddJob(ctx, job.Clone())
}

// DeleteJob はジョブの削除を要求する（Cancel/Delete）
func (s *Service) DeleteJob(ctx context.Context, jobID int64) error {
	if jobID == UnsetID {
		return ErrJobIDUnset
	}
	if err := s.client.DeleteJob(ctx, jobID); err != nil {
		return fmt.Errorf("failed to delete job %d: %w", jobID, err)
	}
	s.logger.Info("ジョブの削除を要求しました", "jobID", jobID)
	return nil
}

// GetSettings はグローバル設定を取得する
func (s *Service) GetSettings(ctx context.Context) (*Settings, error) {
	settings, err := s.client.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

// SetSettings はグローバル設定を更新する
func (s *Service) SetSettings(ctx context.Context, settings *Settings) error {
	if settings.ClearOldJobs < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRetention, settings.ClearOldJobs)
	}
	if err := s.client.SetSettings(ctx, settings); err != nil {
		return fmt.Errorf("failed to set settings: %w", err)
	}
	s.logger.Info("設定を更新しました", "clearOldJobs", int64(settings.ClearOldJobs))
	return nil
}

// History は指定ジョブの進捗履歴を新しい順に返す
func (s *Service) History(ctx context.Context, jobID int64, limit int) ([]*ProgressPoint, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = 20
	}
	points, err := s.history.ListProgress(ctx, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress history: %w", err)
	}
	return points, nil
}

// PruneHistory はサーバーの保持期間設定より古い進捗履歴を削除する。
// 保持期間が never の場合は何もしない。
func (s *Service) PruneHistory(ctx context.Context, retention Retention) (int64, error) {
	if s.history == nil {
		return 0, ErrHistoryDisabled
	}
	if retention == RetentionNever {
		return 0, nil
	}
	before := s.now().Add(-time.Duration(retention) * time.Second)
	deleted, err := s.history.PruneBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune progress history: %w", err)
	}
	s.logger.Info("古い進捗履歴を削除しました", "deleted", deleted, "before", before)
	return deleted, nil
}
