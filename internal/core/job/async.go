package job

import (
	"context"

	"github.com/samber/mo"
)

// Done は値を持たない非同期操作の結果
type Done struct{}

// run は同期操作を Future として実行する
func run[T any](fn func() (T, error)) *mo.Future[T] {
	return mo.NewFuture(func(resolve func(T), reject func(error)) {
		v, err := fn()
		if err != nil {
			reject(err)
			return
		}
		resolve(v)
	})
}

func runDone(fn func() error) *mo.Future[Done] {
	return run(func() (Done, error) {
		return Done{}, fn()
	})
}

// LoadJobsAsync は LoadJobs を非同期に実行する
func (s *Service) LoadJobsAsync(ctx context.Context) *mo.Future[Done] {
	return runDone(func() error { return s.LoadJobs(ctx) })
}

// LoadLogsAsync は LoadLogs を非同期に実行する
func (s *Service) LoadLogsAsync(ctx context.Context, jobID int64) *mo.Future[Done] {
	return runDone(func() error { return s.LoadLogs(ctx, jobID) })
}

// LoadTasksAsync は LoadTasks を非同期に実行する
func (s *Service) LoadTasksAsync(ctx context.Context) *mo.Future[Done] {
	return runDone(func() error { return s.LoadTasks(ctx) })
}

// AddJobAsync は AddJob を非同期に実行する
func (s *Service) AddJobAsync(ctx context.Context, job *Job) *mo.Future[Done] {
	return runDone(func() error { return s.AddJob(ctx, job) })
}

// UpdateJobAsync は UpdateJob を非同期に実行する
func (s *Service) UpdateJobAsync(ctx context.Context, job *Job) *mo.Future[Done] {
	return runDone(func() error { return s.UpdateJob(ctx, job) })
}

// StopJobAsync は StopJob を非同期に実行する
func (s *Service) StopJobAsync(ctx context.Context, job *Job) *mo.Future[Done] {
	return runDone(func() error { return s.StopJob(ctx, job) })
}

// CloneJobAsync は CloneJob を非同期に実行する
func (s *Service) CloneJobAsync(ctx context.Context, job *Job) *mo.Future[Done] {
	return runDone(func() error { return s.CloneJob(ctx, job) })
}

// DeleteJobAsync は DeleteJob を非同期に実行する
func (s *Service) DeleteJobAsync(ctx context.Context, jobID int64) *mo.Future[Done] {
	return runDone(func() error { return s.DeleteJob(ctx, jobID) })
}

// GetSettingsAsync は GetSettings を非同期に実行する
func (s *Service) GetSettingsAsync(ctx context.Context) *mo.Future[*Settings] {
	return run(func() (*Settings, error) { return s.GetSettings(ctx) })
}

// SetSettingsAsync は SetSettings を非同期に実行する
func (s *Service) SetSettingsAsync(ctx context.Context, settings *Settings) *mo.Future[Done] {
	return runDone(func() error { return s.SetSettings(ctx, settings) })
}

// ReloadAfter は変更系の Future が成功した後にジョブ一覧を再ロードする。
// 変更が失敗した場合は再ロードせず、元のエラーをそのまま伝播する。
func ReloadAfter[T any](ctx context.Context, s *Service, f *mo.Future[T]) *mo.Future[T] {
	return f.Then(func(v T) (T, error) {
		return v, s.LoadJobs(ctx)
	})
}

// ReloadSettingsAfter は設定変更の Future が成功した後に設定を取得し直す
func ReloadSettingsAfter(ctx context.Context, s *Service, f *mo.Future[Done]) *mo.Future[*Settings] {
	return run(func() (*Settings, error) {
		if _, err := f.Collect(); err != nil {
			return nil, err
		}
		return s.GetSettings(ctx)
	})
}
