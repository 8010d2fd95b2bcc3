package job

import "context"

// Client はタイルキャッシュ管理REST APIへの通信インターフェース
type Client interface {
	// ListJobs はジョブ一覧を取得する
	ListJobs(ctx context.Context) ([]*Job, error)

	// CreateJob はジョブの作成を要求する
	CreateJob(ctx context.Context, job *Job) error

	// UpdateJob はジョブの更新（状態遷移の要求を含む）を要求する
	UpdateJob(ctx context.Context, job *Job) error

	// DeleteJob はジョブの削除を要求する
	DeleteJob(ctx context.Context, jobID int64) error

	// ListJobLogs は指定ジョブのログ一覧を取得する
	ListJobLogs(ctx context.Context, jobID int64) ([]*JobLog, error)

	// ListTasks はタスク一覧を取得する
	ListTasks(ctx context.Context) ([]*Task, error)

	// GetSettings はグローバル設定を取得する
	GetSettings(ctx context.Context) (*Settings, error)

	// SetSettings はグローバル設定を更新する
	SetSettings(ctx context.Context, settings *Settings) error
}
