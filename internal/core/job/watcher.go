package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// DefaultWatchSchedule はジョブ一覧を再ロードするデフォルトの間隔
const DefaultWatchSchedule = "@every 30s"

// WatcherConfig はジョブ監視の設定です
type WatcherConfig struct {
	Schedule     string // Cron形式または "@every 30s" 形式のスケジュール
	PruneHistory bool   // 各回でサーバーの保持期間より古い進捗履歴を削除する
}

// Watcher はスケジュールに従ってジョブ一覧を定期的に再ロードします
type Watcher struct {
	config    WatcherConfig
	service   *Service
	cron      *cron.Cron
	logger    *slog.Logger
	onRefresh func(jobs []*Job)

	mu  sync.Mutex
	ctx context.Context
}

// NewWatcher は新しい Watcher を作成します。onRefresh はロード成功ごとに呼ばれます（nil 可）
func NewWatcher(config WatcherConfig, service *Service, logger *slog.Logger, onRefresh func(jobs []*Job)) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Schedule == "" {
		config.Schedule = DefaultWatchSchedule
	}

	return &Watcher{
		config:    config,
		service:   service,
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger: logger}))),
		logger:    logger,
		onRefresh: onRefresh,
	}
}

// Start はスケジューラーを起動します。各回の実行は ctx を引き継ぎます
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	_, err := w.cron.AddFunc(w.config.Schedule, func() {
		if err := w.Run(w.runContext()); err != nil {
			w.logger.Error("ジョブ監視の実行に失敗しました", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("cron ジョブの登録に失敗: %w", err)
	}

	w.cron.Start()
	w.logger.Info("ジョブ監視を開始しました", "schedule", w.config.Schedule)

	return nil
}

// Stop はスケジューラーを停止し、実行中の回の完了を待ちます
func (w *Watcher) Stop() {
	<-w.cron.Stop().Done()
	w.logger.Info("ジョブ監視を停止しました")
}

// Run はジョブ一覧を1回再ロードします（手動実行可能）
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.service.LoadJobs(ctx); err != nil {
		return err
	}

	if w.onRefresh != nil {
		w.onRefresh(w.service.Jobs().Items())
	}

	if w.config.PruneHistory && w.service.HistoryEnabled() {
		settings, err := w.service.GetSettings(ctx)
		if err != nil {
			return fmt.Errorf("保持期間の取得に失敗: %w", err)
		}
		if _, err := w.service.PruneHistory(ctx, settings.ClearOldJobs); err != nil {
			return err
		}
	}

	return nil
}

func (w *Watcher) runContext() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx == nil {
		return context.Background()
	}
	return w.ctx
}

// cronLogger は cron.Logger を slog に橋渡しする
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
