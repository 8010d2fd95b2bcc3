package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/jinford/gwc-jobctl/internal/core/job"
	"github.com/urfave/cli/v3"
)

// JobWatchAction はジョブ一覧をスケジュールに従って再表示し続けるコマンドのアクション。
// シグナルを受け取るまでブロックする。
func JobWatchAction(ctx context.Context, cmd *cli.Command) error {
	schedule := cmd.String("schedule")
	if schedule == "" {
		schedule = job.DefaultWatchSchedule
	}

	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return fmt.Errorf("AppContextの初期化に失敗: %w", err)
	}
	defer appCtx.Close()

	svc := appCtx.Jobs()
	watcher := job.NewWatcher(
		job.WatcherConfig{
			Schedule:     schedule,
			PruneHistory: cmd.Bool("prune-history"),
		},
		svc,
		appCtx.Logger(),
		func(jobs []*job.Job) {
			now := time.Now()
			fmt.Fprintf(appCtx.Out, "\n--- %s ---\n", now.Format("2006-01-02 15:04:05"))
			renderJobsTable(appCtx.Out, jobs, now)
		},
	)

	// 初回は即時に表示する
	if err := watcher.Run(ctx); err != nil {
		return failed("ジョブ一覧の取得", err)
	}

	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("ジョブ監視の開始に失敗: %w", err)
	}
	defer watcher.Stop()

	<-ctx.Done()
	return nil
}
