package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jinford/gwc-jobctl/internal/core/job"
	"github.com/manifoldco/promptui"
	"github.com/urfave/cli/v3"
)

// JobListAction はジョブ一覧を表示するコマンドのアクション
func JobListAction(ctx context.Context, cmd *cli.Command) error {
	var filter job.State
	if s := cmd.String("state"); s != "" {
		state, err := job.ParseState(s)
		if err != nil {
			return fmt.Errorf("状態の指定が不正です: %w", err)
		}
		filter = state
	}

	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return fmt.Errorf("AppContextの初期化に失敗: %w", err)
	}
	defer appCtx.Close()

	svc := appCtx.Jobs()
	if err := svc.LoadJobs(ctx); err != nil {
		return failed("ジョブ一覧の取得", err)
	}

	jobs := svc.Jobs().Items()
	if filter != "" {
		filtered := make([]*job.Job, 0, len(jobs))
		for _, j := range jobs {
			if j.State == filter {
				filtered = append(filtered, j)
			}
		}
		jobs = filtered
	}

	renderJobsTable(appCtx.Out, jobs, time.Now())
	return nil
}

// JobShowAction はジョブの詳細を表示するコマンドのアクション
func JobShowAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return fmt.Errorf("AppContextの初期化に失敗: %w", err)
	}
	defer appCtx.Close()

	target, err := loadJob(ctx, appCtx.Jobs(), cmd.Int64("id"))
	if err != nil {
		return err
	}

	renderJobDetail(appCtx.Out, target, time.Now())
	return nil
}

// JobLogsAction はジョブログを表示するコマンドのアクション
func JobLogsAction(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.Int64("id")

	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return fmt.Errorf("AppContextの初期化に失敗: %w", err)
	}
	defer appCtx.Close()

	svc := appCtx.Jobs()
	if err := svc.LoadLogs(ctx, jobID); err != nil {
		return failed("ジョブログの取得", err)
	}

	logs := svc.Logs().Items()
	if len(logs) == 0 {
		fmt.Fprintf(appCtx.Out, "ジョブ %d のログはありません\n", jobID)
		return nil
	}

	renderLogsTable(appCtx.Out, logs)
	return nil
}

// JobCloneAction はジョブの設定を引き継いで新しいジョブを作成するコマンドのアクション（Clone/Rerun）
func JobCloneAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return fmt.Errorf("AppContextの初期化に失敗: %w", err)
	}
	defer appCtx.Close()

	svc := appCtx.Jobs()
	source, err := loadJob(ctx, svc, cmd.Int64("id"))
	if err != nil {
		return err
	}
	label := source.ContextActions().CloneLabel

	if _, err := job.ReloadAfter(ctx, svc, svc.CloneJobAsync(ctx, source)).Collect(); err != nil {
		return failed(label, err)
	}

	fmt.Fprintf(appCtx.Out, "✓ %s: ジョブ %d の設定で新しいジョブを作成しました\n", label, source.JobID)
	appCtx.Logger().Info("ジョブを複製しました", "sourceJobID", source.JobID, "label", label)
	renderJobsTable(appCtx.Out, svc.Jobs().Items(), time.Now())
	return nil
}

// JobStopAction は実行中のジョブを停止するコマンドのアクション
func JobStopAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return fmt.Errorf("AppContextの初期化に失敗: %w", err)
	}
	defer appCtx.Close()

	svc := appCtx.Jobs()
	target, err := loadJob(ctx, svc, cmd.Int64("id"))
	if err != nil {
		return err
	}

	if _, err := job.ReloadAfter(ctx, svc, svc.StopJobAsync(ctx, target)).Collect(); err != nil {
		if errors.Is(err, job.ErrActionNotAllowed) {
			return fmt.Errorf("ジョブ %d は停止できません（状態: %s, 種別: %s）", target.JobID, target.State, target.JobType)
		}
		return failed("Stop", err)
	}

	fmt.Fprintf(appCtx.Out, "✓ ジョブ %d の停止を要求しました\n", target.JobID)
	renderJobsTable(appCtx.Out, svc.Jobs().Items(), time.Now())
	return nil
}

// JobDeleteAction はジョブを削除するコマンドのアクション（Cancel/Delete）
func JobDeleteAction(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.Int64("id")

	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return fmt.Errorf("AppContextの初期化に失敗: %w", err)
	}
	defer appCtx.Close()

	svc := appCtx.Jobs()
	if err := svc.LoadJobs(ctx); err != nil {
		return failed("ジョブ一覧の取得", err)
	}

	// 一覧にないジョブでも削除要求は送る（存在判定はサーバーが行う）
	label := "Delete"
	if target, ok := svc.FindJob(jobID).Get(); ok {
		actions := target.ContextActions()
		if !actions.CanDelete {
			return fmt.Errorf("実行中のジョブ %d は削除できません（先に job stop を実行してください）", jobID)
		}
		label = actions.DeleteLabel
	}

	if !cmd.Bool("yes") {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("ジョブ %d を%sしますか", jobID, label),
			IsConfirm: true,
		}
		if _, err := prompt.Run(); err != nil {
			fmt.Fprintln(appCtx.Out, "中止しました")
			return nil
		}
	}

	if _, err := job.ReloadAfter(ctx, svc, svc.DeleteJobAsync(ctx, jobID)).Collect(); err != nil {
		return failed(label, err)
	}

	fmt.Fprintf(appCtx.Out, "✓ %s: ジョブ %d を削除しました\n", label, jobID)
	renderJobsTable(appCtx.Out, svc.Jobs().Items(), time.Now())
	return nil
}

// JobHistoryAction はジョブの進捗履歴を表示するコマンドのアクション
func JobHistoryAction(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.Int64("id")

	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return fmt.Errorf("AppContextの初期化に失敗: %w", err)
	}
	defer appCtx.Close()

	svc := appCtx.Jobs()
	if !svc.HistoryEnabled() {
		return fmt.Errorf("進捗履歴が無効です（HISTORY_ENABLED=true を設定してください）")
	}

	if cmd.Bool("prune") {
		settings, err := svc.GetSettings(ctx)
		if err != nil {
			return failed("設定の取得", err)
		}
		deleted, err := svc.PruneHistory(ctx, settings.ClearOldJobs)
		if err != nil {
			return failed("進捗履歴の削除", err)
		}
		fmt.Fprintf(appCtx.Out, "✓ %d件の古い進捗履歴を削除しました（保持期間: %s）\n", deleted, settings.ClearOldJobs.Label())
	}

	points, err := svc.History(ctx, jobID, int(cmd.Int("limit")))
	if err != nil {
		return failed("進捗履歴の取得", err)
	}
	if len(points) == 0 {
		fmt.Fprintf(appCtx.Out, "ジョブ %d の進捗履歴はありません\n", jobID)
		return nil
	}

	renderHistoryTable(appCtx.Out, points)
	return nil
}

// loadJob はジョブ一覧をロードして指定IDのジョブを返す
func loadJob(ctx context.Context, svc *job.Service, jobID int64) (*job.Job, error) {
	if err := svc.LoadJobs(ctx); err != nil {
		return nil, failed("ジョブ一覧の取得", err)
	}
	target, ok := svc.FindJob(jobID).Get()
	if !ok {
		return nil, fmt.Errorf("ジョブが見つかりません: %d", jobID)
	}
	return target, nil
}
