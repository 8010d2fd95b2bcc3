package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

// TaskListAction は実行中タスク一覧を表示するコマンドのアクション
func TaskListAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return fmt.Errorf("AppContextの初期化に失敗: %w", err)
	}
	defer appCtx.Close()

	svc := appCtx.Jobs()
	if err := svc.LoadTasks(ctx); err != nil {
		return failed("タスク一覧の取得", err)
	}

	tasks := svc.Tasks().Items()
	if len(tasks) == 0 {
		fmt.Fprintln(appCtx.Out, "実行中のタスクはありません")
		return nil
	}

	renderTasksTable(appCtx.Out, tasks, time.Now())
	return nil
}
