package commands

import (
	"context"
	"fmt"

	"github.com/jinford/gwc-jobctl/internal/core/job"
	"github.com/manifoldco/promptui"
	"github.com/urfave/cli/v3"
)

// SettingsShowAction はグローバル設定を表示するコマンドのアクション
func SettingsShowAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return fmt.Errorf("AppContextの初期化に失敗: %w", err)
	}
	defer appCtx.Close()

	settings, err := appCtx.Jobs().GetSettings(ctx)
	if err != nil {
		return failed("設定の取得", err)
	}

	renderSettings(appCtx.Out, settings)
	return nil
}

// SettingsSetAction は古いジョブの保持期間を変更するコマンドのアクション。
// --retention を省略した場合は選択肢から対話的に選ぶ。
func SettingsSetAction(ctx context.Context, cmd *cli.Command) error {
	value := cmd.String("retention")
	if value == "" {
		selected, err := promptRetention()
		if err != nil {
			return fmt.Errorf("保持期間の選択に失敗: %w", err)
		}
		value = selected
	}

	retention, err := job.ParseRetention(value)
	if err != nil {
		return fmt.Errorf("保持期間の指定が不正です: %w", err)
	}

	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return fmt.Errorf("AppContextの初期化に失敗: %w", err)
	}
	defer appCtx.Close()

	svc := appCtx.Jobs()
	settings, err := job.ReloadSettingsAfter(ctx, svc, svc.SetSettingsAsync(ctx, &job.Settings{ClearOldJobs: retention})).Collect()
	if err != nil {
		return failed("設定の更新", err)
	}

	fmt.Fprintln(appCtx.Out, "✓ 設定を更新しました")
	renderSettings(appCtx.Out, settings)
	return nil
}

// promptRetention は保持期間をインタラクティブに選択させます
func promptRetention() (string, error) {
	prompt := promptui.Select{
		Label: "古いジョブの保持期間",
		Items: job.RetentionChoices(),
	}
	_, selected, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return selected, nil
}
