package commands

import (
	"github.com/jinford/gwc-jobctl/internal/core/job"
	"github.com/urfave/cli/v3"
)

// envFlag は各コマンド共通の環境変数ファイル指定フラグ
func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}

func jobIDFlag() cli.Flag {
	return &cli.Int64Flag{
		Name:     "id",
		Usage:    "ジョブID",
		Required: true,
	}
}

// NewApp はコマンドツリー全体を構築する
func NewApp() *cli.Command {
	return &cli.Command{
		Name:  "gwc-jobctl",
		Usage: "タイルキャッシュサーバーのジョブ・タスク・設定を管理するコンソール",
		Commands: []*cli.Command{
			{
				Name:  "job",
				Usage: "ジョブ管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "ジョブ一覧を表示",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:  "state",
								Usage: "状態でフィルタ (UNSET/READY/RUNNING/DONE/INTERRUPTED/KILLED/DEAD)",
							},
						},
						Action: JobListAction,
					},
					{
						Name:   "show",
						Usage:  "ジョブ詳細を表示",
						Flags:  []cli.Flag{envFlag(), jobIDFlag()},
						Action: JobShowAction,
					},
					{
						Name:   "logs",
						Usage:  "ジョブログを表示",
						Flags:  []cli.Flag{envFlag(), jobIDFlag()},
						Action: JobLogsAction,
					},
					{
						Name:    "clone",
						Aliases: []string{"rerun"},
						Usage:   "ジョブの設定で新しいジョブを作成 (Clone/Rerun)",
						Flags:   []cli.Flag{envFlag(), jobIDFlag()},
						Action:  JobCloneAction,
					},
					{
						Name:   "stop",
						Usage:  "実行中のジョブを停止",
						Flags:  []cli.Flag{envFlag(), jobIDFlag()},
						Action: JobStopAction,
					},
					{
						Name:    "delete",
						Aliases: []string{"cancel"},
						Usage:   "ジョブを削除 (Cancel/Delete)",
						Flags: []cli.Flag{
							envFlag(),
							jobIDFlag(),
							&cli.BoolFlag{
								Name:  "yes",
								Usage: "確認せずに削除",
							},
						},
						Action: JobDeleteAction,
					},
					{
						Name:  "history",
						Usage: "ジョブの進捗履歴を表示",
						Flags: []cli.Flag{
							envFlag(),
							jobIDFlag(),
							&cli.IntFlag{
								Name:  "limit",
								Usage: "表示件数",
								Value: 20,
							},
							&cli.BoolFlag{
								Name:  "prune",
								Usage: "表示前にサーバーの保持期間より古い履歴を削除",
							},
						},
						Action: JobHistoryAction,
					},
					{
						Name:  "watch",
						Usage: "ジョブ一覧を定期的に再表示",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:  "schedule",
								Usage: "Cron形式または @every 形式の再ロード間隔",
								Value: job.DefaultWatchSchedule,
							},
							&cli.BoolFlag{
								Name:  "prune-history",
								Usage: "各回でサーバーの保持期間より古い進捗履歴を削除",
							},
						},
						Action: JobWatchAction,
					},
				},
			},
			{
				Name:  "task",
				Usage: "タスク管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "実行中タスク一覧を表示",
						Flags:  []cli.Flag{envFlag()},
						Action: TaskListAction,
					},
				},
			},
			{
				Name:  "settings",
				Usage: "グローバル設定コマンド",
				Commands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "設定を表示",
						Flags:  []cli.Flag{envFlag()},
						Action: SettingsShowAction,
					},
					{
						Name:  "set",
						Usage: "古いジョブの保持期間を変更",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:  "retention",
								Usage: "保持期間 (day/week/month/year/never または秒数)。省略時は対話的に選択",
							},
						},
						Action: SettingsSetAction,
					},
				},
			},
		},
	}
}
