package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jinford/gwc-jobctl/internal/core/job"
	"github.com/jinford/gwc-jobctl/internal/platform/container"
	"github.com/jinford/gwc-jobctl/internal/platform/logger"
	"github.com/jinford/gwc-jobctl/pkg/config"
	"github.com/urfave/cli/v3"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config    *config.Config
	Container *container.ServiceContainer
	Out       io.Writer
}

// NewAppContext は設定ファイルを読み込み、ロガーとコンテナを初期化して AppContext を作成する
func NewAppContext(ctx context.Context, cmd *cli.Command) (*AppContext, error) {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("ログ設定が不正です: %w", err)
	}
	appLogger := logger.New(logger.Config{
		Level:  level,
		Format: cfg.Log.Format,
		Output: errWriter(cmd),
	})

	cont, err := container.NewContainer(ctx, cfg, container.WithContainerLogger(appLogger))
	if err != nil {
		return nil, fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}

	return &AppContext{
		Config:    cfg,
		Container: cont,
		Out:       writer(cmd),
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Container != nil {
		ac.Container.Close()
	}
}

// Jobs はジョブサービスを返す
func (ac *AppContext) Jobs() *job.Service {
	return ac.Container.JobService
}

// Logger はAppContextのロガーを返す
func (ac *AppContext) Logger() *slog.Logger {
	if ac.Container != nil {
		return ac.Container.Logger()
	}
	return slog.Default()
}

// writer は表示先を返す。テストではルートコマンドの Writer を差し替える
func writer(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return os.Stdout
}

func errWriter(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.ErrWriter != nil {
		return root.ErrWriter
	}
	return os.Stderr
}

// actionError はCLI操作の失敗を「<操作>に失敗」とサーバーの応答で表す
type actionError struct {
	op  string
	err error
}

func (e *actionError) Error() string {
	if reqErr, ok := job.AsRequestError(e.err); ok && reqErr.Status != 0 && reqErr.Body != "" {
		return fmt.Sprintf("%sに失敗\n%d: %s", e.op, reqErr.Status, reqErr.Body)
	}
	return fmt.Sprintf("%sに失敗: %v", e.op, e.err)
}

func (e *actionError) Unwrap() error {
	return e.err
}

func failed(op string, err error) error {
	return &actionError{op: op, err: err}
}
