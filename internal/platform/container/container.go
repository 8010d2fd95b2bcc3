package container

import (
	"context"
	"fmt"
	"log/slog"

	corejob "github.com/jinford/gwc-jobctl/internal/core/job"
	"github.com/jinford/gwc-jobctl/internal/infra/gwcrest"
	"github.com/jinford/gwc-jobctl/internal/infra/postgres"
	"github.com/jinford/gwc-jobctl/pkg/config"
	"github.com/jinford/gwc-jobctl/pkg/db"
)

// ServiceContainer はジョブ管理コンソールの依存関係を保持する。
type ServiceContainer struct {
	JobService *corejob.Service
	Client     corejob.Client

	logger   *slog.Logger
	database *db.DB
}

type containerOptions struct {
	logger  *slog.Logger
	client  corejob.Client
	history corejob.HistoryRepository
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerClient はRESTクライアントを差し替える
func WithContainerClient(client corejob.Client) ContainerOption {
	return func(opts *containerOptions) {
		opts.client = client
	}
}

// WithContainerHistoryRepository は進捗履歴リポジトリを差し替える（データベースには接続しない）
func WithContainerHistoryRepository(repo corejob.HistoryRepository) ContainerOption {
	return func(opts *containerOptions) {
		opts.history = repo
	}
}

// NewContainer は設定からコンテナを生成する。
// 進捗履歴が有効な場合のみデータベースに接続し、テーブルを用意する。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	// Client (REST)
	client := options.client
	if client == nil {
		client = gwcrest.NewClient(
			cfg.REST.BaseURL,
			gwcrest.WithTimeout(cfg.REST.Timeout),
			gwcrest.WithLogger(options.logger),
		)
	}

	// HistoryRepository (PostgreSQL)
	var database *db.DB
	history := options.history
	if history == nil && cfg.History.Enabled {
		var err error
		database, err = db.New(ctx, db.ConnectionParams{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
		}

		repo := postgres.NewHistoryRepository(database.Pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("進捗履歴テーブルの作成に失敗しました: %w", err)
		}
		history = repo
	}

	serviceOpts := []corejob.ServiceOption{corejob.WithLogger(options.logger)}
	if history != nil {
		serviceOpts = append(serviceOpts, corejob.WithHistoryRepository(history))
	}

	return &ServiceContainer{
		JobService: corejob.NewService(client, serviceOpts...),
		Client:     client,
		logger:     options.logger,
		database:   database,
	}, nil
}

// Close は内部リソースを解放する。
func (c *ServiceContainer) Close() {
	if c != nil && c.database != nil {
		c.database.Close()
	}
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}
