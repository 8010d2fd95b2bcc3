package gwcrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/gwc-jobctl/internal/core/job"
)

const (
	// DefaultBaseURL はRESTエンドポイントのデフォルトのベースURL
	DefaultBaseURL = "http://localhost:8080/geowebcache/rest"

	// DefaultTimeout はリクエストのデフォルトタイムアウト
	DefaultTimeout = 30 * time.Second

	// RequestIDHeader はリクエスト相関IDを送るヘッダー名
	RequestIDHeader = "X-Request-ID"

	maxErrorBody = 64 * 1024
)

// Client は job.Client のHTTP実装
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// コンパイル時の型チェック
var _ job.Client = (*Client)(nil)

// Option は Client 構築時のオプション
type Option func(*Client)

// WithTimeout はリクエストタイムアウトを設定する
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = timeout
	}
}

// WithHTTPClient は内部の http.Client を差し替える
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// WithLogger はロガーを差し替える
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient は新しい Client を作成する。baseURL が空ならデフォルトを使う
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL はベースURLを返す
func (c *Client) BaseURL() string {
	return c.baseURL
}

type jobsEnvelope struct {
	Jobs []*job.Job `json:"jobs"`
}

type jobEnvelope struct {
	Job *job.Job `json:"job"`
}

type logsEnvelope struct {
	Logs []*job.JobLog `json:"logs"`
}

type tasksEnvelope struct {
	Tasks []*job.Task `json:"tasks"`
}

type settingsEnvelope struct {
	Settings *job.Settings `json:"settings"`
}

// ListJobs は GET /jobs.json
func (c *Client) ListJobs(ctx context.Context) ([]*job.Job, error) {
	var env jobsEnvelope
	if err := c.do(ctx, http.MethodGet, "/jobs.json", nil, &env); err != nil {
		return nil, err
	}
	return env.Jobs, nil
}

// CreateJob は PUT /jobs.json
func (c *Client) CreateJob(ctx context.Context, j *job.Job) error {
	return c.do(ctx, http.MethodPut, "/jobs.json", jobEnvelope{Job: j}, nil)
}

// UpdateJob は POST /jobs/{id}.json
func (c *Client) UpdateJob(ctx context.Context, j *job.Job) error {
	return c.do(ctx, http.MethodPost, jobPath(j.JobID), jobEnvelope{Job: j}, nil)
}

// DeleteJob は DELETE /jobs/{id}.json
func (c *Client) DeleteJob(ctx context.Context, jobID int64) error {
	return c.do(ctx, http.MethodDelete, jobPath(jobID), nil, nil)
}

// ListJobLogs は GET /jobs/{id}/logs.json
func (c *Client) ListJobLogs(ctx context.Context, jobID int64) ([]*job.JobLog, error) {
	var env logsEnvelope
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/jobs/%d/logs.json", jobID), nil, &env); err != nil {
		return nil, err
	}
	return env.Logs, nil
}

// ListTasks は GET /tasks.json
func (c *Client) ListTasks(ctx context.Context) ([]*job.Task, error) {
	var env tasksEnvelope
	if err := c.do(ctx, http.MethodGet, "/tasks.json", nil, &env); err != nil {
		return nil, err
	}
	return env.Tasks, nil
}

// GetSettings は GET /settings.json
func (c *Client) GetSettings(ctx context.Context) (*job.Settings, error) {
	var env settingsEnvelope
	if err := c.do(ctx, http.MethodGet, "/settings.json", nil, &env); err != nil {
		return nil, err
	}
	if env.Settings == nil {
		return &job.Settings{}, nil
	}
	return env.Settings, nil
}

// SetSettings は POST /settings.json
func (c *Client) SetSettings(ctx context.Context, settings *job.Settings) error {
	return c.do(ctx, http.MethodPost, "/settings.json", settings, nil)
}

func jobPath(jobID int64) string {
	return fmt.Sprintf("/jobs/%d.json", jobID)
}

// do はリクエストを送信し、2xx 応答のボディを out にデコードする。
// 失敗はすべて *job.RequestError として返す。
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	url := c.baseURL + path
	reqErr := func(status int, body string, err error) error {
		return &job.RequestError{Method: method, URL: url, Status: status, Body: body, Err: err}
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return reqErr(0, "", fmt.Errorf("failed to encode request: %w", err))
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return reqErr(0, "", fmt.Errorf("failed to build request: %w", err))
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("リクエストに失敗しました", "method", method, "url", url, "requestID", requestID, "error", err)
		return reqErr(0, "", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("リクエストが完了しました",
		"method", method,
		"url", url,
		"status", resp.StatusCode,
		"requestID", requestID,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return reqErr(resp.StatusCode, strings.TrimSpace(string(raw)), nil)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if !errors.Is(err, job.ErrInvalidRecord) {
			err = fmt.Errorf("%w: %v", job.ErrInvalidRecord, err)
		}
		return reqErr(resp.StatusCode, "", err)
	}
	return nil
}
