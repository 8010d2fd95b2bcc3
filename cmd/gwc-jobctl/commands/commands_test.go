package commands

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jinford/gwc-jobctl/internal/core/job"
	"github.com/jinford/gwc-jobctl/internal/infra/gwcrest/gwcresttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliFixture struct {
	server  *gwcresttest.Server
	envFile string
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	server := gwcresttest.NewServer()
	t.Cleanup(server.Close)

	t.Setenv("GWC_REST_URL", server.BaseURL())
	t.Setenv("GWC_REQUEST_TIMEOUT", "5")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("HISTORY_ENABLED", "false")

	return &cliFixture{
		server:  server,
		envFile: filepath.Join(t.TempDir(), "missing.env"),
	}
}

// run はコマンドを実行し、標準出力相当の内容を返す
func (f *cliFixture) run(ctx context.Context, args ...string) (string, error) {
	var out, errOut bytes.Buffer
	app := NewApp()
	app.Writer = &out
	app.ErrWriter = &errOut

	argv := append([]string{"gwc-jobctl"}, args...)
	argv = append(argv, "--env", f.envFile)
	err := app.Run(ctx, argv)
	return out.String(), err
}

func fixtureJob(layer string, state job.State) *job.Job {
	j := job.NewJob()
	j.LayerName = layer
	j.State = state
	j.JobType = job.TypeSeed
	j.TilesDone = 500
	j.TilesTotal = 1000
	return j
}

func TestJobList(t *testing.T) {
	f := newCLIFixture(t)
	f.server.SeedJobs(fixtureJob("topp:states", job.StateRunning), fixtureJob("roads", job.StateDone))

	out, err := f.run(context.Background(), "job", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "topp:states")
	assert.Contains(t, out, "roads")
	assert.Contains(t, out, "50.00% (500 of 1,000)")
	assert.Contains(t, out, "2件のジョブ")

	out, err = f.run(context.Background(), "job", "list", "--state", "done")
	require.NoError(t, err)
	assert.NotContains(t, out, "topp:states")
	assert.Contains(t, out, "1件のジョブ")

	_, err = f.run(context.Background(), "job", "list", "--state", "PAUSED")
	assert.Error(t, err)
}

func TestJobShow(t *testing.T) {
	f := newCLIFixture(t)
	f.server.SeedJobs(fixtureJob("topp:states", job.StateRunning))
	id := f.server.Jobs()[0].JobID

	out, err := f.run(context.Background(), "job", "show", "--id", itoa(id))
	require.NoError(t, err)
	assert.Contains(t, out, "ジョブ詳細")
	assert.Contains(t, out, "Clone, Stop")
	assert.NotContains(t, out, "Cancel")

	_, err = f.run(context.Background(), "job", "show", "--id", "999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ジョブが見つかりません: 999")
}

func TestJobClone(t *testing.T) {
	f := newCLIFixture(t)
	f.server.SeedJobs(fixtureJob("roads", job.StateDone))
	id := f.server.Jobs()[0].JobID

	out, err := f.run(context.Background(), "job", "rerun", "--id", itoa(id))
	require.NoError(t, err)
	assert.Contains(t, out, "Rerun")
	assert.Contains(t, out, "2件のジョブ")

	jobs := f.server.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, job.StateReady, jobs[1].State)
	assert.Equal(t, int64(-1), jobs[1].TilesDone)
}

func TestJobStop(t *testing.T) {
	f := newCLIFixture(t)
	f.server.SeedJobs(fixtureJob("topp:states", job.StateRunning), fixtureJob("roads", job.StateDone))
	jobs := f.server.Jobs()

	out, err := f.run(context.Background(), "job", "stop", "--id", itoa(jobs[0].JobID))
	require.NoError(t, err)
	assert.Contains(t, out, "KILLED")
	assert.Equal(t, job.StateKilled, f.server.Jobs()[0].State)

	_, err = f.run(context.Background(), "job", "stop", "--id", itoa(jobs[1].JobID))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "停止できません")
}

func TestJobDelete(t *testing.T) {
	f := newCLIFixture(t)
	f.server.SeedJobs(fixtureJob("running", job.StateRunning), fixtureJob("ready", job.StateReady))
	jobs := f.server.Jobs()

	t.Run("実行中は削除できない", func(t *testing.T) {
		_, err := f.run(context.Background(), "job", "delete", "--id", itoa(jobs[0].JobID), "--yes")
		require.Error(t, err)
		assert.Len(t, f.server.Jobs(), 2)
	})

	t.Run("未実行ジョブはCancelとして削除する", func(t *testing.T) {
		out, err := f.run(context.Background(), "job", "cancel", "--id", itoa(jobs[1].JobID), "--yes")
		require.NoError(t, err)
		assert.Contains(t, out, "Cancel")
		assert.Len(t, f.server.Jobs(), 1)
	})

	t.Run("存在しないIDはサーバーの応答を表示する", func(t *testing.T) {
		_, err := f.run(context.Background(), "job", "delete", "--id", "999", "--yes")
		require.Error(t, err)
		assert.Equal(t, "Deleteに失敗\n404: job 999 not found", err.Error())
		assert.True(t, job.IsStatus(err, http.StatusNotFound))
		assert.Len(t, f.server.Jobs(), 1)
	})
}

func TestJobLogs(t *testing.T) {
	f := newCLIFixture(t)
	f.server.SeedJobs(fixtureJob("roads", job.StateDone), fixtureJob("rivers", job.StateDone))
	jobs := f.server.Jobs()
	f.server.SeedLogs(
		&job.JobLog{JobID: jobs[0].JobID, LogLevel: job.LogLevelWarn, LogSummary: "slow tiles"},
		&job.JobLog{JobID: jobs[1].JobID, LogLevel: job.LogLevelError, LogSummary: "other job"},
	)

	out, err := f.run(context.Background(), "job", "logs", "--id", itoa(jobs[0].JobID))
	require.NoError(t, err)
	assert.Contains(t, out, "slow tiles")
	assert.NotContains(t, out, "other job")

	out, err = f.run(context.Background(), "job", "logs", "--id", "999")
	require.NoError(t, err)
	assert.Contains(t, out, "ログはありません")
}

func TestJobHistory_Disabled(t *testing.T) {
	f := newCLIFixture(t)

	_, err := f.run(context.Background(), "job", "history", "--id", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HISTORY_ENABLED")
}

func TestJobWatch_RendersUntilCancelled(t *testing.T) {
	f := newCLIFixture(t)
	f.server.SeedJobs(fixtureJob("topp:states", job.StateRunning))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	out, err := f.run(ctx, "job", "watch", "--schedule", "@every 1h")
	require.NoError(t, err)
	assert.Contains(t, out, "topp:states")
	assert.Contains(t, out, "1件のジョブ")
}

func TestTaskList(t *testing.T) {
	f := newCLIFixture(t)

	out, err := f.run(context.Background(), "task", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "実行中のタスクはありません")

	f.server.SeedTasks(&job.Task{TaskID: 1, LayerName: "topp:states", State: job.StateRunning, Type: job.TypeSeed, Reseed: true, Priority: job.PriorityNormal})
	out, err = f.run(context.Background(), "task", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "RESEED topp:states")
}

func TestSettings(t *testing.T) {
	f := newCLIFixture(t)

	out, err := f.run(context.Background(), "settings", "set", "--retention", "week")
	require.NoError(t, err)
	assert.Contains(t, out, "week")
	assert.Equal(t, job.RetentionWeek, f.server.Settings().ClearOldJobs)

	out, err = f.run(context.Background(), "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "week (1 week 00:00:00)")

	_, err = f.run(context.Background(), "settings", "set", "--retention", "fortnight")
	assert.ErrorIs(t, err, job.ErrInvalidRetention)
}

func TestServerFailure_ShowsStatusAndBody(t *testing.T) {
	f := newCLIFixture(t)
	f.server.FailNext(http.StatusServiceUnavailable, "server is shutting down")

	_, err := f.run(context.Background(), "job", "list")
	require.Error(t, err)
	assert.Equal(t, "ジョブ一覧の取得に失敗\n503: server is shutting down", err.Error())
}

func TestActionError_TransportFailure(t *testing.T) {
	err := failed("設定の取得", &job.RequestError{Method: "GET", URL: "http://x/settings.json", Err: errors.New("connection refused")})
	assert.Equal(t, "設定の取得に失敗: GET http://x/settings.json: connection refused", err.Error())
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
