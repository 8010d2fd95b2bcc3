package gwcrest_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/gwc-jobctl/internal/core/job"
	"github.com/jinford/gwc-jobctl/internal/infra/gwcrest"
	"github.com/jinford/gwc-jobctl/internal/infra/gwcrest/gwcresttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T) (*gwcresttest.Server, *job.Service) {
	t.Helper()
	server := gwcresttest.NewServer()
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := gwcrest.NewClient(server.BaseURL(), gwcrest.WithLogger(logger), gwcrest.WithTimeout(5*time.Second))
	return server, job.NewService(client, job.WithLogger(logger))
}

func seedJob(layer string, state job.State) *job.Job {
	j := job.NewJob()
	j.LayerName = layer
	j.State = state
	j.JobType = job.TypeSeed
	j.GridSetID = "EPSG:4326"
	j.Format = "image/png"
	j.TilesDone = 500
	j.TilesTotal = 1000
	return j
}

func TestCreateThenReload_AssignsIDAndInitialState(t *testing.T) {
	_, svc := newFixture(t)
	ctx := context.Background()

	newJob := seedJob("topp:states", job.StateUnset)
	require.NoError(t, svc.AddJob(ctx, newJob))
	assert.Zero(t, svc.Jobs().Len(), "mutations must not touch the store")

	require.NoError(t, svc.LoadJobs(ctx))
	require.Equal(t, 1, svc.Jobs().Len())

	created := svc.Jobs().Items()[0]
	assert.NotEqual(t, job.UnsetID, created.JobID)
	assert.Contains(t, []job.State{job.StateUnset, job.StateReady}, created.State)
	assert.Equal(t, "topp:states", created.LayerName)
}

func TestDeleteUnknownID_LeavesOthersIntact(t *testing.T) {
	server, svc := newFixture(t)
	ctx := context.Background()
	server.SeedJobs(seedJob("a", job.StateDone), seedJob("b", job.StateReady))

	err := svc.DeleteJob(ctx, 999)
	require.Error(t, err)
	assert.True(t, job.IsStatus(err, http.StatusNotFound))

	reqErr, ok := job.AsRequestError(err)
	require.True(t, ok)
	assert.Equal(t, "job 999 not found", reqErr.Body)

	require.NoError(t, svc.LoadJobs(ctx))
	assert.Equal(t, 2, svc.Jobs().Len())
}

func TestDeleteJob_RemovesRecordAfterReload(t *testing.T) {
	server, svc := newFixture(t)
	ctx := context.Background()
	server.SeedJobs(seedJob("a", job.StateDone), seedJob("b", job.StateReady))

	require.NoError(t, svc.LoadJobs(ctx))
	require.Equal(t, 2, svc.Jobs().Len())

	target := server.Jobs()[0].JobID
	require.NoError(t, svc.DeleteJob(ctx, target))
	assert.Equal(t, 2, svc.Jobs().Len())

	require.NoError(t, svc.LoadJobs(ctx))
	assert.True(t, svc.FindJob(target).IsAbsent())
	assert.Equal(t, 1, svc.Jobs().Len())
}

func TestSettingsRoundTrip(t *testing.T) {
	server, svc := newFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.SetSettings(ctx, &job.Settings{ClearOldJobs: 604800}))
	assert.Equal(t, job.RetentionWeek, server.Settings().ClearOldJobs)

	settings, err := svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, job.Retention(604800), settings.ClearOldJobs)
}

func TestStopJob_RequestsKilled(t *testing.T) {
	server, svc := newFixture(t)
	ctx := context.Background()
	server.SeedJobs(seedJob("running", job.StateRunning))

	require.NoError(t, svc.LoadJobs(ctx))
	running := svc.Jobs().Items()[0]

	_, err := job.ReloadAfter(ctx, svc, svc.StopJobAsync(ctx, running)).Collect()
	require.NoError(t, err)

	assert.Equal(t, job.StateKilled, svc.FindJob(running.JobID).MustGet().State)
}

func TestCloneJob_CreatesNewRecord(t *testing.T) {
	server, svc := newFixture(t)
	ctx := context.Background()
	server.SeedJobs(seedJob("done", job.StateDone))

	require.NoError(t, svc.LoadJobs(ctx))
	original := svc.Jobs().Items()[0]
	require.Equal(t, "Rerun", original.ContextActions().CloneLabel)

	require.NoError(t, svc.CloneJob(ctx, original))
	require.NoError(t, svc.LoadJobs(ctx))

	require.Equal(t, 2, svc.Jobs().Len())
	clone := svc.Jobs().Find(func(j *job.Job) bool { return j.JobID != original.JobID }).MustGet()
	assert.Equal(t, job.StateReady, clone.State)
	assert.Equal(t, int64(-1), clone.TilesDone)
	assert.Equal(t, "done", clone.LayerName)
}

func TestLoadLogs_OnlyTargetJob(t *testing.T) {
	server, svc := newFixture(t)
	ctx := context.Background()
	server.SeedJobs(seedJob("a", job.StateDone), seedJob("b", job.StateDone))
	jobs := server.Jobs()
	server.SeedLogs(
		&job.JobLog{JobID: jobs[0].JobID, LogLevel: job.LogLevelInfo, LogSummary: "started"},
		&job.JobLog{JobID: jobs[1].JobID, LogLevel: job.LogLevelError, LogSummary: "other"},
		&job.JobLog{JobID: jobs[0].JobID, LogLevel: job.LogLevelWarn, LogSummary: "slow"},
	)

	require.NoError(t, svc.LoadLogs(ctx, jobs[0].JobID))

	logs := svc.Logs().Items()
	require.Len(t, logs, 2)
	for _, l := range logs {
		assert.Equal(t, jobs[0].JobID, l.JobID)
	}
}

func TestLoadTasks(t *testing.T) {
	server, svc := newFixture(t)
	server.SeedTasks(
		&job.Task{TaskID: 1, LayerName: "a", Priority: job.PriorityLow, State: job.StateRunning, Type: job.TypeSeed},
		&job.Task{TaskID: 2, LayerName: "b", Priority: job.PriorityHigh, State: job.StateRunning, Type: job.TypeTruncate},
	)

	require.NoError(t, svc.LoadTasks(context.Background()))
	tasks := svc.Tasks().Items()
	require.Len(t, tasks, 2)
	assert.Equal(t, int64(2), tasks[0].TaskID)
}

func TestLoadFailure_KeepsStoreAndReturnsStatus(t *testing.T) {
	server, svc := newFixture(t)
	ctx := context.Background()
	server.SeedJobs(seedJob("a", job.StateDone))
	require.NoError(t, svc.LoadJobs(ctx))

	server.FailNext(http.StatusInternalServerError, "database unavailable")
	err := svc.LoadJobs(ctx)
	require.Error(t, err)

	reqErr, ok := job.AsRequestError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, reqErr.Status)
	assert.Equal(t, "database unavailable", reqErr.Body)
	assert.Equal(t, 1, svc.Jobs().Len())
	assert.True(t, svc.Jobs().Stale())
}

func TestRequestsCarryRequestID(t *testing.T) {
	server, svc := newFixture(t)
	require.NoError(t, svc.LoadJobs(context.Background()))

	requests := server.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodGet, requests[0].Method)
	assert.Equal(t, gwcresttest.BasePath+"/jobs.json", requests[0].Path)
	_, err := uuid.Parse(requests[0].RequestID)
	assert.NoError(t, err)
}

func TestTransportFailure_HasZeroStatus(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	baseURL := ts.URL
	ts.Close()

	client := gwcrest.NewClient(baseURL, gwcrest.WithTimeout(time.Second))
	_, err := client.ListJobs(context.Background())
	require.Error(t, err)

	reqErr, ok := job.AsRequestError(err)
	require.True(t, ok)
	assert.Zero(t, reqErr.Status)
	assert.NotNil(t, reqErr.Err)
}

func TestMalformedBody_IsInvalidRecord(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"壊れたJSON", `{"jobs": [`},
		{"未知の状態", `{"jobs": [{"jobId": 1, "state": "PAUSED"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, tt.body)
			}))
			defer ts.Close()

			_, err := gwcrest.NewClient(ts.URL).ListJobs(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, job.ErrInvalidRecord), "got %v", err)
			assert.True(t, job.IsStatus(err, http.StatusOK))
		})
	}
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	assert.Equal(t, gwcrest.DefaultBaseURL, gwcrest.NewClient("").BaseURL())
	assert.Equal(t, "http://example.com/rest", gwcrest.NewClient("http://example.com/rest/").BaseURL())
}
