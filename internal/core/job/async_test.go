package job

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReloadAfter_ReloadsOnSuccess(t *testing.T) {
	client := &stubClient{jobs: []*Job{runningJob(1)}}
	svc := newTestService(client)
	ctx := context.Background()

	_, err := ReloadAfter(ctx, svc, svc.CloneJobAsync(ctx, runningJob(1))).Collect()
	require.NoError(t, err)

	assert.Equal(t, []string{"CreateJob", "ListJobs"}, client.calls)
	assert.Equal(t, 1, svc.Jobs().Len())
}

func TestReloadAfter_SkipsReloadOnFailure(t *testing.T) {
	client := &stubClient{err: &RequestError{Method: "PUT", URL: "/jobs.json", Status: 500, Body: "boom"}}
	svc := newTestService(client)
	ctx := context.Background()

	_, err := ReloadAfter(ctx, svc, svc.AddJobAsync(ctx, NewJob())).Collect()
	require.Error(t, err)
	assert.True(t, IsStatus(err, 500))
	assert.Equal(t, []string{"CreateJob"}, client.calls)
}

func TestGetSettingsAsync(t *testing.T) {
	client := &stubClient{settings: Settings{ClearOldJobs: RetentionYear}}
	svc := newTestService(client)

	result := svc.GetSettingsAsync(context.Background()).Result()
	require.False(t, result.IsError())
	assert.Equal(t, RetentionYear, result.MustGet().ClearOldJobs)
}

func TestReloadSettingsAfter(t *testing.T) {
	client := &stubClient{settings: Settings{ClearOldJobs: RetentionDay}}
	svc := newTestService(client)
	ctx := context.Background()

	settings, err := ReloadSettingsAfter(ctx, svc, svc.SetSettingsAsync(ctx, &Settings{ClearOldJobs: RetentionMonth})).Collect()
	require.NoError(t, err)
	assert.Equal(t, RetentionMonth, settings.ClearOldJobs)
	assert.Equal(t, []string{"SetSettings", "GetSettings"}, client.calls)

	_, err = ReloadSettingsAfter(ctx, svc, svc.SetSettingsAsync(ctx, &Settings{ClearOldJobs: -5})).Collect()
	assert.ErrorIs(t, err, ErrInvalidRetention)
	assert.Len(t, client.calls, 2)
}
