package commands

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jinford/gwc-jobctl/internal/core/job"
	"github.com/olekukonko/tablewriter"
)

// renderJobsTable はジョブ一覧をテーブル形式で表示します
func renderJobsTable(w io.Writer, jobs []*job.Job, now time.Time) {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Job", "State", "Tiles", "Time", "Throughput", "Schedule", "Warn/Err")

	for _, j := range jobs {
		table.Append(
			strconv.FormatInt(j.JobID, 10),
			job.FormatJobTitle(j),
			job.FormatState(j.State, j.FailedTileCount),
			job.FormatTileCounts(j.TilesDone, j.TilesTotal),
			job.FormatTime(j.TimeSpent, j.TimeRemaining),
			job.FormatThroughput(j.Throughput, j.MaxThroughput),
			job.FormatSchedule(j.Schedule, j.RunOnce, now),
			fmt.Sprintf("%d/%d", j.WarnCount, j.ErrorCount),
		)
	}

	table.Render()
	fmt.Fprintf(w, "%d件のジョブ\n", len(jobs))
}

// renderJobDetail はジョブの詳細を表示します
func renderJobDetail(w io.Writer, j *job.Job, now time.Time) {
	actions := j.ContextActions()

	fmt.Fprintf(w, "\n=== ジョブ詳細 ===\n\n")
	fmt.Fprintf(w, "Job ID:              %d\n", j.JobID)
	fmt.Fprintf(w, "Job:                 %s\n", job.FormatJobTitle(j))
	fmt.Fprintf(w, "State:               %s\n", job.FormatState(j.State, j.FailedTileCount))
	fmt.Fprintf(w, "Priority:            %s\n", j.Priority)
	fmt.Fprintf(w, "Region:              %s\n", job.FormatRegion(j.Bounds))
	fmt.Fprintf(w, "SRS:                 %s\n", j.SRS)
	fmt.Fprintf(w, "Threads:             %d\n", j.ThreadCount)
	fmt.Fprintf(w, "Tiles:               %s\n", job.FormatTileCounts(j.TilesDone, j.TilesTotal))
	fmt.Fprintf(w, "Failed Tiles:        %s\n", job.AddCommas(j.FailedTileCount))
	fmt.Fprintf(w, "Time:                %s\n", job.FormatTime(j.TimeSpent, j.TimeRemaining))
	fmt.Fprintf(w, "Throughput:          %s\n", job.FormatThroughput(j.Throughput, j.MaxThroughput))
	fmt.Fprintf(w, "Schedule:            %s\n", job.FormatSchedule(j.Schedule, j.RunOnce, now))
	fmt.Fprintf(w, "First Start:         %s\n", job.FormatTimestamp(j.TimeFirstStart))
	fmt.Fprintf(w, "Latest Start:        %s\n", job.FormatTimestamp(j.TimeLatestStart))
	fmt.Fprintf(w, "Warnings/Errors:     %d/%d\n", j.WarnCount, j.ErrorCount)

	if j.SpawnedBy != job.UnsetID {
		fmt.Fprintf(w, "Spawned By:          %d\n", j.SpawnedBy)
	}

	fmt.Fprintf(w, "\n操作:                %s", actions.CloneLabel)
	if actions.CanStop {
		fmt.Fprintf(w, ", Stop")
	}
	if actions.CanDelete {
		fmt.Fprintf(w, ", %s", actions.DeleteLabel)
	}
	fmt.Fprintln(w)
}

// renderLogsTable はジョブログをテーブル形式で表示します
func renderLogsTable(w io.Writer, logs []*job.JobLog) {
	table := tablewriter.NewWriter(w)
	table.Header("Time", "Level", "Summary", "Detail")

	for _, l := range logs {
		table.Append(
			job.FormatTimestamp(l.LogTime),
			job.FormatLogLevel(l.LogLevel),
			l.LogSummary,
			truncateString(l.LogText, 80),
		)
	}

	table.Render()
}

// renderTasksTable はタスク一覧をテーブル形式で表示します
func renderTasksTable(w io.Writer, tasks []*job.Task, now time.Time) {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Task", "State", "Priority", "Tiles", "Time", "Threads", "Throughput", "Schedule", "Region")

	for _, t := range tasks {
		region := t.Region
		if region == "" {
			region = "-"
		}
		table.Append(
			strconv.FormatInt(t.TaskID, 10),
			job.FormatTaskTitle(t),
			job.FormatState(t.State, t.FailedTileCount),
			string(t.Priority),
			job.FormatTileCounts(t.TilesDone, t.TilesTotal),
			job.FormatTime(t.TimeSpent, t.TimeRemaining),
			strconv.Itoa(t.Threads),
			fmt.Sprintf("%.1f tiles/s", t.Throughput),
			job.FormatSchedule(t.Schedule, false, now),
			region,
		)
	}

	table.Render()
}

// renderHistoryTable は進捗履歴をテーブル形式で表示します
func renderHistoryTable(w io.Writer, points []*job.ProgressPoint) {
	table := tablewriter.NewWriter(w)
	table.Header("Observed At", "State", "Tiles", "Failed", "Throughput")

	for _, p := range points {
		table.Append(
			p.ObservedAt.Local().Format("2006-01-02 15:04:05"),
			string(p.State),
			job.FormatTileCounts(p.TilesDone, p.TilesTotal),
			job.AddCommas(p.FailedTileCount),
			fmt.Sprintf("%.1f tiles/s", p.Throughput),
		)
	}

	table.Render()
}

// renderSettings はグローバル設定を表示します
func renderSettings(w io.Writer, settings *job.Settings) {
	fmt.Fprintf(w, "Clear old jobs:      %s", settings.ClearOldJobs.Label())
	if settings.ClearOldJobs != job.RetentionNever {
		fmt.Fprintf(w, " (%s)", job.FormatSecondsElapsed(int64(settings.ClearOldJobs)))
	}
	fmt.Fprintln(w)
}

// truncateString は文字列を指定した長さに切り詰めます
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
