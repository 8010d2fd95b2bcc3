package job

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// 一覧表示の各カラムを整形する純粋関数群。UIフレームワークに依存しない。

const (
	secondsPerWeek = 604800
	secondsPerDay  = 86400
)

// FormatState は状態に失敗の目印を付けて返す。
// 失敗タイルのある RUNNING/DONE は "(!)"、DEAD は "(x)" を付ける。
func FormatState(state State, failedTileCount int64) string {
	switch state {
	case StateRunning, StateDone:
		if failedTileCount > 0 {
			return string(state) + " (!)"
		}
	case StateDead:
		return string(state) + " (x)"
	}
	return string(state)
}

// FormatJobTitle は種別・レイヤー名・グリッド情報を1行にまとめる
func FormatJobTitle(j *Job) string {
	var details []string
	if j.GridSetID != "" {
		details = append(details, j.GridSetID)
	}
	if j.Format != "" {
		details = append(details, j.Format)
	}
	if j.ZoomStart >= 0 && j.ZoomStop >= 0 {
		details = append(details, fmt.Sprintf("z%d-%d", j.ZoomStart, j.ZoomStop))
	}

	title := fmt.Sprintf("%s %s", j.EffectiveType(), j.LayerName)
	if len(details) > 0 {
		title += " (" + strings.Join(details, ", ") + ")"
	}
	return title
}

// FormatTaskTitle はタスクの種別とレイヤー名を返す
func FormatTaskTitle(t *Task) string {
	return fmt.Sprintf("%s %s", t.EffectiveType(), t.LayerName)
}

// FormatRegion は範囲を小数4桁で返す
func FormatRegion(b *BoundingBox) string {
	if b == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f, %.4f, %.4f, %.4f", b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// FormatTime は経過時間と残り時間を返す。どちらかが不明なら "n/a"
func FormatTime(timeSpent, timeRemaining int64) string {
	if timeSpent == -1 || timeRemaining == -1 {
		return "n/a"
	}
	return fmt.Sprintf("elapsed: %s / to go: %s", FormatSecondsElapsed(timeSpent), FormatSecondsElapsed(timeRemaining))
}

// FormatTileCounts は進捗率と完了/総タイル数を返す
func FormatTileCounts(tilesDone, tilesTotal int64) string {
	if tilesDone == -1 || tilesTotal == -1 {
		return "too many to count"
	}
	percent := 0.0
	if tilesTotal > 0 {
		percent = float64(tilesDone) * 100 / float64(tilesTotal)
	}
	return fmt.Sprintf("%.2f%% (%s of %s)", percent, AddCommas(tilesDone), AddCommas(tilesTotal))
}

// FormatThroughput は現在のスループットと上限を返す
func FormatThroughput(throughput float64, maxThroughput int) string {
	limit := "unlimited"
	if maxThroughput > 0 {
		limit = strconv.Itoa(maxThroughput)
	}
	return fmt.Sprintf("%.1f tiles/s (max %s)", throughput, limit)
}

// FormatSchedule はcronスケジュールと次回実行時刻を返す
func FormatSchedule(schedule string, runOnce bool, now time.Time) string {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		if runOnce {
			return "once"
		}
		return "-"
	}

	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return schedule + " (invalid)"
	}

	result := fmt.Sprintf("%s (next: %s)", schedule, sched.Next(now).Format("2006-01-02 15:04"))
	if runOnce {
		result += " once"
	}
	return result
}

// ValidateSchedule はジョブのcronスケジュールを検証する。空はスケジュールなし
func ValidateSchedule(schedule string) error {
	if strings.TrimSpace(schedule) == "" {
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return nil
}

// FormatLogLevel はログレベルを固定幅で返す
func FormatLogLevel(level LogLevel) string {
	return fmt.Sprintf("%-5s", level)
}

// FormatTimestamp は日時を表示用に整形する。未設定なら "-"
func FormatTimestamp(t Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

// FormatSecondsElapsed は秒数を「N weeks N days hh:mm:ss」形式で返す
func FormatSecondsElapsed(seconds int64) string {
	if seconds < 0 {
		return "n/a"
	}

	var b strings.Builder
	weeks := seconds / secondsPerWeek
	days := seconds % secondsPerWeek / secondsPerDay

	switch {
	case weeks > 1:
		fmt.Fprintf(&b, "%d weeks ", weeks)
	case weeks == 1:
		b.WriteString("1 week ")
	}
	switch {
	case days > 1:
		fmt.Fprintf(&b, "%d days ", days)
	case days == 1:
		b.WriteString("1 day ")
	}

	hours := seconds % secondsPerDay / 3600
	minutes := seconds % 3600 / 60
	fmt.Fprintf(&b, "%02d:%02d:%02d", hours, minutes, seconds%60)
	return b.String()
}

// AddCommas は整数に3桁区切りのカンマを入れる
func AddCommas(n int64) string {
	s := strconv.FormatInt(n, 10)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}

	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return sign + b.String()
}
